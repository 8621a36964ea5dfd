package compose

import (
	"image"
	"sort"
	"sync"
)

// BlendWithMask 三路混合：Mask 为 255 处取 Image，为 0 处取 Background
const BlendWithMask = "blendWithMask"

// FilterInput 滤镜的三个输入
type FilterInput struct {
	Image      image.Image
	Background image.Image
	Mask       *image.Gray
}

// Filter 滤镜图中的一个节点，输出可以是惰性求值的图像
type Filter interface {
	Apply(in FilterInput) (image.Image, error)
}

// FilterFunc 函数适配器
type FilterFunc func(in FilterInput) (image.Image, error)

func (f FilterFunc) Apply(in FilterInput) (image.Image, error) {
	return f(in)
}

type entry struct {
	filter Filter
	desc   string
}

var (
	builtinMu      sync.Mutex
	builtinFilters = map[string]entry{
		BlendWithMask: {filter: FilterFunc(blendWithMask), desc: "go"},
	}
)

// registerBuiltin 供带 build tag 的加速实现覆盖默认滤镜
func registerBuiltin(name, desc string, f Filter) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtinFilters[name] = entry{filter: f, desc: desc}
}

// Registry 按名字查找滤镜
type Registry struct {
	mu      sync.RWMutex
	filters map[string]entry
}

// NewRegistry 空注册表
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]entry)}
}

// NewDefaultRegistry 包含当前构建可用的全部内置滤镜
func NewDefaultRegistry() *Registry {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	r := NewRegistry()
	for name, e := range builtinFilters {
		r.filters[name] = e
	}
	return r
}

// Register 同名覆盖
func (r *Registry) Register(name, desc string, f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = entry{filter: f, desc: desc}
}

// Unregister 删除滤镜，用于关闭某条路径
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.filters, name)
}

func (r *Registry) Lookup(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.filters[name]
	return e.filter, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Describe 返回滤镜实现的说明，未注册时为空
func (r *Registry) Describe(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filters[name].desc
}

// Names 已注册的滤镜名，按字母序
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
