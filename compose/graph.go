package compose

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chaos-io/cutout/bitmap"
)

// nrgbaImage 能直接给出非预乘颜色的节点，渲染时不经过预乘转换
type nrgbaImage interface {
	image.Image
	NRGBAAt(x, y int) color.NRGBA
}

// clearImage 全透明背景
type clearImage struct {
	rect image.Rectangle
}

// Clear 指定范围的全透明图
func Clear(r image.Rectangle) image.Image {
	return clearImage{rect: r}
}

func (c clearImage) ColorModel() color.Model      { return color.NRGBAModel }
func (c clearImage) Bounds() image.Rectangle      { return c.rect }
func (c clearImage) At(x, y int) color.Color      { return color.NRGBA{} }
func (c clearImage) NRGBAAt(x, y int) color.NRGBA { return color.NRGBA{} }

// sourceImage 原图的不透明视图，丢弃原有 alpha
type sourceImage struct {
	b   *bitmap.Bitmap
	bpp int
}

// Source 把位图作为滤镜图的输入节点
func Source(b *bitmap.Bitmap) image.Image {
	return sourceImage{b: b, bpp: b.BytesPerPixel()}
}

func (s sourceImage) ColorModel() color.Model { return color.NRGBAModel }
func (s sourceImage) Bounds() image.Rectangle { return s.b.Bounds() }
func (s sourceImage) At(x, y int) color.Color { return s.NRGBAAt(x, y) }

func (s sourceImage) NRGBAAt(x, y int) color.NRGBA {
	if !(image.Point{X: x, Y: y}).In(s.b.Bounds()) {
		return color.NRGBA{}
	}
	i := y*s.b.Stride + x*s.bpp
	return color.NRGBA{R: s.b.Pix[i], G: s.b.Pix[i+1], B: s.b.Pix[i+2], A: 0xff}
}

// blendImage BlendWithMask 的惰性输出
// 输出范围是三个输入的并集，需要下游裁剪
type blendImage struct {
	fg, bg image.Image
	mask   *image.Gray
	rect   image.Rectangle
}

func blendWithMask(in FilterInput) (image.Image, error) {
	if in.Image == nil || in.Background == nil || in.Mask == nil {
		return nil, fmt.Errorf("blendWithMask: missing input")
	}
	return &blendImage{
		fg:   in.Image,
		bg:   in.Background,
		mask: in.Mask,
		rect: in.Image.Bounds().Union(in.Background.Bounds()).Union(in.Mask.Bounds()),
	}, nil
}

func (b *blendImage) ColorModel() color.Model { return color.NRGBAModel }
func (b *blendImage) Bounds() image.Rectangle { return b.rect }
func (b *blendImage) At(x, y int) color.Color { return b.NRGBAAt(x, y) }

// NRGBAAt 在预乘空间做 lerp(bg, fg, m/255)，再还原为直通 alpha
// 覆盖率为 0 时沿用前景颜色，保证 RGB 与原图一致
func (b *blendImage) NRGBAAt(x, y int) color.NRGBA {
	p := image.Point{X: x, Y: y}
	var t uint32
	if p.In(b.mask.Rect) {
		t = uint32(b.mask.GrayAt(x, y).Y)
	}
	f := nrgbaAt(b.fg, p)
	g := nrgbaAt(b.bg, p)

	fw := uint32(f.A) * t
	gw := uint32(g.A) * (0xff - t)
	sum := fw + gw
	if sum == 0 {
		return color.NRGBA{R: f.R, G: f.G, B: f.B, A: 0}
	}

	ch := func(fc, gc uint8) uint8 {
		v := (uint32(fc)*fw + uint32(gc)*gw + sum/2) / sum
		if v > 0xff {
			v = 0xff
		}
		return uint8(v)
	}
	return color.NRGBA{
		R: ch(f.R, g.R),
		G: ch(f.G, g.G),
		B: ch(f.B, g.B),
		A: uint8((sum + 127) / 0xff),
	}
}

func nrgbaAt(img image.Image, p image.Point) color.NRGBA {
	if !p.In(img.Bounds()) {
		return color.NRGBA{}
	}
	if n, ok := img.(nrgbaImage); ok {
		return n.NRGBAAt(p.X, p.Y)
	}
	return color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
}

// cropImage 裁剪到指定范围
type cropImage struct {
	src  image.Image
	rect image.Rectangle
}

// Crop 与 src 范围取交集
func Crop(src image.Image, r image.Rectangle) image.Image {
	return cropImage{src: src, rect: src.Bounds().Intersect(r)}
}

func (c cropImage) ColorModel() color.Model      { return c.src.ColorModel() }
func (c cropImage) Bounds() image.Rectangle      { return c.rect }
func (c cropImage) At(x, y int) color.Color      { return c.NRGBAAt(x, y) }
func (c cropImage) NRGBAAt(x, y int) color.NRGBA { return nrgbaAt(c.src, image.Point{X: x, Y: y}) }

// render 把节点光栅化为 *image.NRGBA，原点移到 (0,0)
func render(src image.Image) *image.NRGBA {
	r := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < r.Dx(); x++ {
			c := nrgbaAt(src, image.Point{X: r.Min.X + x, Y: r.Min.Y + y})
			row[x*4] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
	return dst
}

// GraphCompositor 通过滤镜图合成：Clear 背景 + 原图 + 遮罩 -> BlendWithMask -> 裁剪 -> 渲染
type GraphCompositor struct {
	reg *Registry
}

func NewGraphCompositor(reg *Registry) *GraphCompositor {
	return &GraphCompositor{reg: reg}
}

func (g *GraphCompositor) Name() string {
	return "graph"
}

func (g *GraphCompositor) Composite(original *bitmap.Bitmap, mask *bitmap.Mask) (*bitmap.Bitmap, error) {
	if err := original.Validate(); err != nil {
		return nil, err
	}
	mask, err := fitMask(original, mask)
	if err != nil {
		return nil, err
	}

	filter, ok := g.reg.Lookup(BlendWithMask)
	if !ok {
		return nil, ErrFilterUnavailable
	}

	extent := original.Bounds()
	out, err := filter.Apply(FilterInput{
		Image:      Source(original),
		Background: Clear(extent),
		Mask:       mask.Gray(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BlendWithMask, err)
	}
	if out == nil {
		return nil, ErrNoOutput
	}

	final := Crop(out, extent)
	if final.Bounds() != extent {
		return nil, fmt.Errorf("%w: output %v does not cover %v", ErrNoOutput, final.Bounds(), extent)
	}

	img := render(final)
	return &bitmap.Bitmap{
		Width:       original.Width,
		Height:      original.Height,
		Stride:      img.Stride,
		Format:      bitmap.FormatRGBA,
		Pix:         img.Pix,
		Orientation: bitmap.Up,
	}, nil
}
