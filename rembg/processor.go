package rembg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/segmentio/ksuid"
)

// ErrBusy 已有请求在处理中
var ErrBusy = errors.New("rembg: a request is already in flight")

type Request struct {
	ID    string
	Image *bitmap.Bitmap
}

type Response struct {
	ID      string
	Result  *bitmap.Bitmap
	Err     error
	Elapsed time.Duration
}

// Processor 同一时刻只处理一个请求，完成后通过回调返回结果
// 请求一旦提交就不能取消，也没有超时
type Processor struct {
	remover Remover
	busy    atomic.Bool
	wg      sync.WaitGroup
}

func NewProcessor(remover Remover) *Processor {
	return &Processor{remover: remover}
}

// Busy 是否有请求在处理中
func (p *Processor) Busy() bool {
	return p.busy.Load()
}

// Submit 在后台 goroutine 中处理，done 恰好被调用一次
func (p *Processor) Submit(ctx context.Context, req Request, done func(Response)) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	if req.ID == "" {
		req.ID = ksuid.New().String()
	}
	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		resp := p.run(ctx, req)
		p.busy.Store(false)
		if done != nil {
			done(resp)
		}
	}()
	return nil
}

// Process Submit 的同步版本
func (p *Processor) Process(ctx context.Context, req Request) (Response, error) {
	ch := make(chan Response, 1)
	if err := p.Submit(ctx, req, func(resp Response) { ch <- resp }); err != nil {
		return Response{}, err
	}
	return <-ch, nil
}

// Wait 等待进行中的请求结束
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) run(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	resp.ID = req.ID
	defer func() {
		if r := recover(); r != nil {
			resp.Result = nil
			resp.Err = fmt.Errorf("%w: panic: %v", ErrCompositeFailed, r)
		}
		resp.Elapsed = time.Since(start)
		slog.Info("request finished", "id", resp.ID, "elapsed", resp.Elapsed, "error", resp.Err)
	}()

	slog.Info("request started", "id", req.ID)
	resp.Result, resp.Err = p.remover.Remove(ctx, req.Image)
	return resp
}
