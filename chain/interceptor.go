package chain

import (
	"context"

	"github.com/wippyai/objtrack/vk"
)

// Interceptor participates in the three-phase call protocol.
type Interceptor interface {
	Name() string

	// PreValidate inspects the call and returns true to skip it.
	PreValidate(ctx context.Context, call *vk.Call, r *Report) bool

	// PreRecord updates state before the next layer is called.
	PreRecord(ctx context.Context, call *vk.Call, r *Report)

	// PostRecord commits state after the next layer succeeded.
	PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *Report)
}

// Funcs adapts plain functions to Interceptor. Nil phases do nothing.
type Funcs struct {
	ID       string
	Validate func(ctx context.Context, call *vk.Call, r *Report) bool
	Before   func(ctx context.Context, call *vk.Call, r *Report)
	After    func(ctx context.Context, call *vk.Call, result vk.Result, r *Report)
}

func (f *Funcs) Name() string { return f.ID }

func (f *Funcs) PreValidate(ctx context.Context, call *vk.Call, r *Report) bool {
	if f.Validate == nil {
		return false
	}
	return f.Validate(ctx, call, r)
}

func (f *Funcs) PreRecord(ctx context.Context, call *vk.Call, r *Report) {
	if f.Before != nil {
		f.Before(ctx, call, r)
	}
}

func (f *Funcs) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *Report) {
	if f.After != nil {
		f.After(ctx, call, result, r)
	}
}

var _ Interceptor = (*Funcs)(nil)
