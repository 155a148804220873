package chain

import (
	"context"
	"sync"

	"github.com/wippyai/objtrack/vk"
)

// Next forwards a call to the next layer.
type Next func(ctx context.Context, call *vk.Call) vk.Result

// Chain is an immutable ordered list of interceptors.
type Chain struct {
	interceptors []Interceptor
}

// New builds a chain applied in the given order to every call.
func New(interceptors ...Interceptor) *Chain {
	list := make([]Interceptor, 0, len(interceptors))
	for _, i := range interceptors {
		if i != nil {
			list = append(list, i)
		}
	}
	return &Chain{interceptors: list}
}

// Names returns interceptor names in registration order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.interceptors))
	for i, ic := range c.interceptors {
		out[i] = ic.Name()
	}
	return out
}

// Len returns the number of interceptors.
func (c *Chain) Len() int { return len(c.interceptors) }

// PreValidate runs every interceptor, even after one has asked to skip,
// and reports whether any did.
func (c *Chain) PreValidate(ctx context.Context, call *vk.Call, r *Report) bool {
	skip := false
	for _, ic := range c.interceptors {
		if ic.PreValidate(ctx, call, r) {
			r.Skip(ic.Name())
			skip = true
		}
	}
	return skip
}

// PreRecord runs every interceptor's pre-record phase in order.
func (c *Chain) PreRecord(ctx context.Context, call *vk.Call, r *Report) {
	for _, ic := range c.interceptors {
		ic.PreRecord(ctx, call, r)
	}
}

// PostRecord runs every interceptor's post-record phase in order.
func (c *Chain) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *Report) {
	for _, ic := range c.interceptors {
		ic.PostRecord(ctx, call, result, r)
	}
}

// Run drives one call through the chain. The guard is held for the
// validate and pre-record phases and for post-record, never across next.
func (c *Chain) Run(ctx context.Context, call *vk.Call, guard sync.Locker, r *Report, next Next) vk.Result {
	var skip bool
	withLock(guard, func() {
		if skip = c.PreValidate(ctx, call, r); !skip {
			c.PreRecord(ctx, call, r)
		}
	})
	if skip {
		return vk.ErrorValidationFailed
	}

	result := next(ctx, call)
	if !result.Succeeded() {
		return result
	}

	withLock(guard, func() {
		c.PostRecord(ctx, call, result, r)
	})
	return result
}

func withLock(l sync.Locker, fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}
