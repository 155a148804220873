package layer

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/objtrack/chain"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/router"
	"github.com/wippyai/objtrack/vk"
)

// scope maintains state blocks and debug messenger sinks. It runs first
// in every chain.
type scope struct {
	l *Layer
}

func (s *scope) Name() string { return "scope" }

func (s *scope) PreValidate(ctx context.Context, call *vk.Call, r *chain.Report) bool {
	return false
}

func (s *scope) PreRecord(ctx context.Context, call *vk.Call, r *chain.Report) {
	rt := s.l.router
	switch call.Name {
	case "vkDestroyInstance", "vkDestroyDevice":
		b, ok := rt.Lookup(call.Handle(0))
		if !ok || b.Owner != call.Handle(0) {
			return
		}
		if err := rt.BeginTeardown(b.Key); err != nil {
			s.l.log.Warn("begin teardown", zap.Stringer("key", b.Key), zap.Error(err))
		}

	case "vkDestroyDebugUtilsMessengerEXT":
		if b, ok := rt.Lookup(call.Handle(0)); ok {
			b.DetachSink(call.Handle(1))
		}
	}
}

func (s *scope) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *chain.Report) {
	rt := s.l.router
	switch call.Name {
	case "vkCreateInstance":
		if len(call.Out) == 0 {
			return
		}
		s.createInstance(call, r)

	case "vkCreateDevice":
		if len(call.Out) == 0 {
			return
		}
		s.createDevice(call, r)

	case "vkDestroyInstance":
		b, ok := rt.Lookup(call.Handle(0))
		if !ok {
			return
		}
		for _, dev := range rt.Devices(b.Key) {
			s.remove(dev)
		}
		s.remove(b)

	case "vkDestroyDevice":
		if b, ok := rt.Lookup(call.Handle(0)); ok {
			s.remove(b)
		}

	case "vkCreateDebugUtilsMessengerEXT":
		sink, ok := call.Payload.(diag.Sink)
		if !ok || len(call.Out) == 0 {
			return
		}
		if b, ok := rt.Lookup(call.Handle(0)); ok {
			b.AttachSink(call.Out[0], sink)
		}
	}
}

func (s *scope) createInstance(call *vk.Call, r *chain.Report) {
	h := call.Out[0]
	procs, err := s.l.resolver.InstanceProcs(h)
	if err != nil {
		s.failed(call, h, vk.ObjectInstance, err, r)
		return
	}
	if _, err := s.l.router.CreateInstanceBlock(h, procs, router.NewCapabilities(call.Extensions...)); err != nil {
		s.failed(call, h, vk.ObjectInstance, err, r)
	}
}

func (s *scope) createDevice(call *vk.Call, r *chain.Report) {
	h := call.Out[0]
	phys, ok := s.l.router.Lookup(call.Handle(0))
	if !ok {
		s.failed(call, h, vk.ObjectDevice, errors.UnresolvedScope(call.Handle(0), "physical device not bound"), r)
		return
	}

	procs, err := s.l.resolver.DeviceProcs(h)
	if err != nil {
		s.failed(call, h, vk.ObjectDevice, err, r)
		return
	}
	if _, err := s.l.router.CreateDeviceBlock(h, phys.Instance().Key, procs, router.NewCapabilities(call.Extensions...)); err != nil {
		s.failed(call, h, vk.ObjectDevice, err, r)
	}
}

// failed reports a created object that cannot be dispatched through. The
// next layer succeeded, so the result is left alone.
func (s *scope) failed(call *vk.Call, h vk.Handle, t vk.ObjectType, err error, r *chain.Report) {
	s.l.log.Error("create state block", zap.String("call", call.Name), zap.Stringer("handle", h), zap.Error(err))
	r.Add(diag.New(errors.KindUnresolvedScope, call.Name, h, t, "no state block: %v", err))
}

func (s *scope) remove(b *router.StateBlock) {
	rt := s.l.router
	if b.State() == router.StateActive {
		if err := rt.BeginTeardown(b.Key); err != nil {
			s.l.log.Warn("begin teardown", zap.Stringer("key", b.Key), zap.Error(err))
			return
		}
	}
	if err := rt.Remove(b.Key); err != nil {
		s.l.log.Warn("remove state block", zap.Stringer("key", b.Key), zap.Error(err))
	}
}

var _ chain.Interceptor = (*scope)(nil)
