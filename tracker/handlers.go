package tracker

import (
	"go.uber.org/zap"

	"github.com/wippyai/objtrack/chain"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/vk"
)

// handler holds call-specific behavior. validate and pre run after the
// generic handling; post replaces it.
type handler struct {
	validate func(t *Tracker, call *vk.Call) []diag.Violation
	pre      func(t *Tracker, call *vk.Call, r *chain.Report)
	post     func(t *Tracker, call *vk.Call, r *chain.Report)
}

var handlers = map[string]handler{
	"vkEnumeratePhysicalDevices": {post: postEnumeratePhysicalDevices},
	"vkCreateDevice":             {post: postCreateDevice},
}

// Physical devices are implicit children of their instance. They are also
// bound to the instance's block so scope resolution stops there.
func postEnumeratePhysicalDevices(t *Tracker, call *vk.Call, r *chain.Report) {
	instance := call.Handle(0)
	t.record(call, call.Command(), instance, r)

	inst, ok := t.router.Lookup(instance)
	if !ok {
		return
	}
	for _, h := range call.Out {
		if err := t.router.Bind(h, inst.Key); err != nil {
			Logger().Warn("bind physical device", zap.Stringer("handle", h), zap.Error(err))
		}
	}
}

// A device is owned by the instance its physical device was enumerated
// from, so destroying that instance first is a destruction-order error.
func postCreateDevice(t *Tracker, call *vk.Call, r *chain.Report) {
	parent := vk.NullHandle
	if gpu, ok := t.reg.Lookup(call.Handle(0)); ok {
		parent = gpu.Parent
	}
	t.record(call, call.Command(), parent, r)
}
