// Package mock provides an in-process fake driver. It mints a unique handle
// for every object a call produces, records every invocation, and can be
// told to fail specific commands.
package mock

import (
	"context"
	"sync"

	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/vk"
)

// DefaultFirstHandle is the first handle value minted.
const DefaultFirstHandle = 0x1000

type failure struct {
	result vk.Result
	always bool
}

// Driver is a thread-safe fake next layer.
type Driver struct {
	calls    map[string]int
	failures map[string]failure
	hooks    map[string]func(*vk.Call)
	physical map[vk.Handle][]vk.Handle
	queues   map[vk.Handle]map[int]vk.Handle
	images   map[vk.Handle][]vk.Handle
	log      []string
	free     []vk.Handle
	next     uint64
	physN    int
	imageN   int
	reuse    bool
	mu       sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithPhysicalDevices sets how many physical devices each instance reports.
func WithPhysicalDevices(n int) Option {
	return func(d *Driver) { d.physN = n }
}

// WithSwapchainImages sets how many images each swapchain reports.
func WithSwapchainImages(n int) Option {
	return func(d *Driver) { d.imageN = n }
}

// WithHandleReuse makes the driver hand out destroyed non-dispatchable
// handle values again, most recently destroyed first.
func WithHandleReuse() Option {
	return func(d *Driver) { d.reuse = true }
}

// WithFirstHandle sets the first handle value minted.
func WithFirstHandle(h vk.Handle) Option {
	return func(d *Driver) { d.next = uint64(h) - 1 }
}

// New creates a fake driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		hooks:    make(map[string]func(*vk.Call)),
		physical: make(map[vk.Handle][]vk.Handle),
		queues:   make(map[vk.Handle]map[int]vk.Handle),
		images:   make(map[vk.Handle][]vk.Handle),
		next:     DefaultFirstHandle - 1,
		physN:    1,
		imageN:   3,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fail makes the next call to name return r.
func (d *Driver) Fail(name string, r vk.Result) {
	d.mu.Lock()
	d.failures[name] = failure{result: r}
	d.mu.Unlock()
}

// FailAlways makes every call to name return r until Clear.
func (d *Driver) FailAlways(name string, r vk.Result) {
	d.mu.Lock()
	d.failures[name] = failure{result: r, always: true}
	d.mu.Unlock()
}

// Clear removes failure injection for name.
func (d *Driver) Clear(name string) {
	d.mu.Lock()
	delete(d.failures, name)
	d.mu.Unlock()
}

// Hook runs fn on every call to name before it completes. fn runs without
// the driver's lock held and may block.
func (d *Driver) Hook(name string, fn func(*vk.Call)) {
	d.mu.Lock()
	d.hooks[name] = fn
	d.mu.Unlock()
}

// Calls returns how many times name reached the driver.
func (d *Driver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// TotalCalls returns how many calls reached the driver.
func (d *Driver) TotalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += c
	}
	return n
}

// Log returns every call that reached the driver, in order.
func (d *Driver) Log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.log))
	copy(out, d.log)
	return out
}

// Reset clears counters and the call log. Minted handles stay minted.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = make(map[string]int)
	d.log = nil
}

func (d *Driver) GlobalProcs() (driver.ProcTable, error) {
	return driver.Build(d.lookup, vk.ScopeGlobal), nil
}

func (d *Driver) InstanceProcs(vk.Handle) (driver.ProcTable, error) {
	return driver.Build(d.lookup, vk.ScopeInstance, vk.ScopeDevice), nil
}

func (d *Driver) DeviceProcs(vk.Handle) (driver.ProcTable, error) {
	return driver.Build(d.lookup, vk.ScopeDevice), nil
}

func (d *Driver) lookup(string) (driver.Proc, bool) {
	return d.Invoke, true
}

// Invoke executes call against the fake driver.
func (d *Driver) Invoke(ctx context.Context, call *vk.Call) vk.Result {
	d.mu.Lock()
	d.calls[call.Name]++
	d.log = append(d.log, call.String())
	hook := d.hooks[call.Name]
	if f, ok := d.failures[call.Name]; ok {
		if !f.always {
			delete(d.failures, call.Name)
		}
		d.mu.Unlock()
		return f.result
	}
	d.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	cmd := call.Command()
	if cmd == nil {
		return vk.Success
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Op {
	case vk.OpCreate, vk.OpAllocate:
		n := max(call.Count, 1)
		out := make(vk.Handles, n)
		for i := range out {
			out[i] = d.mint(cmd.Creates)
		}
		call.Out = out

	case vk.OpGet:
		device := call.Handle(0)
		qs := d.queues[device]
		if qs == nil {
			qs = make(map[int]vk.Handle)
			d.queues[device] = qs
		}
		q, ok := qs[call.Count]
		if !ok {
			q = d.mint(cmd.Creates)
			qs[call.Count] = q
		}
		call.Out = vk.Handles{q}

	case vk.OpEnumerate:
		call.Out = d.enumerate(cmd, call)

	case vk.OpDestroy:
		d.retire(cmd.Params[cmd.Target].Type, call.Handle(cmd.Target))

	case vk.OpFree:
		for _, h := range call.Handles(cmd.Target) {
			d.retire(cmd.Params[cmd.Target].Type, h)
		}
	}
	return vk.Success
}

func (d *Driver) enumerate(cmd *vk.Command, call *vk.Call) vk.Handles {
	switch cmd.Creates {
	case vk.ObjectPhysicalDevice:
		instance := call.Handle(0)
		if _, ok := d.physical[instance]; !ok {
			for i := 0; i < d.physN; i++ {
				d.physical[instance] = append(d.physical[instance], d.mint(vk.ObjectPhysicalDevice))
			}
		}
		return append(vk.Handles(nil), d.physical[instance]...)
	case vk.ObjectImage:
		swapchain := call.Handle(cmd.Parent)
		if _, ok := d.images[swapchain]; !ok {
			for i := 0; i < d.imageN; i++ {
				d.images[swapchain] = append(d.images[swapchain], d.mint(vk.ObjectImage))
			}
		}
		return append(vk.Handles(nil), d.images[swapchain]...)
	}
	return nil
}

// mint must be called with mu held.
func (d *Driver) mint(t vk.ObjectType) vk.Handle {
	if d.reuse && !t.Dispatchable() && len(d.free) > 0 {
		h := d.free[len(d.free)-1]
		d.free = d.free[:len(d.free)-1]
		return h
	}
	d.next++
	return vk.Handle(d.next)
}

// retire must be called with mu held.
func (d *Driver) retire(t vk.ObjectType, h vk.Handle) {
	if h == vk.NullHandle {
		return
	}
	switch t {
	case vk.ObjectInstance:
		delete(d.physical, h)
	case vk.ObjectDevice:
		delete(d.queues, h)
	case vk.ObjectSwapchainKHR:
		delete(d.images, h)
	}
	if d.reuse && !t.Dispatchable() {
		d.free = append(d.free, h)
	}
}

var _ driver.Resolver = (*Driver)(nil)
