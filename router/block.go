package router

import (
	"sort"
	"strconv"
	"sync"

	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Key addresses a state block in the arena. The zero Key is invalid.
type Key uint32

func (k Key) String() string { return "key#" + strconv.FormatUint(uint64(k), 10) }

// Kind distinguishes instance blocks from device blocks.
type Kind uint8

const (
	KindInstance Kind = iota + 1
	KindDevice
)

// ObjectType returns the type of the handle that owns a block of kind k.
func (k Kind) ObjectType() vk.ObjectType {
	if k == KindDevice {
		return vk.ObjectDevice
	}
	return vk.ObjectInstance
}

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindDevice:
		return "device"
	}
	return "kind?"
}

// State is the lifecycle state of a block.
type State uint8

const (
	StateUninitialized State = iota
	StateActive
	StateTearingDown
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTearingDown:
		return "tearing_down"
	case StateRemoved:
		return "removed"
	}
	return "state?"
}

// legal lists the allowed transitions. TearingDown may return to Active
// when the destroy call fails in the next layer.
var legal = map[State][]State{
	StateUninitialized: {StateActive, StateRemoved},
	StateActive:        {StateTearingDown},
	StateTearingDown:   {StateRemoved, StateActive},
}

// Capabilities is the snapshot of extensions enabled at creation.
type Capabilities struct {
	extensions map[string]struct{}
}

// NewCapabilities snapshots the given extension names.
func NewCapabilities(extensions ...string) Capabilities {
	set := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		set[e] = struct{}{}
	}
	return Capabilities{extensions: set}
}

// Has reports whether extension name was enabled.
func (c Capabilities) Has(name string) bool {
	_, ok := c.extensions[name]
	return ok
}

// Extensions returns the enabled extensions in sorted order.
func (c Capabilities) Extensions() []string {
	out := make([]string, 0, len(c.extensions))
	for e := range c.extensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

type sinkEntry struct {
	sink      diag.Sink
	messenger vk.Handle
}

// StateBlock is the per-instance or per-device private state.
type StateBlock struct {
	Procs  driver.ProcTable
	Parent *StateBlock
	Caps   Capabilities
	Owner  vk.Handle
	Key    Key
	Kind   Kind

	sinks []sinkEntry
	mu    sync.RWMutex
	state State
}

// State returns the block's lifecycle state.
func (b *StateBlock) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Dispatchable reports whether ordinary calls may run against the block.
func (b *StateBlock) Dispatchable() bool {
	return b.State() == StateActive
}

// Proc returns the next-layer procedure for name.
func (b *StateBlock) Proc(name string) (driver.Proc, bool) {
	return b.Procs.Lookup(name)
}

// Instance returns the instance block that owns b, b itself for instances.
func (b *StateBlock) Instance() *StateBlock {
	if b.Kind == KindDevice && b.Parent != nil {
		return b.Parent
	}
	return b
}

// Sink returns the diagnostic sink for violations reported in b's scope.
// Device blocks deliver through their instance's sinks. Nil when no sink
// is attached.
func (b *StateBlock) Sink() diag.Sink {
	inst := b.Instance()
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	if len(inst.sinks) == 0 {
		return nil
	}
	sinks := make([]diag.Sink, len(inst.sinks))
	for i, e := range inst.sinks {
		sinks[i] = e.sink
	}
	return diag.Multi(sinks...)
}

// AttachSink registers s for the lifetime of messenger.
func (b *StateBlock) AttachSink(messenger vk.Handle, s diag.Sink) {
	inst := b.Instance()
	inst.mu.Lock()
	inst.sinks = append(inst.sinks, sinkEntry{messenger: messenger, sink: s})
	inst.mu.Unlock()
}

// DetachSink removes the sink registered for messenger.
func (b *StateBlock) DetachSink(messenger vk.Handle) bool {
	inst := b.Instance()
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for i, e := range inst.sinks {
		if e.messenger == messenger {
			inst.sinks = append(inst.sinks[:i], inst.sinks[i+1:]...)
			return true
		}
	}
	return false
}

func (b *StateBlock) transition(to State, phase errors.Phase) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range legal[b.state] {
		if s == to {
			b.state = to
			return nil
		}
	}
	err := errors.InvalidState(phase, b.state, to)
	err.Handle = b.Owner
	return err
}
