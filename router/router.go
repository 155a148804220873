package router

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/registry"
	"github.com/wippyai/objtrack/vk"
)

const maxWalk = 16

// Router maps handles to state blocks.
type Router struct {
	reg    *registry.Registry
	bound map[vk.Handle]Key
	// blocks is append-only. Removed slots stay nil so a stale Key never
	// names a newer block.
	blocks []*StateBlock
	live   int
	mu     sync.RWMutex
}

// New creates a router that walks parent links in reg.
func New(reg *registry.Registry) *Router {
	return &Router{
		reg:   reg,
		bound: make(map[vk.Handle]Key),
	}
}

// CreateInstanceBlock allocates and activates the block for instance.
func (r *Router) CreateInstanceBlock(instance vk.Handle, procs driver.ProcTable, caps Capabilities) (*StateBlock, error) {
	return r.create(KindInstance, instance, nil, procs, caps)
}

// CreateDeviceBlock allocates and activates the block for device, owned by
// the instance block parent.
func (r *Router) CreateDeviceBlock(device vk.Handle, parent Key, procs driver.ProcTable, caps Capabilities) (*StateBlock, error) {
	p, ok := r.Block(parent)
	if !ok || p.Kind != KindInstance {
		return nil, errors.New(errors.PhaseDispatch, errors.KindNotFound).
			Handle(device, vk.ObjectDevice).
			Detail("no instance block %s", parent).
			Build()
	}
	return r.create(KindDevice, device, p, procs, caps)
}

func (r *Router) create(kind Kind, owner vk.Handle, parent *StateBlock, procs driver.ProcTable, caps Capabilities) (*StateBlock, error) {
	if owner == vk.NullHandle {
		return nil, errors.InvalidInput(errors.PhaseDispatch, "cannot create a state block for a null handle")
	}

	r.mu.Lock()
	if existing, ok := r.bound[owner]; ok {
		r.mu.Unlock()
		return nil, errors.New(errors.PhaseDispatch, errors.KindDuplicateHandle).
			Handle(owner, kind.ObjectType()).
			Detail("already bound to %s", existing).
			Build()
	}

	b := &StateBlock{
		Key:    Key(len(r.blocks) + 1),
		Kind:   kind,
		Owner:  owner,
		Parent: parent,
		Procs:  procs,
		Caps:   caps,
	}
	r.blocks = append(r.blocks, b)
	r.bound[owner] = b.Key
	r.live++
	r.mu.Unlock()

	if err := b.transition(StateActive, errors.PhaseDispatch); err != nil {
		return nil, err
	}

	Logger().Debug("state block created",
		zap.Stringer("kind", kind),
		zap.Stringer("owner", owner),
		zap.Stringer("key", b.Key))
	return b, nil
}

// Bind makes h resolve directly to the block at key. Used for physical
// devices so resolution stops at their instance.
func (r *Router) Bind(h vk.Handle, key Key) error {
	if _, ok := r.Block(key); !ok {
		return errors.NotFound(errors.PhaseDispatch, "state block", key.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bound[h]; ok && existing != key {
		return errors.New(errors.PhaseDispatch, errors.KindDuplicateHandle).
			Handle(h, vk.ObjectUnknown).
			Detail("already bound to %s", existing).
			Build()
	}
	r.bound[h] = key
	return nil
}

// Bound returns the handles bound directly to key other than its owner,
// in ascending handle order.
func (r *Router) Bound(key Key) []vk.Handle {
	b, ok := r.Block(key)
	if !ok {
		return nil
	}
	r.mu.RLock()
	var out []vk.Handle
	for h, k := range r.bound {
		if k == key && h != b.Owner {
			out = append(out, h)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Block returns the block at key unless it has been removed.
func (r *Router) Block(key Key) (*StateBlock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == 0 || int(key) > len(r.blocks) {
		return nil, false
	}
	b := r.blocks[key-1]
	return b, b != nil
}

// Lookup returns the block bound directly to h.
func (r *Router) Lookup(h vk.Handle) (*StateBlock, bool) {
	r.mu.RLock()
	key, ok := r.bound[h]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Block(key)
}

// ResolveScope returns the block that owns h. Handles not bound directly
// are resolved through registry parent links. An unknown handle yields
// KindUnresolvedScope; the detail says whether it was destroyed or
// orphaned.
func (r *Router) ResolveScope(h vk.Handle) (Key, *StateBlock, error) {
	if h == vk.NullHandle {
		return 0, nil, errors.UnresolvedScope(h, "null dispatch handle")
	}

	cur := h
	for depth := 0; depth < maxWalk; depth++ {
		if b, ok := r.Lookup(cur); ok {
			return b.Key, b, nil
		}

		rec, st := r.reg.Find(cur)
		switch st {
		case registry.StatusLive:
		case registry.StatusOrphaned:
			return 0, nil, unresolved(h, cur, "orphaned")
		case registry.StatusDestroyed, registry.StatusRetired:
			return 0, nil, unresolved(h, cur, "destroyed")
		default:
			return 0, nil, unresolved(h, cur, "unknown handle")
		}
		if rec.Parent == vk.NullHandle {
			return 0, nil, unresolved(h, cur, "no owning instance or device")
		}
		cur = rec.Parent
	}
	return 0, nil, errors.UnresolvedScope(h, "parent chain too deep")
}

func unresolved(h, at vk.Handle, detail string) *errors.Error {
	if at != h {
		detail = detail + " ancestor " + at.String()
	}
	return errors.UnresolvedScope(h, detail)
}

// BeginTeardown moves the block at key to TearingDown.
func (r *Router) BeginTeardown(key Key) error {
	b, ok := r.Block(key)
	if !ok {
		return errors.NotFound(errors.PhaseTeardown, "state block", key.String())
	}
	if err := b.transition(StateTearingDown, errors.PhaseTeardown); err != nil {
		return err
	}
	Logger().Debug("state block tearing down", zap.Stringer("owner", b.Owner), zap.Stringer("key", key))
	return nil
}

// Restore returns a tearing-down block to Active after its destroy call
// failed.
func (r *Router) Restore(key Key) error {
	b, ok := r.Block(key)
	if !ok {
		return errors.NotFound(errors.PhaseTeardown, "state block", key.String())
	}
	if b.State() != StateTearingDown {
		return errors.InvalidState(errors.PhaseTeardown, b.State(), StateActive)
	}
	return b.transition(StateActive, errors.PhaseTeardown)
}

// Remove erases the block at key and every binding to it. The block must be
// tearing down.
func (r *Router) Remove(key Key) error {
	b, ok := r.Block(key)
	if !ok {
		return errors.NotFound(errors.PhaseTeardown, "state block", key.String())
	}
	if err := b.transition(StateRemoved, errors.PhaseTeardown); err != nil {
		return err
	}

	r.mu.Lock()
	r.blocks[key-1] = nil
	for h, k := range r.bound {
		if k == key {
			delete(r.bound, h)
		}
	}
	r.live--
	r.mu.Unlock()

	Logger().Debug("state block removed", zap.Stringer("owner", b.Owner), zap.Stringer("key", key))
	return nil
}

// Devices returns the live device blocks owned by the instance block at key,
// in creation order.
func (r *Router) Devices(key Key) []*StateBlock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*StateBlock
	for _, b := range r.blocks {
		if b != nil && b.Kind == KindDevice && b.Parent != nil && b.Parent.Key == key {
			out = append(out, b)
		}
	}
	return out
}

// Blocks returns every block not yet removed, in creation order.
func (r *Router) Blocks() []*StateBlock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*StateBlock, 0, r.live)
	for _, b := range r.blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of blocks not yet removed.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}
