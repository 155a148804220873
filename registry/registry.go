package registry

import (
	"sort"
	"sync"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Registry maps handle values to object records.
type Registry struct {
	live      map[vk.Handle]*Record
	children  map[vk.Handle]map[vk.Handle]struct{}
	tombs     map[vk.Handle]Record
	evicted   map[vk.Handle]struct{}
	tombOrder []tombRef
	observers []observerEntry
	seq       uint64
	maxTombs  int
	nextObs   int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
}

type tombRef struct {
	handle vk.Handle
	seq    uint64
}

type observerEntry struct {
	o  Observer
	id int
}

// Option configures a Registry.
type Option func(*Registry)

// WithTombstones caps the number of full tombstones kept. Handles whose
// tombstone is evicted still report StatusRetired. Zero means no cap.
func WithTombstones(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.maxTombs = n
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		live:     make(map[vk.Handle]*Record, 256),
		children: make(map[vk.Handle]map[vk.Handle]struct{}),
		tombs:    make(map[vk.Handle]Record),
		evicted:  make(map[vk.Handle]struct{}),
		maxTombs: DefaultTombstones,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert records a newly created object.
// Fails with KindDuplicateHandle if h already has a live record.
func (r *Registry) Insert(h vk.Handle, t vk.ObjectType, parent vk.Handle, opts ...InsertOption) error {
	if h == vk.NullHandle {
		return errors.New(errors.PhaseRegistry, errors.KindInvalidHandle).
			Handle(h, t).
			Detail("cannot record a null handle").
			Build()
	}

	r.mu.Lock()
	if existing, ok := r.live[h]; ok {
		existingType := existing.Type
		r.mu.Unlock()
		return errors.DuplicateHandle(h, existingType)
	}

	r.seq++
	rec := &Record{
		Handle: h,
		Type:   t,
		Parent: parent,
		Seq:    r.seq,
		Status: StatusLive,
	}
	for _, opt := range opts {
		opt(rec)
	}

	delete(r.tombs, h)
	delete(r.evicted, h)
	r.live[h] = rec
	if parent != vk.NullHandle {
		set := r.children[parent]
		if set == nil {
			set = make(map[vk.Handle]struct{})
			r.children[parent] = set
		}
		set[h] = struct{}{}
	}
	snapshot := *rec
	r.mu.Unlock()

	r.notify(Event{Type: EventCreated, Record: snapshot})
	return nil
}

// Lookup returns the live record for h.
func (r *Registry) Lookup(h vk.Handle) (Record, bool) {
	if h == vk.NullHandle {
		return Record{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.live[h]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Status reports whether h is live, retired, or was never seen.
func (r *Registry) Status(h vk.Handle) Status {
	_, st := r.Find(h)
	return st
}

// Find returns the live record or the tombstone for h.
func (r *Registry) Find(h vk.Handle) (Record, Status) {
	if h == vk.NullHandle {
		return Record{}, StatusUnknown
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.live[h]; ok {
		return *rec, StatusLive
	}
	if tomb, ok := r.tombs[h]; ok {
		return tomb, tomb.Status
	}
	if _, ok := r.evicted[h]; ok {
		return Record{Handle: h, Status: StatusRetired}, StatusRetired
	}
	return Record{}, StatusUnknown
}

// Remove retires the live record for h as destroyed.
// Fails with KindUnknownHandle if no live record exists.
func (r *Registry) Remove(h vk.Handle) (Record, error) {
	return r.retire(h, StatusDestroyed)
}

// Orphan retires the live record for h as orphaned.
func (r *Registry) Orphan(h vk.Handle) (Record, error) {
	return r.retire(h, StatusOrphaned)
}

func (r *Registry) retire(h vk.Handle, status Status) (Record, error) {
	r.mu.Lock()
	rec, ok := r.live[h]
	if !ok {
		r.mu.Unlock()
		return Record{}, errors.UnknownHandle(errors.PhaseRegistry, h)
	}

	delete(r.live, h)
	if set := r.children[rec.Parent]; set != nil {
		delete(set, h)
		if len(set) == 0 {
			delete(r.children, rec.Parent)
		}
	}
	// Live children keep their parent link but must not attach to a later
	// object that reuses the handle value.
	delete(r.children, h)

	rec.Status = status
	snapshot := *rec
	r.bury(snapshot)
	r.mu.Unlock()

	evt := EventDestroyed
	if status == StatusOrphaned {
		evt = EventOrphaned
	}
	r.notify(Event{Type: evt, Record: snapshot})
	return snapshot, nil
}

// bury must be called with mu held.
func (r *Registry) bury(rec Record) {
	r.tombs[rec.Handle] = rec
	if r.maxTombs == 0 {
		return
	}
	r.tombOrder = append(r.tombOrder, tombRef{handle: rec.Handle, seq: rec.Seq})

	for len(r.tombs) > r.maxTombs && len(r.tombOrder) > 0 {
		oldest := r.tombOrder[0]
		r.tombOrder = r.tombOrder[1:]
		// Slots of reinserted handles are stale; only the current tomb counts.
		if tomb, ok := r.tombs[oldest.handle]; ok && tomb.Seq == oldest.seq {
			delete(r.tombs, oldest.handle)
			r.evicted[oldest.handle] = struct{}{}
		}
	}
	if len(r.tombOrder) > 2*r.maxTombs {
		r.compactTombOrder()
	}
}

func (r *Registry) compactTombOrder() {
	order := make([]tombRef, 0, len(r.tombs))
	for _, ref := range r.tombOrder {
		if tomb, ok := r.tombs[ref.handle]; ok && tomb.Seq == ref.seq {
			order = append(order, ref)
		}
	}
	r.tombOrder = order
}

// EnumerateChildren returns the handles of live direct children of parent
// in creation order.
func (r *Registry) EnumerateChildren(parent vk.Handle) []vk.Handle {
	recs := r.Children(parent)
	out := make([]vk.Handle, len(recs))
	for i, rec := range recs {
		out[i] = rec.Handle
	}
	return out
}

// Children returns the live direct children of parent in creation order.
func (r *Registry) Children(parent vk.Handle) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.childrenLocked(parent)
}

func (r *Registry) childrenLocked(parent vk.Handle) []Record {
	set := r.children[parent]
	if len(set) == 0 {
		return nil
	}
	out := make([]Record, 0, len(set))
	for h := range set {
		if rec, ok := r.live[h]; ok {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Descendants returns every live record below parent, depth first, each
// level in creation order.
func (r *Registry) Descendants(parent vk.Handle) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	var walk func(vk.Handle)
	walk = func(h vk.Handle) {
		for _, rec := range r.childrenLocked(h) {
			out = append(out, rec)
			walk(rec.Handle)
		}
	}
	walk(parent)
	return out
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Each iterates over live records in creation order until fn returns false.
func (r *Registry) Each(fn func(Record) bool) {
	for _, rec := range r.Snapshot() {
		if !fn(rec) {
			return
		}
	}
}

// Snapshot returns a copy of all live records in creation order.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.live))
	for _, rec := range r.live {
		out = append(out, *rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// CountByType returns the number of live records per object type.
func (r *Registry) CountByType() map[vk.ObjectType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[vk.ObjectType]int)
	for _, rec := range r.live {
		counts[rec.Type]++
	}
	return counts
}

// Tombstones returns the number of full tombstones kept.
func (r *Registry) Tombstones() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tombs)
}

// Evicted returns the number of retired handles whose tombstone was
// evicted.
func (r *Registry) Evicted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.evicted)
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (r *Registry) Subscribe(o Observer) (cancel func()) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()

	r.nextObs++
	id := r.nextObs
	r.observers = append(r.observers, observerEntry{id: id, o: o})

	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		for i, e := range r.observers {
			if e.id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, entry := range r.observers {
		entry.o.OnRecordEvent(e)
	}
}
