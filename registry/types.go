package registry

import "github.com/wippyai/objtrack/vk"

// Status is the validity state of a handle value.
type Status uint8

const (
	// StatusUnknown means the handle was never recorded.
	StatusUnknown Status = iota
	StatusLive
	StatusDestroyed
	// StatusOrphaned means the record was reclaimed because an ancestor was
	// torn down while it was still live.
	StatusOrphaned
	// StatusRetired means the handle was destroyed or orphaned but its
	// tombstone was evicted by a capacity limit, so the details are gone.
	StatusRetired
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusLive:
		return "live"
	case StatusDestroyed:
		return "destroyed"
	case StatusOrphaned:
		return "orphaned"
	case StatusRetired:
		return "retired"
	}
	return "status?"
}

// Record describes one tracked object.
type Record struct {
	Handle vk.Handle
	Parent vk.Handle
	Thread uint64
	Seq    uint64
	Type   vk.ObjectType
	Status Status

	// Implicit objects are reclaimed with their parent.
	Implicit bool
}

// EventType identifies a registry lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventOrphaned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventOrphaned:
		return "orphaned"
	}
	return "event?"
}

// Event represents a record lifecycle event.
type Event struct {
	Record Record
	Type   EventType
}

// Observer receives notifications about record lifecycle events.
type Observer interface {
	OnRecordEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnRecordEvent(e Event) { f(e) }

// InsertOption configures a new record.
type InsertOption func(*Record)

// WithThread stores the creating thread id.
func WithThread(id uint64) InsertOption {
	return func(r *Record) { r.Thread = id }
}

// Implicit marks the record as reclaimed with its parent.
func Implicit() InsertOption {
	return func(r *Record) { r.Implicit = true }
}

// DefaultTombstones is the default tombstone capacity. Zero keeps every
// tombstone.
const DefaultTombstones = 0
