package diag

import (
	"time"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Event is one violation as written to a diagnostic log.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the violation was delivered (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Session identifies the layer instance that reported it (UUID).
	Session string `cbor:"2,keyasint"`

	Severity Severity      `cbor:"3,keyasint"`
	Kind     errors.Kind   `cbor:"4,keyasint"`
	ID       string        `cbor:"5,keyasint"`
	Call     string        `cbor:"6,keyasint,omitempty"`
	Param    string        `cbor:"7,keyasint,omitempty"`
	Handle   vk.Handle     `cbor:"8,keyasint,omitempty"`
	Object   vk.ObjectType `cbor:"9,keyasint,omitempty"`
	Parent   vk.Handle     `cbor:"10,keyasint,omitempty"`
	Thread   uint64        `cbor:"11,keyasint,omitempty"`
	Message  string        `cbor:"12,keyasint,omitempty"`
}

// NewEvent stamps v with the current time and session.
func NewEvent(session string, v Violation) Event {
	return Event{
		Timestamp: time.Now(),
		Session:   session,
		Severity:  v.Severity,
		Kind:      v.Kind,
		ID:        v.ID,
		Call:      v.Call,
		Param:     v.Param,
		Handle:    v.Handle,
		Object:    v.Object,
		Parent:    v.Parent,
		Thread:    v.Thread,
		Message:   v.Message,
	}
}

// Violation returns the violation carried by e.
func (e Event) Violation() Violation {
	return Violation{
		ID:       e.ID,
		Kind:     e.Kind,
		Severity: e.Severity,
		Call:     e.Call,
		Param:    e.Param,
		Handle:   e.Handle,
		Object:   e.Object,
		Parent:   e.Parent,
		Thread:   e.Thread,
		Message:  e.Message,
	}
}
