package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/objtrack/vk"
)

// Phase indicates where in call processing the error occurred
type Phase string

const (
	PhaseRegistry Phase = "registry" // object registry mutation
	PhaseValidate Phase = "validate" // pre-validate pass
	PhaseRecord   Phase = "record"   // pre/post-record pass
	PhaseDispatch Phase = "dispatch" // scope resolution and forwarding
	PhaseTeardown Phase = "teardown" // state block teardown
	PhaseConfig   Phase = "config"   // settings loading
	PhaseDriver   Phase = "driver"   // next-layer resolution
	PhaseReplay   Phase = "replay"   // call script replay
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle              Kind = "invalid_handle"
	KindUseAfterFree               Kind = "use_after_free"
	KindDoubleDestroy              Kind = "double_destroy"
	KindPrematureParentDestruction Kind = "premature_parent_destruction"
	KindLeakedObject               Kind = "leaked_object"
	KindDuplicateHandle            Kind = "duplicate_handle"
	KindUnresolvedScope            Kind = "unresolved_scope"
	KindUnknownHandle              Kind = "unknown_handle"
	KindForeignObject              Kind = "foreign_object"
	KindWrongPool                  Kind = "wrong_pool"
	KindInvalidState               Kind = "invalid_state"
	KindNotFound                   Kind = "not_found"
	KindInvalidInput               Kind = "invalid_input"
	KindUnsupported                Kind = "unsupported"
	KindMismatch                   Kind = "mismatch"
)

// Lifetime reports whether k belongs to the object lifetime taxonomy.
func (k Kind) Lifetime() bool {
	switch k {
	case KindInvalidHandle, KindUseAfterFree, KindDoubleDestroy, KindPrematureParentDestruction,
		KindLeakedObject, KindDuplicateHandle, KindUnresolvedScope, KindUnknownHandle,
		KindForeignObject, KindWrongPool:
		return true
	}
	return false
}

// Error is the structured error type used throughout the layer
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Call   string
	Detail string
	Handle vk.Handle
	Object vk.ObjectType
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Call != "" {
		b.WriteString(" in ")
		b.WriteString(e.Call)
	}

	if e.Handle != vk.NullHandle || e.Object != vk.ObjectUnknown {
		b.WriteString(": ")
		if e.Object != vk.ObjectUnknown {
			b.WriteString(e.Object.String())
			b.WriteByte(' ')
		}
		b.WriteString(e.Handle.String())
	}

	if e.Detail != "" {
		if e.Handle != vk.NullHandle || e.Object != vk.ObjectUnknown {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || e.Phase == t.Phase) && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Call sets the entry point name
func (b *Builder) Call(name string) *Builder {
	b.err.Call = name
	return b
}

// Handle sets the offending handle and its type
func (b *Builder) Handle(h vk.Handle, t vk.ObjectType) *Builder {
	b.err.Handle = h
	b.err.Object = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Registry convenience constructors

// DuplicateHandle reports an insert over a live record
func DuplicateHandle(h vk.Handle, existing vk.ObjectType) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindDuplicateHandle,
		Handle: h,
		Object: existing,
		Detail: "handle already has a live record",
	}
}

// UnknownHandle reports a lookup or remove with no live record
func UnknownHandle(phase Phase, h vk.Handle) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownHandle,
		Handle: h,
		Detail: "no live record",
	}
}

// UnresolvedScope reports a handle whose dispatch scope cannot be found
func UnresolvedScope(h vk.Handle, detail string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindUnresolvedScope,
		Handle: h,
		Detail: detail,
	}
}

// InvalidState reports an illegal state machine transition
func InvalidState(phase Phase, from, to fmt.Stringer) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a settings error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Driver creates a next-layer resolution error
func Driver(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDriver,
		Kind:   KindNotFound,
		Detail: detail,
		Cause:  cause,
	}
}
