package diag

import (
	"fmt"
	"strings"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Violation is one detected lifetime error.
type Violation struct {
	// ID is a stable message id, ObjTrack-<kind>-<call>.
	ID       string
	Kind     errors.Kind
	Severity Severity
	Call     string
	// Param names the offending argument, empty for call-level findings.
	Param   string
	Handle  vk.Handle
	Object  vk.ObjectType
	Parent  vk.Handle
	Thread  uint64
	Message string
}

// New builds a violation with the default severity for kind and a stable id.
func New(kind errors.Kind, call string, h vk.Handle, t vk.ObjectType, format string, args ...any) Violation {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Violation{
		ID:       MessageID(kind, call),
		Kind:     kind,
		Severity: DefaultSeverity(kind),
		Call:     call,
		Handle:   h,
		Object:   t,
		Message:  msg,
	}
}

// MessageID returns the stable id for a kind reported by a call.
func MessageID(kind errors.Kind, call string) string {
	var b strings.Builder
	b.WriteString("ObjTrack-")
	for _, part := range strings.Split(string(kind), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if call != "" {
		b.WriteByte('-')
		b.WriteString(call)
	}
	return b.String()
}

// WithParam returns a copy of v naming the offending argument.
func (v Violation) WithParam(name string) Violation {
	v.Param = name
	return v
}

// WithParent returns a copy of v carrying the owning parent handle.
func (v Violation) WithParent(h vk.Handle) Violation {
	v.Parent = h
	return v
}

// WithSeverity returns a copy of v reported at s.
func (v Violation) WithSeverity(s Severity) Violation {
	v.Severity = s
	return v
}

// Key identifies a violation for deduplication within one call.
type Key struct {
	Kind   errors.Kind
	Param  string
	Handle vk.Handle
}

// Key returns the deduplication key of v.
func (v Violation) Key() Key {
	return Key{Kind: v.Kind, Param: v.Param, Handle: v.Handle}
}

// Err converts v to a structured error.
func (v Violation) Err() *errors.Error {
	return errors.New(errors.PhaseValidate, v.Kind).
		Call(v.Call).
		Handle(v.Handle, v.Object).
		Detail("%s", v.Message).
		Build()
}

func (v Violation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", v.Severity, v.ID, v.Call)
	if v.Param != "" {
		fmt.Fprintf(&b, "(%s)", v.Param)
	}
	if v.Handle != vk.NullHandle {
		fmt.Fprintf(&b, " %s %s", v.Object, v.Handle)
	}
	if v.Message != "" {
		b.WriteString(": ")
		b.WriteString(v.Message)
	}
	return b.String()
}
