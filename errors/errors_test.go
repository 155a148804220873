package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/objtrack/vk"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindInvalidHandle,
				Call:   "vkCmdDraw",
				Handle: 0x2a,
				Object: vk.ObjectCommandBuffer,
				Detail: "never created",
			},
			contains: []string{"[validate]", "invalid_handle", "vkCmdDraw", "VkCommandBuffer", "0x2a", "never created"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRegistry,
				Kind:  KindUnknownHandle,
			},
			contains: []string{"[registry]", "unknown_handle"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidInput,
				Detail: "parse settings",
				Cause:  errors.New("yaml: line 3"),
			},
			contains: []string{"[config]", "invalid_input", "parse settings", "caused by", "yaml: line 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDriver,
		Kind:  KindNotFound,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseRegistry,
		Kind:   KindDuplicateHandle,
		Handle: 7,
	}

	if !err.Is(&Error{Phase: PhaseRegistry, Kind: KindDuplicateHandle}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindDuplicateHandle}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRegistry, Kind: KindUnknownHandle}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindDuplicateHandle}) {
		t.Error("empty phase should match any phase")
	}

	wrapped := fmt.Errorf("insert: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseRegistry, Kind: KindDuplicateHandle}) {
		t.Error("errors.Is should see through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseRecord, KindDuplicateHandle).
		Call("vkCreateBuffer").
		Handle(0x10, vk.ObjectBuffer).
		Value(3).
		Cause(cause).
		Detail("driver reused %s", "0x10").
		Build()

	if err.Phase != PhaseRecord {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseRecord)
	}
	if err.Kind != KindDuplicateHandle {
		t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicateHandle)
	}
	if err.Call != "vkCreateBuffer" {
		t.Errorf("Call = %q", err.Call)
	}
	if err.Handle != 0x10 || err.Object != vk.ObjectBuffer {
		t.Errorf("Handle = %v %v", err.Object, err.Handle)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "driver reused 0x10" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("DuplicateHandle", func(t *testing.T) {
		err := DuplicateHandle(5, vk.ObjectFence)
		if err.Kind != KindDuplicateHandle || err.Phase != PhaseRegistry {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Object != vk.ObjectFence {
			t.Errorf("Object = %v", err.Object)
		}
	})

	t.Run("UnknownHandle", func(t *testing.T) {
		err := UnknownHandle(PhaseRegistry, 9)
		if err.Kind != KindUnknownHandle || err.Handle != 9 {
			t.Errorf("got %v %v", err.Kind, err.Handle)
		}
	})

	t.Run("UnresolvedScope", func(t *testing.T) {
		err := UnresolvedScope(3, "orphaned")
		if err.Phase != PhaseDispatch || err.Kind != KindUnresolvedScope {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "orphaned") {
			t.Errorf("detail missing from %q", err.Error())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseDriver, "proc", "vkFoo")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, "vkFoo") {
			t.Errorf("got %v %q", err.Kind, err.Detail)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(PhaseReplay, KindMismatch, cause, "step 3")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep cause")
		}
	})
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", UnknownHandle(PhaseRegistry, 1))
	kind, ok := KindOf(err)
	if !ok || kind != KindUnknownHandle {
		t.Fatalf("KindOf = %v, %v", kind, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should fail for plain errors")
	}
}

func TestKind_Lifetime(t *testing.T) {
	for _, k := range []Kind{KindInvalidHandle, KindUseAfterFree, KindDoubleDestroy, KindLeakedObject} {
		if !k.Lifetime() {
			t.Errorf("%s should be a lifetime kind", k)
		}
	}
	if KindInvalidInput.Lifetime() {
		t.Error("invalid_input is not a lifetime kind")
	}
}

func TestIsAs(t *testing.T) {
	err := fmt.Errorf("ctx: %w", DuplicateHandle(4, vk.ObjectImage))

	if !Is(err, &Error{Kind: KindDuplicateHandle}) {
		t.Error("Is should match through wrapping")
	}

	var e *Error
	if !As(err, &e) {
		t.Fatal("As should find *Error")
	}
	if e.Handle != 4 {
		t.Errorf("Handle = %v", e.Handle)
	}
}
