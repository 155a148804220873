//go:build (darwin || freebsd || linux) && !ios && !android && (amd64 || arm64)

package native

import (
	"testing"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

func TestOpen_MissingLibrary(t *testing.T) {
	_, err := Open("/nonexistent/libvulkan-missing.so")
	if err == nil {
		t.Fatal("expected error for missing library")
	}
	if kind, _ := errors.KindOf(err); kind != errors.KindNotFound {
		t.Errorf("kind = %v", kind)
	}
}

func TestReturnsVoid(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"vkDestroyBuffer", true},
		{"vkCmdDraw", true},
		{"vkGetDeviceQueue", true},
		{"vkFreeCommandBuffers", true},
		{"vkFreeDescriptorSets", false},
		{"vkCreateBuffer", false},
		{"vkQueueSubmit", false},
	}
	for _, tt := range tests {
		if got := returnsVoid(tt.name); got != tt.want {
			t.Errorf("returnsVoid(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDecodeOutputs(t *testing.T) {
	mem := newForeign(t, 4)

	create, _ := vk.Lookup("vkCreateBuffer")
	*mem.u64(0) = 0xabc
	call := vk.NewCall("vkCreateBuffer")
	call.Raw = []uintptr{0, 0, 0, mem.addr(0)}
	if got := decodeOutputs(create, call); len(got) != 1 || got[0] != 0xabc {
		t.Errorf("create outputs = %v", got)
	}

	enum, _ := vk.Lookup("vkEnumeratePhysicalDevices")
	*mem.u32(1) = 2
	*mem.u64(2) = 0x10
	*mem.u64(3) = 0x20
	call = vk.NewCall("vkEnumeratePhysicalDevices")
	call.Raw = []uintptr{0, mem.addr(1), mem.addr(2)}
	if got := decodeOutputs(enum, call); len(got) != 2 || got[1] != 0x20 {
		t.Errorf("enumerate outputs = %v", got)
	}

	call.Raw = []uintptr{0, mem.addr(1), 0}
	if got := decodeOutputs(enum, call); got != nil {
		t.Errorf("count query should produce nothing, got %v", got)
	}

	use, _ := vk.Lookup("vkCmdDraw")
	if got := decodeOutputs(use, call); got != nil {
		t.Errorf("use command produced %v", got)
	}
}

func TestCandidatePaths(t *testing.T) {
	paths := candidatePaths()
	if len(paths) == 0 {
		t.Fatal("no candidate paths")
	}
}
