package driver

import (
	"context"
	"testing"

	"github.com/wippyai/objtrack/vk"
)

func TestBuild(t *testing.T) {
	noop := func(context.Context, *vk.Call) vk.Result { return vk.Success }
	lookup := func(name string) (Proc, bool) {
		if name == "vkCmdDraw" {
			return nil, false
		}
		return noop, true
	}

	device := Build(lookup, vk.ScopeDevice)
	if _, ok := device.Lookup("vkCreateBuffer"); !ok {
		t.Error("device table missing vkCreateBuffer")
	}
	if _, ok := device.Lookup("vkCmdDraw"); ok {
		t.Error("unresolved command should be left out")
	}
	if _, ok := device.Lookup("vkDestroyInstance"); ok {
		t.Error("instance command in device table")
	}

	global := Build(lookup, vk.ScopeGlobal)
	if _, ok := global.Lookup("vkCreateInstance"); !ok {
		t.Error("global table missing vkCreateInstance")
	}

	names := global.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names not sorted: %v", names)
		}
	}
}

func TestProcTable_NilEntry(t *testing.T) {
	tbl := ProcTable{"vkCmdDraw": nil}
	if _, ok := tbl.Lookup("vkCmdDraw"); ok {
		t.Error("nil proc should not resolve")
	}
}
