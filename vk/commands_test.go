package vk

import "testing"

func TestCommandTable(t *testing.T) {
	names := Commands()
	if len(names) < 80 {
		t.Fatalf("expected a full command table, got %d commands", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Commands not sorted at %d: %s >= %s", i, names[i-1], names[i])
		}
	}

	for _, name := range names {
		cmd, _ := Lookup(name)
		if cmd.Name != name {
			t.Errorf("%s registered under %s", cmd.Name, name)
		}
		for _, idx := range []int{cmd.Parent, cmd.Target, cmd.Pool} {
			if idx >= len(cmd.Params) {
				t.Errorf("%s: param index %d out of range", name, idx)
			}
		}
		if cmd.Op.Produces() && !cmd.Creates.Valid() {
			t.Errorf("%s produces objects but has no created type", name)
		}
		if cmd.Op == OpDestroy && cmd.Target < 0 {
			t.Errorf("%s: destroy without target", name)
		}
		if (cmd.Op == OpFree || cmd.Op == OpReset || cmd.Op == OpAllocate) && cmd.Pool < 0 {
			t.Errorf("%s: pool command without pool param", name)
		}
	}
}

func TestCommandLookup(t *testing.T) {
	tests := []struct {
		name    string
		op      Op
		scope   Scope
		creates ObjectType
		target  int
	}{
		{"vkCreateInstance", OpCreate, ScopeGlobal, ObjectInstance, -1},
		{"vkDestroyInstance", OpDestroy, ScopeInstance, ObjectUnknown, 0},
		{"vkEnumeratePhysicalDevices", OpEnumerate, ScopeInstance, ObjectPhysicalDevice, -1},
		{"vkCreateDevice", OpCreate, ScopeInstance, ObjectDevice, -1},
		{"vkCreateBuffer", OpCreate, ScopeDevice, ObjectBuffer, -1},
		{"vkDestroyBuffer", OpDestroy, ScopeDevice, ObjectUnknown, 1},
		{"vkCmdDraw", OpUse, ScopeDevice, ObjectUnknown, -1},
		{"vkQueueSubmit", OpUse, ScopeDevice, ObjectUnknown, -1},
		{"vkFreeCommandBuffers", OpFree, ScopeDevice, ObjectUnknown, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := Lookup(tt.name)
			if !ok {
				t.Fatalf("%s not registered", tt.name)
			}
			if cmd.Op != tt.op {
				t.Errorf("Op = %v, want %v", cmd.Op, tt.op)
			}
			if got := cmd.Scope(); got != tt.scope {
				t.Errorf("Scope = %v, want %v", got, tt.scope)
			}
			if cmd.Creates != tt.creates {
				t.Errorf("Creates = %v, want %v", cmd.Creates, tt.creates)
			}
			if cmd.Target != tt.target {
				t.Errorf("Target = %d, want %d", cmd.Target, tt.target)
			}
		})
	}

	if _, ok := Lookup("vkNotACommand"); ok {
		t.Error("unknown command should not resolve")
	}
}

func TestImplicitCommands(t *testing.T) {
	for _, name := range []string{
		"vkEnumeratePhysicalDevices", "vkGetDeviceQueue", "vkAllocateCommandBuffers",
		"vkAllocateDescriptorSets", "vkGetSwapchainImagesKHR",
	} {
		cmd, _ := Lookup(name)
		if cmd == nil || !cmd.Implicit {
			t.Errorf("%s should produce implicit objects", name)
		}
	}
	if cmd, _ := Lookup("vkCreateCommandPool"); cmd.Implicit {
		t.Error("command pools are destroyed explicitly")
	}
}

func TestCall(t *testing.T) {
	c := NewCall("vkFreeCommandBuffers", Handle(1), Handle(2), Handles{3, 4}).WithThread(9)

	if c.Command() == nil || c.Command().Op != OpFree {
		t.Fatal("command not resolved")
	}
	if c.Handle(1) != 2 {
		t.Errorf("Handle(1) = %v", c.Handle(1))
	}
	if got := c.Handles(2); len(got) != 2 || got[1] != 4 {
		t.Errorf("Handles(2) = %v", got)
	}
	if c.Handle(5) != NullHandle || c.Handles(5) != nil {
		t.Error("out of range args should be null")
	}
	if c.Dispatch() != 1 {
		t.Errorf("Dispatch = %v", c.Dispatch())
	}
	if got := c.String(); got != "vkFreeCommandBuffers(0x1, 0x2, [0x3, 0x4])" {
		t.Errorf("String = %q", got)
	}

	global := NewCall("vkCreateInstance")
	global.Out = Handles{0x100}
	if global.Dispatch() != NullHandle {
		t.Error("global commands have no dispatch handle")
	}
	if got := global.String(); got != "vkCreateInstance() -> [0x100]" {
		t.Errorf("String = %q", got)
	}
}

func TestObjectTypes(t *testing.T) {
	if ObjectBuffer.String() != "VkBuffer" {
		t.Errorf("String = %q", ObjectBuffer.String())
	}
	for _, s := range []string{"VkBuffer", "Buffer"} {
		if got, ok := ParseObjectType(s); !ok || got != ObjectBuffer {
			t.Errorf("ParseObjectType(%q) = %v, %v", s, got, ok)
		}
	}
	if _, ok := ParseObjectType("VkWidget"); ok {
		t.Error("unknown type should not parse")
	}
	if !ObjectQueue.Dispatchable() || ObjectBuffer.Dispatchable() {
		t.Error("Dispatchable mismatch")
	}
	if ObjectUnknown.Valid() || !ObjectDebugUtilsMessengerEXT.Valid() {
		t.Error("Valid mismatch")
	}
	if len(ObjectTypes()) != int(objectTypeCount)-1 {
		t.Error("ObjectTypes incomplete")
	}
}

func TestResult(t *testing.T) {
	if !Success.Succeeded() || !Incomplete.Succeeded() || ErrorDeviceLost.Succeeded() {
		t.Error("Succeeded mismatch")
	}
	if ErrorValidationFailed != -1000011001 {
		t.Errorf("ErrorValidationFailed = %d", ErrorValidationFailed)
	}
	if r, ok := ParseResult("VK_ERROR_DEVICE_LOST"); !ok || r != ErrorDeviceLost {
		t.Errorf("ParseResult = %v, %v", r, ok)
	}
	if ErrorValidationFailed.String() != "VK_ERROR_VALIDATION_FAILED_EXT" {
		t.Errorf("String = %q", ErrorValidationFailed.String())
	}
}
