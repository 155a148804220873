package mock

import (
	"context"
	"testing"

	"github.com/wippyai/objtrack/vk"
)

func TestDriver_MintsUniqueHandles(t *testing.T) {
	d := New()
	ctx := context.Background()

	seen := map[vk.Handle]bool{}
	for i := 0; i < 10; i++ {
		call := vk.NewCall("vkCreateBuffer", vk.Handle(1))
		if r := d.Invoke(ctx, call); r != vk.Success {
			t.Fatalf("result = %v", r)
		}
		if len(call.Out) != 1 || seen[call.Out[0]] {
			t.Fatalf("Out = %v", call.Out)
		}
		seen[call.Out[0]] = true
	}
	if d.Calls("vkCreateBuffer") != 10 || d.TotalCalls() != 10 {
		t.Errorf("Calls = %d", d.Calls("vkCreateBuffer"))
	}

	alloc := vk.NewCall("vkAllocateCommandBuffers", vk.Handle(1), vk.Handle(2)).WithCount(3)
	d.Invoke(ctx, alloc)
	if len(alloc.Out) != 3 {
		t.Errorf("allocated %d, want 3", len(alloc.Out))
	}
}

func TestDriver_ImplicitObjectsAreStable(t *testing.T) {
	d := New(WithPhysicalDevices(2), WithSwapchainImages(2))
	ctx := context.Background()

	e1 := vk.NewCall("vkEnumeratePhysicalDevices", vk.Handle(1))
	e2 := vk.NewCall("vkEnumeratePhysicalDevices", vk.Handle(1))
	d.Invoke(ctx, e1)
	d.Invoke(ctx, e2)
	if len(e1.Out) != 2 || e1.Out[0] != e2.Out[0] || e1.Out[1] != e2.Out[1] {
		t.Fatalf("physical devices differ: %v vs %v", e1.Out, e2.Out)
	}

	q1 := vk.NewCall("vkGetDeviceQueue", vk.Handle(5))
	q2 := vk.NewCall("vkGetDeviceQueue", vk.Handle(5))
	q3 := vk.NewCall("vkGetDeviceQueue", vk.Handle(5)).WithCount(1)
	d.Invoke(ctx, q1)
	d.Invoke(ctx, q2)
	d.Invoke(ctx, q3)
	if q1.Out[0] != q2.Out[0] || q1.Out[0] == q3.Out[0] {
		t.Errorf("queues = %v %v %v", q1.Out, q2.Out, q3.Out)
	}

	img := vk.NewCall("vkGetSwapchainImagesKHR", vk.Handle(5), vk.Handle(9))
	d.Invoke(ctx, img)
	if len(img.Out) != 2 {
		t.Errorf("images = %v", img.Out)
	}
}

func TestDriver_Failures(t *testing.T) {
	d := New()
	ctx := context.Background()

	d.Fail("vkCreateFence", vk.ErrorOutOfHostMemory)
	call := vk.NewCall("vkCreateFence", vk.Handle(1))
	if r := d.Invoke(ctx, call); r != vk.ErrorOutOfHostMemory {
		t.Fatalf("result = %v", r)
	}
	if len(call.Out) != 0 {
		t.Error("failed call produced handles")
	}
	if r := d.Invoke(ctx, vk.NewCall("vkCreateFence", vk.Handle(1))); r != vk.Success {
		t.Errorf("one-shot failure persisted: %v", r)
	}

	d.FailAlways("vkQueueSubmit", vk.ErrorDeviceLost)
	for i := 0; i < 2; i++ {
		if r := d.Invoke(ctx, vk.NewCall("vkQueueSubmit", vk.Handle(3))); r != vk.ErrorDeviceLost {
			t.Errorf("result = %v", r)
		}
	}
	d.Clear("vkQueueSubmit")
	if r := d.Invoke(ctx, vk.NewCall("vkQueueSubmit", vk.Handle(3))); r != vk.Success {
		t.Errorf("result after Clear = %v", r)
	}
}

func TestDriver_HandleReuse(t *testing.T) {
	d := New(WithHandleReuse())
	ctx := context.Background()

	create := vk.NewCall("vkCreateBuffer", vk.Handle(1))
	d.Invoke(ctx, create)
	buf := create.Out[0]
	d.Invoke(ctx, vk.NewCall("vkDestroyBuffer", vk.Handle(1), buf))

	again := vk.NewCall("vkCreateImage", vk.Handle(1))
	d.Invoke(ctx, again)
	if again.Out[0] != buf {
		t.Errorf("expected reuse of %v, got %v", buf, again.Out[0])
	}
}

func TestDriver_HookAndLog(t *testing.T) {
	d := New(WithFirstHandle(0x50))
	var hooked *vk.Call
	d.Hook("vkCreateInstance", func(c *vk.Call) { hooked = c })

	call := vk.NewCall("vkCreateInstance")
	d.Invoke(context.Background(), call)
	if hooked != call {
		t.Error("hook not invoked")
	}
	if call.Out[0] != 0x50 {
		t.Errorf("first handle = %v", call.Out[0])
	}

	log := d.Log()
	if len(log) != 1 || log[0] != "vkCreateInstance()" {
		t.Errorf("Log = %v", log)
	}
	d.Reset()
	if len(d.Log()) != 0 || d.TotalCalls() != 0 {
		t.Error("Reset should clear log and counters")
	}
}

func TestDriver_Resolver(t *testing.T) {
	d := New()
	global, _ := d.GlobalProcs()
	if _, ok := global.Lookup("vkCreateInstance"); !ok {
		t.Error("global table missing vkCreateInstance")
	}
	inst, _ := d.InstanceProcs(1)
	if _, ok := inst.Lookup("vkCreateDevice"); !ok {
		t.Error("instance table missing vkCreateDevice")
	}
	dev, _ := d.DeviceProcs(2)
	if _, ok := dev.Lookup("vkCmdDraw"); !ok {
		t.Error("device table missing vkCmdDraw")
	}
}
