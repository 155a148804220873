//go:build (darwin || freebsd || linux) && !ios && !android && (amd64 || arm64)

package native

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Library is an opened native driver library.
type Library struct {
	path                string
	handle              uintptr
	getInstanceProcAddr uintptr
	getDeviceProcAddr   uintptr
	mu                  sync.Mutex
}

// Open loads the driver library at path, or searches the platform's
// default locations when path is empty.
func Open(path string) (*Library, error) {
	candidates := []string{path}
	if path == "" {
		candidates = candidatePaths()
	}

	var lastErr error
	for _, p := range candidates {
		h, err := purego.Dlopen(p, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		gipa, err := purego.Dlsym(h, "vkGetInstanceProcAddr")
		if err != nil {
			_ = purego.Dlclose(h)
			lastErr = err
			continue
		}
		return &Library{path: p, handle: h, getInstanceProcAddr: gipa}, nil
	}
	return nil, errors.Driver("load driver library", lastErr)
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string { return l.path }

// Close unloads the library. Tables built from it must not be used after.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

func (l *Library) GlobalProcs() (driver.ProcTable, error) {
	return l.build(vk.NullHandle, l.getInstanceProcAddr, vk.ScopeGlobal)
}

func (l *Library) InstanceProcs(instance vk.Handle) (driver.ProcTable, error) {
	t, err := l.build(instance, l.getInstanceProcAddr, vk.ScopeInstance, vk.ScopeDevice)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getDeviceProcAddr == 0 {
		l.getDeviceProcAddr = procAddr(l.getInstanceProcAddr, instance, "vkGetDeviceProcAddr")
	}
	return t, nil
}

func (l *Library) DeviceProcs(device vk.Handle) (driver.ProcTable, error) {
	l.mu.Lock()
	gdpa := l.getDeviceProcAddr
	l.mu.Unlock()
	if gdpa == 0 {
		return nil, errors.Driver("vkGetDeviceProcAddr not resolved; create an instance first", nil)
	}
	return l.build(device, gdpa, vk.ScopeDevice)
}

func (l *Library) build(owner vk.Handle, resolver uintptr, scopes ...vk.Scope) (driver.ProcTable, error) {
	if resolver == 0 {
		return nil, errors.Driver("library is closed", nil)
	}
	t := driver.Build(func(name string) (driver.Proc, bool) {
		addr := procAddr(resolver, owner, name)
		if addr == 0 {
			return nil, false
		}
		cmd, _ := vk.Lookup(name)
		return forward(addr, cmd), true
	}, scopes...)
	if len(t) == 0 {
		return nil, errors.NotFound(errors.PhaseDriver, "procedures for", owner.String())
	}
	return t, nil
}

// procAddr calls a vkGet*ProcAddr style resolver.
func procAddr(resolver uintptr, owner vk.Handle, name string) uintptr {
	cname := append([]byte(name), 0)
	addr, _, _ := purego.SyscallN(resolver, uintptr(owner), uintptr(unsafe.Pointer(&cname[0])))
	runtime.KeepAlive(cname)
	return addr
}

func forward(addr uintptr, cmd *vk.Command) driver.Proc {
	void := returnsVoid(cmd.Name)
	return func(_ context.Context, call *vk.Call) vk.Result {
		r1, _, _ := purego.SyscallN(addr, call.Raw...)
		result := vk.Success
		if !void {
			result = vk.Result(int32(r1))
		}
		if result.Succeeded() {
			call.Out = decodeOutputs(cmd, call)
		}
		return result
	}
}

// decodeOutputs reads produced handles through the output pointers in
// call.Raw. Those pointers follow the vk.Call.Raw memory contract.
func decodeOutputs(cmd *vk.Command, call *vk.Call) vk.Handles {
	if !cmd.Op.Produces() || len(call.Raw) == 0 {
		return nil
	}
	ptr := call.Raw[len(call.Raw)-1]
	if ptr == 0 {
		return nil
	}

	n := max(call.Count, 1)
	if cmd.Op == vk.OpEnumerate {
		if len(call.Raw) < 2 || call.Raw[len(call.Raw)-2] == 0 {
			return nil
		}
		n = int(*(*uint32)(unsafe.Pointer(call.Raw[len(call.Raw)-2])))
	}

	raw := unsafe.Slice((*uint64)(unsafe.Pointer(ptr)), n)
	out := make(vk.Handles, n)
	for i, h := range raw {
		out[i] = vk.Handle(h)
	}
	return out
}

func returnsVoid(name string) bool {
	if strings.HasPrefix(name, "vkDestroy") || strings.HasPrefix(name, "vkCmd") {
		return true
	}
	switch name {
	case "vkFreeMemory", "vkFreeCommandBuffers", "vkGetDeviceQueue", "vkGetDeviceQueue2",
		"vkUnmapMemory", "vkUpdateDescriptorSets", "vkTrimCommandPool", "vkSubmitDebugUtilsMessageEXT",
		"vkGetPhysicalDeviceProperties", "vkGetPhysicalDeviceFeatures", "vkGetPhysicalDeviceMemoryProperties",
		"vkGetPhysicalDeviceQueueFamilyProperties", "vkGetPhysicalDeviceFormatProperties",
		"vkGetBufferMemoryRequirements", "vkGetImageMemoryRequirements":
		return true
	}
	return false
}

func candidatePaths() []string {
	var names, dirs []string
	switch runtime.GOOS {
	case "darwin":
		names = []string{"libvulkan.1.dylib", "libvulkan.dylib", "libMoltenVK.dylib"}
		if p := os.Getenv("DYLD_LIBRARY_PATH"); p != "" {
			dirs = filepath.SplitList(p)
		}
		dirs = append(dirs, "/opt/homebrew/lib", "/usr/local/lib")
	default:
		names = []string{"libvulkan.so.1", "libvulkan.so"}
		if p := os.Getenv("LD_LIBRARY_PATH"); p != "" {
			dirs = filepath.SplitList(p)
		}
		dirs = append(dirs, "/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu", "/usr/local/lib", "/usr/lib")
	}

	var out []string
	for _, d := range dirs {
		for _, n := range names {
			out = append(out, filepath.Join(d, n))
		}
	}
	// Bare names last so the system loader search applies.
	return append(out, names...)
}

var _ driver.Resolver = (*Library)(nil)
