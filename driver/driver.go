// Package driver describes the boundary to the next layer: the table of
// "next" procedures used to forward each call, and the resolvers that build
// those tables for an instance or device.
package driver

import (
	"context"
	"sort"

	"github.com/wippyai/objtrack/vk"
)

// Proc forwards one call to the next layer and returns its result. On
// success it fills call.Out for commands that produce handles.
type Proc func(ctx context.Context, call *vk.Call) vk.Result

// ProcTable maps entry-point names to next-layer procedures.
type ProcTable map[string]Proc

// Lookup returns the procedure for name.
func (t ProcTable) Lookup(name string) (Proc, bool) {
	p, ok := t[name]
	return p, ok && p != nil
}

// Names returns the entry points in the table in sorted order.
func (t ProcTable) Names() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolver builds procedure tables. It stands in for the loader's
// "get next proc address" functions.
type Resolver interface {
	// GlobalProcs returns the procedures callable before an instance exists.
	GlobalProcs() (ProcTable, error)

	// InstanceProcs returns the instance-level procedures for instance.
	InstanceProcs(instance vk.Handle) (ProcTable, error)

	// DeviceProcs returns the device-level procedures for device.
	DeviceProcs(device vk.Handle) (ProcTable, error)
}

// Build resolves every known command of the given scopes through lookup.
// Commands lookup cannot resolve are left out of the table.
func Build(lookup func(name string) (Proc, bool), scopes ...vk.Scope) ProcTable {
	want := make(map[vk.Scope]bool, len(scopes))
	for _, s := range scopes {
		want[s] = true
	}

	t := make(ProcTable)
	for _, name := range vk.Commands() {
		cmd, _ := vk.Lookup(name)
		if !want[cmd.Scope()] {
			continue
		}
		if p, ok := lookup(name); ok {
			t[name] = p
		}
	}
	return t
}
