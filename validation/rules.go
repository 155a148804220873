package validation

import (
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/registry"
	"github.com/wippyai/objtrack/vk"
)

// View is the read-only registry surface used by the rules.
type View interface {
	Lookup(h vk.Handle) (registry.Record, bool)
	Find(h vk.Handle) (registry.Record, registry.Status)
	Children(parent vk.Handle) []registry.Record
	Descendants(parent vk.Handle) []registry.Record
}

var _ View = (*registry.Registry)(nil)

// CheckExists verifies that h, passed as param to a non-creating call,
// names a live object of the expected type.
func CheckExists(v View, call string, param vk.Param, h vk.Handle) *diag.Violation {
	if h == vk.NullHandle {
		if param.Optional {
			return nil
		}
		return violation(errors.KindInvalidHandle, call, param, h, "null handle for required parameter")
	}

	rec, st := v.Find(h)
	switch st {
	case registry.StatusLive:
		if rec.Type != param.Type {
			return wrongType(call, param, rec)
		}
		return nil
	case registry.StatusDestroyed:
		out := violation(errors.KindUseAfterFree, call, param, h, "%s was destroyed", rec.Type)
		out.Parent = rec.Parent
		return out
	case registry.StatusOrphaned:
		out := violation(errors.KindUseAfterFree, call, param, h,
			"%s was orphaned when its parent %s was torn down", rec.Type, rec.Parent)
		out.Parent = rec.Parent
		return out
	case registry.StatusRetired:
		return violation(errors.KindUseAfterFree, call, param, h, "handle was retired earlier")
	}
	return violation(errors.KindInvalidHandle, call, param, h, "handle was never created")
}

// CheckDestroy verifies that h, the target of a destroy or free call,
// names a live object of the expected type. A null target is legal.
func CheckDestroy(v View, call string, param vk.Param, h vk.Handle) *diag.Violation {
	if h == vk.NullHandle {
		return nil
	}

	rec, st := v.Find(h)
	switch st {
	case registry.StatusLive:
		if rec.Type != param.Type {
			return wrongType(call, param, rec)
		}
		return nil
	case registry.StatusDestroyed:
		return violation(errors.KindDoubleDestroy, call, param, h, "%s was already destroyed", rec.Type)
	case registry.StatusOrphaned:
		return violation(errors.KindUseAfterFree, call, param, h,
			"%s was already reclaimed with its parent %s", rec.Type, rec.Parent)
	case registry.StatusRetired:
		return violation(errors.KindDoubleDestroy, call, param, h, "handle was already retired")
	}
	return violation(errors.KindUnknownHandle, call, param, h, "destroying a handle that was never created")
}

// CheckCommonParent verifies that h belongs to the same device (or instance,
// for instance-level objects) as scope, the dispatch handle of the call.
func CheckCommonParent(v View, call string, param vk.Param, scope, h vk.Handle) *diag.Violation {
	if h == vk.NullHandle || scope == vk.NullHandle || h == scope {
		return nil
	}

	for _, level := range []vk.ObjectType{vk.ObjectDevice, vk.ObjectInstance} {
		want, ok := Ancestor(v, scope, level)
		if !ok {
			continue
		}
		got, ok := Ancestor(v, h, level)
		if !ok {
			continue
		}
		if got != want {
			out := violation(errors.KindForeignObject, call, param, h,
				"belongs to %s %s, call dispatched through %s %s", level, got, level, want)
			out.Parent = got
			return out
		}
		return nil
	}
	return nil
}

// CheckPoolMembership verifies that h was allocated from pool.
func CheckPoolMembership(v View, call string, param vk.Param, pool, h vk.Handle) *diag.Violation {
	if h == vk.NullHandle || pool == vk.NullHandle {
		return nil
	}
	rec, ok := v.Lookup(h)
	if !ok || rec.Parent == pool {
		return nil
	}
	out := violation(errors.KindWrongPool, call, param, h,
		"%s was allocated from %s, not %s", rec.Type, rec.Parent, pool)
	out.Parent = rec.Parent
	return out
}

// CheckDestructionOrder reports one PrematureParentDestruction for every
// live direct child of h that is not reclaimed implicitly with it.
func CheckDestructionOrder(v View, call string, h vk.Handle) []diag.Violation {
	if h == vk.NullHandle {
		return nil
	}
	parent, ok := v.Lookup(h)
	if !ok {
		return nil
	}

	var out []diag.Violation
	for _, child := range v.Children(h) {
		if child.Implicit {
			continue
		}
		out = append(out, diag.New(errors.KindPrematureParentDestruction, call, child.Handle, child.Type,
			"%s destroyed while child %s %s is still live", parent.Type, child.Type, child.Handle).
			WithParent(h))
	}
	return out
}

// CheckLeaks reports a LeakedObject warning for every live non-implicit
// descendant of owner that is not in exclude.
func CheckLeaks(v View, call string, owner vk.Handle, exclude []diag.Violation) []diag.Violation {
	seen := make(map[vk.Handle]struct{}, len(exclude))
	for _, e := range exclude {
		seen[e.Handle] = struct{}{}
	}

	var out []diag.Violation
	for _, rec := range v.Descendants(owner) {
		if rec.Implicit {
			continue
		}
		if _, ok := seen[rec.Handle]; ok {
			continue
		}
		out = append(out, Leak(call, rec))
	}
	return out
}

// Leak builds the LeakedObject warning for rec.
func Leak(call string, rec registry.Record) diag.Violation {
	out := diag.New(errors.KindLeakedObject, call, rec.Handle, rec.Type,
		"%s %s was never destroyed", rec.Type, rec.Handle).WithParent(rec.Parent)
	out.Thread = rec.Thread
	return out
}

// Ancestor walks parent links from h, h included, to the first live record
// of type t.
func Ancestor(v View, h vk.Handle, t vk.ObjectType) (vk.Handle, bool) {
	for depth := 0; h != vk.NullHandle && depth < maxDepth; depth++ {
		rec, ok := v.Lookup(h)
		if !ok {
			return vk.NullHandle, false
		}
		if rec.Type == t {
			return h, true
		}
		h = rec.Parent
	}
	return vk.NullHandle, false
}

const maxDepth = 16

// Merge concatenates violation lists, dropping repeats of the same kind,
// parameter and handle. Order is preserved.
func Merge(lists ...[]diag.Violation) []diag.Violation {
	var out []diag.Violation
	seen := make(map[diag.Key]struct{})
	for _, list := range lists {
		for _, v := range list {
			k := v.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether any violation has error severity.
func HasErrors(vs []diag.Violation) bool {
	for _, v := range vs {
		if v.Severity&diag.SeverityError != 0 {
			return true
		}
	}
	return false
}

func violation(kind errors.Kind, call string, param vk.Param, h vk.Handle, format string, args ...any) *diag.Violation {
	v := diag.New(kind, call, h, param.Type, format, args...).WithParam(param.Name)
	return &v
}

func wrongType(call string, param vk.Param, rec registry.Record) *diag.Violation {
	v := diag.New(errors.KindInvalidHandle, call, rec.Handle, rec.Type,
		"handle is a %s, expected %s", rec.Type, param.Type).WithParam(param.Name)
	return &v
}
