// Package tracker implements the object lifetime interceptor.
//
// Handling is driven by the static command table: every handle argument is
// checked for existence, ownership and pool membership, destroy targets are
// checked for double destruction and live children, and produced handles
// are recorded once the next layer succeeds. A few calls need more than the
// table can express; they register call-specific handlers by name.
package tracker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/objtrack/chain"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/registry"
	"github.com/wippyai/objtrack/router"
	"github.com/wippyai/objtrack/validation"
	"github.com/wippyai/objtrack/vk"
)

// Name is the interceptor name used in settings.
const Name = "object_tracker"

// Policy decides what happens when a parent is destroyed with live children.
type Policy string

const (
	// TeardownForce reports the children, lets the destroy proceed, and
	// orphans every remaining descendant.
	TeardownForce Policy = "force"
	// TeardownDefer reports the children and skips the destroy.
	TeardownDefer Policy = "defer"
)

// ParsePolicy parses a teardown policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case TeardownForce, TeardownDefer:
		return p, nil
	case "":
		return TeardownForce, nil
	}
	return "", errors.InvalidInput(errors.PhaseConfig, "unknown teardown policy "+s)
}

const prematureKey = "tracker.premature"

// Tracker is the lifetime-tracking interceptor. All phase methods must be
// called with the layer's guard held.
type Tracker struct {
	reg         *registry.Registry
	router      *router.Router
	policy      Policy
	skipOnError bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSkipOnError sets whether error-severity violations skip the call.
func WithSkipOnError(skip bool) Option {
	return func(t *Tracker) { t.skipOnError = skip }
}

// WithTeardownPolicy sets the premature parent destruction policy.
func WithTeardownPolicy(p Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

// New creates a tracker over reg. rt resolves physical device and instance
// bindings.
func New(reg *registry.Registry, rt *router.Router, opts ...Option) *Tracker {
	t := &Tracker{
		reg:         reg,
		router:      rt,
		policy:      TeardownForce,
		skipOnError: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Name() string { return Name }

// Policy returns the teardown policy.
func (t *Tracker) Policy() Policy { return t.policy }

func (t *Tracker) PreValidate(ctx context.Context, call *vk.Call, r *chain.Report) bool {
	cmd := call.Command()
	if cmd == nil {
		return false
	}

	var found []diag.Violation
	add := func(v *diag.Violation) {
		if v != nil {
			found = append(found, *v)
		}
	}

	scope := call.Dispatch()
	for i, param := range cmd.Params {
		hs := call.Handles(i)
		switch {
		case i == cmd.Target:
			for _, h := range hs {
				add(validation.CheckDestroy(t.reg, call.Name, param, h))
				if cmd.Op == vk.OpFree {
					add(validation.CheckPoolMembership(t.reg, call.Name, param, call.Handle(cmd.Pool), h))
				}
			}
		case param.List:
			elem := param
			elem.Optional = false
			for _, h := range hs {
				add(validation.CheckExists(t.reg, call.Name, elem, h))
			}
		default:
			add(validation.CheckExists(t.reg, call.Name, param, call.Handle(i)))
		}

		if i > 0 {
			for _, h := range hs {
				add(validation.CheckCommonParent(t.reg, call.Name, param, scope, h))
			}
		}
	}

	if h, ok := handlers[call.Name]; ok && h.validate != nil {
		found = append(found, h.validate(t, call)...)
	}

	var premature []diag.Violation
	if cmd.Op == vk.OpDestroy {
		premature = validation.CheckDestructionOrder(t.reg, call.Name, call.Handle(cmd.Target))
	}

	r.Add(found...)
	r.Add(premature...)
	r.Put(prematureKey, premature)

	skip := t.skipOnError && validation.HasErrors(found)
	if len(premature) > 0 && t.policy == TeardownDefer {
		skip = true
	}
	return skip
}

func (t *Tracker) PreRecord(ctx context.Context, call *vk.Call, r *chain.Report) {
	cmd := call.Command()
	if cmd == nil {
		return
	}

	switch cmd.Op {
	case vk.OpDestroy:
		param := cmd.Params[cmd.Target]
		h := call.Handle(cmd.Target)
		rec, ok := t.reg.Lookup(h)
		if !ok || rec.Type != param.Type {
			break
		}
		if rec.Type == vk.ObjectInstance || rec.Type == vk.ObjectDevice {
			premature, _ := r.Value(prematureKey).([]diag.Violation)
			r.Add(validation.CheckLeaks(t.reg, call.Name, h, premature)...)
		}
		t.retire(h)

	case vk.OpFree:
		param := cmd.Params[cmd.Target]
		for _, h := range call.Handles(cmd.Target) {
			if rec, ok := t.reg.Lookup(h); ok && rec.Type == param.Type {
				t.retire(h)
			}
		}

	case vk.OpReset:
		for _, child := range t.reg.Children(call.Handle(cmd.Pool)) {
			if child.Type == cmd.Creates {
				t.retire(child.Handle)
			}
		}
	}

	if h, ok := handlers[call.Name]; ok && h.pre != nil {
		h.pre(t, call, r)
	}
}

func (t *Tracker) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *chain.Report) {
	cmd := call.Command()
	if cmd == nil {
		return
	}

	if h, ok := handlers[call.Name]; ok && h.post != nil {
		h.post(t, call, r)
		return
	}
	if cmd.Op.Produces() {
		parent := vk.NullHandle
		if cmd.Parent >= 0 {
			parent = call.Handle(cmd.Parent)
		}
		t.record(call, cmd, parent, r)
	}
}

// record inserts the produced handles. Get and enumerate calls return
// existing objects again, so re-recording them is not an error.
func (t *Tracker) record(call *vk.Call, cmd *vk.Command, parent vk.Handle, r *chain.Report) {
	opts := []registry.InsertOption{registry.WithThread(call.Thread)}
	if cmd.Implicit {
		opts = append(opts, registry.Implicit())
	}

	for _, h := range call.Out {
		if h == vk.NullHandle {
			continue
		}
		if cmd.Op == vk.OpGet || cmd.Op == vk.OpEnumerate {
			if rec, ok := t.reg.Lookup(h); ok && rec.Type == cmd.Creates {
				continue
			}
		}
		if err := t.reg.Insert(h, cmd.Creates, parent, opts...); err != nil {
			existing, _ := t.reg.Lookup(h)
			Logger().Warn("next layer returned a live handle",
				zap.String("call", call.Name),
				zap.Stringer("handle", h),
				zap.Error(err))
			r.Add(diag.New(errors.KindDuplicateHandle, call.Name, h, cmd.Creates,
				"next layer returned %s, already live as %s", h, existing.Type))
		}
	}
}

// retire removes h and its whole subtree. Implicit descendants are
// reclaimed as destroyed; the rest are orphaned.
func (t *Tracker) retire(h vk.Handle) {
	desc := t.reg.Descendants(h)
	for i := len(desc) - 1; i >= 0; i-- {
		rec := desc[i]
		if rec.Implicit {
			_, _ = t.reg.Remove(rec.Handle)
		} else {
			_, _ = t.reg.Orphan(rec.Handle)
		}
	}
	_, _ = t.reg.Remove(h)
}

// Leaks reports every remaining non-implicit record as leaked. Used when
// the layer itself shuts down.
func (t *Tracker) Leaks(call string) []diag.Violation {
	var out []diag.Violation
	t.reg.Each(func(rec registry.Record) bool {
		if !rec.Implicit {
			out = append(out, validation.Leak(call, rec))
		}
		return true
	})
	return out
}

var _ chain.Interceptor = (*Tracker)(nil)
