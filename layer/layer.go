// Package layer is the entry point of the object lifetime layer.
//
// A Layer owns the object registry, the dispatch router and the
// interceptor chain. Every entry point goes through Call, which resolves
// the call's scope, runs the chain around the next layer's procedure and
// delivers whatever the interceptors reported once the guard is released.
package layer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/objtrack/calllog"
	"github.com/wippyai/objtrack/chain"
	"github.com/wippyai/objtrack/config"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/registry"
	"github.com/wippyai/objtrack/router"
	"github.com/wippyai/objtrack/tracker"
	"github.com/wippyai/objtrack/validation"
	"github.com/wippyai/objtrack/vk"
)

// Layer is one loaded instance of the validation layer.
type Layer struct {
	settings *config.Settings
	resolver driver.Resolver
	global   driver.ProcTable
	log      *zap.Logger

	reg     *registry.Registry
	router  *router.Router
	chain   *chain.Chain
	tracker *tracker.Tracker
	calls   *calllog.Logger

	sink    diag.Sink
	file    *diag.FileSink
	session string
	mask    diag.Severity

	guard Guard

	statsMu    sync.Mutex
	violations map[errors.Kind]uint64
	closed     bool
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger used for the layer's own diagnostics and the
// default violation sink.
func WithLogger(l *zap.Logger) Option {
	return func(ly *Layer) { ly.log = l }
}

// WithSink adds a sink that receives every reported violation regardless of
// scope.
func WithSink(s diag.Sink) Option {
	return func(ly *Layer) { ly.sink = diag.Multi(ly.sink, s) }
}

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(ly *Layer) { ly.session = id }
}

// New loads the layer on top of resolver. Nil settings use the defaults.
func New(settings *config.Settings, resolver driver.Resolver, opts ...Option) (*Layer, error) {
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, errors.InvalidInput(errors.PhaseDriver, "nil resolver")
	}

	global, err := resolver.GlobalProcs()
	if err != nil {
		return nil, errors.Driver("resolve global procs", err)
	}

	mask, _ := settings.Severities()
	l := &Layer{
		settings:   settings,
		resolver:   resolver,
		global:     global,
		log:        Logger(),
		session:    uuid.NewString(),
		mask:       mask,
		violations: make(map[errors.Kind]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.reg = registry.New(registry.WithTombstones(settings.Tombstones))
	l.router = router.New(l.reg)
	l.tracker = tracker.New(l.reg, l.router,
		tracker.WithSkipOnError(settings.SkipOnError),
		tracker.WithTeardownPolicy(settings.Policy()))
	l.calls = calllog.New(l.log)

	interceptors := []chain.Interceptor{&scope{l: l}}
	for _, name := range settings.Interceptors {
		switch name {
		case tracker.Name:
			interceptors = append(interceptors, l.tracker)
		case calllog.Name:
			interceptors = append(interceptors, l.calls)
		}
	}
	l.chain = chain.New(interceptors...)

	sinks := []diag.Sink{diag.NewZapSink(l.log), l.sink}
	if settings.Log.File != "" {
		l.file, err = diag.NewFileSink(settings.Log.File, l.session)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, l.file)
	}
	l.sink = diag.Multi(sinks...)

	l.log.Debug("layer loaded",
		zap.String("session", l.session),
		zap.Strings("interceptors", l.chain.Names()),
		zap.String("teardown", string(settings.Teardown)))
	return l, nil
}

// Session returns the id stamped on logged events.
func (l *Layer) Session() string { return l.session }

// Settings returns the settings the layer was loaded with.
func (l *Layer) Settings() *config.Settings { return l.settings }

// Registry exposes the object registry for inspection.
func (l *Layer) Registry() *registry.Registry { return l.reg }

// Router exposes the dispatch router for inspection.
func (l *Layer) Router() *router.Router { return l.router }

// Guard returns the layer's lock.
func (l *Layer) Guard() *Guard { return &l.guard }

// Call intercepts one entry point. The next layer's result is returned
// unchanged unless the call was skipped, in which case the result is
// vk.ErrorValidationFailed.
func (l *Layer) Call(ctx context.Context, call *vk.Call) vk.Result {
	result, _ := l.Dispatch(ctx, call)
	return result
}

// Dispatch is Call that also returns every violation reported for the
// call, including those filtered out by the severity mask.
func (l *Layer) Dispatch(ctx context.Context, call *vk.Call) (vk.Result, []diag.Violation) {
	cmd := call.Command()
	if cmd != nil && cmd.Target == 0 && call.Handle(0) == vk.NullHandle {
		// Destroying a null instance or device is a no-op.
		return vk.Success, nil
	}
	r := chain.NewReport()

	var (
		block  *router.StateBlock
		proc   driver.Proc
		result vk.Result
	)
	l.guard.Do(func() {
		block, proc, result = l.route(call, cmd, r)
	})
	if result != vk.Success {
		return result, l.deliver(call, block, r)
	}

	if cmd == nil {
		l.log.Debug("unknown command passed through", zap.String("call", call.Name))
	}
	result = l.chain.Run(ctx, call, &l.guard, r, chain.Next(proc))
	if cmd != nil && !result.Succeeded() && !r.Skipped() {
		l.guard.Do(func() { l.restore(call, cmd) })
	}
	return result, l.deliver(call, block, r)
}

// route resolves the call's scope and next-layer procedure. A result other
// than Success ends the call.
func (l *Layer) route(call *vk.Call, cmd *vk.Command, r *chain.Report) (*router.StateBlock, driver.Proc, vk.Result) {
	h := call.Handle(0)
	if (cmd != nil && cmd.Scope() == vk.ScopeGlobal) || (cmd == nil && h == vk.NullHandle) {
		if proc, ok := l.global.Lookup(call.Name); ok {
			return nil, proc, vk.Success
		}
		return nil, nil, vk.ErrorExtensionNotPresent
	}

	_, block, err := l.router.ResolveScope(h)
	if err != nil {
		l.unresolved(call, cmd, h, err, r)
		return nil, nil, vk.ErrorValidationFailed
	}
	if !block.Dispatchable() {
		r.Add(diag.New(errors.KindUseAfterFree, call.Name, h, block.Kind.ObjectType(),
			"%s %s is %s", block.Kind, block.Owner, block.State()))
		return block, nil, vk.ErrorValidationFailed
	}

	proc, ok := block.Proc(call.Name)
	if !ok {
		l.log.Debug("next layer does not expose command",
			zap.String("call", call.Name),
			zap.Stringer("scope", block.Key))
		return block, nil, vk.ErrorExtensionNotPresent
	}
	return block, proc, vk.Success
}

// unresolved reports a dispatch handle that maps to no live scope, together
// with the lifetime violation that explains it.
func (l *Layer) unresolved(call *vk.Call, cmd *vk.Command, h vk.Handle, err error, r *chain.Report) {
	detail := err.Error()
	var e *errors.Error
	if errors.As(err, &e) {
		detail = e.Detail
	}

	typ := vk.ObjectUnknown
	if cmd != nil && len(cmd.Params) > 0 {
		typ = cmd.Params[0].Type
	}
	r.Add(diag.New(errors.KindUnresolvedScope, call.Name, h, typ, "no scope for dispatch handle: %s", detail))

	if cmd == nil || len(cmd.Params) == 0 {
		return
	}
	if cmd.Target == 0 {
		r.Check(validation.CheckDestroy(l.reg, call.Name, cmd.Params[0], h))
		return
	}
	r.Check(validation.CheckExists(l.reg, call.Name, cmd.Params[0], h))
}

// restore reactivates a block whose destroy call failed in the next layer.
func (l *Layer) restore(call *vk.Call, cmd *vk.Command) {
	if cmd.Op != vk.OpDestroy || cmd.Target != 0 {
		return
	}
	b, ok := l.router.Lookup(call.Handle(0))
	if !ok || b.State() != router.StateTearingDown {
		return
	}
	if err := l.router.Restore(b.Key); err != nil {
		l.log.Warn("restore state block", zap.Stringer("key", b.Key), zap.Error(err))
	}
}

// deliver hands each violation to the layer sink and to the sinks attached
// to the call's instance. Runs without the guard.
func (l *Layer) deliver(call *vk.Call, block *router.StateBlock, r *chain.Report) []diag.Violation {
	vs := r.Violations()
	if len(vs) == 0 {
		return nil
	}

	var scoped diag.Sink
	if block != nil {
		scoped = block.Sink()
	}

	l.statsMu.Lock()
	for _, v := range vs {
		l.violations[v.Kind]++
	}
	l.statsMu.Unlock()

	for i := range vs {
		if vs[i].Thread == 0 {
			vs[i].Thread = call.Thread
		}
		if !l.mask.Has(vs[i].Severity) {
			continue
		}
		l.sink.Report(vs[i])
		if scoped != nil {
			scoped.Report(vs[i])
		}
	}
	return vs
}

// Close reports every object still alive as leaked and closes the
// violation log. It is safe to call more than once.
func (l *Layer) Close() error {
	l.statsMu.Lock()
	if l.closed {
		l.statsMu.Unlock()
		return nil
	}
	l.closed = true
	l.statsMu.Unlock()

	r := chain.NewReport()
	l.guard.Do(func() {
		if l.settings.Enabled(tracker.Name) {
			r.Add(l.tracker.Leaks("")...)
		}
	})
	l.deliver(&vk.Call{}, nil, r)

	var err error
	if l.file != nil {
		err = multierr.Append(err, l.file.Close())
	}
	_ = l.log.Sync()
	return err
}
