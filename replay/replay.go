package replay

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/driver/mock"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/layer"
	"github.com/wippyai/objtrack/vk"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Call       *vk.Call
	Violations []diag.Violation
	Mismatches []string
	Index      int
	Result     vk.Result
}

// Outcome collects the results of a replay.
type Outcome struct {
	Script  string
	Steps   []StepResult
	Handles map[string]vk.Handle
}

// Violations returns every violation reported during the replay.
func (o *Outcome) Violations() []diag.Violation {
	var out []diag.Violation
	for _, st := range o.Steps {
		out = append(out, st.Violations...)
	}
	return out
}

// Failed reports whether any expectation did not hold.
func (o *Outcome) Failed() bool { return o.Err() != nil }

// Err combines every expectation mismatch into one error.
func (o *Outcome) Err() error {
	var err error
	for _, st := range o.Steps {
		for _, m := range st.Mismatches {
			err = multierr.Append(err, errors.New(errors.PhaseReplay, errors.KindMismatch).
				Call(st.Call.Name).
				Detail("step %d: %s", st.Index+1, m).
				Build())
		}
	}
	return err
}

// Runner replays scripts one step at a time.
type Runner struct {
	layer   *layer.Layer
	drv     *mock.Driver
	script  *Script
	handles map[string]vk.Handle
	outcome *Outcome
	next    int
}

// NewRunner prepares script for stepping. drv may be nil when the layer
// does not sit on a mock driver; failure injection is then an error.
func NewRunner(l *layer.Layer, drv *mock.Driver, script *Script) *Runner {
	handles := make(map[string]vk.Handle)
	return &Runner{
		layer:   l,
		drv:     drv,
		script:  script,
		handles: handles,
		outcome: &Outcome{Script: script.Name, Handles: handles},
	}
}

// Done reports whether every step has run.
func (r *Runner) Done() bool { return r.next >= len(r.script.Steps) }

// Next returns the index of the step Step will run.
func (r *Runner) Next() int { return r.next }

// Script returns the script being replayed.
func (r *Runner) Script() *Script { return r.script }

// Outcome returns the results so far.
func (r *Runner) Outcome() *Outcome { return r.outcome }

// Step runs the next step. Errors mean the script itself is broken; failed
// expectations are recorded in the outcome instead.
func (r *Runner) Step(ctx context.Context) (*StepResult, error) {
	if r.Done() {
		return nil, errors.InvalidInput(errors.PhaseReplay, "script finished")
	}
	i := r.next
	st := r.script.Steps[i]
	r.next++

	call, err := r.build(st)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", i+1, err)
	}
	if st.Fail != "" {
		if r.drv == nil {
			return nil, errors.Unsupported(errors.PhaseReplay, "failure injection without a mock driver")
		}
		res, _ := vk.ParseResult(st.Fail)
		r.drv.Fail(st.Call, res)
	}

	result, vs := r.layer.Dispatch(ctx, call)
	if st.Fail != "" {
		r.drv.Clear(st.Call)
	}

	sr := StepResult{Index: i, Call: call, Result: result, Violations: vs}
	if result.Succeeded() {
		r.bind(st, call, &sr)
	}
	sr.Mismatches = append(sr.Mismatches, check(st.Expect, result, vs)...)

	r.outcome.Steps = append(r.outcome.Steps, sr)
	return &r.outcome.Steps[len(r.outcome.Steps)-1], nil
}

func (r *Runner) build(st Step) (*vk.Call, error) {
	args := make([]vk.Arg, len(st.Args))
	for i, a := range st.Args {
		hs := make(vk.Handles, 0, len(a.Items))
		for _, item := range a.Items {
			h, err := r.resolve(item)
			if err != nil {
				return nil, err
			}
			hs = append(hs, h)
		}
		if a.List {
			args[i] = hs
		} else {
			args[i] = hs[0]
		}
	}
	return vk.NewCall(st.Call, args...).WithCount(st.Count).WithThread(st.Thread), nil
}

func (r *Runner) resolve(item string) (vk.Handle, error) {
	if isSymbol(item) {
		h, ok := r.handles[item]
		if !ok {
			return 0, errors.NotFound(errors.PhaseReplay, "handle", item)
		}
		return h, nil
	}
	if h, ok := literal(item); ok {
		return h, nil
	}
	return 0, errors.InvalidInput(errors.PhaseReplay, "bad handle "+item)
}

func (r *Runner) bind(st Step, call *vk.Call, sr *StepResult) {
	for i, name := range st.Out {
		if i >= len(call.Out) {
			sr.Mismatches = append(sr.Mismatches,
				fmt.Sprintf("%s returned %d handles, script names %d", st.Call, len(call.Out), len(st.Out)))
			return
		}
		r.handles[name] = call.Out[i]
	}
}

func check(want *Expect, result vk.Result, vs []diag.Violation) []string {
	if want == nil {
		return nil
	}
	var out []string
	if want.Result != "" {
		if res, _ := vk.ParseResult(want.Result); res != result {
			out = append(out, fmt.Sprintf("result %s, want %s", result, res))
		}
	}
	if want.Violations != nil {
		got := make([]errors.Kind, len(vs))
		for i, v := range vs {
			got[i] = v.Kind
		}
		if !slices.Equal(got, want.Violations) {
			out = append(out, fmt.Sprintf("violations %v, want %v", got, want.Violations))
		}
	}
	return out
}

// Run replays the whole script against l.
func Run(ctx context.Context, l *layer.Layer, drv *mock.Driver, script *Script) (*Outcome, error) {
	r := NewRunner(l, drv, script)
	for !r.Done() {
		if _, err := r.Step(ctx); err != nil {
			return r.Outcome(), err
		}
	}
	return r.Outcome(), nil
}
