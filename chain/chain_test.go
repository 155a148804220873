package chain

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

type mockInterceptor struct {
	mock.Mock
	name string
}

func (m *mockInterceptor) Name() string { return m.name }

func (m *mockInterceptor) PreValidate(ctx context.Context, call *vk.Call, r *Report) bool {
	return m.Called(call.Name).Bool(0)
}

func (m *mockInterceptor) PreRecord(ctx context.Context, call *vk.Call, r *Report) {
	m.Called(call.Name)
}

func (m *mockInterceptor) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *Report) {
	m.Called(call.Name, result)
}

// lockProbe records whether the guard was held at each point.
type lockProbe struct {
	held bool
	mu   sync.Mutex
}

func (l *lockProbe) Lock()   { l.mu.Lock(); l.held = true }
func (l *lockProbe) Unlock() { l.held = false; l.mu.Unlock() }

func TestRun_Success(t *testing.T) {
	a := &mockInterceptor{name: "a"}
	b := &mockInterceptor{name: "b"}
	a.On("PreValidate", "vkCreateFence").Return(false)
	b.On("PreValidate", "vkCreateFence").Return(false)
	a.On("PreRecord", "vkCreateFence").Return()
	b.On("PreRecord", "vkCreateFence").Return()
	a.On("PostRecord", "vkCreateFence", vk.Success).Return()
	b.On("PostRecord", "vkCreateFence", vk.Success).Return()

	c := New(a, b)
	guard := &lockProbe{}
	called := false
	result := c.Run(context.Background(), vk.NewCall("vkCreateFence", vk.Handle(1)), guard, NewReport(),
		func(ctx context.Context, call *vk.Call) vk.Result {
			called = true
			assert.False(t, guard.held, "guard must be released around the next layer")
			return vk.Success
		})

	assert.Equal(t, vk.Success, result)
	assert.True(t, called)
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestRun_SkipRunsWholeValidatePass(t *testing.T) {
	a := &mockInterceptor{name: "a"}
	b := &mockInterceptor{name: "b"}
	a.On("PreValidate", "vkCmdDraw").Return(true)
	b.On("PreValidate", "vkCmdDraw").Return(false)

	c := New(a, b)
	r := NewReport()
	result := c.Run(context.Background(), vk.NewCall("vkCmdDraw", vk.Handle(5)), &sync.Mutex{}, r,
		func(context.Context, *vk.Call) vk.Result {
			t.Fatal("next layer must not be called on skip")
			return vk.Success
		})

	assert.Equal(t, vk.ErrorValidationFailed, result)
	assert.True(t, r.Skipped())
	assert.Equal(t, []string{"a"}, r.SkippedBy())
	b.AssertCalled(t, "PreValidate", "vkCmdDraw")
	a.AssertNotCalled(t, "PreRecord", mock.Anything)
	b.AssertNotCalled(t, "PreRecord", mock.Anything)
	a.AssertNotCalled(t, "PostRecord", mock.Anything, mock.Anything)
}

func TestRun_FailureSkipsPostRecord(t *testing.T) {
	a := &mockInterceptor{name: "a"}
	a.On("PreValidate", "vkCreateDevice").Return(false)
	a.On("PreRecord", "vkCreateDevice").Return()

	c := New(a)
	result := c.Run(context.Background(), vk.NewCall("vkCreateDevice", vk.Handle(2)), &sync.Mutex{}, NewReport(),
		func(context.Context, *vk.Call) vk.Result { return vk.ErrorInitializationFailed })

	assert.Equal(t, vk.ErrorInitializationFailed, result)
	a.AssertNotCalled(t, "PostRecord", mock.Anything, mock.Anything)
}

func TestChain_Order(t *testing.T) {
	var order []string
	record := func(name string) *Funcs {
		return &Funcs{
			ID: name,
			Validate: func(context.Context, *vk.Call, *Report) bool {
				order = append(order, "validate:"+name)
				return false
			},
			Before: func(context.Context, *vk.Call, *Report) { order = append(order, "pre:"+name) },
			After: func(context.Context, *vk.Call, vk.Result, *Report) {
				order = append(order, "post:"+name)
			},
		}
	}

	c := New(record("x"), nil, record("y"))
	assert.Equal(t, []string{"x", "y"}, c.Names())
	assert.Equal(t, 2, c.Len())

	c.Run(context.Background(), vk.NewCall("vkDeviceWaitIdle", vk.Handle(2)), &sync.Mutex{}, NewReport(),
		func(context.Context, *vk.Call) vk.Result {
			order = append(order, "next")
			return vk.Success
		})

	assert.Equal(t, []string{
		"validate:x", "validate:y",
		"pre:x", "pre:y",
		"next",
		"post:x", "post:y",
	}, order)
}

func TestFuncs_NilPhases(t *testing.T) {
	f := &Funcs{ID: "empty"}
	r := NewReport()
	call := vk.NewCall("vkCmdDraw")

	assert.False(t, f.PreValidate(context.Background(), call, r))
	f.PreRecord(context.Background(), call, r)
	f.PostRecord(context.Background(), call, vk.Success, r)
	assert.Equal(t, "empty", f.Name())
}

func TestReport(t *testing.T) {
	r := NewReport()
	v := diag.New(errors.KindInvalidHandle, "vkCmdDraw", 3, vk.ObjectCommandBuffer, "never created")

	r.Add(v, v)
	assert.True(t, r.Check(&v))
	assert.False(t, r.Check(nil))
	require.Equal(t, 1, r.Len())

	r.Add(v.WithParam("other"))
	assert.Equal(t, 2, r.Len())

	assert.Nil(t, r.Value("k"))
	r.Put("k", 42)
	assert.Equal(t, 42, r.Value("k"))
	assert.False(t, r.Skipped())
}
