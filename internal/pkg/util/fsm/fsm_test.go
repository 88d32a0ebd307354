package fsm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(onBusy func(context.Context, *fsm.Event) error) *fsm.FSM {
	return fsm.NewFSM("idle",
		fsm.Events{
			{Name: "work", Src: []string{"idle"}, Dst: "busy"},
			{Name: "rest", Src: []string{"busy"}, Dst: "idle"},
		},
		fsm.Callbacks{EnterState("busy"): WrapEvent(onBusy)},
	)
}

func TestWrapEventReturnsCallbackError(t *testing.T) {
	f := newMachine(func(context.Context, *fsm.Event) error {
		return errors.New("boom")
	})

	err := Fire(t.Context(), f, "work")
	require.EqualError(t, err, "boom")
	assert.Equal(t, "busy", f.Current())
}

func TestFireIgnoresCancellation(t *testing.T) {
	var seen time.Time
	f := newMachine(func(_ context.Context, e *fsm.Event) error {
		seen, _ = Arg[time.Time](e, 0)
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Fire(ctx, f, "work", at))
	assert.Equal(t, "busy", f.Current())
	assert.Equal(t, at, seen)
}

func TestArg(t *testing.T) {
	e := &fsm.Event{Args: []any{"snapshot", 3 * time.Second}}

	s, ok := Arg[string](e, 0)
	assert.True(t, ok)
	assert.Equal(t, "snapshot", s)

	d, ok := Arg[time.Duration](e, 1)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = Arg[error](e, 0)
	assert.False(t, ok)
	_, ok = Arg[string](e, 2)
	assert.False(t, ok)
}
