// Package fsm holds helpers shared by looplab/fsm state machines.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent adapts fn to a looplab callback. An error returned by fn is set on
// the event and comes back from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// EnterState is the callback key run after entering state.
func EnterState(state string) string {
	return "enter_" + state
}

// Arg returns argument i of the event if it has type T.
func Arg[T any](e *fsm.Event, i int) (T, bool) {
	var zero T
	if len(e.Args) <= i {
		return zero, false
	}
	v, ok := e.Args[i].(T)
	return v, ok
}

// Fire triggers event on f. A done ctx does not skip the transition; its
// values still reach the callbacks.
func Fire(ctx context.Context, f *fsm.FSM, event string, args ...any) error {
	return f.Event(context.WithoutCancel(ctx), event, args...)
}
