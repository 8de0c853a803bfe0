// Package fsm defines the dictation session phases and their legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

const (
	EventStart  Event = "start"
	EventStop   Event = "stop"
	EventFinish Event = "finish"
)

// Transition returns the phase that follows current when event is applied.
// Phases cycle idle -> recording -> processing -> idle with no terminal state.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventFinish:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// ToggleEvent maps a user toggle onto the event it triggers in current.
// It reports false while processing: toggles in that phase are dropped.
func ToggleEvent(current State) (Event, bool) {
	switch current {
	case StateIdle:
		return EventStart, true
	case StateRecording:
		return EventStop, true
	default:
		return "", false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
