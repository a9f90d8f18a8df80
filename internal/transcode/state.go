package transcode

import "fmt"

// State is where a single rendition or audio encode is in its lifecycle.
type State int

const (
	StatePending State = iota
	StateRunning
	StateNeedsInitFallback
	StateRunningFallback
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateNeedsInitFallback:
		return "needs-init-fallback"
	case StateRunningFallback:
		return "running-fallback"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

var transitions = map[State][]State{
	StatePending:           {StateRunning},
	StateRunning:           {StateVerified, StateNeedsInitFallback, StateFailed},
	StateNeedsInitFallback: {StateRunningFallback},
	StateRunningFallback:   {StateVerified, StateFailed},
}

// CanTransition reports whether from → to is a legal step. The fallback
// states appear at most once per encode because nothing leads back to them.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// tracker records the path an encode takes through the state machine.
type tracker struct {
	state   State
	history []State
}

func newTracker() *tracker {
	return &tracker{state: StatePending, history: []State{StatePending}}
}

func (t *tracker) to(next State) {
	if !CanTransition(t.state, next) {
		panic(fmt.Sprintf("transcode: illegal transition %s -> %s", t.state, next))
	}
	t.state = next
	t.history = append(t.history, next)
}
