package raid

import "strings"

// State represents the lifecycle of a raid session.
type State string

const (
	StateInactive   State = "inactive"
	StateRecruiting State = "recruiting"
	StateMilestone  State = "milestone"
	StateLaunching  State = "launching"
	StateActive     State = "active"
	StateCompleted  State = "completed"
)

var allStates = []State{
	StateInactive,
	StateRecruiting,
	StateMilestone,
	StateLaunching,
	StateActive,
	StateCompleted,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// validTransitions is the complete edge set of the session state machine.
// Any transition not listed here fails closed.
var validTransitions = map[State][]State{
	StateInactive:   {StateRecruiting},
	StateRecruiting: {StateMilestone, StateLaunching, StateInactive},
	StateMilestone:  {StateRecruiting, StateLaunching},
	StateLaunching:  {StateActive, StateInactive},
	StateActive:     {StateCompleted, StateInactive},
	StateCompleted:  {StateInactive},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State. Comparison is
// case-insensitive to tolerate heterogeneous callers (HTTP API, CLI).
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// ValidateTransition reports whether moving from one state to another is a
// legal edge of the state machine. Unknown state names return
// CodeInvalidTransition rather than panicking or guessing.
func ValidateTransition(from, to State) (bool, Code) {
	fromState, ok := ParseState(string(from))
	if !ok {
		return false, CodeInvalidTransition
	}
	toState, ok := ParseState(string(to))
	if !ok {
		return false, CodeInvalidTransition
	}
	for _, allowed := range validTransitions[fromState] {
		if allowed == toState {
			return true, ""
		}
	}
	return false, CodeInvalidTransition
}

// Live reports whether the state belongs to an in-flight session. Inactive
// and completed sessions are terminal.
func (s State) Live() bool {
	return s != StateInactive && s != StateCompleted
}

// AcceptsJoin reports whether new participants may join in this state.
func (s State) AcceptsJoin() bool {
	return s == StateRecruiting || s == StateMilestone
}
