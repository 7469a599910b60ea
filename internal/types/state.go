package types

import "fmt"

// State is a step of the per-run state machine.
type State string

const (
	StateStart                State = "Start"
	StateCheckingPrecondition State = "CheckingPrecondition"
	StateConverting           State = "Converting"
	StateParsing              State = "Parsing"
	StateSubmitting           State = "Submitting"
	StateWaitingForCompletion State = "WaitingForCompletion"
	StateDone                 State = "Done"
	StateFailed               State = "Failed"
)

// forward holds the only non-failure edge out of each state.
var forward = map[State]State{
	StateStart:                StateCheckingPrecondition,
	StateCheckingPrecondition: StateConverting,
	StateConverting:           StateParsing,
	StateParsing:              StateSubmitting,
	StateSubmitting:           StateWaitingForCompletion,
	StateWaitingForCompletion: StateDone,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return forward[from] == to
}

// Machine tracks a single run through the state machine.
type Machine struct {
	current State
	trace   []State
}

// NewMachine returns a machine positioned at Start.
func NewMachine() *Machine {
	return &Machine{current: StateStart, trace: []State{StateStart}}
}

// Current returns the current state.
func (m *Machine) Current() State {
	return m.current
}

// Trace returns a copy of the states visited so far.
func (m *Machine) Trace() []State {
	out := make([]State, len(m.trace))
	copy(out, m.trace)
	return out
}

// Advance moves to the next state. Illegal edges return an error and leave
// the machine unchanged.
func (m *Machine) Advance(to State) error {
	if !CanTransition(m.current, to) {
		return fmt.Errorf("illegal transition %s -> %s", m.current, to)
	}
	m.current = to
	m.trace = append(m.trace, to)
	return nil
}
