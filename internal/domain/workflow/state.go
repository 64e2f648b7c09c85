package workflow

// State represents a task state in the approval lifecycle
type State string

const (
	StateDraft    State = "DRAFT"
	StateOngoing  State = "ONGOING"
	StateReturned State = "RETURNED"
	StateApproved State = "APPROVED"
	StateDeleted  State = "DELETED"
)

var validStates = map[State]bool{
	StateDraft:    true,
	StateOngoing:  true,
	StateReturned: true,
	StateApproved: true,
	StateDeleted:  true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateDeleted:  true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
