package workflow

// Trigger represents a user action that can cause a state transition
type Trigger string

const (
	TriggerSave         Trigger = "SAVE"
	TriggerSubmit       Trigger = "SUBMIT"
	TriggerApprove      Trigger = "APPROVE"
	TriggerRejectReturn Trigger = "REJECT_RETURN"
	TriggerDelete       Trigger = "DELETE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid reports whether the trigger is one of the defined actions
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerSave, TriggerSubmit, TriggerApprove, TriggerRejectReturn, TriggerDelete:
		return true
	default:
		return false
	}
}
