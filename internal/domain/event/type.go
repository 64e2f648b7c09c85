package event

// Type identifies the type of domain event
type Type string

const (
	TypeTaskSaved         Type = "task.saved"
	TypeTaskSubmitted     Type = "task.submitted"
	TypeTaskApproved      Type = "task.approved"
	TypeTaskReturned      Type = "task.returned"
	TypeTaskDeleted       Type = "task.deleted"
	TypeTaskStatusChanged Type = "task.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskSaved,
		TypeTaskSubmitted,
		TypeTaskApproved,
		TypeTaskReturned,
		TypeTaskDeleted,
		TypeTaskStatusChanged:
		return true
	default:
		return false
	}
}

// Payload keys shared by publishers and handlers
const (
	KeyCoverPageNo   = "cover_page_no"
	KeyActorUserID   = "actor_user_id"
	KeyActorRole     = "actor_role"
	KeyAssignedTo    = "assigned_to"
	KeyAssignedRole  = "assigned_role"
	KeyPreviousState = "previous_state"
	KeyNewState      = "new_state"
	KeyTrigger       = "trigger"
	KeyRemarks       = "remarks"
)
