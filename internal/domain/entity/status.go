package entity

import "github.com/garyjia/office-orders/internal/domain/workflow"

// StatusForTrigger returns the status description a trigger submits under
func StatusForTrigger(trigger workflow.Trigger) string {
	switch trigger {
	case workflow.TriggerSave:
		return StatusSaveAndHold
	case workflow.TriggerSubmit, workflow.TriggerRejectReturn:
		return StatusOngoing
	case workflow.TriggerApprove:
		return StatusApproved
	case workflow.TriggerDelete:
		return StatusDeleted
	default:
		return ""
	}
}

// TriggerForStatus maps a badge description to the trigger that produces it.
// ok is false for statuses no single-field change can reach (e.g. rejected).
func TriggerForStatus(description string) (workflow.Trigger, bool) {
	switch description {
	case StatusSaveAndHold:
		return workflow.TriggerSave, true
	case StatusOngoing:
		return workflow.TriggerSubmit, true
	case StatusApproved:
		return workflow.TriggerApprove, true
	case StatusDeleted:
		return workflow.TriggerDelete, true
	default:
		return "", false
	}
}

// BadgeOption maps a status id to its human-readable description.
// Read-only reference data.
type BadgeOption struct {
	StatusID    int    `json:"statusId"`
	Description string `json:"description"`
}
