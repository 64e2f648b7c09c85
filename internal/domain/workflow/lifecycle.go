package workflow

import "context"

// RoleChecker reports whether the actor carried by ctx may act as an approver
type RoleChecker func(ctx context.Context) bool

// BuildTaskStateMachine creates a state machine configured for the task approval lifecycle.
// Approve and RejectReturn are guarded by isApprover; a nil checker denies both.
func BuildTaskStateMachine(initialState State, isApprover RoleChecker) StateMachine {
	guard := func(ctx context.Context) bool {
		return isApprover != nil && isApprover(ctx)
	}

	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSave, StateDraft).
		Permit(TriggerSubmit, StateOngoing).
		Permit(TriggerDelete, StateDeleted)

	// A holder of an ongoing task may forward it, hold it, or decide on it.
	builder.Configure(StateOngoing).
		Permit(TriggerSave, StateDraft).
		Permit(TriggerSubmit, StateOngoing).
		PermitIf(TriggerApprove, StateApproved, GuardFunc(guard)).
		PermitIf(TriggerRejectReturn, StateReturned, GuardFunc(guard)).
		Permit(TriggerDelete, StateDeleted)

	builder.Configure(StateReturned).
		Permit(TriggerSave, StateDraft).
		Permit(TriggerSubmit, StateOngoing).
		Permit(TriggerDelete, StateDeleted)

	// APPROVED and DELETED are terminal - no outgoing transitions

	return builder.Build(initialState)
}
