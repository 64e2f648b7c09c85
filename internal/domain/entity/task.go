package entity

import (
	"math"
	"time"

	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// Task is one routed work item, e.g. a "Permission cum Relief" travel request that
// becomes a signed Office Order once approved.
//
// Ownership of the mutable record follows AssignedTo: only the current holder edits it.
type Task struct {
	// Identity
	CoverPageNo            string `json:"cover_page_no"`
	TaskID                 string `json:"task_id"`
	ProcessID              string `json:"process_id"`
	ActivitySequenceNumber int    `json:"activity_sequence_number"`

	// Actors
	EmployeeID   string `json:"employee_id"`
	InitiatedBy  string `json:"initiated_by"`
	AssignedTo   string `json:"assigned_to"`
	AssignedRole string `json:"assigned_role"`
	UpdatedBy    string `json:"updated_by"`

	Employee    Employee    `json:"employee"`
	Visit       Visit       `json:"visit"`
	OfficeOrder OfficeOrder `json:"office_order"`

	// Lifecycle
	StatusID       int       `json:"status_id"`
	Status         string    `json:"status"`
	IsTaskReturned bool      `json:"is_task_returned"`
	IsTaskApproved bool      `json:"is_task_approved"`
	RejectFlag     int       `json:"reject_flag"`
	InitiatedOn    time.Time `json:"initiated_on"`
	UpdatedOn      time.Time `json:"updated_on"`
}

// Employee holds the requesting employee's attributes
type Employee struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

// Visit describes the requested travel. Zero dates mean "not entered".
type Visit struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	NatureOfVisit string    `json:"nature_of_visit"`
	Country       string    `json:"country"`
	City          string    `json:"city"`
	ClaimType     string    `json:"claim_type"`
}

// OfficeOrder holds the content of the document issued on approval
type OfficeOrder struct {
	ReferenceNumber  string            `json:"reference_number"`
	Subject          string            `json:"subject"`
	ReferenceText    string            `json:"reference_text"`
	Body             document.Document `json:"body"`
	Header           string            `json:"header"`
	Footer           string            `json:"footer"`
	SigningAuthority string            `json:"signing_authority"`
	ToSection        []string          `json:"to_section"`
	Priority         string            `json:"priority"`
	Remarks          string            `json:"remarks"`
}

// Duration returns the visit length in days, counting both ends.
// It is 0 unless both dates are present.
func (t *Task) Duration() int {
	return VisitDuration(t.Visit.From, t.Visit.To)
}

// VisitDuration computes ceil((to - from) / 1 day) + 1, or 0 when either date is zero
func VisitDuration(from, to time.Time) int {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	days := to.Sub(from).Hours() / 24
	return int(math.Ceil(days)) + 1
}

// State derives the lifecycle state from the status description and return flag
func (t *Task) State() workflow.State {
	switch t.Status {
	case StatusOngoing:
		if t.IsTaskReturned {
			return workflow.StateReturned
		}
		return workflow.StateOngoing
	case StatusApproved:
		return workflow.StateApproved
	case StatusDeleted, StatusRejected:
		// rejected tasks leave every active inbox, same as deleted ones
		return workflow.StateDeleted
	default:
		return workflow.StateDraft
	}
}

// IsActive reports whether the task still belongs in an inbox
func (t *Task) IsActive() bool {
	return !t.State().IsTerminal()
}

// IsNew reports whether the task has not been persisted yet
func (t *Task) IsNew() bool {
	return t.CoverPageNo == ""
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.OfficeOrder.Body = t.OfficeOrder.Body.Clone()
	if t.OfficeOrder.ToSection != nil {
		out.OfficeOrder.ToSection = append([]string(nil), t.OfficeOrder.ToSection...)
	}
	return &out
}
