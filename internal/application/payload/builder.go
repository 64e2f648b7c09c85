package payload

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// Actor identifies who performs an action. ReturnTo is only read for RejectReturn.
type Actor struct {
	UserID   string
	Role     string
	ReturnTo string
}

// Build assembles the canonical upsert record for task under action.
// It is pure: the task is not modified and nothing is sent anywhere.
// The task's StatusID and Status must already hold the resolved status.
func Build(task *entity.Task, action workflow.Trigger, actor Actor) port.Record {
	r := encode(task)
	if task.InitiatedBy == "" {
		r[KeyInitiatedBy] = actor.UserID
	}
	r[KeyUpdatedBy] = actor.UserID

	applyRouting(r, action, actor)

	return Normalize(r)
}

// Encode writes task as it is stored, with its own routing and lifecycle flags
func Encode(task *entity.Task) port.Record {
	return Normalize(encode(task))
}

func encode(task *entity.Task) port.Record {
	r := make(port.Record, len(Keys))

	r[KeyCoverPageNo] = task.CoverPageNo
	r[KeyTaskID] = task.TaskID
	r[KeyProcessID] = task.ProcessID
	r[KeyActivitySequenceNumber] = task.ActivitySequenceNumber

	r[KeyEmployeeID] = task.EmployeeID
	r[KeyInitiatedBy] = task.InitiatedBy
	r[KeyAssignTo] = task.AssignedTo
	r[KeyAssignedRole] = task.AssignedRole
	r[KeyUpdatedBy] = task.UpdatedBy

	r[KeyEmployeeName] = task.Employee.Name
	r[KeyDepartment] = task.Employee.Department
	r[KeyDesignation] = task.Employee.Designation

	r[KeyVisitFrom] = formatDate(task.Visit.From)
	r[KeyVisitTo] = formatDate(task.Visit.To)
	r[KeyDuration] = task.Duration()
	r[KeyNatureOfVisit] = task.Visit.NatureOfVisit
	r[KeyCountry] = task.Visit.Country
	r[KeyCity] = task.Visit.City
	r[KeyClaimType] = task.Visit.ClaimType

	order := task.OfficeOrder
	toSection := compact(order.ToSection)
	r[KeyReferenceNo] = order.ReferenceNumber
	r[KeySubject] = order.Subject
	r[KeyReferenceText] = order.ReferenceText
	r[KeyOfficeOrderBody] = document.RenderHTML(order.Body)
	r[KeyHeader] = order.Header
	r[KeyFooter] = order.Footer
	r[KeySigningAuthority] = order.SigningAuthority
	r[KeyToSection] = JoinToSection(toSection)
	r[KeyToColumnHTML] = document.RenderList(true, toSection)
	r[KeyPriority] = order.Priority
	r[KeyRemarks] = order.Remarks

	r[KeyStatusID] = task.StatusID
	r[KeyStatusDescription] = task.Status
	r[KeyIsTaskReturned] = task.IsTaskReturned
	r[KeyIsTaskApproved] = task.IsTaskApproved
	r[KeyRejectFlag] = task.RejectFlag
	r[KeyInitiatedOn] = formatTimestamp(task.InitiatedOn)
	r[KeyUpdatedOn] = formatTimestamp(task.UpdatedOn)

	return r
}

// applyRouting sets assignee and lifecycle flags for the action
func applyRouting(r port.Record, action workflow.Trigger, actor Actor) {
	r[KeyIsTaskReturned] = false
	r[KeyIsTaskApproved] = false
	r[KeyRejectFlag] = entity.RejectFlagNone

	switch action {
	case workflow.TriggerSave, workflow.TriggerDelete:
		// back to the actor's own inbox
		r[KeyAssignTo] = actor.UserID
		r[KeyAssignedRole] = actor.Role
	case workflow.TriggerSubmit:
		// routing is decided downstream
		r[KeyAssignTo] = ""
		r[KeyAssignedRole] = ""
	case workflow.TriggerApprove:
		r[KeyAssignTo] = ""
		r[KeyAssignedRole] = ""
		r[KeyIsTaskApproved] = true
	case workflow.TriggerRejectReturn:
		r[KeyAssignTo] = actor.ReturnTo
		r[KeyAssignedRole] = ""
		r[KeyIsTaskReturned] = true
		r[KeyRejectFlag] = entity.RejectFlagReturned
	}
}

// Normalize replaces nil values with "" and adds any missing canonical key as ""
func Normalize(r port.Record) port.Record {
	for _, key := range Keys {
		if v, ok := r[key]; !ok || v == nil {
			r[key] = ""
		}
	}
	for key, v := range r {
		if v == nil {
			r[key] = ""
		}
	}
	return r
}

// JoinToSection joins distribution entries with CSV quoting so entries that
// contain commas or quotes survive SplitToSection
func JoinToSection(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// a bytes.Buffer never fails to write
	_ = w.Write(entries)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

// SplitToSection reverses JoinToSection. Plain comma lists are accepted too.
func SplitToSection(joined string) ([]string, error) {
	if strings.TrimSpace(joined) == "" {
		return nil, nil
	}
	rd := csv.NewReader(strings.NewReader(joined))
	rd.FieldsPerRecord = -1
	fields, err := rd.Read()
	if err != nil {
		return nil, err
	}
	return compact(fields), nil
}

func compact(entries []string) []string {
	var out []string
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(entity.DateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
