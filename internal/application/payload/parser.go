package payload

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Parse maps a backend record back to a Task. Derived keys (duration,
// toColumnHtml) are ignored; unknown keys are tolerated.
func Parse(r port.Record) (*entity.Task, error) {
	p := &parser{record: r}

	task := &entity.Task{
		CoverPageNo:            p.str(KeyCoverPageNo),
		TaskID:                 p.str(KeyTaskID),
		ProcessID:              p.str(KeyProcessID),
		ActivitySequenceNumber: p.integer(KeyActivitySequenceNumber),

		EmployeeID:   p.str(KeyEmployeeID),
		InitiatedBy:  p.str(KeyInitiatedBy),
		AssignedTo:   p.str(KeyAssignTo),
		AssignedRole: p.str(KeyAssignedRole),
		UpdatedBy:    p.str(KeyUpdatedBy),

		Employee: entity.Employee{
			Name:        p.str(KeyEmployeeName),
			Department:  p.str(KeyDepartment),
			Designation: p.str(KeyDesignation),
		},
		Visit: entity.Visit{
			From:          p.date(KeyVisitFrom),
			To:            p.date(KeyVisitTo),
			NatureOfVisit: p.str(KeyNatureOfVisit),
			Country:       p.str(KeyCountry),
			City:          p.str(KeyCity),
			ClaimType:     p.str(KeyClaimType),
		},
		OfficeOrder: entity.OfficeOrder{
			ReferenceNumber:  p.str(KeyReferenceNo),
			Subject:          p.str(KeySubject),
			ReferenceText:    p.str(KeyReferenceText),
			Header:           p.str(KeyHeader),
			Footer:           p.str(KeyFooter),
			SigningAuthority: p.str(KeySigningAuthority),
			Priority:         p.str(KeyPriority),
			Remarks:          p.str(KeyRemarks),
		},

		StatusID:       p.integer(KeyStatusID),
		Status:         p.str(KeyStatusDescription),
		IsTaskReturned: p.boolean(KeyIsTaskReturned),
		IsTaskApproved: p.boolean(KeyIsTaskApproved),
		RejectFlag:     p.integer(KeyRejectFlag),
		InitiatedOn:    p.timestamp(KeyInitiatedOn),
		UpdatedOn:      p.timestamp(KeyUpdatedOn),
	}

	if body := p.str(KeyOfficeOrderBody); body != "" {
		doc, err := document.ParseHTML(body)
		if err != nil {
			p.fail(KeyOfficeOrderBody, err)
		}
		task.OfficeOrder.Body = doc
	}

	toSection, err := SplitToSection(p.str(KeyToSection))
	if err != nil {
		p.fail(KeyToSection, err)
	}
	task.OfficeOrder.ToSection = toSection

	if p.err != nil {
		return nil, p.err
	}
	return task, nil
}

// parser keeps the first conversion error so Parse reads top to bottom
type parser struct {
	record port.Record
	err    error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *parser) raw(key string) (interface{}, bool) {
	v, ok := p.record[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func (p *parser) str(key string) string {
	v, ok := p.raw(key)
	if !ok {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		p.fail(key, err)
	}
	return s
}

func (p *parser) integer(key string) int {
	v, ok := p.raw(key)
	if !ok {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) boolean(key string) bool {
	v, ok := p.raw(key)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		p.fail(key, err)
	}
	return b
}

func (p *parser) date(key string) time.Time {
	s := p.str(key)
	if s == "" {
		return time.Time{}
	}
	if d, err := time.Parse(entity.DateLayout, s); err == nil {
		return d
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		p.fail(key, err)
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p *parser) timestamp(key string) time.Time {
	s := p.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		p.fail(key, err)
		return time.Time{}
	}
	return t.UTC()
}
