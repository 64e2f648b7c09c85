package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// Input is the flattened view of a task action that profiles validate
type Input struct {
	VisitFrom     time.Time `label:"Visit From" validate:"required"`
	VisitTo       time.Time `label:"Visit To" validate:"required,gtefield=VisitFrom"`
	NatureOfVisit string    `label:"Nature of Visit" validate:"notblank"`
	Country       string    `label:"Country" validate:"notblank"`
	City          string    `label:"City" validate:"notblank"`

	SigningAuthority string   `label:"Signing Authority" validate:"notblank"`
	ToSection        []string `label:"To Section" validate:"hasentry"`
	Remarks          string   `label:"Remarks" validate:"notblank"`

	ActorRole string `label:"Approver Role" validate:"approver"`
	ReturnTo  string `label:"Return To" validate:"notblank"`
}

// InputFrom flattens a task plus the action context
func InputFrom(task *entity.Task, actorRole, returnTo string) Input {
	return Input{
		VisitFrom:        task.Visit.From,
		VisitTo:          task.Visit.To,
		NatureOfVisit:    task.Visit.NatureOfVisit,
		Country:          task.Visit.Country,
		City:             task.Visit.City,
		SigningAuthority: task.OfficeOrder.SigningAuthority,
		ToSection:        task.OfficeOrder.ToSection,
		Remarks:          task.OfficeOrder.Remarks,
		ActorRole:        actorRole,
		ReturnTo:         returnTo,
	}
}

// Validator applies action profiles. Every violation is collected; it never stops
// at the first failure.
type Validator struct {
	validate      *validator.Validate
	approverRoles []string
}

// New creates a validator. Roles in approverRoles may approve and return tasks;
// with none given, entity.RoleApprover is used.
func New(approverRoles ...string) *Validator {
	if len(approverRoles) == 0 {
		approverRoles = []string{entity.RoleApprover}
	}
	v := &Validator{
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		approverRoles: append([]string(nil), approverRoles...),
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	// registration only fails for empty tags or nil funcs
	_ = v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.validate.RegisterValidation("hasentry", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		for i := 0; i < field.Len(); i++ {
			if strings.TrimSpace(field.Index(i).String()) != "" {
				return true
			}
		}
		return false
	})
	_ = v.validate.RegisterValidation("approver", func(fl validator.FieldLevel) bool {
		return slices.Contains(v.approverRoles, fl.Field().String())
	})

	return v
}

// IsApprover reports whether role may approve or return tasks
func (v *Validator) IsApprover(role string) bool {
	return slices.Contains(v.approverRoles, role)
}

// Validate checks in against the profile of action. It returns nil or a
// *apperr.ValidationError listing every violation.
func (v *Validator) Validate(action workflow.Trigger, in Input) error {
	profile, ok := ProfileFor(action)
	if !ok {
		return fmt.Errorf("%w: no validation profile for action %s", workflow.ErrInvalidTransition, action)
	}
	return v.ValidateProfile(profile, in)
}

// ValidateProfile checks in against an explicit profile
func (v *Validator) ValidateProfile(profile Profile, in Input) error {
	fields := profile.Fields()
	if len(fields) == 0 {
		return nil
	}
	err := v.validate.StructPartial(in, fields...)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation: %w", err)
	}

	verr := &apperr.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Violations = append(verr.Violations, apperr.Violation{
			Field:   fe.StructField(),
			Label:   fe.Field(),
			Message: message(fe),
		})
	}
	return verr
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required"
	case "hasentry":
		return label + " must have at least one entry"
	case "gtefield":
		return label + " must not be before Visit From"
	case "approver":
		return "Your role is not permitted to approve or return tasks"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, fe.Tag())
	}
}
