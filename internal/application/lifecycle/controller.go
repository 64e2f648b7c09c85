package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// StatusResolver maps a status description to its backend id
type StatusResolver interface {
	ResolveStatusID(ctx context.Context, description string) (int, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ActionRequest describes one user action on the held task
type ActionRequest struct {
	Action workflow.Trigger
	// Edited carries unsaved form changes; nil acts on the held task as is
	Edited *entity.Task
	// Remarks are the actor's own remarks for this action. Remarks carried on
	// the held record only count when the actor wrote them, and never for
	// Approve or RejectReturn.
	Remarks string
	// ReturnTo is the user a RejectReturn sends the task back to
	ReturnTo string
}

// Controller drives one task through its lifecycle for one session.
// At most one action runs at a time; the held task only changes after the
// backend confirmed an action and the fresh record was fetched.
type Controller struct {
	backend   port.TaskBackend
	resolver  StatusResolver
	validator *validation.Validator
	session   entity.Session
	logger    Logger

	mu   sync.RWMutex
	task *entity.Task

	inFlight atomic.Bool
	closed   atomic.Bool
	lifetime context.Context
	cancel   context.CancelFunc
}

// NewController creates a controller bound to session
func NewController(
	backend port.TaskBackend,
	resolver StatusResolver,
	validator *validation.Validator,
	session entity.Session,
	logger Logger,
) (*Controller, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:   backend,
		resolver:  resolver,
		validator: validator,
		session:   session,
		logger:    logger,
		lifetime:  lifetime,
		cancel:    cancel,
	}, nil
}

// Open fetches a task and holds it for subsequent actions
func (c *Controller) Open(ctx context.Context, coverPageNo, employeeID string) (*entity.Task, error) {
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}

	ctx, done := c.bind(ctx)
	defer done()

	if employeeID == "" {
		employeeID = c.session.EmployeeID
	}

	task, err := c.fetch(ctx, coverPageNo, employeeID)
	if err != nil {
		return nil, c.closedOr(err)
	}
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}

	c.setTask(task)
	return task.Clone(), nil
}

// NewDraft holds an unsaved task; the first Save creates it on the backend
func (c *Controller) NewDraft(task *entity.Task) {
	draft := task.Clone()
	draft.CoverPageNo = ""
	draft.Status = ""
	draft.StatusID = 0
	if draft.EmployeeID == "" {
		draft.EmployeeID = c.session.EmployeeID
	}
	c.setTask(draft)
}

// Task returns a copy of the held task, or nil when none is open
func (c *Controller) Task() *entity.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.task.Clone()
}

// Busy reports whether an action is in flight
func (c *Controller) Busy() bool {
	return c.inFlight.Load()
}

// PermittedActions lists the actions the held task currently allows for this session
func (c *Controller) PermittedActions() []workflow.Trigger {
	held := c.Task()
	if held == nil {
		return nil
	}

	ctx := entity.WithSession(context.Background(), c.session)
	machine := c.machine(held.State())

	var permitted []workflow.Trigger
	for _, trigger := range machine.PermittedTriggers() {
		if _, err := machine.Destination(ctx, trigger); err == nil {
			permitted = append(permitted, trigger)
		}
	}
	return permitted
}

// Perform validates, submits and confirms one action. On any failure the held
// task is left exactly as it was.
func (c *Controller) Perform(ctx context.Context, req ActionRequest) (*entity.Task, error) {
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, apperr.ErrActionInFlight
	}
	defer c.inFlight.Store(false)

	ctx, done := c.bind(ctx)
	defer done()

	task, err := c.perform(ctx, req)
	if err != nil {
		err = c.closedOr(err)
		c.logger.Error("Task action failed",
			"action", req.Action,
			"user_id", c.session.UserID,
			"error", err,
		)
		return nil, err
	}

	c.logger.Info("Task action completed",
		"action", req.Action,
		"cover_page_no", task.CoverPageNo,
		"state", task.State(),
		"user_id", c.session.UserID,
	)
	return task, nil
}

// StatusOptions lists the status descriptions ChangeStatus can move the held
// task to as it stands, without edits or remarks
func (c *Controller) StatusOptions() []string {
	held := c.Task()
	if held == nil {
		return nil
	}

	var options []string
	for _, trigger := range c.PermittedActions() {
		description := entity.StatusForTrigger(trigger)
		if back, ok := entity.TriggerForStatus(description); !ok || back != trigger {
			continue
		}

		working := held.Clone()
		working.OfficeOrder.Remarks = c.actionRemarks(held, working, ActionRequest{Action: trigger})
		if c.validator.Validate(trigger, validation.InputFrom(working, c.session.Role, "")) != nil {
			continue
		}
		options = append(options, description)
	}
	return options
}

// ChangeStatus is the single-field path behind inbox badges: it moves the held
// task to the status named by description and changes nothing else.
func (c *Controller) ChangeStatus(ctx context.Context, description string) (*entity.Task, error) {
	trigger, ok := entity.TriggerForStatus(description)
	if !ok {
		return nil, fmt.Errorf("%w: status %q cannot be set directly", workflow.ErrInvalidTransition, description)
	}
	return c.Perform(ctx, ActionRequest{Action: trigger})
}

// Comments lists the comment history of the held task
func (c *Controller) Comments(ctx context.Context) ([]entity.Comment, error) {
	held, err := c.requireSaved()
	if err != nil {
		return nil, err
	}

	ctx, done := c.bind(ctx)
	defer done()

	comments, err := c.backend.ListComments(ctx, held.TaskID, held.ProcessID)
	if err != nil {
		return nil, c.closedOr(fmt.Errorf("failed to list comments: %w", err))
	}
	return comments, nil
}

// ReturnableUsers lists who the held task may be returned to
func (c *Controller) ReturnableUsers(ctx context.Context) ([]entity.ReturnableUser, error) {
	held, err := c.requireSaved()
	if err != nil {
		return nil, err
	}

	ctx, done := c.bind(ctx)
	defer done()

	users, err := c.backend.ListReturnableUsers(ctx, held.TaskID)
	if err != nil {
		return nil, c.closedOr(fmt.Errorf("failed to list returnable users: %w", err))
	}
	return users, nil
}

// Close tears the controller down. In-flight calls are cancelled and their
// late responses discarded.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.cancel()
	}
}

func (c *Controller) perform(ctx context.Context, req ActionRequest) (*entity.Task, error) {
	held := c.Task()
	if held == nil {
		return nil, fmt.Errorf("%w: no task is open", apperr.ErrNotFound)
	}

	working := held
	if req.Edited != nil {
		working = mergeEdits(held, req.Edited)
	}
	working.OfficeOrder.Remarks = c.actionRemarks(held, working, req)

	if err := c.validator.Validate(req.Action, validation.InputFrom(working, c.session.Role, req.ReturnTo)); err != nil {
		return nil, err
	}

	actx := entity.WithSession(ctx, c.session)
	if _, err := c.machine(held.State()).Destination(actx, req.Action); err != nil {
		return nil, err
	}

	description := entity.StatusForTrigger(req.Action)
	statusID, err := c.resolver.ResolveStatusID(ctx, description)
	if err != nil {
		return nil, err
	}
	working.StatusID = statusID
	working.Status = description

	record := payload.Build(working, req.Action, payload.Actor{
		UserID:   c.session.UserID,
		Role:     c.session.Role,
		ReturnTo: req.ReturnTo,
	})

	result, err := c.backend.UpsertTask(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert task: %w", err)
	}
	if result == nil || !result.OK {
		return nil, &apperr.ServerError{Message: "the task update was not accepted"}
	}
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}

	coverPageNo := working.CoverPageNo
	if echoed, ok := result.Record[payload.KeyCoverPageNo].(string); ok && echoed != "" {
		coverPageNo = echoed
	}
	if coverPageNo == "" {
		return nil, &apperr.ServerError{Message: "the backend did not return a cover page number"}
	}

	fresh, err := c.fetch(ctx, coverPageNo, working.EmployeeID)
	if err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}

	c.setTask(fresh)
	return fresh.Clone(), nil
}

// actionRemarks returns the remarks sent with req. Unchanged remarks on a saved
// record belong to whoever last updated it.
func (c *Controller) actionRemarks(held, working *entity.Task, req ActionRequest) string {
	if req.Remarks != "" {
		return req.Remarks
	}

	remarks := working.OfficeOrder.Remarks
	if held.IsNew() || remarks != held.OfficeOrder.Remarks {
		return remarks
	}
	if ownRemarksOnly(req.Action) || held.UpdatedBy != c.session.UserID {
		return ""
	}
	return remarks
}

// ownRemarksOnly marks actions whose remarks must be written with the action
func ownRemarksOnly(action workflow.Trigger) bool {
	return action == workflow.TriggerApprove || action == workflow.TriggerRejectReturn
}

func (c *Controller) fetch(ctx context.Context, coverPageNo, employeeID string) (*entity.Task, error) {
	if employeeID == "" {
		employeeID = c.session.EmployeeID
	}

	record, err := c.backend.FetchTaskDetails(ctx, coverPageNo, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", coverPageNo, err)
	}
	if len(record) == 0 {
		return nil, fmt.Errorf("%w: task %s", apperr.ErrNotFound, coverPageNo)
	}

	task, err := payload.Parse(record)
	if err != nil {
		return nil, &apperr.ServerError{Message: fmt.Sprintf("malformed task record: %v", err)}
	}
	return task, nil
}

func (c *Controller) machine(state workflow.State) workflow.StateMachine {
	return workflow.BuildTaskStateMachine(state, func(ctx context.Context) bool {
		s, ok := entity.SessionFrom(ctx)
		return ok && c.validator.IsApprover(s.Role)
	})
}

// bind derives a context that is also cancelled by Close
func (c *Controller) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// closedOr reports ErrClosed for failures caused by teardown
func (c *Controller) closedOr(err error) error {
	if c.closed.Load() && !errors.Is(err, apperr.ErrClosed) {
		return fmt.Errorf("%w: %w", apperr.ErrClosed, err)
	}
	return err
}

func (c *Controller) requireSaved() (*entity.Task, error) {
	if c.closed.Load() {
		return nil, apperr.ErrClosed
	}
	held := c.Task()
	if held == nil || held.TaskID == "" {
		return nil, fmt.Errorf("%w: no saved task is open", apperr.ErrNotFound)
	}
	return held, nil
}

func (c *Controller) setTask(task *entity.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task = task
}

// mergeEdits takes the editable fields from edited and keeps identity,
// routing and lifecycle fields from the held record
func mergeEdits(held, edited *entity.Task) *entity.Task {
	merged := edited.Clone()

	merged.CoverPageNo = held.CoverPageNo
	merged.TaskID = held.TaskID
	merged.ProcessID = held.ProcessID
	merged.ActivitySequenceNumber = held.ActivitySequenceNumber
	merged.InitiatedBy = held.InitiatedBy
	merged.InitiatedOn = held.InitiatedOn
	merged.AssignedTo = held.AssignedTo
	merged.AssignedRole = held.AssignedRole
	merged.StatusID = held.StatusID
	merged.Status = held.Status
	merged.IsTaskReturned = held.IsTaskReturned
	merged.IsTaskApproved = held.IsTaskApproved
	merged.RejectFlag = held.RejectFlag
	if held.EmployeeID != "" {
		merged.EmployeeID = held.EmployeeID
	}

	return merged
}
