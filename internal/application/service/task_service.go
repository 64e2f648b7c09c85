package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/event"
	"github.com/garyjia/office-orders/internal/domain/workflow"
	"github.com/garyjia/office-orders/pkg/metrics"
)

// ErrNoRoute means a submitted task has nobody to go to next
var ErrNoRoute = errors.New("no next participant in the approval chain")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TaskService is the backend side of the task workflow. Every mutation is
// re-validated against the same state machine and profiles the client uses.
type TaskService interface {
	// Upsert applies the action implied by record and returns the stored task
	Upsert(ctx context.Context, session entity.Session, record port.Record) (port.Record, error)

	// Details returns one task. A non-empty employeeID must match the task's.
	Details(ctx context.Context, session entity.Session, coverPageNo, employeeID string) (port.Record, error)

	// Inbox returns the active tasks held by the session user
	Inbox(ctx context.Context, session entity.Session) ([]port.Record, error)

	// Comments returns the append-only comment log of a task
	Comments(ctx context.Context, session entity.Session, taskID, processID string) ([]entity.Comment, error)

	// ReturnableUsers lists earlier participants other than the caller
	ReturnableUsers(ctx context.Context, session entity.Session, taskID string) ([]entity.ReturnableUser, error)

	// ResolveStatus maps an exact status description to its id
	ResolveStatus(ctx context.Context, description string) (*port.StatusLookup, error)

	// BadgeOptions lists every status
	BadgeOptions(ctx context.Context) ([]entity.BadgeOption, error)

	// Task returns the stored task by task id
	Task(ctx context.Context, session entity.Session, taskID string) (*entity.Task, error)
}

// TaskServiceConfig holds routing settings
type TaskServiceConfig struct {
	// Chain lists roles in routing order, e.g. initiator, reviewer, approver
	Chain []string
	// FallbackStatusID is stored when a target status has no record
	FallbackStatusID int
}

type taskServiceImpl struct {
	taskRepo    port.TaskRepository
	historyRepo port.HistoryRepository
	commentRepo port.CommentRepository
	statusRepo  port.StatusRepository
	userRepo    port.UserRepository
	txManager   port.TransactionManager
	validator   *validation.Validator
	dispatcher  dispatcher.Dispatcher
	config      TaskServiceConfig
	logger      Logger
	now         func() time.Time
}

// TaskServiceOption configures the task service
type TaskServiceOption func(*taskServiceImpl)

// WithClock replaces time.Now
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	commentRepo port.CommentRepository,
	statusRepo port.StatusRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	validator *validation.Validator,
	eventDispatcher dispatcher.Dispatcher,
	config TaskServiceConfig,
	logger Logger,
	opts ...TaskServiceOption,
) TaskService {
	if len(config.Chain) == 0 {
		config.Chain = []string{entity.RoleInitiator, entity.RoleReviewer, entity.RoleApprover}
	}
	if config.FallbackStatusID == 0 {
		config.FallbackStatusID = entity.DefaultFallbackStatusID
	}

	s := &taskServiceImpl{
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		commentRepo: commentRepo,
		statusRepo:  statusRepo,
		userRepo:    userRepo,
		txManager:   txManager,
		validator:   validator,
		dispatcher:  eventDispatcher,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert applies one lifecycle action
func (s *taskServiceImpl) Upsert(ctx context.Context, session entity.Session, record port.Record) (port.Record, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	incoming, err := payload.Parse(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrMalformedRecord, err)
	}

	description, err := s.describe(ctx, incoming)
	if err != nil {
		return nil, err
	}
	trigger, err := InferTrigger(description, incoming)
	if err != nil {
		return nil, err
	}

	var stored *entity.Task
	if incoming.CoverPageNo != "" {
		stored, err = s.taskRepo.GetByCoverPageNo(ctx, incoming.CoverPageNo)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("%w: task %s", apperr.ErrNotFound, incoming.CoverPageNo)
		}
		if stored.AssignedTo != session.UserID {
			return nil, fmt.Errorf("%w: task %s is held by another user", apperr.ErrForbidden, stored.CoverPageNo)
		}
	} else if trigger == workflow.TriggerDelete {
		return nil, fmt.Errorf("%w: cannot delete an unsaved task", apperr.ErrNotFound)
	}

	previous := workflow.StateDraft
	if stored != nil {
		previous = stored.State()
	}

	machine := workflow.BuildTaskStateMachine(previous, func(ctx context.Context) bool {
		actor, ok := entity.SessionFrom(ctx)
		return ok && s.validator.IsApprover(actor.Role)
	})
	if err := machine.Fire(entity.WithSession(ctx, session), trigger); err != nil {
		reason := "invalid_transition"
		if errors.Is(err, workflow.ErrGuardFailed) {
			reason = "guard_failed"
		}
		metrics.TaskTransitionRejectionsTotal.WithLabelValues(string(trigger), reason).Inc()
		s.logger.Info("Transition refused",
			"cover_page_no", incoming.CoverPageNo,
			"trigger", trigger,
			"state", previous,
			"user_id", session.UserID,
			"error", err,
		)
		return nil, err
	}

	incoming.OfficeOrder.Remarks = actionRemarks(session, incoming, stored)

	returnTo := ""
	if trigger == workflow.TriggerRejectReturn {
		returnTo = incoming.AssignedTo
	}
	if err := s.validator.Validate(trigger, validation.InputFrom(incoming, session.Role, returnTo)); err != nil {
		metrics.TaskTransitionRejectionsTotal.WithLabelValues(string(trigger), "validation").Inc()
		return nil, err
	}

	task, err := s.prepare(ctx, session, incoming, stored, trigger)
	if err != nil {
		return nil, err
	}

	history := &entity.TaskHistory{
		TaskID:         task.TaskID,
		ActorUserID:    session.UserID,
		ActorRole:      session.Role,
		Trigger:        string(trigger),
		PreviousState:  string(previous),
		NewState:       string(machine.State()),
		AssignedTo:     task.AssignedTo,
		SequenceNumber: task.ActivitySequenceNumber,
		Timestamp:      task.UpdatedOn,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if stored == nil {
			if err := s.assignCoverPageNo(txCtx, task); err != nil {
				return err
			}
			if err := s.taskRepo.Create(txCtx, task); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
		} else if err := s.taskRepo.Update(txCtx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		if commentable(trigger) && task.OfficeOrder.Remarks != "" {
			comment := &entity.Comment{
				TaskID:    task.TaskID,
				ProcessID: task.ProcessID,
				Commenter: session.UserID,
				Role:      session.Role,
				Text:      task.OfficeOrder.Remarks,
				Timestamp: task.UpdatedOn,
			}
			if err := s.commentRepo.Create(txCtx, comment); err != nil {
				return fmt.Errorf("append comment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist task action",
			"cover_page_no", task.CoverPageNo,
			"trigger", trigger,
			"error", err,
		)
		return nil, err
	}

	metrics.TaskTransitionsTotal.WithLabelValues(string(trigger), string(previous), string(machine.State())).Inc()
	s.logger.Info("Task action applied",
		"cover_page_no", task.CoverPageNo,
		"trigger", trigger,
		"from", previous,
		"to", machine.State(),
		"assigned_to", task.AssignedTo,
		"user_id", session.UserID,
	)

	s.publish(ctx, task, trigger, previous, machine.State(), session)

	return payload.Encode(task), nil
}

// Details returns one task
func (s *taskServiceImpl) Details(ctx context.Context, session entity.Session, coverPageNo, employeeID string) (port.Record, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	task, err := s.taskRepo.GetByCoverPageNo(ctx, coverPageNo)
	if err != nil {
		s.logger.Error("Failed to get task", "cover_page_no", coverPageNo, "error", err)
		return nil, err
	}
	if task == nil || (employeeID != "" && task.EmployeeID != employeeID) {
		return nil, fmt.Errorf("%w: task %s", apperr.ErrNotFound, coverPageNo)
	}
	if err := s.readable(ctx, session, task); err != nil {
		return nil, err
	}
	return payload.Encode(task), nil
}

// Inbox returns the active tasks held by the session user
func (s *taskServiceImpl) Inbox(ctx context.Context, session entity.Session) ([]port.Record, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	tasks, err := s.taskRepo.ListActiveAssignedTo(ctx, session.UserID)
	if err != nil {
		s.logger.Error("Failed to list inbox", "user_id", session.UserID, "error", err)
		return nil, err
	}

	records := make([]port.Record, 0, len(tasks))
	for _, task := range tasks {
		records = append(records, payload.Encode(task))
	}
	return records, nil
}

// Comments returns the comment log in insertion order
func (s *taskServiceImpl) Comments(ctx context.Context, session entity.Session, taskID, processID string) ([]entity.Comment, error) {
	if _, err := s.Task(ctx, session, taskID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.List(ctx, taskID, processID)
	if err != nil {
		s.logger.Error("Failed to list comments", "task_id", taskID, "error", err)
		return nil, err
	}

	out := make([]entity.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, *c)
	}
	return out, nil
}

// ReturnableUsers lists distinct earlier actors in order of first appearance
func (s *taskServiceImpl) ReturnableUsers(ctx context.Context, session entity.Session, taskID string) ([]entity.ReturnableUser, error) {
	if _, err := s.Task(ctx, session, taskID); err != nil {
		return nil, err
	}
	return s.returnable(ctx, session, taskID)
}

func (s *taskServiceImpl) returnable(ctx context.Context, session entity.Session, taskID string) ([]entity.ReturnableUser, error) {
	history, err := s.historyRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		s.logger.Error("Failed to get task history", "task_id", taskID, "error", err)
		return nil, err
	}

	users := []entity.ReturnableUser{}
	seen := map[string]bool{session.UserID: true}
	for _, h := range history {
		if seen[h.ActorUserID] {
			continue
		}
		seen[h.ActorUserID] = true

		ru := entity.ReturnableUser{UserID: h.ActorUserID, Role: h.ActorRole}
		user, err := s.userRepo.GetByUserID(ctx, h.ActorUserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			ru.Name = user.Name
			if ru.Role == "" {
				ru.Role = user.Role
			}
		}
		users = append(users, ru)
	}
	return users, nil
}

// ResolveStatus maps a description to its id; unknown descriptions are not an error
func (s *taskServiceImpl) ResolveStatus(ctx context.Context, description string) (*port.StatusLookup, error) {
	opt, err := s.statusRepo.GetByDescription(ctx, description)
	if err != nil {
		return nil, err
	}
	if opt == nil {
		return &port.StatusLookup{}, nil
	}
	return &port.StatusLookup{StatusID: opt.StatusID, Found: true}, nil
}

// BadgeOptions lists every status
func (s *taskServiceImpl) BadgeOptions(ctx context.Context) ([]entity.BadgeOption, error) {
	options, err := s.statusRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.BadgeOption, 0, len(options))
	for _, opt := range options {
		out = append(out, *opt)
	}
	return out, nil
}

// Task returns the stored task by task id
func (s *taskServiceImpl) Task(ctx context.Context, session entity.Session, taskID string) (*entity.Task, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	task, err := s.taskRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", apperr.ErrNotFound, taskID)
	}
	if err := s.readable(ctx, session, task); err != nil {
		return nil, err
	}
	return task, nil
}

// readable admits the holder, the initiator and every earlier actor of task.
// Anyone else gets ErrNotFound so task numbers cannot be enumerated.
func (s *taskServiceImpl) readable(ctx context.Context, session entity.Session, task *entity.Task) error {
	if task.AssignedTo == session.UserID || task.InitiatedBy == session.UserID {
		return nil
	}

	history, err := s.historyRepo.GetByTaskID(ctx, task.TaskID)
	if err != nil {
		s.logger.Error("Failed to get task history", "task_id", task.TaskID, "error", err)
		return err
	}
	for _, h := range history {
		if h.ActorUserID == session.UserID {
			return nil
		}
	}
	return fmt.Errorf("%w: task %s", apperr.ErrNotFound, task.CoverPageNo)
}

// actionRemarks returns the remarks the actor gives with this upsert. Remarks
// left unchanged on a record last updated by someone else are theirs, not the
// actor's, and count as none.
func actionRemarks(session entity.Session, incoming, stored *entity.Task) string {
	remarks := incoming.OfficeOrder.Remarks
	if stored == nil || remarks != stored.OfficeOrder.Remarks || stored.UpdatedBy == session.UserID {
		return remarks
	}
	return ""
}

// InferTrigger recovers the action from the status description and lifecycle
// flags the payload builder sets
func InferTrigger(description string, task *entity.Task) (workflow.Trigger, error) {
	switch description {
	case entity.StatusSaveAndHold:
		return workflow.TriggerSave, nil
	case entity.StatusOngoing:
		if task.IsTaskReturned && task.RejectFlag == entity.RejectFlagReturned {
			return workflow.TriggerRejectReturn, nil
		}
		return workflow.TriggerSubmit, nil
	case entity.StatusApproved:
		return workflow.TriggerApprove, nil
	case entity.StatusDeleted:
		return workflow.TriggerDelete, nil
	default:
		return "", fmt.Errorf("%w: status %q cannot be set by an upsert", workflow.ErrInvalidTransition, description)
	}
}

// describe returns the status description the record asks for
func (s *taskServiceImpl) describe(ctx context.Context, incoming *entity.Task) (string, error) {
	if incoming.Status != "" {
		return incoming.Status, nil
	}
	opt, err := s.statusRepo.GetByID(ctx, incoming.StatusID)
	if err != nil {
		return "", err
	}
	if opt == nil {
		return "", fmt.Errorf("%w: unknown status id %d", apperr.ErrMalformedRecord, incoming.StatusID)
	}
	return opt.Description, nil
}

// prepare merges the incoming edits onto the stored task and applies routing
func (s *taskServiceImpl) prepare(ctx context.Context, session entity.Session, incoming, stored *entity.Task, trigger workflow.Trigger) (*entity.Task, error) {
	now := s.now().UTC()

	task := incoming.Clone()
	if stored != nil {
		task.CoverPageNo = stored.CoverPageNo
		task.TaskID = stored.TaskID
		task.ProcessID = stored.ProcessID
		task.ActivitySequenceNumber = stored.ActivitySequenceNumber
		task.EmployeeID = stored.EmployeeID
		task.InitiatedBy = stored.InitiatedBy
		task.InitiatedOn = stored.InitiatedOn
	} else {
		task.TaskID = uuid.NewString()
		task.ProcessID = uuid.NewString()
		task.ActivitySequenceNumber = 0
		task.InitiatedBy = session.UserID
		task.InitiatedOn = now
		if task.EmployeeID == "" {
			task.EmployeeID = session.EmployeeID
		}
	}
	task.UpdatedBy = session.UserID
	task.UpdatedOn = now

	description := entity.StatusForTrigger(trigger)
	opt, err := s.statusRepo.GetByDescription(ctx, description)
	if err != nil {
		return nil, err
	}
	task.Status = description
	task.StatusID = s.config.FallbackStatusID
	if opt != nil {
		task.StatusID = opt.StatusID
	} else {
		metrics.StatusFallbackTotal.WithLabelValues(description).Inc()
	}

	task.IsTaskReturned = false
	task.IsTaskApproved = false
	task.RejectFlag = entity.RejectFlagNone

	switch trigger {
	case workflow.TriggerSave, workflow.TriggerDelete:
		task.AssignedTo = session.UserID
		task.AssignedRole = session.Role
	case workflow.TriggerSubmit:
		if err := s.routeForward(ctx, session, task); err != nil {
			return nil, err
		}
		task.ActivitySequenceNumber++
	case workflow.TriggerApprove:
		task.AssignedTo = ""
		task.AssignedRole = ""
		task.IsTaskApproved = true
	case workflow.TriggerRejectReturn:
		if err := s.routeBack(ctx, session, task); err != nil {
			return nil, err
		}
		task.IsTaskReturned = true
		task.RejectFlag = entity.RejectFlagReturned
		task.ActivitySequenceNumber++
	}
	return task, nil
}

// routeForward assigns the task to an explicit target or to the first holder of
// the next role in the chain
func (s *taskServiceImpl) routeForward(ctx context.Context, session entity.Session, task *entity.Task) error {
	if task.AssignedTo != "" && task.AssignedTo != session.UserID {
		user, err := s.userRepo.GetByUserID(ctx, task.AssignedTo)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: unknown assignee %s", ErrNoRoute, task.AssignedTo)
		}
		task.AssignedRole = user.Role
		return nil
	}

	next, ok := nextRole(s.config.Chain, session.Role)
	if !ok {
		return fmt.Errorf("%w: role %s is last", ErrNoRoute, session.Role)
	}

	users, err := s.userRepo.ListByRole(ctx, next)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.UserID != session.UserID {
			task.AssignedTo = u.UserID
			task.AssignedRole = u.Role
			return nil
		}
	}
	return fmt.Errorf("%w: nobody holds role %s", ErrNoRoute, next)
}

// routeBack sends the task to an earlier participant
func (s *taskServiceImpl) routeBack(ctx context.Context, session entity.Session, task *entity.Task) error {
	returnable, err := s.returnable(ctx, session, task.TaskID)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(returnable, func(u entity.ReturnableUser) bool {
		return u.UserID == task.AssignedTo
	})
	if idx < 0 {
		return &apperr.ValidationError{Violations: []apperr.Violation{{
			Field:   "ReturnTo",
			Label:   "Return To",
			Message: "Return To must be an earlier participant of the task",
		}}}
	}
	task.AssignedRole = returnable[idx].Role
	return nil
}

func (s *taskServiceImpl) assignCoverPageNo(ctx context.Context, task *entity.Task) error {
	year := task.InitiatedOn.Year()
	seq, err := s.taskRepo.NextSequence(ctx, year)
	if err != nil {
		return fmt.Errorf("allocate cover page number: %w", err)
	}
	task.CoverPageNo = fmt.Sprintf("%s/%d/%d", entity.CoverPageNoPrefix, year, seq)
	return nil
}

func (s *taskServiceImpl) publish(ctx context.Context, task *entity.Task, trigger workflow.Trigger, from, to workflow.State, session entity.Session) {
	if s.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyCoverPageNo:   task.CoverPageNo,
		event.KeyActorUserID:   session.UserID,
		event.KeyActorRole:     session.Role,
		event.KeyAssignedTo:    task.AssignedTo,
		event.KeyAssignedRole:  task.AssignedRole,
		event.KeyPreviousState: string(from),
		event.KeyNewState:      string(to),
		event.KeyTrigger:       string(trigger),
		event.KeyRemarks:       task.OfficeOrder.Remarks,
	}

	if eventType, ok := eventTypes[trigger]; ok {
		s.dispatcher.DispatchAsync(ctx, event.FromContext(ctx, eventType, task.TaskID, payload))
	}
	if from != to {
		s.dispatcher.DispatchAsync(ctx, event.FromContext(ctx, event.TypeTaskStatusChanged, task.TaskID, payload))
	}
}

var eventTypes = map[workflow.Trigger]event.Type{
	workflow.TriggerSave:         event.TypeTaskSaved,
	workflow.TriggerSubmit:       event.TypeTaskSubmitted,
	workflow.TriggerApprove:      event.TypeTaskApproved,
	workflow.TriggerRejectReturn: event.TypeTaskReturned,
	workflow.TriggerDelete:       event.TypeTaskDeleted,
}

// commentable actions append their remarks to the comment log
func commentable(trigger workflow.Trigger) bool {
	switch trigger {
	case workflow.TriggerSubmit, workflow.TriggerApprove, workflow.TriggerRejectReturn:
		return true
	}
	return false
}

func nextRole(chain []string, role string) (string, bool) {
	idx := slices.Index(chain, role)
	if idx+1 >= len(chain) {
		return "", false
	}
	// roles outside the chain forward to the first role after the initiator
	if idx < 0 {
		if len(chain) < 2 {
			return "", false
		}
		return chain[1], true
	}
	return chain[idx+1], true
}
