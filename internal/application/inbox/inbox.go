package inbox

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/garyjia/office-orders/internal/application/lifecycle"
	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// DefaultPageSize is used when neither the inbox nor the filter sets one
const DefaultPageSize = 10

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ControllerFactory creates a lifecycle controller for the inbox session
type ControllerFactory func() (*lifecycle.Controller, error)

// Filter selects and pages the listing. Page is 1-based.
type Filter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Page is one page of the filtered listing
type Page struct {
	Tasks      []*entity.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// Inbox lists the active tasks held by the session user. Filtering and
// pagination happen client-side over the fetched listing.
type Inbox struct {
	backend       port.TaskBackend
	newController ControllerFactory
	sheet         port.TaskSheetWriter
	logger        Logger
	pageSize      int

	badgeMu sync.Mutex
	badges  []entity.BadgeOption

	filterMu   sync.Mutex
	lastFilter Filter
}

// Option configures the inbox
type Option func(*Inbox)

// WithPageSize sets the default page size
func WithPageSize(size int) Option {
	return func(i *Inbox) {
		if size > 0 {
			i.pageSize = size
		}
	}
}

// WithSheetWriter enables Export
func WithSheetWriter(sheet port.TaskSheetWriter) Option {
	return func(i *Inbox) {
		i.sheet = sheet
	}
}

// NewInbox creates an inbox for session
func NewInbox(backend port.TaskBackend, session entity.Session, newController ControllerFactory, logger Logger, opts ...Option) (*Inbox, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}

	i := &Inbox{
		backend:       backend,
		newController: newController,
		logger:        logger,
		pageSize:      DefaultPageSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// List fetches the active tasks and returns the requested page
func (i *Inbox) List(ctx context.Context, filter Filter) (*Page, error) {
	tasks, err := i.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}

	i.filterMu.Lock()
	i.lastFilter = filter
	i.filterMu.Unlock()

	return paginate(tasks, filter.Page, i.resolvePageSize(filter.PageSize)), nil
}

// BadgeOptions returns the status options, fetched once per inbox
func (i *Inbox) BadgeOptions(ctx context.Context) ([]entity.BadgeOption, error) {
	i.badgeMu.Lock()
	defer i.badgeMu.Unlock()

	if i.badges != nil {
		return append([]entity.BadgeOption(nil), i.badges...), nil
	}

	options, err := i.backend.ListBadgeOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge options: %w", err)
	}
	if options == nil {
		options = []entity.BadgeOption{}
	}

	i.badges = options
	return append([]entity.BadgeOption(nil), options...), nil
}

// Badge returns the label shown for a task
func (i *Inbox) Badge(task *entity.Task) string {
	i.badgeMu.Lock()
	defer i.badgeMu.Unlock()

	for _, opt := range i.badges {
		if opt.StatusID == task.StatusID {
			return opt.Description
		}
	}
	return task.Status
}

// BadgeOptionsFor narrows the badge options to the statuses task can be moved
// to by ChangeBadge as it stands. Picking "ongoing" submits the task, so it is
// only offered once the task is complete enough to submit.
func (i *Inbox) BadgeOptionsFor(ctx context.Context, task *entity.Task) ([]entity.BadgeOption, error) {
	options, err := i.BadgeOptions(ctx)
	if err != nil {
		return nil, err
	}

	ctrl, err := i.newController()
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	if _, err := ctrl.Open(ctx, task.CoverPageNo, task.EmployeeID); err != nil {
		return nil, err
	}
	reachable := ctrl.StatusOptions()

	offered := make([]entity.BadgeOption, 0, len(reachable))
	for _, opt := range options {
		if slices.Contains(reachable, opt.Description) {
			offered = append(offered, opt)
		}
	}
	return offered, nil
}

// ChangeBadge moves one task to the badge's status through the controller's
// single-field save path, then refreshes the listing with the last filter
func (i *Inbox) ChangeBadge(ctx context.Context, task *entity.Task, description string) (*Page, error) {
	ctrl, err := i.newController()
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	if _, err := ctrl.Open(ctx, task.CoverPageNo, task.EmployeeID); err != nil {
		return nil, err
	}
	if _, err := ctrl.ChangeStatus(ctx, description); err != nil {
		i.logger.Error("Badge change failed",
			"cover_page_no", task.CoverPageNo,
			"status", description,
			"error", err,
		)
		return nil, err
	}

	i.logger.Info("Badge changed",
		"cover_page_no", task.CoverPageNo,
		"status", description,
	)

	i.filterMu.Lock()
	filter := i.lastFilter
	i.filterMu.Unlock()

	return i.List(ctx, filter)
}

// Export writes every task matching filter (all pages) as a spreadsheet
func (i *Inbox) Export(ctx context.Context, w io.Writer, filter Filter) error {
	if i.sheet == nil {
		return fmt.Errorf("export is not configured")
	}

	tasks, err := i.filtered(ctx, filter)
	if err != nil {
		return err
	}
	if _, err := i.BadgeOptions(ctx); err != nil {
		return err
	}

	if err := i.sheet.WriteTasks(w, tasks, i.Badge); err != nil {
		return fmt.Errorf("failed to write inbox export: %w", err)
	}
	return nil
}

func (i *Inbox) filtered(ctx context.Context, filter Filter) ([]*entity.Task, error) {
	records, err := i.backend.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	tasks := make([]*entity.Task, 0, len(records))
	for _, record := range records {
		task, err := payload.Parse(record)
		if err != nil {
			i.logger.Error("Skipping malformed task record",
				"cover_page_no", record[payload.KeyCoverPageNo],
				"error", err,
			)
			continue
		}
		if !task.IsActive() {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(task.Status, filter.Status) && !strings.EqualFold(i.Badge(task), filter.Status) {
			continue
		}
		if search != "" && !matches(task, search) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (i *Inbox) resolvePageSize(size int) int {
	if size > 0 {
		return size
	}
	return i.pageSize
}

func matches(task *entity.Task, search string) bool {
	fields := []string{
		task.CoverPageNo,
		task.Employee.Name,
		task.Employee.Department,
		task.OfficeOrder.Subject,
		task.Visit.NatureOfVisit,
		task.Visit.City,
		task.Visit.Country,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func paginate(tasks []*entity.Task, page, size int) *Page {
	total := len(tasks)
	totalPages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}

	result := &Page{
		Tasks:      []*entity.Task{},
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: totalPages,
	}

	start := (page - 1) * size
	if start >= total {
		return result
	}
	end := min(start+size, total)
	result.Tasks = tasks[start:end]
	return result
}
