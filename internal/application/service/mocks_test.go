package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/event"
)

// In-memory repositories

type memTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]*entity.Task
	sequences map[int]int
	updateErr error
}

func newMemTaskRepo(tasks ...*entity.Task) *memTaskRepo {
	r := &memTaskRepo{tasks: map[string]*entity.Task{}, sequences: map[int]int{}}
	for _, t := range tasks {
		r.tasks[t.CoverPageNo] = t.Clone()
	}
	return r
}

func (m *memTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.CoverPageNo]; ok {
		return errors.New("duplicate cover page no")
	}
	m.tasks[task.CoverPageNo] = task.Clone()
	return nil
}

func (m *memTaskRepo) Update(ctx context.Context, task *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.tasks[task.CoverPageNo]; !ok {
		return errors.New("task not found")
	}
	m.tasks[task.CoverPageNo] = task.Clone()
	return nil
}

func (m *memTaskRepo) GetByCoverPageNo(ctx context.Context, coverPageNo string) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[coverPageNo].Clone(), nil
}

func (m *memTaskRepo) GetByTaskID(ctx context.Context, taskID string) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.TaskID == taskID {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memTaskRepo) ListActiveAssignedTo(ctx context.Context, userID string) ([]*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Task
	for _, t := range m.tasks {
		if t.AssignedTo == userID && t.IsActive() {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *entity.Task) int {
		return b.UpdatedOn.Compare(a.UpdatedOn)
	})
	return out, nil
}

func (m *memTaskRepo) NextSequence(ctx context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[year]++
	return m.sequences[year], nil
}

func (m *memTaskRepo) get(coverPageNo string) *entity.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[coverPageNo].Clone()
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []*entity.TaskHistory
}

func (m *memHistoryRepo) Create(ctx context.Context, history *entity.TaskHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := *history
	h.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &h)
	return nil
}

func (m *memHistoryRepo) GetByTaskID(ctx context.Context, taskID string) ([]*entity.TaskHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TaskHistory
	for _, h := range m.entries {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memCommentRepo struct {
	mu        sync.Mutex
	comments  []*entity.Comment
	createErr error
}

func (m *memCommentRepo) Create(ctx context.Context, comment *entity.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	c := *comment
	c.ID = int64(len(m.comments) + 1)
	m.comments = append(m.comments, &c)
	return nil
}

func (m *memCommentRepo) List(ctx context.Context, taskID, processID string) ([]*entity.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Comment
	for _, c := range m.comments {
		if c.TaskID == taskID && (processID == "" || c.ProcessID == processID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockStatusRepo struct {
	options []*entity.BadgeOption
}

func newMockStatusRepo() *mockStatusRepo {
	return &mockStatusRepo{options: []*entity.BadgeOption{
		{StatusID: 6, Description: entity.StatusSaveAndHold},
		{StatusID: 7, Description: entity.StatusDeleted},
		{StatusID: 8, Description: entity.StatusOngoing},
		{StatusID: 9, Description: entity.StatusApproved},
		{StatusID: 10, Description: entity.StatusRejected},
	}}
}

func (m *mockStatusRepo) GetByDescription(ctx context.Context, description string) (*entity.BadgeOption, error) {
	for _, o := range m.options {
		if o.Description == description {
			opt := *o
			return &opt, nil
		}
	}
	return nil, nil
}

func (m *mockStatusRepo) GetByID(ctx context.Context, id int) (*entity.BadgeOption, error) {
	for _, o := range m.options {
		if o.StatusID == id {
			opt := *o
			return &opt, nil
		}
	}
	return nil, nil
}

func (m *mockStatusRepo) List(ctx context.Context) ([]*entity.BadgeOption, error) {
	return m.options, nil
}

type memUserRepo struct {
	users []*entity.User
}

func (m *memUserRepo) Upsert(ctx context.Context, user *entity.User) error {
	for i, u := range m.users {
		if u.UserID == user.UserID {
			m.users[i] = user
			return nil
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *memUserRepo) GetByUserID(ctx context.Context, userID string) (*entity.User, error) {
	for _, u := range m.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) ListByRole(ctx context.Context, role string) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// recordingDispatcher keeps every async event instead of running handlers
type recordingDispatcher struct {
	dispatcher.Dispatcher
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.Type, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
