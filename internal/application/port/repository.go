package port

import (
	"context"

	"github.com/garyjia/office-orders/internal/domain/entity"
)

// TaskRepository defines persistence operations for Task
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	Update(ctx context.Context, task *entity.Task) error
	GetByCoverPageNo(ctx context.Context, coverPageNo string) (*entity.Task, error)
	GetByTaskID(ctx context.Context, taskID string) (*entity.Task, error)
	// ListActiveAssignedTo returns non-terminal tasks held by userID, newest first
	ListActiveAssignedTo(ctx context.Context, userID string) ([]*entity.Task, error)
	// NextSequence returns the next cover page sequence for a year
	NextSequence(ctx context.Context, year int) (int, error)
}

// HistoryRepository defines persistence operations for TaskHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.TaskHistory) error
	GetByTaskID(ctx context.Context, taskID string) ([]*entity.TaskHistory, error)
}

// CommentRepository is append-only: comments are never edited or deleted
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	List(ctx context.Context, taskID, processID string) ([]*entity.Comment, error)
}

// StatusRepository reads the status reference table
type StatusRepository interface {
	GetByDescription(ctx context.Context, description string) (*entity.BadgeOption, error)
	GetByID(ctx context.Context, id int) (*entity.BadgeOption, error)
	List(ctx context.Context) ([]*entity.BadgeOption, error)
}

// UserRepository defines persistence operations for chain members
type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByUserID(ctx context.Context, userID string) (*entity.User, error)
	ListByRole(ctx context.Context, role string) ([]*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
