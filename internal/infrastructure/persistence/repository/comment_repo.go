package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/sqlite"
)

// CommentRepository implements port.CommentRepository. There is no update or delete.
type CommentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a comment
func (r *CommentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	query := `
		INSERT INTO task_comments (task_id, process_id, commenter, role, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		comment.TaskID,
		comment.ProcessID,
		comment.Commenter,
		comment.Role,
		comment.Text,
		comment.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append comment", zap.String("task_id", comment.TaskID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	return nil
}

// List returns the comments of a task in insertion order.
// An empty processID matches every process of the task.
func (r *CommentRepository) List(ctx context.Context, taskID, processID string) ([]*entity.Comment, error) {
	query := `
		SELECT id, task_id, process_id, commenter, role, text, created_at
		FROM task_comments
		WHERE task_id = ? AND (? = '' OR process_id = ?)
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskID, processID, processID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*entity.Comment{}
	for rows.Next() {
		var c entity.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.ProcessID, &c.Commenter, &c.Role, &c.Text, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

var _ port.CommentRepository = (*CommentRepository)(nil)
