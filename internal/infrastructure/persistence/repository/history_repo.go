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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.TaskHistory) error {
	query := `
		INSERT INTO task_history (
			task_id, actor_user_id, actor_role, trigger_name,
			previous_state, new_state, assigned_to, sequence_number, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		history.TaskID,
		history.ActorUserID,
		history.ActorRole,
		history.Trigger,
		history.PreviousState,
		history.NewState,
		history.AssignedTo,
		history.SequenceNumber,
		history.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("task_id", history.TaskID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByTaskID retrieves all history records for a task, oldest first
func (r *HistoryRepository) GetByTaskID(ctx context.Context, taskID string) ([]*entity.TaskHistory, error) {
	query := `
		SELECT id, task_id, actor_user_id, actor_role, trigger_name,
			previous_state, new_state, assigned_to, sequence_number, created_at
		FROM task_history
		WHERE task_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to get history by task ID", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.TaskHistory
	for rows.Next() {
		var record entity.TaskHistory
		err := rows.Scan(
			&record.ID,
			&record.TaskID,
			&record.ActorUserID,
			&record.ActorRole,
			&record.Trigger,
			&record.PreviousState,
			&record.NewState,
			&record.AssignedTo,
			&record.SequenceNumber,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
