package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the user or refreshes its attributes
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (user_id, employee_id, name, role, lark_open_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			employee_id = excluded.employee_id,
			name = excluded.name,
			role = excluded.role,
			lark_open_id = excluded.lark_open_id,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		user.UserID, user.EmployeeID, user.Name, user.Role, user.LarkOpenID)
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.String("user_id", user.UserID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByUserID returns nil when the user is unknown
func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*entity.User, error) {
	query := `SELECT user_id, employee_id, name, role, lark_open_id FROM users WHERE user_id = ?`

	var u entity.User
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, userID).
		Scan(&u.UserID, &u.EmployeeID, &u.Name, &u.Role, &u.LarkOpenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListByRole returns the users holding role, ordered by user id
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]*entity.User, error) {
	query := `SELECT user_id, employee_id, name, role, lark_open_id FROM users WHERE role = ? ORDER BY user_id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, role)
	if err != nil {
		r.logger.Error("Failed to list users by role", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.UserID, &u.EmployeeID, &u.Name, &u.Role, &u.LarkOpenID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

var _ port.UserRepository = (*UserRepository)(nil)
