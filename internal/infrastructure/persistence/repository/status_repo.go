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

// StatusRepository implements port.StatusRepository over the seeded statuses table
type StatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sql.DB, logger *zap.Logger) port.StatusRepository {
	return &StatusRepository{
		db:     db,
		logger: logger,
	}
}

// GetByDescription matches the description exactly, including case; nil when unknown
func (r *StatusRepository) GetByDescription(ctx context.Context, description string) (*entity.BadgeOption, error) {
	return r.getOne(ctx, `SELECT id, description FROM statuses WHERE description = ?`, description)
}

// GetByID returns nil when the id is unknown
func (r *StatusRepository) GetByID(ctx context.Context, id int) (*entity.BadgeOption, error) {
	return r.getOne(ctx, `SELECT id, description FROM statuses WHERE id = ?`, id)
}

// List returns every status ordered by id
func (r *StatusRepository) List(ctx context.Context) ([]*entity.BadgeOption, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `SELECT id, description FROM statuses ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list statuses", zap.Error(err))
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	options := []*entity.BadgeOption{}
	for rows.Next() {
		var opt entity.BadgeOption
		if err := rows.Scan(&opt.StatusID, &opt.Description); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		options = append(options, &opt)
	}
	return options, rows.Err()
}

func (r *StatusRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.BadgeOption, error) {
	var opt entity.BadgeOption
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&opt.StatusID, &opt.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get status", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &opt, nil
}

var _ port.StatusRepository = (*StatusRepository)(nil)
