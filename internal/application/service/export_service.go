package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// ExportService writes the session user's active tasks as a spreadsheet
type ExportService interface {
	ExportInbox(ctx context.Context, session entity.Session, w io.Writer) (int, error)
}

type exportServiceImpl struct {
	taskRepo   port.TaskRepository
	statusRepo port.StatusRepository
	writer     port.TaskSheetWriter
	logger     Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	taskRepo port.TaskRepository,
	statusRepo port.StatusRepository,
	writer port.TaskSheetWriter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		taskRepo:   taskRepo,
		statusRepo: statusRepo,
		writer:     writer,
		logger:     logger,
	}
}

// ExportInbox returns the number of exported tasks
func (s *exportServiceImpl) ExportInbox(ctx context.Context, session entity.Session, w io.Writer) (int, error) {
	if !session.IsAuthenticated() {
		return 0, apperr.ErrAuthMissing
	}

	tasks, err := s.taskRepo.ListActiveAssignedTo(ctx, session.UserID)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	options, err := s.statusRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list statuses: %w", err)
	}
	labels := make(map[int]string, len(options))
	for _, opt := range options {
		labels[opt.StatusID] = opt.Description
	}

	badge := func(t *entity.Task) string {
		if label, ok := labels[t.StatusID]; ok {
			return label
		}
		return t.Status
	}

	if err := s.writer.WriteTasks(w, tasks, badge); err != nil {
		s.logger.Error("Failed to write export", "error", err, "user_id", session.UserID)
		return 0, fmt.Errorf("write export: %w", err)
	}

	s.logger.Info("Inbox exported", "user_id", session.UserID, "tasks", len(tasks))
	return len(tasks), nil
}
