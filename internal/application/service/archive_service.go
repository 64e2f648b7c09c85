package service

import (
	"context"
	"fmt"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/preview"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/event"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// ArchiveFolder holds the issued Office Order PDFs
const ArchiveFolder = "archive"

// ArchiveResult represents the result of archiving one Office Order
type ArchiveResult struct {
	CoverPageNo string
	Path        string
	Size        int
	// Existing is true when the PDF was already archived
	Existing bool
}

// ArchiveService stores the PDF of approved Office Orders
type ArchiveService interface {
	Archive(ctx context.Context, taskID string) (*ArchiveResult, error)
	HandleTaskEvent(ctx context.Context, evt *event.Event) error
	Register(d dispatcher.Dispatcher)
}

type archiveServiceImpl struct {
	taskRepo port.TaskRepository
	storage  port.FileStorage
	folders  port.FolderManager
	render   func(*entity.Task) ([]byte, error)
	logger   Logger
}

// NewArchiveService creates a new ArchiveService
func NewArchiveService(
	taskRepo port.TaskRepository,
	storage port.FileStorage,
	folders port.FolderManager,
	logger Logger,
) ArchiveService {
	return &archiveServiceImpl{
		taskRepo: taskRepo,
		storage:  storage,
		folders:  folders,
		render:   preview.RenderPDF,
		logger:   logger,
	}
}

// Register subscribes the archiver to approvals
func (s *archiveServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeTaskApproved, "archiver", s.HandleTaskEvent, dispatcher.Describe("store the issued Office Order PDF"))
}

// HandleTaskEvent archives the task named by the event
func (s *archiveServiceImpl) HandleTaskEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.Archive(ctx, evt.TaskID)
	return err
}

// Archive renders and stores the PDF of an approved task. Archiving twice
// keeps the first file.
func (s *archiveServiceImpl) Archive(ctx context.Context, taskID string) (*ArchiveResult, error) {
	s.logger.Info("Archiving office order", "task_id", taskID)

	task, err := s.taskRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		s.logger.Error("Failed to get task", "error", err, "task_id", taskID)
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if task.State() != workflow.StateApproved {
		return nil, fmt.Errorf("task %s is %s, only approved tasks are archived", task.CoverPageNo, task.State())
	}

	path := ArchivePath(s.folders, task.CoverPageNo)
	if s.storage.Exists(ctx, path) {
		return &ArchiveResult{CoverPageNo: task.CoverPageNo, Path: path, Existing: true}, nil
	}

	if !s.folders.Exists(ArchiveFolder) {
		if _, err := s.folders.CreateFolder(ctx, ArchiveFolder); err != nil {
			return nil, fmt.Errorf("create archive folder: %w", err)
		}
	}

	pdf, err := s.render(task)
	if err != nil {
		s.logger.Error("Failed to render office order", "error", err, "cover_page_no", task.CoverPageNo)
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	if err := s.storage.Save(ctx, path, pdf); err != nil {
		s.logger.Error("Failed to store office order", "error", err, "path", path)
		return nil, fmt.Errorf("save pdf: %w", err)
	}

	s.logger.Info("Office order archived",
		"cover_page_no", task.CoverPageNo,
		"path", s.storage.GetFullPath(path),
		"size", len(pdf),
	)
	return &ArchiveResult{CoverPageNo: task.CoverPageNo, Path: path, Size: len(pdf)}, nil
}

// ArchivePath returns the storage path of a cover page number's PDF
func ArchivePath(folders port.FolderManager, coverPageNo string) string {
	return ArchiveFolder + "/" + folders.SanitizeName(coverPageNo) + ".pdf"
}
