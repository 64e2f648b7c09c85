package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/sqlite"
)

const taskColumns = `
	t.cover_page_no, t.task_id, t.process_id, t.activity_sequence_number,
	t.employee_id, t.initiated_by, t.assigned_to, t.assigned_role, t.updated_by,
	t.employee_name, t.department, t.designation,
	t.visit_from, t.visit_to, t.nature_of_visit, t.country, t.city, t.claim_type,
	t.reference_no, t.subject, t.reference_text, t.body_html, t.header, t.footer,
	t.signing_authority, t.to_section, t.priority, t.remarks,
	t.status_id, COALESCE(s.description, ''), t.is_task_returned, t.is_task_approved, t.reject_flag,
	t.initiated_on, t.updated_on`

const taskFrom = `FROM tasks t LEFT JOIN statuses s ON s.id = t.status_id`

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
		INSERT INTO tasks (
			cover_page_no, task_id, process_id, activity_sequence_number,
			employee_id, initiated_by, assigned_to, assigned_role, updated_by,
			employee_name, department, designation,
			visit_from, visit_to, nature_of_visit, country, city, claim_type,
			reference_no, subject, reference_text, body_html, header, footer,
			signing_authority, to_section, priority, remarks,
			status_id, is_task_returned, is_task_approved, reject_flag,
			initiated_on, updated_on
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	args = append([]interface{}{task.CoverPageNo, task.TaskID, task.ProcessID}, args...)
	args = append(args, task.InitiatedOn.UTC(), task.UpdatedOn.UTC())

	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create task",
			zap.String("cover_page_no", task.CoverPageNo),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of an existing task
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	query := `
		UPDATE tasks SET
			activity_sequence_number = ?,
			employee_id = ?, initiated_by = ?, assigned_to = ?, assigned_role = ?, updated_by = ?,
			employee_name = ?, department = ?, designation = ?,
			visit_from = ?, visit_to = ?, nature_of_visit = ?, country = ?, city = ?, claim_type = ?,
			reference_no = ?, subject = ?, reference_text = ?, body_html = ?, header = ?, footer = ?,
			signing_authority = ?, to_section = ?, priority = ?, remarks = ?,
			status_id = ?, is_task_returned = ?, is_task_approved = ?, reject_flag = ?,
			updated_on = ?
		WHERE cover_page_no = ?
	`

	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	args = append(args, task.UpdatedOn.UTC(), task.CoverPageNo)

	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.String("cover_page_no", task.CoverPageNo),
			zap.Error(err))
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s not found", task.CoverPageNo)
	}
	return nil
}

// GetByCoverPageNo returns the task or nil when it does not exist
func (r *TaskRepository) GetByCoverPageNo(ctx context.Context, coverPageNo string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` ` + taskFrom + ` WHERE t.cover_page_no = ?`
	return r.getOne(ctx, query, coverPageNo)
}

// GetByTaskID returns the task or nil when it does not exist
func (r *TaskRepository) GetByTaskID(ctx context.Context, taskID string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` ` + taskFrom + ` WHERE t.task_id = ?`
	return r.getOne(ctx, query, taskID)
}

// ListActiveAssignedTo returns non-terminal tasks held by userID, newest first
func (r *TaskRepository) ListActiveAssignedTo(ctx context.Context, userID string) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` ` + taskFrom + `
		WHERE t.assigned_to = ?
			AND COALESCE(s.description, '') NOT IN (?, ?, ?)
		ORDER BY t.updated_on DESC, t.cover_page_no DESC`

	rows, err := r.exec(ctx).QueryContext(ctx, query, userID,
		entity.StatusApproved, entity.StatusDeleted, entity.StatusRejected)
	if err != nil {
		r.logger.Error("Failed to list active tasks",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*entity.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// NextSequence atomically increments the cover page counter for year
func (r *TaskRepository) NextSequence(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO cover_page_sequences (year, last_seq) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq
	`

	var seq int
	if err := r.exec(ctx).QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		r.logger.Error("Failed to allocate cover page sequence", zap.Int("year", year), zap.Error(err))
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return seq, nil
}

func (r *TaskRepository) getOne(ctx context.Context, query string, arg string) (*entity.Task, error) {
	task, err := scanTask(r.exec(ctx).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// taskArgs returns the shared column values from activity_sequence_number to reject_flag
func taskArgs(task *entity.Task) ([]interface{}, error) {
	toSection, err := json.Marshal(nonNil(task.OfficeOrder.ToSection))
	if err != nil {
		return nil, fmt.Errorf("failed to encode to section: %w", err)
	}

	return []interface{}{
		task.ActivitySequenceNumber,
		task.EmployeeID, task.InitiatedBy, task.AssignedTo, task.AssignedRole, task.UpdatedBy,
		task.Employee.Name, task.Employee.Department, task.Employee.Designation,
		formatDate(task.Visit.From), formatDate(task.Visit.To),
		task.Visit.NatureOfVisit, task.Visit.Country, task.Visit.City, task.Visit.ClaimType,
		task.OfficeOrder.ReferenceNumber, task.OfficeOrder.Subject, task.OfficeOrder.ReferenceText,
		document.RenderHTML(task.OfficeOrder.Body), task.OfficeOrder.Header, task.OfficeOrder.Footer,
		task.OfficeOrder.SigningAuthority, string(toSection), task.OfficeOrder.Priority, task.OfficeOrder.Remarks,
		task.StatusID, task.IsTaskReturned, task.IsTaskApproved, task.RejectFlag,
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*entity.Task, error) {
	var (
		task               entity.Task
		visitFrom, visitTo string
		bodyHTML           string
		toSection          string
	)

	err := row.Scan(
		&task.CoverPageNo, &task.TaskID, &task.ProcessID, &task.ActivitySequenceNumber,
		&task.EmployeeID, &task.InitiatedBy, &task.AssignedTo, &task.AssignedRole, &task.UpdatedBy,
		&task.Employee.Name, &task.Employee.Department, &task.Employee.Designation,
		&visitFrom, &visitTo, &task.Visit.NatureOfVisit, &task.Visit.Country, &task.Visit.City, &task.Visit.ClaimType,
		&task.OfficeOrder.ReferenceNumber, &task.OfficeOrder.Subject, &task.OfficeOrder.ReferenceText,
		&bodyHTML, &task.OfficeOrder.Header, &task.OfficeOrder.Footer,
		&task.OfficeOrder.SigningAuthority, &toSection, &task.OfficeOrder.Priority, &task.OfficeOrder.Remarks,
		&task.StatusID, &task.Status, &task.IsTaskReturned, &task.IsTaskApproved, &task.RejectFlag,
		&task.InitiatedOn, &task.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}

	if task.Visit.From, err = parseDate(visitFrom); err != nil {
		return nil, fmt.Errorf("task %s: invalid visit_from: %w", task.CoverPageNo, err)
	}
	if task.Visit.To, err = parseDate(visitTo); err != nil {
		return nil, fmt.Errorf("task %s: invalid visit_to: %w", task.CoverPageNo, err)
	}
	if task.OfficeOrder.Body, err = document.ParseHTML(bodyHTML); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.CoverPageNo, err)
	}
	if err := json.Unmarshal([]byte(toSection), &task.OfficeOrder.ToSection); err != nil {
		return nil, fmt.Errorf("task %s: invalid to_section: %w", task.CoverPageNo, err)
	}

	return &task, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(entity.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(entity.DateLayout, s)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ port.TaskRepository = (*TaskRepository)(nil)
