package preview

import (
	"context"
	"fmt"

	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Previewer renders office orders either from unsaved form state or from a
// saved task on the backend. Rendering never changes the task.
type Previewer struct {
	backend    port.TaskBackend
	rasterizer port.Rasterizer
	logger     Logger
}

// NewPreviewer creates a previewer. rasterizer may be nil when PNG output is not needed.
func NewPreviewer(backend port.TaskBackend, rasterizer port.Rasterizer, logger Logger) *Previewer {
	return &Previewer{
		backend:    backend,
		rasterizer: rasterizer,
		logger:     logger,
	}
}

// FromDraft renders the in-memory task in format
func (p *Previewer) FromDraft(task *entity.Task, format string) ([]byte, error) {
	if task == nil || isBlank(task) {
		return nil, fmt.Errorf("%w: the office order has no content yet", apperr.ErrEmptyResult)
	}
	return Render(task.Clone(), format, p.rasterizer)
}

// FromSaved asks the backend to render the saved task identified by taskID
func (p *Previewer) FromSaved(ctx context.Context, taskID, format string) ([]byte, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", apperr.ErrNotFound)
	}
	if !validFormat(format) {
		return nil, fmt.Errorf("unsupported preview format %q", format)
	}

	doc, err := p.backend.RenderPreviewDocument(ctx, port.PreviewRequest{TaskID: taskID, Format: format})
	if err != nil {
		p.logger.Error("Preview request failed", "task_id", taskID, "format", format, "error", err)
		return nil, fmt.Errorf("failed to fetch preview: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: the backend returned no document for task %s", apperr.ErrEmptyResult, taskID)
	}

	p.logger.Info("Preview fetched", "task_id", taskID, "format", format, "bytes", len(doc))
	return doc, nil
}

// FromRecord renders an unsaved wire record on the backend side of a preview request
func (p *Previewer) FromRecord(record port.Record, format string) ([]byte, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("%w: empty record", apperr.ErrEmptyResult)
	}
	task, err := payload.Parse(record)
	if err != nil {
		return nil, fmt.Errorf("invalid preview record: %w", err)
	}
	return p.FromDraft(task, format)
}

// Thumbnail rasterizes the first page of a rendered PDF
func (p *Previewer) Thumbnail(pdf []byte) ([]byte, error) {
	return thumbnail(p.rasterizer, pdf)
}

// Render produces task in format. PNG is the first PDF page.
func Render(task *entity.Task, format string, rasterizer port.Rasterizer) ([]byte, error) {
	switch format {
	case port.FormatHTML:
		return RenderHTML(task)
	case port.FormatPDF, "":
		return RenderPDF(task)
	case port.FormatPNG:
		pdf, err := RenderPDF(task)
		if err != nil {
			return nil, err
		}
		return thumbnail(rasterizer, pdf)
	default:
		return nil, fmt.Errorf("unsupported preview format %q", format)
	}
}

func thumbnail(rasterizer port.Rasterizer, pdf []byte) ([]byte, error) {
	if rasterizer == nil {
		return nil, fmt.Errorf("png preview is not configured")
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: no pdf to rasterize", apperr.ErrEmptyResult)
	}

	img, err := rasterizer.FirstPagePNG(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize preview: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: the rasterizer produced no image", apperr.ErrEmptyResult)
	}
	return img, nil
}

func validFormat(format string) bool {
	switch format {
	case port.FormatPDF, port.FormatHTML, port.FormatPNG:
		return true
	}
	return false
}

// isBlank reports whether there is nothing of the office order to show
func isBlank(task *entity.Task) bool {
	o := task.OfficeOrder
	return o.Subject == "" && o.ReferenceText == "" && o.Body.IsEmpty() && o.Header == ""
}
