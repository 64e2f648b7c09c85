package port

import (
	"context"

	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Record is the flat wire form of a task, keyed by canonical backend field names
type Record map[string]interface{}

// UpsertResult is the backend reply to an upsert
type UpsertResult struct {
	OK     bool   `json:"ok"`
	Record Record `json:"record,omitempty"`
}

// StatusLookup is the backend reply to a status resolution
type StatusLookup struct {
	StatusID int  `json:"statusId"`
	Found    bool `json:"found"`
}

// Preview formats
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
	FormatPNG  = "png"
)

// PreviewRequest selects a saved task by TaskID or carries an unsaved Record
type PreviewRequest struct {
	TaskID string `json:"taskId,omitempty"`
	Record Record `json:"record,omitempty"`
	Format string `json:"format"`
}

// TaskBackend is the set of backend calls the workflow core depends on.
// Every call is authenticated by the session the implementation was built with.
type TaskBackend interface {
	ResolveStatus(ctx context.Context, description string) (*StatusLookup, error)
	UpsertTask(ctx context.Context, record Record) (*UpsertResult, error)
	FetchTaskDetails(ctx context.Context, coverPageNo, employeeID string) (Record, error)
	ListTasks(ctx context.Context) ([]Record, error)
	ListBadgeOptions(ctx context.Context) ([]entity.BadgeOption, error)
	ListComments(ctx context.Context, taskID, processID string) ([]entity.Comment, error)
	ListReturnableUsers(ctx context.Context, taskID string) ([]entity.ReturnableUser, error)
	RenderPreviewDocument(ctx context.Context, req PreviewRequest) ([]byte, error)
}

// Codec turns records into opaque blobs for transport and back
type Codec interface {
	Encrypt(plain []byte) (string, error)
	Decrypt(blob string) ([]byte, error)
}
