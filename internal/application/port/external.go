package port

import (
	"context"
	"io"

	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// LarkMessageSender defines message sending operations
type LarkMessageSender interface {
	SendMessage(ctx context.Context, openID string, content string) error
	SendCardMessage(ctx context.Context, openID string, cardContent interface{}) error
}

// BodyDrafter suggests an office-order body for a task
type BodyDrafter interface {
	DraftBody(ctx context.Context, task *entity.Task) (document.Document, error)
}

// Rasterizer renders the first page of a PDF as PNG
type Rasterizer interface {
	FirstPagePNG(pdf []byte) ([]byte, error)
}

// TaskSheetWriter writes a task listing as a spreadsheet
type TaskSheetWriter interface {
	WriteTasks(w io.Writer, tasks []*entity.Task, badge func(*entity.Task) string) error
}

// IdempotencyStore remembers mutating requests by key
type IdempotencyStore interface {
	// Acquire marks key as in flight. It returns false when the key already exists.
	Acquire(ctx context.Context, key string) (bool, error)
	// Complete stores the final response for replay
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Lookup returns a completed response, or done=false while still in flight
	Lookup(ctx context.Context, key string) (status int, body []byte, done bool, err error)
	// Release drops an in-flight marker after a failure
	Release(ctx context.Context, key string) error
}
