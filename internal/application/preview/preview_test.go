package preview

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

type mockBackend struct {
	port.TaskBackend
	doc     []byte
	err     error
	lastReq port.PreviewRequest
}

func (m *mockBackend) RenderPreviewDocument(ctx context.Context, req port.PreviewRequest) ([]byte, error) {
	m.lastReq = req
	return m.doc, m.err
}

type mockRasterizer struct {
	calls int
	input []byte
}

func (m *mockRasterizer) FirstPagePNG(pdf []byte) ([]byte, error) {
	m.calls++
	m.input = pdf
	return []byte("\x89PNG"), nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func sampleTask() *entity.Task {
	return &entity.Task{
		CoverPageNo: "OO/2025/7",
		TaskID:      "task-7",
		Visit: entity.Visit{
			From:          time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			To:            time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
			NatureOfVisit: "Training",
			Country:       "India",
			City:          "Pune",
		},
		OfficeOrder: entity.OfficeOrder{
			ReferenceNumber: "HR/OO/17",
			Subject:         "Permission cum Relief <Rao>",
			Body: document.Document{Blocks: []document.Block{
				document.Paragraph("Sanction is accorded to Mr. Rao."),
				{Kind: document.KindTable, Rows: [][]string{{"Item", "Days"}, {"Stay", "3"}}},
				document.Paragraph("Sd/- Director"),
			}},
			SigningAuthority: "Director (HR)",
			ToSection:        []string{"Accounts, Section B", "Employee concerned"},
			Footer:           "Issued with approval",
		},
		UpdatedOn: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderHTML(t *testing.T) {
	task := sampleTask()

	out, err := RenderHTML(task)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "Subject: Permission cum Relief &lt;Rao&gt;")
	assert.Contains(t, html, "<p>Sanction is accorded to Mr. Rao.</p>")
	assert.Contains(t, html, "<thead><tr><th>Item</th><th>Days</th></tr></thead>")
	assert.Contains(t, html, "<ol><li>Accounts, Section B</li><li>Employee concerned</li></ol>")
	assert.Contains(t, html, "(3 days)")
	assert.Contains(t, html, "05.01.2025")
	assert.NotContains(t, html, "Sd/-")

	assert.Len(t, task.OfficeOrder.Body.Blocks, 3, "rendering must not modify the task")
	assert.Nil(t, task.OfficeOrder.Body.Blocks[1].Header)
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF(sampleTask())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	draft := sampleTask()
	draft.CoverPageNo = ""
	draft.UpdatedOn = time.Time{}
	out, err = RenderPDF(draft)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestFromDraft(t *testing.T) {
	raster := &mockRasterizer{}
	p := NewPreviewer(&mockBackend{}, raster, &mockLogger{})

	tests := []struct {
		name   string
		format string
		prefix string
	}{
		{"pdf", port.FormatPDF, "%PDF-"},
		{"default is pdf", "", "%PDF-"},
		{"html", port.FormatHTML, "<!DOCTYPE html>"},
		{"png", port.FormatPNG, "\x89PNG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.FromDraft(sampleTask(), tt.format)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte(tt.prefix)))
		})
	}
	assert.Equal(t, 1, raster.calls)
	assert.True(t, bytes.HasPrefix(raster.input, []byte("%PDF-")))

	_, err := p.FromDraft(sampleTask(), "docx")
	assert.Error(t, err)
}

func TestFromDraft_Empty(t *testing.T) {
	p := NewPreviewer(&mockBackend{}, nil, &mockLogger{})

	_, err := p.FromDraft(&entity.Task{CoverPageNo: "OO/2025/1"}, port.FormatPDF)
	assert.ErrorIs(t, err, apperr.ErrEmptyResult)

	_, err = p.FromDraft(nil, port.FormatPDF)
	assert.ErrorIs(t, err, apperr.ErrEmptyResult)

	_, err = p.FromDraft(sampleTask(), port.FormatPNG)
	assert.Error(t, err, "png needs a rasterizer")
}

func TestFromRecord(t *testing.T) {
	p := NewPreviewer(&mockBackend{}, nil, &mockLogger{})
	record := payload.Build(sampleTask(), workflow.TriggerSave, payload.Actor{UserID: "u1", Role: entity.RoleInitiator})

	out, err := p.FromRecord(record, port.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "HR/OO/17")

	_, err = p.FromRecord(port.Record{}, port.FormatHTML)
	assert.ErrorIs(t, err, apperr.ErrEmptyResult)
}

func TestFromSaved(t *testing.T) {
	t.Run("document", func(t *testing.T) {
		backend := &mockBackend{doc: []byte("%PDF-1.3")}
		p := NewPreviewer(backend, nil, &mockLogger{})

		out, err := p.FromSaved(context.Background(), "task-7", port.FormatPDF)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.3"), out)
		assert.Equal(t, port.PreviewRequest{TaskID: "task-7", Format: port.FormatPDF}, backend.lastReq)
	})

	t.Run("empty document is distinct from failure", func(t *testing.T) {
		p := NewPreviewer(&mockBackend{}, nil, &mockLogger{})
		_, err := p.FromSaved(context.Background(), "task-7", port.FormatPDF)
		assert.ErrorIs(t, err, apperr.ErrEmptyResult)
		assert.NotErrorIs(t, err, apperr.ErrNetworkOrServer)
	})

	t.Run("transport failure", func(t *testing.T) {
		p := NewPreviewer(&mockBackend{err: apperr.Network(errors.New("connection reset"))}, nil, &mockLogger{})
		_, err := p.FromSaved(context.Background(), "task-7", port.FormatPDF)
		assert.ErrorIs(t, err, apperr.ErrNetworkOrServer)
		assert.NotErrorIs(t, err, apperr.ErrEmptyResult)
	})

	t.Run("missing id", func(t *testing.T) {
		p := NewPreviewer(&mockBackend{}, nil, &mockLogger{})
		_, err := p.FromSaved(context.Background(), "", port.FormatPDF)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
