package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
)

// Response is the plain JSON body of public endpoints
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   s.config.Version,
		},
	})
}

// ResolveStatus handles POST /api/status/resolve
func (s *Server) ResolveStatus(c *gin.Context) {
	var req port.ResolveStatusRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	lookup, err := s.deps.Tasks.ResolveStatus(c.Request.Context(), req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, lookup)
}

// ListStatuses handles GET /api/status
func (s *Server) ListStatuses(c *gin.Context) {
	options, err := s.deps.Tasks.BadgeOptions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, options)
}

// UpsertTask handles POST /api/tasks/upsert
func (s *Server) UpsertTask(c *gin.Context) {
	var record port.Record
	if err := s.bind(c, &record); err != nil {
		s.fail(c, err)
		return
	}

	stored, err := s.deps.Tasks.Upsert(c.Request.Context(), sessionFrom(c), record)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, port.UpsertResult{OK: true, Record: stored})
}

// TaskDetails handles GET /api/tasks/details
func (s *Server) TaskDetails(c *gin.Context) {
	coverPageNo := strings.TrimSpace(c.Query("coverPageNo"))
	if coverPageNo == "" {
		s.fail(c, fmt.Errorf("%w: coverPageNo is required", apperr.ErrMalformedRecord))
		return
	}

	record, err := s.deps.Tasks.Details(c.Request.Context(), sessionFrom(c), coverPageNo, c.Query("employeeId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, record)
}

// ListTasks handles GET /api/tasks
func (s *Server) ListTasks(c *gin.Context) {
	records, err := s.deps.Tasks.Inbox(c.Request.Context(), sessionFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []port.Record{}
	}
	s.reply(c, http.StatusOK, records)
}

// ListComments handles GET /api/comments
func (s *Server) ListComments(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("taskId"))
	if taskID == "" {
		s.fail(c, fmt.Errorf("%w: taskId is required", apperr.ErrMalformedRecord))
		return
	}

	comments, err := s.deps.Tasks.Comments(c.Request.Context(), sessionFrom(c), taskID, c.Query("processId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, comments)
}

// ListReturnableUsers handles GET /api/returnable-users
func (s *Server) ListReturnableUsers(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("taskId"))
	if taskID == "" {
		s.fail(c, fmt.Errorf("%w: taskId is required", apperr.ErrMalformedRecord))
		return
	}

	users, err := s.deps.Tasks.ReturnableUsers(c.Request.Context(), sessionFrom(c), taskID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, users)
}

// Preview handles POST /api/preview
func (s *Server) Preview(c *gin.Context) {
	var req port.PreviewRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	var (
		doc []byte
		err error
	)
	if req.TaskID != "" {
		task, lookupErr := s.deps.Tasks.Task(c.Request.Context(), sessionFrom(c), req.TaskID)
		if lookupErr != nil {
			s.fail(c, lookupErr)
			return
		}
		doc, err = s.deps.Previewer.FromDraft(task, req.Format)
	} else {
		doc, err = s.deps.Previewer.FromRecord(req.Record, req.Format)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, doc)
}

// DraftBody handles POST /api/drafts/body
func (s *Server) DraftBody(c *gin.Context) {
	if s.deps.Drafting == nil {
		s.fail(c, &apperr.ServerError{StatusCode: http.StatusServiceUnavailable, Message: "body drafting is not configured"})
		return
	}

	var req port.DraftBodyRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	body, err := s.deps.Drafting.SuggestBody(c.Request.Context(), sessionFrom(c), req.Record)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c, http.StatusOK, body)
}

// Export handles GET /api/export
func (s *Server) Export(c *gin.Context) {
	var buf bytes.Buffer
	count, err := s.deps.Export.ExportInbox(c.Request.Context(), sessionFrom(c), &buf)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("X-Task-Count", fmt.Sprint(count))
	s.reply(c, http.StatusOK, buf.Bytes())
}
