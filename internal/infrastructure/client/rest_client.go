package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/pkg/metrics"
)

// maxErrorBody caps how much of a failed reply is read
const maxErrorBody = 64 << 10

// Config holds REST client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerTimeout is how long the breaker stays open before probing again
	BreakerTimeout time.Duration
}

// RESTClient implements port.TaskBackend over HTTPS. Bodies travel as
// encrypted envelopes and every call carries the session bearer token.
// Failed calls are never retried; an open breaker fails fast.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	codec      port.Codec
	session    entity.Session
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewRESTClient creates a backend client bound to session
func NewRESTClient(cfg Config, session entity.Session, codec port.Codec, logger *zap.Logger) (*RESTClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if !session.IsAuthenticated() {
		return nil, apperr.ErrAuthMissing
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 3 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "office-orders-backend",
		MaxRequests: 1,
		Interval:    5 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// only transport and server faults count against the backend
		IsSuccessful: func(err error) bool {
			var serr *apperr.ServerError
			if errors.As(err, &serr) {
				return serr.StatusCode > 0 && serr.StatusCode < http.StatusInternalServerError
			}
			return !errors.Is(err, apperr.ErrNetworkOrServer)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Backend circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RESTClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		codec:      codec,
		session:    session,
		breaker:    breaker,
		logger:     logger,
	}, nil
}

// ResolveStatus looks up the id of a status description
func (c *RESTClient) ResolveStatus(ctx context.Context, description string) (*port.StatusLookup, error) {
	var lookup port.StatusLookup
	err := c.call(ctx, "resolve_status", http.MethodPost, port.RouteResolveStatus, nil,
		port.ResolveStatusRequest{Description: description}, &lookup)
	if err != nil {
		return nil, err
	}
	return &lookup, nil
}

// UpsertTask creates or updates a task from a built record
func (c *RESTClient) UpsertTask(ctx context.Context, record port.Record) (*port.UpsertResult, error) {
	var result port.UpsertResult
	if err := c.call(ctx, "upsert_task", http.MethodPost, port.RouteUpsertTask, nil, record, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchTaskDetails returns the stored record of a task
func (c *RESTClient) FetchTaskDetails(ctx context.Context, coverPageNo, employeeID string) (port.Record, error) {
	query := url.Values{}
	query.Set("coverPageNo", coverPageNo)
	query.Set("employeeId", employeeID)

	var record port.Record
	if err := c.call(ctx, "fetch_task_details", http.MethodGet, port.RouteTaskDetails, query, nil, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListTasks returns the active tasks held by the session user
func (c *RESTClient) ListTasks(ctx context.Context) ([]port.Record, error) {
	var records []port.Record
	if err := c.call(ctx, "list_tasks", http.MethodGet, port.RouteTasks, nil, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListBadgeOptions returns the status reference table
func (c *RESTClient) ListBadgeOptions(ctx context.Context) ([]entity.BadgeOption, error) {
	var options []entity.BadgeOption
	if err := c.call(ctx, "list_badge_options", http.MethodGet, port.RouteStatuses, nil, nil, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// ListComments returns the comment log of a task
func (c *RESTClient) ListComments(ctx context.Context, taskID, processID string) ([]entity.Comment, error) {
	query := url.Values{}
	query.Set("taskId", taskID)
	if processID != "" {
		query.Set("processId", processID)
	}

	var comments []entity.Comment
	if err := c.call(ctx, "list_comments", http.MethodGet, port.RouteComments, query, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ListReturnableUsers returns who a task may be sent back to
func (c *RESTClient) ListReturnableUsers(ctx context.Context, taskID string) ([]entity.ReturnableUser, error) {
	query := url.Values{}
	query.Set("taskId", taskID)

	var users []entity.ReturnableUser
	if err := c.call(ctx, "list_returnable_users", http.MethodGet, port.RouteReturnableUsers, query, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RenderPreviewDocument returns the rendered document bytes
func (c *RESTClient) RenderPreviewDocument(ctx context.Context, req port.PreviewRequest) ([]byte, error) {
	var doc []byte
	if err := c.call(ctx, "render_preview", http.MethodPost, port.RoutePreview, nil, req, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DraftBody asks the backend for a suggested office-order body
func (c *RESTClient) DraftBody(ctx context.Context, record port.Record) (document.Document, error) {
	var body document.Document
	err := c.call(ctx, "draft_body", http.MethodPost, port.RouteDraftBody, nil,
		port.DraftBodyRequest{Record: record}, &body)
	return body, err
}

// Export downloads the session user's inbox as a workbook
func (c *RESTClient) Export(ctx context.Context, w io.Writer) error {
	var sheet []byte
	if err := c.call(ctx, "export", http.MethodGet, port.RouteExport, nil, nil, &sheet); err != nil {
		return err
	}
	_, err := w.Write(sheet)
	return err
}

// call sends one request through the breaker. A *[]byte out receives the
// opened envelope as is; anything else is decoded from JSON.
func (c *RESTClient) call(ctx context.Context, operation, method, route string, query url.Values, in, out interface{}) error {
	start := time.Now()

	plain, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, method, route, query, in)
	})

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
		err = apperr.Network(err)
	case err != nil:
		outcome = "error"
	}
	metrics.BackendCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Debug("Backend call failed",
			zap.String("operation", operation),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return err
	}

	body, _ := plain.([]byte)
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &apperr.ServerError{Message: fmt.Sprintf("undecodable %s reply: %v", operation, err)}
	}
	return nil
}

// do performs the HTTP exchange and returns the opened response envelope
func (c *RESTClient) do(ctx context.Context, method, route string, query url.Values, in interface{}) ([]byte, error) {
	target := c.baseURL + route
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		sealed, err := c.seal(in)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(sealed)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set(port.HeaderRequestID, requestID(ctx))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, replyError(resp)
	}

	var env port.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &apperr.ServerError{StatusCode: resp.StatusCode, Message: "malformed response envelope"}
	}
	if env.Data == "" {
		return nil, nil
	}

	plain, err := c.codec.Decrypt(env.Data)
	if err != nil {
		return nil, &apperr.ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unreadable response envelope: %v", err)}
	}
	return plain, nil
}

func (c *RESTClient) seal(in interface{}) ([]byte, error) {
	plain, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	blob, err := c.codec.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to seal request: %w", err)
	}
	return json.Marshal(port.Envelope{Data: blob})
}

// replyError maps a non-success reply onto the error taxonomy
func replyError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var reply port.ErrorReply
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Error == "" {
		reply.Error = strings.TrimSpace(string(raw))
		if reply.Error == "" {
			reply.Error = http.StatusText(resp.StatusCode)
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", apperr.ErrAuthMissing, reply.Error)
	}
	if len(reply.Violations) > 0 {
		return &apperr.ValidationError{Violations: reply.Violations}
	}
	if sentinel := apperr.Sentinel(reply.Code); sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, reply.Error)
	}
	return &apperr.ServerError{StatusCode: resp.StatusCode, Message: reply.Error}
}

type requestIDKey struct{}

// WithRequestID pins the idempotency key sent with the next mutating call
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
