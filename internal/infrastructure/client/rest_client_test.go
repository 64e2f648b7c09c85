package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/pkg/crypto"
)

var testSession = entity.Session{Token: "tok-1", UserID: "u-1", EmployeeID: "E-1", Role: entity.RoleInitiator}

func newEnvelope(t *testing.T) *crypto.Envelope {
	t.Helper()
	env, err := crypto.NewEnvelope("test-secret")
	require.NoError(t, err)
	return env
}

func newClient(t *testing.T, baseURL string, env *crypto.Envelope) *RESTClient {
	t.Helper()
	c, err := NewRESTClient(Config{BaseURL: baseURL, Timeout: 2 * time.Second, BreakerTimeout: time.Minute}, testSession, env, zap.NewNop())
	require.NoError(t, err)
	return c
}

// reply seals v into an envelope
func reply(t *testing.T, w http.ResponseWriter, env *crypto.Envelope, v interface{}) {
	var plain []byte
	if raw, ok := v.([]byte); ok {
		plain = raw
	} else {
		var err error
		plain, err = json.Marshal(v)
		require.NoError(t, err)
	}
	blob, err := env.Encrypt(plain)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(port.Envelope{Data: blob})
}

// open decrypts a request envelope into v
func open(t *testing.T, r *http.Request, env *crypto.Envelope, v interface{}) {
	var in port.Envelope
	require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
	plain, err := env.Decrypt(in.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(plain, v))
}

func TestRESTClient_ResolveStatus(t *testing.T) {
	env := newEnvelope(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, port.RouteResolveStatus, r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(port.HeaderRequestID))

		var req port.ResolveStatusRequest
		open(t, r, env, &req)
		assert.Equal(t, entity.StatusOngoing, req.Description)

		reply(t, w, env, port.StatusLookup{StatusID: 8, Found: true})
	}))
	defer srv.Close()

	lookup, err := newClient(t, srv.URL, env).ResolveStatus(t.Context(), entity.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, 8, lookup.StatusID)
	assert.True(t, lookup.Found)
}

func TestRESTClient_FetchAndList(t *testing.T) {
	env := newEnvelope(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(port.HeaderRequestID))

		switch r.URL.Path {
		case port.RouteTaskDetails:
			assert.Equal(t, "OO/2026/7", r.URL.Query().Get("coverPageNo"))
			assert.Equal(t, "E-1", r.URL.Query().Get("employeeId"))
			reply(t, w, env, port.Record{"coverPageNo": "OO/2026/7", "city": "Dhaka"})
		case port.RouteTasks:
			reply(t, w, env, []port.Record{{"coverPageNo": "OO/2026/7"}, {"coverPageNo": "OO/2026/8"}})
		case port.RouteStatuses:
			reply(t, w, env, []entity.BadgeOption{{StatusID: 6, Description: entity.StatusSaveAndHold}})
		case port.RouteComments:
			assert.Equal(t, "t-1", r.URL.Query().Get("taskId"))
			assert.False(t, r.URL.Query().Has("processId"))
			reply(t, w, env, []entity.Comment{{TaskID: "t-1", Text: "ok"}})
		case port.RouteReturnableUsers:
			reply(t, w, env, []entity.ReturnableUser{{UserID: "u-0", Name: "Asha"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, env)
	ctx := t.Context()

	record, err := c.FetchTaskDetails(ctx, "OO/2026/7", "E-1")
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", record["city"])

	records, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	badges, err := c.ListBadgeOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, badges[0].StatusID)

	comments, err := c.ListComments(ctx, "t-1", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", comments[0].Text)

	users, err := c.ListReturnableUsers(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", users[0].Name)
}

func TestRESTClient_RawBodies(t *testing.T) {
	env := newEnvelope(t)
	pdf := []byte("%PDF-1.4 fake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case port.RoutePreview:
			var req port.PreviewRequest
			open(t, r, env, &req)
			assert.Equal(t, "t-1", req.TaskID)
			assert.Equal(t, port.FormatPDF, req.Format)
			reply(t, w, env, pdf)
		case port.RouteExport:
			reply(t, w, env, []byte("PK-sheet"))
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, env)

	got, err := c.RenderPreviewDocument(t.Context(), port.PreviewRequest{TaskID: "t-1", Format: port.FormatPDF})
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	var buf byteSink
	require.NoError(t, c.Export(t.Context(), &buf))
	assert.Equal(t, "PK-sheet", string(buf))
}

type byteSink []byte

func (w *byteSink) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}

func TestRESTClient_PinnedRequestID(t *testing.T) {
	env := newEnvelope(t)
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(port.HeaderRequestID))
		reply(t, w, env, port.UpsertResult{OK: true})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, env)
	ctx := WithRequestID(t.Context(), "req-42")

	_, err := c.UpsertTask(ctx, port.Record{"city": "Dhaka"})
	require.NoError(t, err)
	_, err = c.UpsertTask(ctx, port.Record{"city": "Dhaka"})
	require.NoError(t, err)

	assert.Equal(t, []string{"req-42", "req-42"}, seen)
}

func TestRESTClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"auth missing","code":"auth_missing"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperr.ErrAuthMissing)
			},
		},
		{
			name:   "validation",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"validation failed","code":"validation_failed","violations":[{"field":"ToSection","label":"To Section","message":"To Section must have at least one entry"}]}`,
			check: func(t *testing.T, err error) {
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.True(t, verr.Has("To Section"))
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"error":"task not found","code":"not_found"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperr.ErrNotFound)
			},
		},
		{
			name:   "in flight",
			status: http.StatusConflict,
			body:   `{"error":"request in progress","code":"in_flight"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperr.ErrActionInFlight)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":"database locked","code":"internal"}`,
			check: func(t *testing.T, err error) {
				var serr *apperr.ServerError
				require.ErrorAs(t, err, &serr)
				assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
				assert.Equal(t, "database locked", serr.Message)
				assert.True(t, apperr.Retryable(err))
			},
		},
		{
			name:   "plain text gateway error",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var serr *apperr.ServerError
				require.ErrorAs(t, err, &serr)
				assert.Equal(t, "upstream down", serr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnvelope(t)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL, env).UpsertTask(t.Context(), port.Record{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRESTClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url, newEnvelope(t)).ListTasks(t.Context())
	assert.ErrorIs(t, err, apperr.ErrNetworkOrServer)
	assert.True(t, apperr.Retryable(err))
}

func TestRESTClient_WrongKey(t *testing.T) {
	server := newEnvelope(t)
	other, err := crypto.NewEnvelope("other-secret")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply(t, w, server, []port.Record{})
	}))
	defer srv.Close()

	_, err = newClient(t, srv.URL, other).ListTasks(t.Context())
	assert.ErrorIs(t, err, apperr.ErrNetworkOrServer)
}

func TestRESTClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, newEnvelope(t))
	for i := 0; i < 3; i++ {
		_, err := c.ListTasks(t.Context())
		require.Error(t, err)
	}

	_, err := c.ListTasks(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetworkOrServer)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), hits.Load())
}

func TestRESTClient_ClientErrorsKeepBreakerClosed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"task not found","code":"not_found"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, newEnvelope(t))
	for i := 0; i < 5; i++ {
		_, err := c.FetchTaskDetails(t.Context(), "OO/2026/1", "E-1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestNewRESTClient(t *testing.T) {
	_, err := NewRESTClient(Config{BaseURL: "http://x"}, entity.Session{UserID: "u-1"}, newEnvelope(t), zap.NewNop())
	assert.ErrorIs(t, err, apperr.ErrAuthMissing)

	_, err = NewRESTClient(Config{}, testSession, newEnvelope(t), zap.NewNop())
	assert.Error(t, err)
}
