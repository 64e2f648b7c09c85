package status

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/pkg/metrics"
)

type mockLookup struct {
	resolveFunc func(ctx context.Context, description string) (*port.StatusLookup, error)
	calls       []string
}

func (m *mockLookup) ResolveStatus(ctx context.Context, description string) (*port.StatusLookup, error) {
	m.calls = append(m.calls, description)
	return m.resolveFunc(ctx, description)
}

type mockLogger struct {
	warnings []string
	errors   []string
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  { m.warnings = append(m.warnings, msg) }
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) { m.errors = append(m.errors, msg) }

func TestResolveStatusID_Found(t *testing.T) {
	lookup := &mockLookup{resolveFunc: func(ctx context.Context, description string) (*port.StatusLookup, error) {
		return &port.StatusLookup{StatusID: 6, Found: true}, nil
	}}
	logger := &mockLogger{}

	id, err := NewResolver(lookup, logger).ResolveStatusID(context.Background(), "saveandhold")

	require.NoError(t, err)
	assert.Equal(t, 6, id)
	assert.Equal(t, []string{"saveandhold"}, lookup.calls)
	assert.Empty(t, logger.warnings)
}

func TestResolveStatusID_FallbackWhenMissing(t *testing.T) {
	tests := []struct {
		name   string
		result *port.StatusLookup
	}{
		{"not found", &port.StatusLookup{Found: false}},
		{"nil result", nil},
		{"zero id", &port.StatusLookup{Found: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &mockLookup{resolveFunc: func(ctx context.Context, description string) (*port.StatusLookup, error) {
				return tt.result, nil
			}}
			logger := &mockLogger{}
			counter := metrics.StatusFallbackTotal.WithLabelValues("unknown-" + tt.name)
			before := testutil.ToFloat64(counter)

			id, err := NewResolver(lookup, logger).ResolveStatusID(context.Background(), "unknown-"+tt.name)

			require.NoError(t, err)
			assert.Equal(t, 8, id)
			assert.Len(t, logger.warnings, 1)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestResolveStatusID_ConfiguredFallback(t *testing.T) {
	lookup := &mockLookup{resolveFunc: func(ctx context.Context, description string) (*port.StatusLookup, error) {
		return &port.StatusLookup{}, nil
	}}

	r := NewResolver(lookup, &mockLogger{}, WithFallbackID(42))
	id, err := r.ResolveStatusID(context.Background(), "mystery")

	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, 42, r.FallbackID())
}

func TestResolveStatusID_TransportFailurePropagates(t *testing.T) {
	transportErr := errors.New("connection refused")
	lookup := &mockLookup{resolveFunc: func(ctx context.Context, description string) (*port.StatusLookup, error) {
		return nil, transportErr
	}}
	logger := &mockLogger{}

	id, err := NewResolver(lookup, logger).ResolveStatusID(context.Background(), "ongoing")

	require.Error(t, err)
	assert.Zero(t, id)
	assert.ErrorIs(t, err, apperr.ErrStatusLookupFailed)
	assert.ErrorIs(t, err, transportErr)
	assert.Len(t, logger.errors, 1)
	assert.Empty(t, logger.warnings)
}

func TestResolveStatusID_NoCaching(t *testing.T) {
	lookup := &mockLookup{resolveFunc: func(ctx context.Context, description string) (*port.StatusLookup, error) {
		return &port.StatusLookup{StatusID: 8, Found: true}, nil
	}}
	r := NewResolver(lookup, &mockLogger{})

	for i := 0; i < 3; i++ {
		_, err := r.ResolveStatusID(context.Background(), "ongoing")
		require.NoError(t, err)
	}

	assert.Len(t, lookup.calls, 3)
}
