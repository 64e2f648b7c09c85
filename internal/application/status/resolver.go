package status

import (
	"context"
	"fmt"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/pkg/metrics"
)

// Lookup is the backend call the resolver depends on
type Lookup interface {
	ResolveStatus(ctx context.Context, description string) (*port.StatusLookup, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Resolver maps status descriptions to backend status ids.
// Results are never cached: the numeric mapping belongs to the server.
type Resolver struct {
	lookup     Lookup
	fallbackID int
	logger     Logger
}

// Option configures the resolver
type Option func(*Resolver)

// WithFallbackID overrides the id used when a description has no record
func WithFallbackID(id int) Option {
	return func(r *Resolver) {
		r.fallbackID = id
	}
}

// NewResolver creates a resolver backed by lookup
func NewResolver(lookup Lookup, logger Logger, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:     lookup,
		fallbackID: entity.DefaultFallbackStatusID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveStatusID returns the id for an exact description match.
// A missing record yields the fallback id with a warning; transport or auth
// failures are returned wrapped in ErrStatusLookupFailed.
func (r *Resolver) ResolveStatusID(ctx context.Context, description string) (int, error) {
	result, err := r.lookup.ResolveStatus(ctx, description)
	if err != nil {
		r.logger.Error("Status lookup failed",
			"description", description,
			"error", err,
		)
		return 0, fmt.Errorf("%w: %q: %w", apperr.ErrStatusLookupFailed, description, err)
	}

	if result == nil || !result.Found || result.StatusID == 0 {
		metrics.StatusFallbackTotal.WithLabelValues(description).Inc()
		r.logger.Warn("Status description not found, using fallback id",
			"description", description,
			"fallback_status_id", r.fallbackID,
		)
		return r.fallbackID, nil
	}

	return result.StatusID, nil
}

// FallbackID returns the id used for unknown descriptions
func (r *Resolver) FallbackID() int {
	return r.fallbackID
}
