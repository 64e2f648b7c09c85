package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/office-orders/internal/domain/workflow"
)

var (
	// ErrAuthMissing means there is no token or session; the action is blocked
	ErrAuthMissing = errors.New("auth missing")

	// ErrStatusLookupFailed means a status description could not be resolved
	ErrStatusLookupFailed = errors.New("status lookup failed")

	// ErrValidationFailed is matched by every *ValidationError
	ErrValidationFailed = errors.New("validation failed")

	// ErrNetworkOrServer covers transport failures and non-success backend replies
	ErrNetworkOrServer = errors.New("network or server error")

	// ErrEmptyResult means a call succeeded but produced nothing to show
	ErrEmptyResult = errors.New("empty result")

	// ErrActionInFlight rejects an action while another one is still running
	ErrActionInFlight = errors.New("another action is in progress")

	// ErrClosed is returned for calls made or completed after teardown
	ErrClosed = errors.New("controller closed")

	// ErrNotFound means the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not hold the task
	ErrForbidden = errors.New("forbidden")

	// ErrMalformedRecord means a wire record could not be decoded
	ErrMalformedRecord = errors.New("malformed record")
)

// Violation is one failed validation rule
type Violation struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated rule of a validation pass
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(e.Messages(), "; "))
}

// Is lets errors.Is(err, ErrValidationFailed) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Labels returns the distinct human labels of the violated fields, sorted
func (e *ValidationError) Labels() []string {
	seen := make(map[string]bool, len(e.Violations))
	labels := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if !seen[v.Label] {
			seen[v.Label] = true
			labels = append(labels, v.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Messages returns one message per violation, in order
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

// Has reports whether a violation carries the given label
func (e *ValidationError) Has(label string) bool {
	for _, v := range e.Violations {
		if v.Label == label {
			return true
		}
	}
	return false
}

// ServerError is a non-success backend reply. It matches ErrNetworkOrServer.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrNetworkOrServer, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", ErrNetworkOrServer, e.StatusCode, e.Message)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrNetworkOrServer
}

// Retryable reports whether the user may retry the action
func (e *ServerError) Retryable() bool {
	return true
}

// Network wraps a transport failure so it matches ErrNetworkOrServer
func Network(err error) error {
	return fmt.Errorf("%w: %w", ErrNetworkOrServer, err)
}

// Retryable reports whether the failed action may be retried by the user.
// Nothing is retried automatically.
func Retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return errors.Is(err, ErrNetworkOrServer) || errors.Is(err, ErrStatusLookupFailed)
}

// UserMessage turns an error into a line suitable for showing to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	var serr *ServerError

	switch {
	case errors.As(err, &verr):
		return "Please complete the following: " + strings.Join(verr.Labels(), ", ")
	case errors.Is(err, ErrAuthMissing):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrStatusLookupFailed):
		return "Could not resolve the task status. Please try again."
	case errors.Is(err, ErrEmptyResult):
		return "No document is available for this task yet."
	case errors.Is(err, ErrActionInFlight):
		return "Please wait for the current action to finish."
	case errors.Is(err, ErrClosed):
		return "The task was closed before the action completed."
	case errors.Is(err, ErrNotFound):
		return "The task could not be found."
	case errors.Is(err, ErrForbidden):
		return "The task is currently held by someone else."
	case errors.Is(err, ErrMalformedRecord):
		return "The task data could not be read."
	case errors.Is(err, workflow.ErrGuardFailed):
		return "You are not allowed to perform this action on the task."
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "This action is not available for the task in its current state."
	case errors.As(err, &serr):
		if serr.Message != "" {
			return serr.Message + " Please try again."
		}
		return "The server could not complete the request. Please try again."
	case errors.Is(err, ErrNetworkOrServer):
		return "The server could not be reached. Please try again."
	default:
		return err.Error()
	}
}
