package apperr

import (
	"errors"

	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// Wire codes carried by failed backend replies
const (
	CodeAuthMissing       = "auth_missing"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeValidation        = "validation_failed"
	CodeInvalidTransition = "invalid_transition"
	CodeGuardFailed       = "guard_failed"
	CodeMalformed         = "malformed_record"
	CodeEmptyResult       = "empty_result"
	CodeInFlight          = "in_flight"
	CodeStatusLookup      = "status_lookup_failed"
	CodeInternal          = "internal"
)

var codeErrors = []struct {
	code string
	err  error
}{
	{CodeAuthMissing, ErrAuthMissing},
	{CodeForbidden, ErrForbidden},
	{CodeNotFound, ErrNotFound},
	{CodeValidation, ErrValidationFailed},
	{CodeGuardFailed, workflow.ErrGuardFailed},
	{CodeInvalidTransition, workflow.ErrInvalidTransition},
	{CodeMalformed, ErrMalformedRecord},
	{CodeEmptyResult, ErrEmptyResult},
	{CodeInFlight, ErrActionInFlight},
	{CodeStatusLookup, ErrStatusLookupFailed},
}

// Code returns the wire code of err, or CodeInternal
func Code(err error) string {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeInternal
}

// Sentinel returns the error a wire code stands for, or nil for unknown codes
func Sentinel(code string) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return ce.err
		}
	}
	return nil
}
