package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/service"
	"github.com/garyjia/office-orders/internal/domain/apperr"
)

// bind opens the request envelope into v
func (s *Server) bind(c *gin.Context, v interface{}) error {
	var env port.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedRecord, err)
	}
	plain, err := s.deps.Codec.Decrypt(env.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedRecord, err)
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedRecord, err)
	}
	return nil
}

// reply seals v into a response envelope. A []byte v is sealed as is.
func (s *Server) reply(c *gin.Context, status int, v interface{}) {
	plain, ok := v.([]byte)
	if !ok {
		var err error
		if plain, err = json.Marshal(v); err != nil {
			s.fail(c, fmt.Errorf("failed to encode response: %w", err))
			return
		}
	}

	blob, err := s.deps.Codec.Encrypt(plain)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to seal response: %w", err))
		return
	}
	c.JSON(status, port.Envelope{Data: blob})
}

// fail aborts with a plain JSON error reply
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	reply := port.ErrorReply{Error: err.Error(), Code: apperr.Code(err)}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		reply.Violations = verr.Violations
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		reply.Error = http.StatusText(status)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, reply)
}

func statusFor(err error) int {
	var verr *apperr.ValidationError
	var serr *apperr.ServerError
	switch {
	case errors.Is(err, apperr.ErrAuthMissing):
		return http.StatusUnauthorized
	case errors.As(err, &verr), errors.Is(err, service.ErrNoRoute):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrMalformedRecord):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden), apperr.Code(err) == apperr.CodeGuardFailed:
		return http.StatusForbidden
	case apperr.Code(err) == apperr.CodeInvalidTransition, errors.Is(err, apperr.ErrActionInFlight):
		return http.StatusConflict
	case errors.As(err, &serr) && serr.StatusCode > 0:
		return serr.StatusCode
	case errors.Is(err, apperr.ErrStatusLookupFailed), errors.Is(err, apperr.ErrNetworkOrServer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
