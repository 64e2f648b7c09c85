package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Claims is the bearer token body
type Claims struct {
	UserID     string `json:"userId"`
	EmployeeID string `json:"employeeId"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for session
func IssueToken(secret string, session entity.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     session.UserID,
		EmployeeID: session.EmployeeID,
		Role:       session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies raw and returns the session it carries
func ParseToken(secret, raw string) (entity.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return entity.Session{}, err
	}
	if !token.Valid || claims.UserID == "" {
		return entity.Session{}, errors.New("token carries no user")
	}

	return entity.Session{
		Token:      raw,
		UserID:     claims.UserID,
		EmployeeID: claims.EmployeeID,
		Role:       claims.Role,
	}, nil
}

// ReadSession decodes the claims of raw without checking the signature.
// Clients use it to learn who they act as; the server still verifies every request.
func ReadSession(raw string) (entity.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Session{}, apperr.ErrAuthMissing
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return entity.Session{}, fmt.Errorf("%w: %v", apperr.ErrAuthMissing, err)
	}
	if claims.UserID == "" {
		return entity.Session{}, fmt.Errorf("%w: token carries no user", apperr.ErrAuthMissing)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return entity.Session{}, fmt.Errorf("%w: token expired", apperr.ErrAuthMissing)
	}

	return entity.Session{
		Token:      raw,
		UserID:     claims.UserID,
		EmployeeID: claims.EmployeeID,
		Role:       claims.Role,
	}, nil
}

// authMiddleware resolves the bearer token into a session on the request context
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.fail(c, apperr.ErrAuthMissing)
			return
		}

		session, err := ParseToken(s.deps.JWTSecret, strings.TrimSpace(raw))
		if err != nil {
			s.logger.Info("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			s.fail(c, apperr.ErrAuthMissing)
			return
		}

		c.Request = c.Request.WithContext(entity.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// sessionFrom returns the session set by authMiddleware
func sessionFrom(c *gin.Context) entity.Session {
	session, _ := entity.SessionFrom(c.Request.Context())
	return session
}
