package api

import (
	"fmt"
	"strconv"
	"time"

	"hoodlink/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the current user and bearer token. The token is never refreshed;
// once it expires requests fail with UNAUTHORIZED.
type Session struct {
	token      string
	UserID     models.ID
	UserType   string
	BusinessID models.ID
	ExpiresAt  time.Time
}

// NewSession reads the user id and expiry from token without verifying its
// signature; the server does that. userID overrides the token subject when set.
func NewSession(token string, userID models.ID, userType string, businessID models.ID) (*Session, error) {
	s := &Session{token: token, UserID: userID, UserType: userType, BusinessID: businessID}
	if s.UserType == "" {
		s.UserType = "user"
	}
	if token == "" {
		if s.UserID.Empty() {
			return nil, models.NewUnauthorizedError("AUTH_TOKEN or USER_ID is required")
		}
		return s, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if s.UserID.Empty() {
			return nil, fmt.Errorf("parse auth token: %w", err)
		}
		return s, nil
	}

	if s.UserID.Empty() {
		s.UserID = subjectOf(claims)
	}
	if s.UserID.Empty() {
		return nil, models.NewUnauthorizedError("auth token has no user id claim")
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

func subjectOf(claims jwt.MapClaims) models.ID {
	for _, key := range []string{"sub", "id", "userId", "user_id"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return models.ID(v)
			}
		case float64:
			return models.ID(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return ""
}

// Token implements TokenSource.
func (s *Session) Token() string { return s.token }

// Expired reports whether the token's exp claim is before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// IsBusiness reports whether the session acts as a business.
func (s *Session) IsBusiness() bool { return s.UserType == "business" }
