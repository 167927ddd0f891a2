package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/hitl/internal/clock"
)

// Claims identify a reviewer; the subject is recorded on decisions.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	VerifyToken(token string) (*Claims, error)
}

// HMACValidator verifies HS256 tokens signed with a shared secret.
type HMACValidator struct {
	secret []byte
}

// NewHMACValidator creates a validator; the secret must not be empty.
func NewHMACValidator(secret []byte) (*HMACValidator, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return &HMACValidator{secret: secret}, nil
}

// VerifyToken accepts "Bearer <token>" or a bare token.
func (v *HMACValidator) VerifyToken(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Issue signs a token for reviewer valid for ttl.
func (v *HMACValidator) Issue(reviewer string, ttl time.Duration, scopes ...string) (string, error) {
	now := clock.Now()
	claims := &Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   reviewer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type reviewerKeyT struct{}

var reviewerKey reviewerKeyT

func withReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, reviewerKey, reviewer)
}

// ReviewerFromContext returns the authenticated reviewer or "".
func ReviewerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(reviewerKey).(string); ok {
		return v
	}
	return ""
}
