// Package auth identifies the learner behind an HTTP request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "learnloop"

// HeaderLearnerID names the learner when token auth is disabled.
const HeaderLearnerID = "X-Learner-ID"

// ErrInvalidToken is returned for missing, malformed, expired or badly
// signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the learner token claims. Subject carries the learner id.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for learner valid for ttl.
func Issue(secret, learner string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	if strings.TrimSpace(learner) == "" {
		return "", errors.New("learner id is empty")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   learner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse verifies token and returns its claims.
func Parse(secret, token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type learnerKey struct{}

// WithLearner stores the learner id on ctx.
func WithLearner(ctx context.Context, learner string) context.Context {
	return context.WithValue(ctx, learnerKey{}, learner)
}

// LearnerFrom returns the learner id stored on ctx.
func LearnerFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(learnerKey{}).(string)
	return v, ok && v != ""
}

// Authenticator resolves the learner of each request.
type Authenticator struct {
	secret         string
	defaultLearner string
}

// New creates an Authenticator. With an empty secret requests are trusted
// and the learner comes from the X-Learner-ID header, or defaultLearner.
func New(secret, defaultLearner string) *Authenticator {
	if defaultLearner == "" {
		defaultLearner = "local"
	}
	return &Authenticator{secret: secret, defaultLearner: defaultLearner}
}

// Enabled reports whether bearer tokens are required.
func (a *Authenticator) Enabled() bool {
	return a.secret != ""
}

// Learner resolves the learner id for r.
func (a *Authenticator) Learner(r *http.Request) (string, error) {
	if !a.Enabled() {
		if id := strings.TrimSpace(r.Header.Get(HeaderLearnerID)); id != "" {
			return id, nil
		}
		return a.defaultLearner, nil
	}
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", ErrInvalidToken
	}
	claims, err := Parse(a.secret, strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the
// learner id on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		learner, err := a.Learner(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="learnloop"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), learner)))
	})
}
