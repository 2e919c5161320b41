package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef-test"

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(secret, "ana", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestIssueRejectsEmptyInputs(t *testing.T) {
	_, err := Issue("", "ana", time.Hour)
	assert.Error(t, err)
	_, err = Issue(secret, " ", time.Hour)
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	expired, err := Issue(secret, "ana", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := Issue("another-secret-of-length", "ana", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ana", "iss": issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ana", "iss": issuer}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"alg none", none},
		{"no expiry", noExp},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		if _, err := Parse(secret, tt.token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: Parse() error = %v, want ErrInvalidToken", tt.name, err)
		}
	}
}

func serve(a *Authenticator, header, value string) (*httptest.ResponseRecorder, string) {
	var got string
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = LearnerFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestMiddlewareWithSecret(t *testing.T) {
	a := New(secret, "")
	tok, err := Issue(secret, "ben", time.Hour)
	require.NoError(t, err)

	rec, learner := serve(a, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ben", learner)

	rec, _ = serve(a, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec, _ = serve(a, "Authorization", "Bearer junk")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(a, HeaderLearnerID, "mallory")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "header is ignored when tokens are required")
}

func TestMiddlewareWithoutSecret(t *testing.T) {
	a := New("", "")
	assert.False(t, a.Enabled())

	rec, learner := serve(a, HeaderLearnerID, " cy ")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cy", learner)

	_, learner = serve(a, "", "")
	assert.Equal(t, "local", learner)

	_, learner = serve(New("", "classroom"), "", "")
	assert.Equal(t, "classroom", learner)
}
