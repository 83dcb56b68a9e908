package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipforge/payment-ledger/internal/lib/jwt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// makerValidator adapts a token maker to the TokenValidator interface.
type makerValidator struct{ maker jwt.Maker }

func (m makerValidator) ValidateToken(tokenStr string) (*jwt.CustomClaims, error) {
	return m.maker.ParseToken(tokenStr)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken("buyer", "user", "uid-1")
	require.NoError(t, err)

	var gotUser, gotRole, gotUID string
	handler := JWTMiddleware(makerValidator{maker}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = r.Context().Value(User).(string)
		gotRole, _ = r.Context().Value(Role).(string)
		gotUID, _ = r.Context().Value(UserUID).(string)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buyer", gotUser)
	assert.Equal(t, "user", gotRole)
	assert.Equal(t, "uid-1", gotUID)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	handler := JWTMiddleware(makerValidator{maker}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_BadToken(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	handler := JWTMiddleware(makerValidator{maker}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		wantCode int
	}{
		{name: "admin allowed", role: "admin", wantCode: http.StatusOK},
		{name: "user denied", role: "user", wantCode: http.StatusForbidden},
		{name: "missing denied", role: "", wantCode: http.StatusForbidden},
	}

	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := JWTMiddleware(makerValidator{maker}, discardLogger())(
				RequireRole("admin", discardLogger())(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusOK)
					})))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.role != "" {
				token, err := maker.GenerateToken("someone", tc.role, "uid-1")
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, req)

			if tc.role == "" {
				// No token at all fails earlier, in the JWT middleware.
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				return
			}
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestImportRateLimitMiddleware(t *testing.T) {
	handler := ImportRateLimitMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// The burst allows 5 requests; the sixth is rejected.
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
