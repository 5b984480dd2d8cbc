package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio-backend/internal/library/rules"
	"biblio-backend/internal/platform/db"
	"biblio-backend/internal/platform/requestid"
)

func testConfig(mode string) *db.Config {
	return &db.Config{
		Mode:  mode,
		Auth:  db.AuthConfig{JWTSecret: "router-test-secret-123", TokenTTL: time.Hour},
		Rules: rules.Default(),
	}
}

func TestRouterPublicAndProtected(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := newRouter(testConfig("release"), conn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestid.Header))

	for _, path := range []string{"/api/v1/loans", "/api/v1/members", "/api/v1/books", "/api/v1/stats", "/api/v1/auth/me"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// swagger は dev のみ
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterDevServesSwagger(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := newRouter(testConfig("dev"), conn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/loans/returns")
}
