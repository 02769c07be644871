package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"smartdocs/internal/auth"
	"smartdocs/internal/handler"
)

func newTestServer() *echo.Echo {
	e := echo.New()
	jwtService := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	Register(
		e,
		zap.NewNop(),
		auth.Middleware(jwtService, nil, nil),
		handler.NewAuthHandler(nil),
		handler.NewUserHandler(nil),
		handler.NewDocumentHandler(nil),
		handler.NewCategoryHandler(nil),
	)
	return e
}

func TestRegister_Healthz(t *testing.T) {
	e := newTestServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegister_SecuredRoutesRequireToken(t *testing.T) {
	e := newTestServer()

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/documents"},
		{http.MethodGet, "/api/documents/search?query=x"},
		{http.MethodDelete, "/api/categories/1"},
		{http.MethodGet, "/api/users/me"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
		})
	}
}

func TestRegister_RejectsForgedToken(t *testing.T) {
	e := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_RouteTable(t *testing.T) {
	e := newTestServer()
	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /api/auth/register",
		"POST /api/auth/login",
		"POST /api/auth/refresh",
		"POST /api/auth/logout",
		"GET /api/auth/check-token",
		"GET /api/public-documents/search",
		"GET /api/documents/search",
		"PUT /api/documents/:id",
		"PUT /api/categories/:id",
		"POST /api/users/profile-image",
		"PUT /api/users/:id_or_email",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}
