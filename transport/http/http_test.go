package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"parking/config"
	"parking/infras/jwt"
	"parking/infras/otel/mocks"
	"parking/permissions"
	transport "parking/transport/http"
	"parking/transport/http/middleware"
	"parking/transport/http/router"
)

type pinger struct {
	err error
}

func (p pinger) Ping(context.Context) error {
	return p.err
}

type noRoles struct{}

func (noRoles) Roles(context.Context, string) ([]string, error) {
	return nil, nil
}

func newServer(database transport.Pinger) *transport.HTTP {
	cfg := &config.Config{}
	cfg.Server.Env = "development"

	return transport.New(
		cfg,
		router.New(router.DomainHandlers{}),
		middleware.NewAppMiddleware(mocks.NewOtel(), cfg, nil),
		middleware.NewAuthRoleMiddleware(jwt.New(cfg), mocks.NewOtel(), &permissions.PermissionData{}, cfg, noRoles{}),
		database,
	)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name         string
		database     transport.Pinger
		expectedCode int
		expectedBody string
	}{
		{
			name:         "database reachable",
			database:     pinger{},
			expectedCode: http.StatusOK,
			expectedBody: `{"data":{"status":"ok"}}`,
		},
		{
			name:         "database unreachable",
			database:     pinger{err: errors.New("connection refused")},
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(tt.database)

			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.expectedCode, rec.Code)

			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	server := newServer(pinger{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, transport.ServerStateReady, server.State())
}
