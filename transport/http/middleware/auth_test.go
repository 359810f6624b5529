package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/config"
	"parking/infras/jwt"
	"parking/infras/otel/mocks"
	"parking/permissions"
	"parking/shared"
	"parking/transport/http/middleware"
)

const (
	secret = "identity-secret"
	apiKey = "internal-key"
)

type roleStore map[string][]string

func (s roleStore) Roles(_ context.Context, userID string) ([]string, error) {
	if userID == "unreachable" {
		return nil, errors.New("connection refused")
	}

	return s[userID], nil
}

type identity struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.AccessSecret = secret
	cfg.App.APIKey = apiKey

	perms := &permissions.PermissionData{
		Endpoints: []permissions.Permission{
			{Path: "/v1/bookings/check-in", Method: http.MethodPost, Skip: true},
			{Path: "/v1/bookings/{id}", Method: http.MethodGet, Permissions: []string{"user", "admin"}},
			{Path: "/v1/analytics/summary", Method: http.MethodGet, Permissions: []string{"admin"}},
		},
	}

	stored := roleStore{"a-2": {"admin"}, "a-3": {"user", "admin"}}

	m := middleware.NewAuthRoleMiddleware(jwt.New(cfg), mocks.NewOtel(), perms, cfg, stored)

	echo := func(w http.ResponseWriter, r *http.Request) {
		userID, roles := shared.UserFromContext(r.Context())

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(identity{UserID: userID, Roles: roles})
	}

	router := chi.NewRouter()
	router.Use(m.APIKey)
	router.Use(m.Auth)
	router.Use(m.RBAC)

	router.Post("/v1/bookings/check-in", echo)
	router.Get("/v1/bookings/{id}", echo)
	router.Get("/v1/analytics/summary", echo)

	return router
}

func token(t *testing.T, subject string, roles []string) string {
	t.Helper()

	now := time.Now()
	claims := jwt.Claims{
		Email: "driver@example.com",
		Roles: roles,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func TestAuthRole(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		headers    map[string]string
		wantStatus int
		wantUser   string
		wantRoles  []string
	}{
		{
			name:       "missing authorization header",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed authorization header",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			headers:    map[string]string{"Authorization": "Token abc"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token signed with another key",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			headers:    map[string]string{"Authorization": "Bearer not-a-jwt"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "user reaches a user route",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "u-1", []string{"user"})},
			wantStatus: http.StatusOK,
			wantUser:   "u-1",
			wantRoles:  []string{"user"},
		},
		{
			name:       "token without roles acts as a user",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "u-2", nil)},
			wantStatus: http.StatusOK,
			wantUser:   "u-2",
			wantRoles:  []string{"user"},
		},
		{
			name:       "user is refused an admin route",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "u-1", []string{"user"})},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin reaches an admin route",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "a-1", []string{"user", "admin"})},
			wantStatus: http.StatusOK,
			wantUser:   "a-1",
			wantRoles:  []string{"user", "admin"},
		},
		{
			name:       "stored admin role reaches an admin route",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "a-2", []string{"user"})},
			wantStatus: http.StatusOK,
			wantUser:   "a-2",
			wantRoles:  []string{"user", "admin"},
		},
		{
			name:       "stored roles are not repeated",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "a-3", nil)},
			wantStatus: http.StatusOK,
			wantUser:   "a-3",
			wantRoles:  []string{"user", "admin"},
		},
		{
			name:       "role store unavailable",
			method:     http.MethodGet,
			path:       "/v1/bookings/b-1",
			headers:    map[string]string{"Authorization": "Bearer " + token(t, "unreachable", []string{"user"})},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "check-in needs no session",
			method:     http.MethodPost,
			path:       "/v1/bookings/check-in",
			wantStatus: http.StatusOK,
		},
		{
			name:       "internal caller with the api key",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"X-API-Key": apiKey},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong api key",
			method:     http.MethodGet,
			path:       "/v1/analytics/summary",
			headers:    map[string]string{"X-API-Key": "guess"},
			wantStatus: http.StatusForbidden,
		},
	}

	router := newRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK || tt.wantUser == "" {
				return
			}

			var got identity
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantUser, got.UserID)
			assert.Equal(t, tt.wantRoles, got.Roles)
		})
	}
}

func TestAuthRole_PublicInventoryReads(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = secret

	perms, err := permissions.Get()
	require.NoError(t, err)

	m := middleware.NewAuthRoleMiddleware(jwt.New(cfg), mocks.NewOtel(), perms, cfg, roleStore{})

	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	router := chi.NewRouter()
	router.Use(m.APIKey)
	router.Use(m.Auth)
	router.Use(m.RBAC)

	router.Get("/v1/lots", ok)
	router.Get("/v1/lots/{id}", ok)
	router.Put("/v1/lots/{id}", ok)
	router.Get("/v1/lots/{id}/slots", ok)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "list lots", method: http.MethodGet, path: "/v1/lots", wantStatus: http.StatusOK},
		{name: "get lot", method: http.MethodGet, path: "/v1/lots/lot-a", wantStatus: http.StatusOK},
		{name: "list slots", method: http.MethodGet, path: "/v1/lots/lot-a/slots", wantStatus: http.StatusOK},
		{name: "lot upsert still needs a session", method: http.MethodPut, path: "/v1/lots/lot-a", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
