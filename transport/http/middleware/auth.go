package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"parking/config"
	"parking/infras/jwt"
	"parking/infras/otel"
	"parking/permissions"
	"parking/shared/constant"
	"parking/shared/failure"
	"parking/transport/http/response"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type internalCallerKey struct{}

type Auth interface {
	// Auth resolves the bearer token into the caller's identity.
	Auth(http.Handler) http.Handler
	// APIKey marks requests carrying the shared service key as internal. Internal calls skip
	// Auth and RBAC.
	APIKey(http.Handler) http.Handler
}

type Role interface {
	// RBAC matches the caller's roles against the permission table entry of the route.
	RBAC(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

// RoleStore holds the roles granted inside this service, on top of those carried by the token.
type RoleStore interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
	roles      RoleStore
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config, roles RoleStore) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
		roles:      roles,
	}
}

func isInternal(ctx context.Context) bool {
	internal, _ := ctx.Value(internalCallerKey{}).(bool)

	return internal
}

// routePermission looks up the permission entry by the chi pattern the request will match,
// since the middlewares run before routing has resolved it.
func (m *authRoleImpl) routePermission(request *http.Request) (string, permissions.Permission) {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil || rctx.Routes == nil {
		return request.URL.Path, permissions.Permission{}
	}

	pattern := rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path)

	if m.permission == nil {
		return pattern, permissions.Permission{}
	}

	return pattern, m.permission.FindPermissions(pattern, request.Method)
}

func reject(writer http.ResponseWriter, scope otel.Scope, err error) {
	scope.TraceError(err)
	scope.End()

	response.WithError(writer, err)
}

func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")

		pattern, permission := m.routePermission(request)

		if isInternal(ctx) || permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       pattern,
			"http.method":     request.Method,
		})

		header := request.Header.Get(constant.RequestHeaderAuthorization)
		if header == constant.Empty {
			reject(writer, scope, failure.Unauthorized("missing authorization header"))

			return
		}

		raw, err := jwt.ExtractTokenFromHeader(header)
		if err != nil {
			reject(writer, scope, failure.Unauthorized("invalid authorization header format"))

			return
		}

		claims, err := m.jwtService.ValidateToken(raw)
		if err != nil {
			reject(writer, scope, failure.Unauthorized(tokenErrorMessage(err)))

			return
		}

		if claims.UserID() == constant.Empty {
			log.Warn().Str("tokenId", claims.ID).Msg("token without subject")
			reject(writer, scope, failure.Unauthorized("invalid token claims"))

			return
		}

		stored, err := m.roles.Roles(ctx, claims.UserID())
		if err != nil {
			log.Error().Err(err).Str("userId", claims.UserID()).Msg("failed to load stored roles")
			reject(writer, scope, failure.Unauthorized("unable to resolve roles"))

			return
		}

		roles := mergeRoles(claims.Roles, stored)

		ctx = request.Context()
		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID())
		ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, claims.Email)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRoles, roles)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.ID)

		scope.End()
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// mergeRoles joins token and stored roles without duplicates. A caller with neither is a plain user.
func mergeRoles(claimed, stored []string) []string {
	roles := make([]string, 0, len(claimed)+len(stored))

	for _, role := range append(slices.Clone(claimed), stored...) {
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	if len(roles) == 0 {
		return []string{constant.RoleUser}
	}

	return roles
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, jwt.ErrInvalidClaim):
		return "invalid token claims"
	case errors.Is(err, jwt.ErrInvalidToken):
		return "invalid token"
	default:
		return "token validation failed"
	}
}

func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "rbac.middleware")

		if isInternal(ctx) {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		if m.permission == nil {
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		_, permission := m.routePermission(request)

		if m.permission.Skip || permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		roles, _ := ctx.Value(constant.ContextKeyUserRoles).([]string)

		if !permission.Allows(roles) {
			scope.SetAttributes(map[string]any{
				"user_roles":    roles,
				"allowed_roles": permission.Permissions,
			})
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		scope.End()
		next.ServeHTTP(writer, request)
	})
}

func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")

		key := request.Header.Get(constant.RequestHeaderAPIKey)
		if key == constant.Empty {
			scope.SetAttribute("http.source", "client")
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttribute("http.source", "internal")

		expected := m.cfg.App.APIKey
		if expected == constant.Empty || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		scope.End()
		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), internalCallerKey{}, true)))
	})
}
