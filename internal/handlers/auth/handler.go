package auth

import (
	"net/http"
	"parking/infras/otel"
	"parking/internal/domains/user/model/dto"
	"parking/internal/domains/user/service"
	"parking/shared/constant"
	"parking/shared/validator"
	"parking/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handler exposes the caller's identity and role grants. Tokens are issued elsewhere; this
// service only verifies them.
type Handler struct {
	service service.User
	otel    otel.Otel
}

func New(service service.User, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", handler.Me)
		r.Post("/assign-admin", handler.AssignAdmin)
	})
}

// Me returns the authenticated caller
// @Summary Get current user
// @Description Returns the identity carried by the bearer token and the stored profile, if any.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Data[dto.MeResponse] "Current user"
// @Failure 401 {object} response.Error
// @Router /v1/auth/me [get]
// @Security BearerAuth
func (handler *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Me")
	defer scope.End()

	me, err := handler.service.Me(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get current user")

		response.WithError(w, err)

		return
	}

	scope.SetAttribute("user_id", me.UserID)

	response.WithJSON(w, http.StatusOK, me)
}

// AssignAdmin grants the admin role
// @Summary Assign admin role
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.AssignAdminRequest true "Target user"
// @Success 200 {object} response.Data[dto.AssignAdminResponse] "Granted roles"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/auth/assign-admin [post]
// @Security BearerAuth
func (handler *Handler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".AssignAdmin")
	defer scope.End()

	req := dto.AssignAdminRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.AssignAdmin(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("userId", req.UserID).Msg("failed to assign admin")

		response.WithError(w, err)

		return
	}

	scope.SetAttribute("target_user_id", req.UserID)

	response.WithJSON(w, http.StatusOK, res)
}
