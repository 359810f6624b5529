package lot

import (
	"net/http"
	"parking/infras/otel"
	"parking/internal/domains/lot/model/dto"
	"parking/internal/domains/lot/service"
	"parking/shared/constant"
	"parking/shared/validator"
	"parking/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Lot
	otel    otel.Otel
}

func New(service service.Lot, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

// Router mounts the lot routes. Slot routes nest under a lot and are mounted by the slot handler.
func (handler *Handler) Router(router chi.Router) {
	router.Get("/lots", handler.GetLots)
	router.Get("/lots/{id}", handler.GetLotByID)
	router.Put("/lots/{id}", handler.UpsertLot)
}

// GetLots lists active lots.
// @Summary Get active lots
// @Tags Lot
// @Produce json
// @Success 200 {object} response.Data[dto.GetLotsResponse] "List of lots"
// @Failure 500 {object} response.Error
// @Router /v1/lots [get]
func (handler *Handler) GetLots(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetLots")
	defer scope.End()

	lots, err := handler.service.ListActive(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get lots")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Lots retrieved successfully")

	response.WithJSON(w, http.StatusOK, lots)
}

// GetLotByID retrieves a lot by its ID.
// @Summary Get a lot by ID
// @Tags Lot
// @Produce json
// @Param id path string true "Lot ID"
// @Success 200 {object} response.Data[dto.LotResponse] "Lot details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/lots/{id} [get]
func (handler *Handler) GetLotByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetLotByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	lot, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get lot by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Lot retrieved successfully")

	response.WithJSON(w, http.StatusOK, lot)
}

// UpsertLot creates or updates a lot.
// @Summary Create or update a lot
// @Tags Lot
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param request body dto.UpsertLotRequest true "Upsert Lot Request"
// @Success 200 {object} response.Data[dto.LotResponse] "Saved lot"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/lots/{id} [put]
// @Security BearerAuth
func (handler *Handler) UpsertLot(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpsertLot")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := validator.ValidateVar(id, "required,max=64,identifier"); err != nil {
		scope.TraceError(err)

		response.WithError(w, err)

		return
	}

	req := dto.UpsertLotRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	lot, err := handler.service.Upsert(ctx, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to upsert lot")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Lot saved successfully by user " + user)

	response.WithJSON(w, http.StatusOK, lot)
}
