package slot

import (
	"net/http"
	"parking/infras/otel"
	"parking/internal/domains/slot/model/dto"
	"parking/internal/domains/slot/service"
	"parking/shared"
	"parking/shared/constant"
	"parking/shared/failure"
	"parking/shared/validator"
	"parking/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	queryParamIsAvailable = "isAvailable"
	queryParamLevel       = "level"

	errInvalidIsAvailable = "invalid isAvailable parameter"
)

type Handler struct {
	service service.Slot
	otel    otel.Otel
}

func New(service service.Slot, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/lots/{id}/slots", handler.GetSlots)
	router.Put("/lots/{id}/slots/{slotId}", handler.UpsertSlot)
	router.Patch("/lots/{id}/slots/{slotId}/availability", handler.SetAvailability)
}

// GetSlots lists a lot's slots.
// @Summary Get slots of a lot
// @Tags Slot
// @Produce json
// @Param id path string true "Lot ID"
// @Param isAvailable query bool false "Filter by availability"
// @Param level query string false "Filter by level"
// @Success 200 {object} response.Data[dto.GetSlotsResponse] "List of slots"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/lots/{id}/slots [get]
func (handler *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlots")
	defer scope.End()

	lotID := chi.URLParam(r, constant.RequestParamID)

	isAvailable, err := shared.ParseOptionalBool(r.URL.Query().Get(queryParamIsAvailable))
	if err != nil {
		scope.TraceError(err)

		response.WithError(w, failure.BadRequestFromString(errInvalidIsAvailable))

		return
	}

	req := dto.ListSlotsRequest{
		IsAvailable: isAvailable,
		Level:       r.URL.Query().Get(queryParamLevel),
	}

	slots, err := handler.service.List(ctx, lotID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slots")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Slots retrieved successfully")

	response.WithJSON(w, http.StatusOK, slots)
}

// UpsertSlot creates or updates a slot in a lot.
// @Summary Create or update a slot
// @Tags Slot
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param slotId path string true "Slot ID"
// @Param request body dto.UpsertSlotRequest true "Upsert Slot Request"
// @Success 200 {object} response.Data[dto.SlotResponse] "Saved slot"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/lots/{id}/slots/{slotId} [put]
// @Security BearerAuth
func (handler *Handler) UpsertSlot(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpsertSlot")
	defer scope.End()

	lotID := chi.URLParam(r, constant.RequestParamID)
	slotID := chi.URLParam(r, constant.RequestParamSlotID)

	if err := validator.ValidateVar(slotID, "required,max=64,identifier"); err != nil {
		scope.TraceError(err)

		response.WithError(w, err)

		return
	}

	req := dto.UpsertSlotRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	slot, err := handler.service.Upsert(ctx, lotID, slotID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to upsert slot")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Slot saved successfully")

	response.WithJSON(w, http.StatusOK, slot)
}

// SetAvailability takes a slot in or out of service.
// @Summary Set slot availability
// @Tags Slot
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param slotId path string true "Slot ID"
// @Param request body dto.SetAvailabilityRequest true "Availability Request"
// @Success 200 {object} response.Data[dto.SlotResponse] "Updated slot"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/lots/{id}/slots/{slotId}/availability [patch]
// @Security BearerAuth
func (handler *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SetAvailability")
	defer scope.End()

	lotID := chi.URLParam(r, constant.RequestParamID)
	slotID := chi.URLParam(r, constant.RequestParamSlotID)

	req := dto.SetAvailabilityRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	slot, err := handler.service.SetAvailability(ctx, lotID, slotID, *req.IsAvailable)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to set slot availability")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Slot availability updated")

	response.WithJSON(w, http.StatusOK, slot)
}
