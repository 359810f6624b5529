package booking

import (
	"net/http"
	"parking/infras/otel"
	"parking/internal/domains/booking/model/dto"
	"parking/internal/domains/booking/service"
	"parking/shared"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	"parking/shared/failure"
	"parking/shared/validator"
	"parking/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const errMissingIdentity = "missing user identity"

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/bookings", handler.GetMyBookings)
	router.Post("/bookings/reserve", handler.Reserve)
	router.Post("/bookings/check-in", handler.CheckIn)
	router.Get("/bookings/{id}", handler.GetBookingByID)
	router.Delete("/bookings/{id}", handler.Cancel)
	router.Post("/bookings/{id}/complete", handler.Complete)
}

// Reserve holds a slot for the authenticated user.
// @Summary Reserve a slot
// @Description Reserve an available slot and receive the check-in QR token.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.ReserveRequest true "Reserve Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Booking created"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/reserve [post]
// @Security BearerAuth
func (handler *Handler) Reserve(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Reserve")
	defer scope.End()

	// Internal callers skip the bearer check and carry no identity to book under.
	userID, _ := shared.UserFromContext(ctx)
	if userID == constant.Empty {
		err := failure.Unauthorized(errMissingIdentity)
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	req := dto.ReserveRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Reserve(ctx, userID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reserve slot")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Slot reserved successfully by user " + userID)

	response.WithJSON(writer, http.StatusCreated, booking)
}

// GetMyBookings lists the authenticated user's bookings.
// @Summary Get my bookings
// @Description List the current user's bookings, newest window first.
// @Tags Booking
// @Accept json
// @Produce json
// @Param status query string false "Filter by status (confirmed, in_progress, completed, cancelled)"
// @Param page query int false "Page number, defaults to 1"
// @Param limit query int false "Maximum number of bookings per page, defaults to 20"
// @Success 200 {object} response.Data[dto.GetBookingsResponse] "List of user's bookings"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetMyBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyBookings")
	defer scope.End()

	userID, _ := shared.UserFromContext(ctx)

	var params gDto.QueryParams
	if err := params.FromRequest(request, constant.DefaultBookingListLimit, constant.MaxBookingListLimit); err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	req := dto.ListBookingsRequest{
		Status: request.URL.Query().Get(constant.RequestParamStatus),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate query params")

		response.WithError(writer, err)

		return
	}

	bookings, err := handler.service.ListUserBookings(ctx, userID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get user bookings")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("User bookings retrieved successfully for user " + userID)

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking visible to its owner or an admin.
// @Summary Get a booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking details"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	userID, roles := shared.UserFromContext(ctx)
	id := chi.URLParam(request, constant.RequestParamID)

	booking, err := handler.service.Get(ctx, userID, shared.IsAdmin(roles), id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking by ID")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking retrieved successfully")

	response.WithJSON(writer, http.StatusOK, booking)
}

// Cancel cancels a confirmed booking and frees its slot.
// @Summary Cancel a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Cancelled booking"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [delete]
// @Security BearerAuth
func (handler *Handler) Cancel(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Cancel")
	defer scope.End()

	userID, _ := shared.UserFromContext(ctx)
	id := chi.URLParam(request, constant.RequestParamID)

	booking, err := handler.service.Cancel(ctx, userID, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking cancelled successfully by user " + userID)

	response.WithJSON(writer, http.StatusOK, booking)
}

// CheckIn starts a booking from the QR token presented at the gate.
// @Summary Check in with a QR token
// @Description Gate terminals call this without a user session; the token carries the booking.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CheckInRequest true "Check-in Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking in progress"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/check-in [post]
func (handler *Handler) CheckIn(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckIn")
	defer scope.End()

	req := dto.CheckInRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.CheckIn(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check in")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking checked in " + booking.ID)

	response.WithJSON(writer, http.StatusOK, booking)
}

// Complete closes an in-progress booking and frees its slot.
// @Summary Complete a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Completed booking"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/complete [post]
// @Security BearerAuth
func (handler *Handler) Complete(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Complete")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	booking, err := handler.service.Complete(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to complete booking")

		response.WithError(writer, err)

		return
	}

	user, _ := shared.UserFromContext(ctx)
	scope.AddEvent("Booking completed by " + user)

	response.WithJSON(writer, http.StatusOK, booking)
}
