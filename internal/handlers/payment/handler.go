package payment

import (
	"errors"
	"io"
	"net/http"
	"parking/infras/otel"
	"parking/internal/domains/payment/model/dto"
	"parking/internal/domains/payment/service"
	"parking/shared"
	"parking/shared/constant"
	"parking/shared/failure"
	"parking/shared/validator"
	"parking/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	errPayloadTooLarge = "payload_too_large"
	errInvalidPayload  = "invalid_payload"
	errMissingIdentity = "missing user identity"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/create-intent", handler.CreateIntent)
		routerGroup.Post("/webhook", handler.Webhook)
	})
}

// CreateIntent opens a provider payment intent for a booking.
// @Summary Create a payment intent
// @Description Returns the stored intent when the booking is already paid.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.CreateIntentRequest true "Create Intent Request"
// @Success 200 {object} response.Data[dto.CreateIntentResponse] "Payment intent"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 502 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/payments/create-intent [post]
// @Security BearerAuth
func (handler *Handler) CreateIntent(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateIntent")
	defer scope.End()

	if userID, _ := shared.UserFromContext(ctx); userID == constant.Empty {
		err := failure.Unauthorized(errMissingIdentity)
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	req := dto.CreateIntentRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	intent, err := handler.service.CreateIntent(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create payment intent")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Payment intent ready for booking " + req.BookingID)

	response.WithJSON(writer, http.StatusOK, intent)
}

// Webhook receives provider notifications. The body is read raw so the signature can be verified.
// @Summary Payment provider webhook
// @Tags Payment
// @Accept json
// @Produce json
// @Param Stripe-Signature header string false "Provider signature"
// @Success 200 {object} response.Data[dto.WebhookResponse] "Acknowledged"
// @Failure 400 {object} response.Error
// @Failure 413 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/payments/webhook [post]
func (handler *Handler) Webhook(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Webhook")
	defer scope.End()

	payload, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, constant.WebhookMaxBody))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read webhook body")

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.WithError(writer, failure.TooLarge(errPayloadTooLarge))

			return
		}

		response.WithError(writer, failure.BadRequestFromString(errInvalidPayload))

		return
	}

	signature := request.Header.Get(constant.RequestHeaderStripeSignature)

	if err := handler.service.HandleWebhook(ctx, payload, signature); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to handle webhook")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Webhook processed")

	response.WithJSON(writer, http.StatusOK, dto.WebhookResponse{Received: true})
}
