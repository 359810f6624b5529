package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"parking/config"
	"parking/infras/otel"
	"parking/infras/s3"
	"parking/infras/stripe"
	"parking/internal/domains/booking/event"
	bookingModel "parking/internal/domains/booking/model"
	bookingRepo "parking/internal/domains/booking/repository"
	"parking/internal/domains/payment/model/dto"
	"parking/shared"
	"parking/shared/cache"
	"parking/shared/constant"
	"parking/shared/failure"
	gRepo "parking/shared/repository"
	"parking/shared/timezone"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	errPaymentsDisabled    = "payments_disabled"
	errBookingNotFound     = "booking_not_found"
	errPaymentIntentFailed = "payment_intent_failed"
	errInvalidSignature    = "invalid_signature"
	errInvalidPayload      = "invalid_payload"

	archiveDirectory = "payment-events"
)

// Payment reconciles provider payment state into bookings.
type Payment interface {
	CreateIntent(ctx context.Context, req dto.CreateIntentRequest) (dto.CreateIntentResponse, error)
	// HandleWebhook verifies a raw provider notification and applies it.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	HandleProviderEvent(ctx context.Context, evt stripe.Event) error
}

type serviceImpl struct {
	bookingRepo bookingRepo.Booking
	tx          gRepo.Transactor
	provider    stripe.Provider
	archive     s3.S3
	publisher   event.Publisher
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	bookingRepo bookingRepo.Booking,
	tx gRepo.Transactor,
	provider stripe.Provider,
	archive s3.S3,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		bookingRepo: bookingRepo,
		tx:          tx,
		provider:    provider,
		archive:     archive,
		publisher:   publisher,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) enabled() bool {
	return s.cfg.Payments.Enabled && s.provider != nil
}

// CreateIntent is idempotent once the booking is paid: the stored intent is returned and the
// provider is not called again.
func (s *serviceImpl) CreateIntent(ctx context.Context, req dto.CreateIntentRequest) (res dto.CreateIntentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CreateIntent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !s.enabled() {
		return res, failure.Disabled(errPaymentsDisabled) // nolint:wrapcheck
	}

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(req.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingId", req.BookingID).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound(errBookingNotFound) // nolint:wrapcheck
	}

	if booking.Payment.IsSucceeded() {
		res.ClientSecret = booking.Payment.ClientSecret
		res.PaymentIntentID = booking.Payment.IntentID

		return res, nil
	}

	currency := s.cfg.Payments.DefaultCurrency
	if req.Currency != constant.Empty {
		currency = req.Currency
	}

	email := req.CustomerEmail
	if email == constant.Empty && booking.CustomerEmail != nil {
		email = *booking.CustomerEmail
	}

	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}

	intent, err := s.provider.CreateIntent(ctx, stripe.IntentParams{
		BookingID:    booking.ID,
		Amount:       int64(math.Round(amount)),
		Currency:     strings.ToLower(currency),
		ReceiptEmail: email,
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", booking.ID).Msg("failed to create payment intent")

		return res, failure.Upstream(errPaymentIntentFailed) // nolint:wrapcheck
	}

	providerName := s.provider.Name()

	payment := bookingModel.Payment{
		Provider:     &providerName,
		IntentID:     &intent.ID,
		ClientSecret: &intent.ClientSecret,
		Status:       &intent.Status,
	}

	var saved bookingModel.Booking

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.bookingRepo.GetTx(ctx, sqltx, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName), true)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}

		saved = current

		// A webhook confirmed the payment while the intent was being created.
		if current.Payment.IsSucceeded() {
			return nil
		}

		// The new intent does not reset the ordering watermark of already applied events.
		merged := payment
		merged.EventCreatedAt = current.Payment.EventCreatedAt

		if err := s.bookingRepo.UpdateTx(ctx, sqltx, paymentFields(merged), shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
			return fmt.Errorf("failed to update booking payment: %w", err)
		}

		saved.Payment = merged

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", booking.ID).Msg("failed to save payment intent")

		return res, fmt.Errorf("failed to save payment intent: %w", err)
	}

	s.afterUpdate(ctx, saved)

	res.FromModel(saved.Payment)

	return res, nil
}

func (s *serviceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleWebhook")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !s.enabled() {
		return failure.Disabled(errPaymentsDisabled) // nolint:wrapcheck
	}

	evt, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("rejected provider notification")

		if errors.Is(err, stripe.ErrSignature) {
			return failure.BadRequestFromString(errInvalidSignature) // nolint:wrapcheck
		}

		return failure.BadRequestFromString(errInvalidPayload) // nolint:wrapcheck
	}

	s.archiveEvent(ctx, evt, payload)

	return s.HandleProviderEvent(ctx, evt)
}

// HandleProviderEvent merges the event into the booking's payment. Events without a booking
// reference, for unknown bookings, or superseded by what is already stored are acknowledged
// without changes.
func (s *serviceImpl) HandleProviderEvent(ctx context.Context, evt stripe.Event) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleProviderEvent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if evt.BookingID == constant.Empty {
		log.Debug().Str("eventId", evt.ID).Str("type", evt.Type).Msg("provider event without booking reference")

		return nil
	}

	var (
		saved   bookingModel.Booking
		applied bool
	)

	filter := shared.FilterByID(evt.BookingID, bookingModel.FieldID, bookingModel.TableName)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		applied = false

		current, err := s.bookingRepo.GetTx(ctx, sqltx, filter, true)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}

		if current.ID == constant.Empty {
			log.Warn().Str("eventId", evt.ID).Str("bookingId", evt.BookingID).Msg("provider event for unknown booking")

			return nil
		}

		if !current.Payment.Accepts(evt.Status, evt.CreatedAt) {
			log.Info().Str("eventId", evt.ID).Str("bookingId", evt.BookingID).Msg("stale provider event ignored")

			return nil
		}

		payment := mergeEvent(current.Payment, s.providerName(), evt)

		if err := s.bookingRepo.UpdateTx(ctx, sqltx, paymentFields(payment), filter); err != nil {
			return fmt.Errorf("failed to update booking payment: %w", err)
		}

		saved = current
		saved.Payment = payment
		applied = true

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("eventId", evt.ID).Str("bookingId", evt.BookingID).Msg("failed to apply provider event")

		return fmt.Errorf("failed to apply provider event: %w", err)
	}

	if applied {
		s.afterUpdate(ctx, saved)
	}

	return nil
}

func (s *serviceImpl) providerName() string {
	if s.provider == nil {
		return stripe.ProviderName
	}

	return s.provider.Name()
}

// archiveEvent keeps the verified raw notification for audit. Failures are logged only.
func (s *serviceImpl) archiveEvent(ctx context.Context, evt stripe.Event, payload []byte) {
	if s.archive == nil || !s.archive.Enabled() || evt.BookingID == constant.Empty || evt.ID == constant.Empty {
		return
	}

	directory := archiveDirectory + "/" + evt.BookingID

	if _, err := s.archive.PutObject(ctx, directory, evt.ID+".json", constant.ContentTypeJSON, payload); err != nil {
		log.Error().Err(err).Str("eventId", evt.ID).Msg("failed to archive provider event")
	}
}

func (s *serviceImpl) afterUpdate(ctx context.Context, booking bookingModel.Booking) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache,
			constant.CacheGetAllBooking,
			shared.BuildCacheKey(constant.CacheGetBooking, booking.ID),
		)
	}()

	s.publisher.Publish(ctx, event.TypePaymentUpdated, booking)
}

// mergeEvent overlays the event on the stored payment, keeping stored values the event omits.
func mergeEvent(current bookingModel.Payment, provider string, evt stripe.Event) bookingModel.Payment {
	merged := current
	merged.Provider = &provider

	if evt.IntentID != constant.Empty {
		merged.IntentID = &evt.IntentID
	}

	if evt.ClientSecret != constant.Empty {
		merged.ClientSecret = &evt.ClientSecret
	}

	if evt.Status != constant.Empty {
		merged.Status = &evt.Status
	}

	if !evt.CreatedAt.IsZero() {
		createdAt := evt.CreatedAt
		merged.EventCreatedAt = &createdAt
	}

	return merged
}

func paymentFields(payment bookingModel.Payment) map[string]any {
	return map[string]any{
		bookingModel.FieldPaymentProvider:       payment.Provider,
		bookingModel.FieldPaymentIntentID:       payment.IntentID,
		bookingModel.FieldPaymentClientSecret:   payment.ClientSecret,
		bookingModel.FieldPaymentStatus:         payment.Status,
		bookingModel.FieldPaymentEventCreatedAt: payment.EventCreatedAt,
		constant.FieldModifiedAt:                timezone.Now(),
	}
}
