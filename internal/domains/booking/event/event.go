package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=../mocks/event_mock.go -package=mocks

import (
	"context"
	"parking/config"
	"parking/infras/kafka"
	"parking/infras/otel"
	"parking/internal/domains/booking/model"
	"parking/shared/constant"
	"parking/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	TypeReserved       = "booking.reserved"
	TypeCancelled      = "booking.cancelled"
	TypeCheckedIn      = "booking.checked_in"
	TypeCompleted      = "booking.completed"
	TypePaymentUpdated = "booking.payment_updated"
)

// BookingEvent is published after a booking transition has been committed. It carries no
// check-in token and no client secret.
type BookingEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
	BookingID     string    `json:"bookingId"`
	UserID        string    `json:"userId"`
	LotID         string    `json:"lotId"`
	SlotID        string    `json:"slotId"`
	Status        string    `json:"status"`
	PaymentStatus *string   `json:"paymentStatus,omitempty"`
}

func NewBookingEvent(eventType string, booking model.Booking) BookingEvent {
	return BookingEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		OccurredAt:    timezone.Now(),
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		LotID:         booking.LotID,
		SlotID:        booking.SlotID,
		Status:        booking.Status,
		PaymentStatus: booking.Payment.Status,
	}
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, booking model.Booking)
}

type publisherImpl struct {
	client kafka.Client
	cfg    *config.Config
	otel   otel.Otel
}

func NewPublisher(client kafka.Client, cfg *config.Config, otel otel.Otel) Publisher {
	return &publisherImpl{
		client: client,
		cfg:    cfg,
		otel:   otel,
	}
}

// Publish is best effort: the booking row is the source of truth, so failures are only logged.
func (p *publisherImpl) Publish(ctx context.Context, eventType string, booking model.Booking) {
	if !p.cfg.Kafka.Enable {
		return
	}

	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()

	scope.SetAttributes(map[string]any{
		"event.type": eventType,
		"booking.id": booking.ID,
	})

	message := kafka.Message{
		Key:   booking.ID,
		Value: NewBookingEvent(eventType, booking),
	}

	if err := p.client.SendMessages(ctx, p.cfg.Kafka.Topics.BookingEvents, message); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("type", eventType).Str("bookingId", booking.ID).Msg("failed to publish booking event")
	}
}
