package model

import (
	"parking/shared/model"
	"slices"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID         = "id"
	FieldUserID     = "user_id"
	FieldLotID      = "lot_id"
	FieldSlotID     = "slot_id"
	FieldStatus     = "status"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"
	FieldTotalPrice = "total_price"
	FieldCurrency   = "currency"
	FieldQRCode     = "qr_code"
	FieldEmail      = "customer_email"

	FieldPaymentProvider       = "payment_provider"
	FieldPaymentIntentID       = "payment_intent_id"
	FieldPaymentClientSecret   = "payment_client_secret"
	FieldPaymentStatus         = "payment_status"
	FieldPaymentEventCreatedAt = "payment_event_created_at"
)

const (
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const PaymentStatusSucceeded = "succeeded"

// Statuses lists every booking status in lifecycle order.
var Statuses = []string{StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}

// ActiveStatuses hold the slot.
var ActiveStatuses = []string{StatusConfirmed, StatusInProgress}

var transitions = map[string][]string{
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

type Booking struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	LotID         string    `db:"lot_id"`
	SlotID        string    `db:"slot_id"`
	Status        string    `db:"status"`
	StartTime     time.Time `db:"start_time"`
	EndTime       time.Time `db:"end_time"`
	TotalPrice    float64   `db:"total_price"`
	Currency      string    `db:"currency"`
	QRCode        string    `db:"qr_code"`
	CustomerEmail *string   `db:"customer_email"`
	Payment
	model.Metadata
}

// Payment is the latest known provider state of the booking's payment. All fields are
// empty until an intent is created.
type Payment struct {
	Provider       *string    `db:"payment_provider"`
	IntentID       *string    `db:"payment_intent_id"`
	ClientSecret   *string    `db:"payment_client_secret"`
	Status         *string    `db:"payment_status"`
	EventCreatedAt *time.Time `db:"payment_event_created_at"`
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (b Booking) CanTransitionTo(next string) bool {
	return slices.Contains(transitions[b.Status], next)
}

// Accepts reports whether a provider update with status, created at createdAt, may replace
// the stored payment state. Older events never win, and a succeeded payment only yields to
// another succeeded notification.
func (p Payment) Accepts(status string, createdAt time.Time) bool {
	if p.Status != nil && *p.Status == PaymentStatusSucceeded && status != PaymentStatusSucceeded {
		return false
	}

	if p.EventCreatedAt != nil && createdAt.Before(*p.EventCreatedAt) {
		return false
	}

	return true
}

// IsSucceeded reports whether the provider confirmed the payment.
func (p Payment) IsSucceeded() bool {
	return p.Status != nil && *p.Status == PaymentStatusSucceeded
}

// IsActive reports whether the booking still holds its slot.
func (b Booking) IsActive() bool {
	return slices.Contains(ActiveStatuses, b.Status)
}
