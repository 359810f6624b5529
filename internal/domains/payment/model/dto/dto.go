package dto

import (
	bookingModel "parking/internal/domains/booking/model"
)

type CreateIntentRequest struct {
	BookingID     string   `json:"bookingId"     validate:"required,max=64"`
	Amount        *float64 `json:"amount"        validate:"required,gte=0"`
	Currency      string   `json:"currency"      validate:"omitempty,len=3,alpha"`
	CustomerEmail string   `json:"customerEmail" validate:"omitempty,email,max=100"`
}

type CreateIntentResponse struct {
	ClientSecret    *string `json:"clientSecret"`
	PaymentIntentID *string `json:"paymentIntentId"`
	Status          *string `json:"status,omitempty"`
}

func (r *CreateIntentResponse) FromModel(payment bookingModel.Payment) {
	r.ClientSecret = payment.ClientSecret
	r.PaymentIntentID = payment.IntentID
	r.Status = payment.Status
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// ProviderEnvelope is a provider notification forwarded over the message bus. The payload is
// kept byte for byte so its signature can still be verified.
type ProviderEnvelope struct {
	Payload   []byte `json:"payload"`
	Signature string `json:"signature"`
}
