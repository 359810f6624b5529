package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parking/internal/domains/booking/model"
)

func TestBooking_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{from: model.StatusConfirmed, to: model.StatusInProgress, want: true},
		{from: model.StatusConfirmed, to: model.StatusCancelled, want: true},
		{from: model.StatusConfirmed, to: model.StatusCompleted, want: false},
		{from: model.StatusInProgress, to: model.StatusCompleted, want: true},
		{from: model.StatusInProgress, to: model.StatusCancelled, want: false},
		{from: model.StatusCompleted, to: model.StatusCancelled, want: false},
		{from: model.StatusCompleted, to: model.StatusInProgress, want: false},
		{from: model.StatusCancelled, to: model.StatusConfirmed, want: false},
		{from: model.StatusCancelled, to: model.StatusInProgress, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, model.Booking{Status: tt.from}.CanTransitionTo(tt.to))
		})
	}
}

func TestBooking_IsActive(t *testing.T) {
	assert.True(t, model.Booking{Status: model.StatusConfirmed}.IsActive())
	assert.True(t, model.Booking{Status: model.StatusInProgress}.IsActive())
	assert.False(t, model.Booking{Status: model.StatusCompleted}.IsActive())
	assert.False(t, model.Booking{Status: model.StatusCancelled}.IsActive())
}

func TestPayment_Accepts(t *testing.T) {
	succeeded := model.PaymentStatusSucceeded
	processing := "processing"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		stored    model.Payment
		status    string
		createdAt time.Time
		want      bool
	}{
		{
			name:      "no prior state",
			stored:    model.Payment{},
			status:    processing,
			createdAt: at,
			want:      true,
		},
		{
			name:      "newer event",
			stored:    model.Payment{Status: &processing, EventCreatedAt: &at},
			status:    succeeded,
			createdAt: at.Add(time.Second),
			want:      true,
		},
		{
			name:      "same event delivered again",
			stored:    model.Payment{Status: &processing, EventCreatedAt: &at},
			status:    processing,
			createdAt: at,
			want:      true,
		},
		{
			name:      "older event",
			stored:    model.Payment{Status: &processing, EventCreatedAt: &at},
			status:    "requires_payment_method",
			createdAt: at.Add(-time.Minute),
			want:      false,
		},
		{
			name:      "succeeded is not downgraded by a later non-terminal event",
			stored:    model.Payment{Status: &succeeded, EventCreatedAt: &at},
			status:    processing,
			createdAt: at.Add(time.Minute),
			want:      false,
		},
		{
			name:      "succeeded replayed",
			stored:    model.Payment{Status: &succeeded, EventCreatedAt: &at},
			status:    succeeded,
			createdAt: at,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stored.Accepts(tt.status, tt.createdAt))
		})
	}
}
