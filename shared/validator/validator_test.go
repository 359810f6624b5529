package validator_test

import (
	"net/http"
	"parking/shared/failure"
	"parking/shared/validator"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reserve struct {
	LotID     string    `json:"lotId"     validate:"required,max=64,identifier"`
	SlotID    string    `json:"slotId"    validate:"required,max=64,identifier"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime"   validate:"required,gtfield=StartTime"`
	Price     *float64  `json:"price"     validate:"required,gte=0"`
	Currency  string    `json:"currency"  validate:"omitempty,len=3,alpha"`
	Email     string    `json:"email"     validate:"omitempty,email"`
	Status    string    `json:"status"    validate:"omitempty,oneof=confirmed cancelled"`
}

func validReserve() reserve {
	price := 10.0
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	return reserve{
		LotID:     "lot-a",
		SlotID:    "A-01",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Price:     &price,
	}
}

func requireBadRequest(t *testing.T, err error, message string) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))

	if message != "" {
		assert.Equal(t, message, failure.GetMessage(err))
	}
}

func TestValidateStruct(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name    string
		mutate  func(r *reserve)
		message string
	}{
		{name: "valid", mutate: func(*reserve) {}},
		{name: "missing lot", mutate: func(r *reserve) { r.LotID = "" }, message: "lotId is required"},
		{name: "slot with slash", mutate: func(r *reserve) { r.SlotID = "A/01" }, message: "slotId may only contain letters, digits, dots, dashes and underscores"},
		{name: "slot too long", mutate: func(r *reserve) { r.SlotID = strings.Repeat("a", 65) }, message: "slotId must be at most 64 long"},
		{name: "window reversed", mutate: func(r *reserve) { r.EndTime = r.StartTime.Add(-time.Hour) }, message: "endTime must be after startTime"},
		{name: "negative price", mutate: func(r *reserve) { r.Price = &negative }, message: "price must be greater than or equal to 0"},
		{name: "missing price", mutate: func(r *reserve) { r.Price = nil }, message: "price is required"},
		{name: "currency length", mutate: func(r *reserve) { r.Currency = "us" }, message: "currency must be exactly 3 characters long"},
		{name: "currency digits", mutate: func(r *reserve) { r.Currency = "u5d" }, message: "currency must contain letters only"},
		{name: "bad email", mutate: func(r *reserve) { r.Email = "driver" }, message: "email must be a valid email address"},
		{name: "unknown status", mutate: func(r *reserve) { r.Status = "parked" }, message: "status must be one of confirmed cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validReserve()
			tt.mutate(&req)

			err := validator.ValidateStruct(&req)

			if tt.message == "" {
				assert.NoError(t, err)

				return
			}

			requireBadRequest(t, err, tt.message)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid body",
			body: `{"lotId":"lot-a","slotId":"A-01","startTime":"2025-03-01T08:00:00Z","endTime":"2025-03-01T10:00:00Z","price":5}`,
		},
		{
			name:    "malformed json",
			body:    `{"lotId":`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			body:    `{"lotId":42}`,
			wantErr: true,
		},
		{
			name:    "two documents",
			body:    `{"lotId":"lot-a","slotId":"A-01","startTime":"2025-03-01T08:00:00Z","endTime":"2025-03-01T10:00:00Z","price":5} {}`,
			wantErr: true,
		},
		{
			name:    "empty object fails rules",
			body:    `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req reserve

			err := validator.Validate(strings.NewReader(tt.body), &req)

			if tt.wantErr {
				requireBadRequest(t, err, "")

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "A-01", req.SlotID)
		})
	}
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, validator.ValidateVar("lot.north_2", "required,identifier"))

	requireBadRequest(t, validator.ValidateVar("", "required,identifier"), "value is required")
	requireBadRequest(t, validator.ValidateVar("-A01", "required,identifier"), "value may only contain letters, digits, dots, dashes and underscores")
	requireBadRequest(t, validator.ValidateVar("A 01", "identifier"), "")
	requireBadRequest(t, validator.ValidateVar(101, "lte=100"), "value must be less than or equal to 100")
}
