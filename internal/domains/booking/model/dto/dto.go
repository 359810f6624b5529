package dto

import (
	"parking/internal/domains/booking/model"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	gModel "parking/shared/model"
	"parking/shared/timezone"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultCurrency = "usd"

type ReserveRequest struct {
	LotID         string    `json:"lotId"         validate:"required,max=64,identifier"`
	SlotID        string    `json:"slotId"        validate:"required,max=64,identifier"`
	StartTime     time.Time `json:"startTime"     validate:"required"`
	EndTime       time.Time `json:"endTime"       validate:"required,gtfield=StartTime"`
	Price         *float64  `json:"price"         validate:"required,gte=0"`
	Currency      string    `json:"currency"      validate:"omitempty,len=3,alpha"`
	CustomerEmail string    `json:"customerEmail" validate:"omitempty,email,max=100"`
}

// ToModel builds a confirmed booking with a fresh id. The check-in token is attached by the caller.
func (r *ReserveRequest) ToModel(userID string) model.Booking {
	now := timezone.Now()

	currency := defaultCurrency
	if r.Currency != constant.Empty {
		currency = strings.ToLower(r.Currency)
	}

	var email *string
	if r.CustomerEmail != constant.Empty {
		email = &r.CustomerEmail
	}

	var price float64
	if r.Price != nil {
		price = *r.Price
	}

	return model.Booking{
		ID:            uuid.NewString(),
		UserID:        userID,
		LotID:         r.LotID,
		SlotID:        r.SlotID,
		Status:        model.StatusConfirmed,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		TotalPrice:    price,
		Currency:      currency,
		CustomerEmail: email,
		Metadata:      gModel.Created(userID, now),
	}
}

type CheckInRequest struct {
	QRToken string `json:"qrToken" validate:"required"`
}

type ListBookingsRequest struct {
	Status string `validate:"omitempty,oneof=confirmed in_progress completed cancelled"`
	Page   int    `validate:"gte=0"`
	Limit  int    `validate:"gte=0,lte=100"`
}

// ToFilter selects the user's bookings, optionally narrowed to one status.
func (l *ListBookingsRequest) ToFilter(userID string) gDto.FilterGroup {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldUserID,
				Operator: gDto.FilterOperatorEq,
				Value:    userID,
				Table:    model.TableName,
			},
		},
	}

	if l.Status != constant.Empty {
		filter.Filters = append(filter.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    l.Status,
			Table:    model.TableName,
		})
	}

	return filter
}

// ToQueryParams orders by window start, newest first, one page of the requested size.
func (l *ListBookingsRequest) ToQueryParams() gDto.QueryParams {
	limit := l.Limit
	if limit <= 0 {
		limit = constant.DefaultBookingListLimit
	}

	return gDto.QueryParams{
		Page:    l.Page,
		Limit:   limit,
		SortBy:  model.TableName + "." + model.FieldStartTime,
		SortDir: gDto.SortDirDesc,
	}
}

type PaymentResponse struct {
	Provider        *string `json:"provider"`
	ClientSecret    *string `json:"clientSecret"`
	PaymentIntentID *string `json:"paymentIntentId"`
	Status          *string `json:"status"`
}

type BookingResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	LotID      string          `json:"lotId"`
	SlotID     string          `json:"slotId"`
	Status     string          `json:"status"`
	StartTime  string          `json:"startTime"`
	EndTime    string          `json:"endTime"`
	TotalPrice float64         `json:"totalPrice"`
	Currency   string          `json:"currency"`
	QRCode     string          `json:"qrCode"`
	Payment    PaymentResponse `json:"payment"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.LotID = model.LotID
	r.SlotID = model.SlotID
	r.Status = model.Status
	r.StartTime = timezone.Format(model.StartTime, constant.DateFormat)
	r.EndTime = timezone.Format(model.EndTime, constant.DateFormat)
	r.TotalPrice = model.TotalPrice
	r.Currency = model.Currency
	r.QRCode = model.QRCode
	r.Payment = PaymentResponse{
		Provider:        model.Payment.Provider,
		ClientSecret:    model.Payment.ClientSecret,
		PaymentIntentID: model.Payment.IntentID,
		Status:          model.Payment.Status,
	}
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking) {
	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
