package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"parking/config"
	"parking/infras/otel/mocks"
	s3Mocks "parking/infras/s3/mocks"
	"parking/infras/stripe"
	stripeMocks "parking/infras/stripe/mocks"
	"parking/internal/domains/booking/event"
	bookingMocks "parking/internal/domains/booking/mocks"
	bookingModel "parking/internal/domains/booking/model"
	"parking/internal/domains/payment/model/dto"
	"parking/internal/domains/payment/service"
	cacheMocks "parking/shared/cache/mocks"
	"parking/shared/failure"
	gRepo "parking/shared/repository"
	repoMocks "parking/shared/repository/mocks"
)

type fixture struct {
	bookings  *bookingMocks.MockBooking
	tx        *repoMocks.MockTransactor
	provider  *stripeMocks.MockProvider
	archive   *s3Mocks.MockS3
	publisher *bookingMocks.MockPublisher
	cache     *cacheMocks.MockRedisCache
	cfg       *config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Payments.Enabled = true
	cfg.Payments.DefaultCurrency = "usd"

	f := fixture{
		bookings:  bookingMocks.NewMockBooking(ctrl),
		tx:        repoMocks.NewMockTransactor(ctrl),
		provider:  stripeMocks.NewMockProvider(ctrl),
		archive:   s3Mocks.NewMockS3(ctrl),
		publisher: bookingMocks.NewMockPublisher(ctrl),
		cache:     cacheMocks.NewMockRedisCache(ctrl),
		cfg:       cfg,
	}

	f.tx.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn gRepo.TxFunc) error {
			return fn(ctx, nil)
		}).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.provider.EXPECT().Name().Return(stripe.ProviderName).AnyTimes()

	return f
}

func (f fixture) service() service.Payment {
	return service.New(f.bookings, f.tx, f.provider, f.archive, f.publisher, f.cfg, f.cache, mocks.NewOtel())
}

func ptr[T any](v T) *T {
	return &v
}

func TestPaymentService_CreateIntent(t *testing.T) {
	amount := 1250.4

	tests := []struct {
		name      string
		disabled  bool
		setupMock func(f fixture)
		wantCode  int
		wantMsg   string
		wantID    string
	}{
		{
			name:     "payments disabled",
			disabled: true,
			wantCode: http.StatusServiceUnavailable,
			wantMsg:  "payments_disabled",
		},
		{
			name: "unknown booking",
			setupMock: func(f fixture) {
				f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(bookingModel.Booking{}, nil)
			},
			wantCode: http.StatusNotFound,
			wantMsg:  "booking_not_found",
		},
		{
			name: "already paid returns the stored intent without calling the provider",
			setupMock: func(f fixture) {
				f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(bookingModel.Booking{
					ID: "b-1",
					Payment: bookingModel.Payment{
						IntentID:     ptr("pi_old"),
						ClientSecret: ptr("secret_old"),
						Status:       ptr(bookingModel.PaymentStatusSucceeded),
					},
				}, nil)
				f.provider.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).Times(0)
			},
			wantID: "pi_old",
		},
		{
			name: "creates a rounded intent and stores it",
			setupMock: func(f fixture) {
				booking := bookingModel.Booking{ID: "b-1", CustomerEmail: ptr("driver@example.com")}

				f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(booking, nil)
				f.provider.EXPECT().CreateIntent(gomock.Any(), stripe.IntentParams{
					BookingID:    "b-1",
					Amount:       1250,
					Currency:     "usd",
					ReceiptEmail: "driver@example.com",
				}).Return(stripe.Intent{ID: "pi_1", ClientSecret: "secret_1", Status: "requires_payment_method"}, nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(booking, nil)
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ any, req map[string]any, _ any) error {
						assert.Equal(t, ptr("pi_1"), req[bookingModel.FieldPaymentIntentID])
						assert.Equal(t, ptr(stripe.ProviderName), req[bookingModel.FieldPaymentProvider])

						return nil
					})
				f.publisher.EXPECT().Publish(gomock.Any(), event.TypePaymentUpdated, gomock.Any())
			},
			wantID: "pi_1",
		},
		{
			name: "a new intent keeps the ordering watermark of applied events",
			setupMock: func(f fixture) {
				watermark := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
				stored := bookingModel.Booking{
					ID: "b-1",
					Payment: bookingModel.Payment{
						IntentID:       ptr("pi_canceled"),
						Status:         ptr("canceled"),
						EventCreatedAt: &watermark,
					},
				}

				f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)
				f.provider.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).
					Return(stripe.Intent{ID: "pi_2", ClientSecret: "secret_2", Status: "requires_payment_method"}, nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(stored, nil)
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ any, req map[string]any, _ any) error {
						kept, ok := req[bookingModel.FieldPaymentEventCreatedAt].(*time.Time)
						require.True(t, ok)
						require.NotNil(t, kept)
						assert.True(t, kept.Equal(watermark))

						staleEvent := watermark.Add(-time.Hour)
						current := bookingModel.Payment{Status: req[bookingModel.FieldPaymentStatus].(*string), EventCreatedAt: kept}
						assert.False(t, current.Accepts("requires_payment_method", staleEvent))

						return nil
					})
				f.publisher.EXPECT().Publish(gomock.Any(), event.TypePaymentUpdated, gomock.Any())
			},
			wantID: "pi_2",
		},
		{
			name: "provider failure",
			setupMock: func(f fixture) {
				f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(bookingModel.Booking{ID: "b-1"}, nil)
				f.provider.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).Return(stripe.Intent{}, errors.New("card network down"))
			},
			wantCode: http.StatusBadGateway,
			wantMsg:  "payment_intent_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.Payments.Enabled = !tt.disabled

			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			res, err := f.service().CreateIntent(context.Background(), dto.CreateIntentRequest{BookingID: "b-1", Amount: &amount})

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Equal(t, tt.wantMsg, failure.GetMessage(err))

				return
			}

			require.NoError(t, err)
			require.NotNil(t, res.PaymentIntentID)
			assert.Equal(t, tt.wantID, *res.PaymentIntentID)
		})
	}
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	evt := stripe.Event{
		ID:        "evt_1",
		Type:      "payment_intent.succeeded",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		BookingID: "b-1",
		IntentID:  "pi_1",
		Status:    bookingModel.PaymentStatusSucceeded,
	}

	tests := []struct {
		name      string
		disabled  bool
		setupMock func(f fixture)
		wantCode  int
		wantMsg   string
	}{
		{
			name:     "payments disabled",
			disabled: true,
			wantCode: http.StatusServiceUnavailable,
			wantMsg:  "payments_disabled",
		},
		{
			name: "bad signature",
			setupMock: func(f fixture) {
				f.provider.EXPECT().ParseEvent(gomock.Any(), "sig").
					Return(stripe.Event{}, fmt.Errorf("%w: mismatch", stripe.ErrSignature))
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid_signature",
		},
		{
			name: "verified event is archived and applied",
			setupMock: func(f fixture) {
				f.provider.EXPECT().ParseEvent([]byte("{}"), "sig").Return(evt, nil)
				f.archive.EXPECT().Enabled().Return(true)
				f.archive.EXPECT().PutObject(gomock.Any(), "payment-events/b-1", "evt_1.json", "application/json", []byte("{}")).
					Return("payment-events/b-1/evt_1.json", nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(bookingModel.Booking{ID: "b-1"}, nil)
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.publisher.EXPECT().Publish(gomock.Any(), event.TypePaymentUpdated, gomock.Any())
			},
		},
		{
			name: "archive failure does not block reconciliation",
			setupMock: func(f fixture) {
				f.provider.EXPECT().ParseEvent(gomock.Any(), gomock.Any()).Return(evt, nil)
				f.archive.EXPECT().Enabled().Return(true)
				f.archive.EXPECT().PutObject(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", errors.New("bucket gone"))
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(bookingModel.Booking{ID: "b-1"}, nil)
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.publisher.EXPECT().Publish(gomock.Any(), event.TypePaymentUpdated, gomock.Any())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.Payments.Enabled = !tt.disabled

			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			err := f.service().HandleWebhook(context.Background(), []byte("{}"), "sig")

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Equal(t, tt.wantMsg, failure.GetMessage(err))

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestPaymentService_HandleProviderEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		evt        stripe.Event
		stored     bookingModel.Booking
		wantUpdate bool
		wantStatus string
	}{
		{
			name: "no booking reference",
			evt:  stripe.Event{ID: "evt_1", Status: "succeeded", CreatedAt: at},
		},
		{
			name:   "unknown booking",
			evt:    stripe.Event{ID: "evt_1", BookingID: "b-1", Status: "succeeded", CreatedAt: at},
			stored: bookingModel.Booking{},
		},
		{
			name:       "first event",
			evt:        stripe.Event{ID: "evt_1", BookingID: "b-1", IntentID: "pi_1", Status: "processing", CreatedAt: at},
			stored:     bookingModel.Booking{ID: "b-1"},
			wantUpdate: true,
			wantStatus: "processing",
		},
		{
			name: "late processing after succeeded is ignored",
			evt:  stripe.Event{ID: "evt_1", BookingID: "b-1", IntentID: "pi_1", Status: "processing", CreatedAt: at.Add(time.Minute)},
			stored: bookingModel.Booking{ID: "b-1", Payment: bookingModel.Payment{
				Status:         ptr(bookingModel.PaymentStatusSucceeded),
				EventCreatedAt: ptr(at),
			}},
		},
		{
			name: "out of order older event is ignored",
			evt:  stripe.Event{ID: "evt_0", BookingID: "b-1", IntentID: "pi_1", Status: "requires_action", CreatedAt: at.Add(-time.Minute)},
			stored: bookingModel.Booking{ID: "b-1", Payment: bookingModel.Payment{
				Status:         ptr("processing"),
				EventCreatedAt: ptr(at),
			}},
		},
		{
			name: "redelivered succeeded is applied again with the same result",
			evt:  stripe.Event{ID: "evt_2", BookingID: "b-1", IntentID: "pi_1", Status: "succeeded", CreatedAt: at},
			stored: bookingModel.Booking{ID: "b-1", Payment: bookingModel.Payment{
				IntentID:       ptr("pi_1"),
				ClientSecret:   ptr("secret_1"),
				Status:         ptr(bookingModel.PaymentStatusSucceeded),
				EventCreatedAt: ptr(at),
			}},
			wantUpdate: true,
			wantStatus: bookingModel.PaymentStatusSucceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if tt.evt.BookingID != "" {
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(tt.stored, nil)
			}

			if tt.wantUpdate {
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ any, req map[string]any, _ any) error {
						status, _ := req[bookingModel.FieldPaymentStatus].(*string)
						require.NotNil(t, status)
						assert.Equal(t, tt.wantStatus, *status)

						secret, _ := req[bookingModel.FieldPaymentClientSecret].(*string)
						if tt.stored.Payment.ClientSecret != nil {
							require.NotNil(t, secret)
							assert.Equal(t, *tt.stored.Payment.ClientSecret, *secret)
						}

						return nil
					})
				f.publisher.EXPECT().Publish(gomock.Any(), event.TypePaymentUpdated, gomock.Any())
			} else {
				f.bookings.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			}

			require.NoError(t, f.service().HandleProviderEvent(context.Background(), tt.evt))
		})
	}
}
