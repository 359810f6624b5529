package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"parking/config"
	"parking/infras/otel/mocks"
	bookingMocks "parking/internal/domains/booking/mocks"
	bookingModel "parking/internal/domains/booking/model"
	lotMocks "parking/internal/domains/lot/mocks"
	lotModel "parking/internal/domains/lot/model"
	slotMocks "parking/internal/domains/slot/mocks"
	"parking/internal/domains/slot/model"
	"parking/internal/domains/slot/model/dto"
	"parking/internal/domains/slot/service"
	cacheMocks "parking/shared/cache/mocks"
	"parking/shared/failure"
	gRepo "parking/shared/repository"
	repoMocks "parking/shared/repository/mocks"
)

type fixture struct {
	slots    *slotMocks.MockSlot
	lots     *lotMocks.MockLot
	bookings *bookingMocks.MockBooking
	tx       *repoMocks.MockTransactor
	cache    *cacheMocks.MockRedisCache
	svc      service.Slot
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixture{
		slots:    slotMocks.NewMockSlot(ctrl),
		lots:     lotMocks.NewMockLot(ctrl),
		bookings: bookingMocks.NewMockBooking(ctrl),
		tx:       repoMocks.NewMockTransactor(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
	}

	f.svc = service.New(f.slots, f.lots, f.bookings, f.tx, &config.Config{}, f.cache, mocks.NewOtel())

	f.tx.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn gRepo.TxFunc) error {
			return fn(ctx, nil)
		}).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return f
}

func TestSlotService_List(t *testing.T) {
	f := newFixture(t)

	available := true

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))
	f.slots.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.Slot{{ID: "A1", LotID: "lot-1", Level: "1", IsAvailable: true}}, nil)

	res, err := f.svc.List(context.Background(), "lot-1", dto.ListSlotsRequest{IsAvailable: &available, Level: "1"})
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "A1", res.Slots[0].ID)
}

func TestSlotService_Upsert(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(f fixture)
		wantCode  int
	}{
		{
			name: "new slot is available and grows the lot counter",
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.Slot{}, nil)
				f.lots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(lotModel.Lot{ID: "lot-1"}, nil)
				f.slots.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ any, slot model.Slot) error {
						assert.True(t, slot.IsAvailable)
						assert.Equal(t, "lot-1", slot.LotID)

						return nil
					})
				f.lots.EXPECT().AdjustAvailableSlotsTx(gomock.Any(), gomock.Any(), "lot-1", 1).Return(nil)
			},
		},
		{
			name: "existing slot only changes level",
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.Slot{ID: "A1", LotID: "lot-1", Level: "1", IsAvailable: false}, nil)
				f.slots.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "unknown lot",
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.Slot{}, nil)
				f.lots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(lotModel.Lot{}, nil)
			},
			wantCode: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			res, err := f.svc.Upsert(context.Background(), "lot-1", "A1", dto.UpsertSlotRequest{Level: "2"})

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "2", res.Level)
		})
	}
}

func TestSlotService_SetAvailability(t *testing.T) {
	tests := []struct {
		name        string
		isAvailable bool
		setupMock   func(f fixture)
		wantCode    int
		wantMessage string
	}{
		{
			name:        "take free slot out of service",
			isAvailable: false,
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.Slot{ID: "A1", LotID: "lot-1", IsAvailable: true}, nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(bookingModel.Booking{}, nil)
				f.slots.EXPECT().SetAvailabilityTx(gomock.Any(), gomock.Any(), "lot-1", "A1", false).Return(nil)
				f.lots.EXPECT().AdjustAvailableSlotsTx(gomock.Any(), gomock.Any(), "lot-1", -1).Return(nil)
			},
		},
		{
			name:        "unchanged availability is a no-op",
			isAvailable: true,
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.Slot{ID: "A1", LotID: "lot-1", IsAvailable: true}, nil)
			},
		},
		{
			name:        "slot held by a booking cannot be released",
			isAvailable: true,
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.Slot{ID: "A1", LotID: "lot-1", IsAvailable: false}, nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), false).
					Return(bookingModel.Booking{ID: "b-1", Status: bookingModel.StatusConfirmed}, nil)
			},
			wantCode:    409,
			wantMessage: "slot_has_active_booking",
		},
		{
			name:        "unknown slot",
			isAvailable: true,
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.Slot{}, nil)
			},
			wantCode:    404,
			wantMessage: "slot_not_found",
		},
		{
			name:        "counter update failure",
			isAvailable: true,
			setupMock: func(f fixture) {
				f.slots.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.Slot{ID: "A1", LotID: "lot-1", IsAvailable: false}, nil)
				f.bookings.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(bookingModel.Booking{}, nil)
				f.slots.EXPECT().SetAvailabilityTx(gomock.Any(), gomock.Any(), "lot-1", "A1", true).Return(nil)
				f.lots.EXPECT().AdjustAvailableSlotsTx(gomock.Any(), gomock.Any(), "lot-1", 1).Return(errors.New("database error"))
			},
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			res, err := f.svc.SetAvailability(context.Background(), "lot-1", "A1", tt.isAvailable)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				if tt.wantMessage != "" {
					assert.Equal(t, tt.wantMessage, failure.GetMessage(err))
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.isAvailable, res.IsAvailable)
		})
	}
}
