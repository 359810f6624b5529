package service_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"parking/config"
	"parking/infras/otel/mocks"
	"parking/infras/postgres"
	"parking/infras/qrtoken"
	"parking/internal/domains/booking/event"
	"parking/internal/domains/booking/model/dto"
	bookingRepo "parking/internal/domains/booking/repository"
	"parking/internal/domains/booking/service"
	lotDto "parking/internal/domains/lot/model/dto"
	lotRepo "parking/internal/domains/lot/repository"
	lotService "parking/internal/domains/lot/service"
	slotDto "parking/internal/domains/slot/model/dto"
	slotRepo "parking/internal/domains/slot/repository"
	slotService "parking/internal/domains/slot/service"
	"parking/migrations"
	"parking/shared/cache"
	cacheMocks "parking/shared/cache/mocks"
	"parking/shared/constant"
	"parking/shared/failure"
	gRepo "parking/shared/repository"
)

const integrationDSN = "TEST_POSTGRES_DSN"

type engine struct {
	db       *sqlx.DB
	bookings service.Booking
	lots     lotService.Lot
	slots    slotService.Slot
}

func newEngine(t *testing.T) engine {
	t.Helper()

	dsn := os.Getenv(integrationDSN)
	if dsn == "" {
		t.Skipf("%s not set", integrationDSN)
	}

	source, err := iofs.New(migrations.Postgres, migrations.PostgresDir)
	require.NoError(t, err)

	mig, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	require.NoError(t, err)

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	db := sqlx.MustConnect("postgres", dsn)
	t.Cleanup(func() { _ = db.Close() })

	db.MustExec("TRUNCATE bookings, slots, lots")

	cfg := &config.Config{}
	cfg.DB.Postgres.TxMaxRetry = 10

	conn := &postgres.Connection{Read: db, Write: db}
	ot := mocks.NewOtel()

	redisCache := cacheMocks.NewMockRedisCache(gomock.NewController(t))
	redisCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	redisCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	codec, err := qrtoken.NewWithSecret("integration-secret", 0)
	require.NoError(t, err)

	tx := gRepo.NewTransactor(conn, ot, cfg)
	lots := lotRepo.New(conn, ot)
	slots := slotRepo.New(conn, ot)
	bookings := bookingRepo.New(conn, ot)

	return engine{
		db:       db,
		bookings: service.New(bookings, slots, lots, tx, codec, event.NewPublisher(nil, cfg, ot), cfg, redisCache, ot),
		lots:     lotService.New(lots, tx, cfg, redisCache, ot),
		slots:    slotService.New(slots, lots, bookings, tx, cfg, redisCache, ot),
	}
}

func (e engine) availableSlots(t *testing.T, lotID string) int {
	t.Helper()

	var available int
	require.NoError(t, e.db.Get(&available, "SELECT available_slots FROM lots WHERE id = $1", lotID))

	return available
}

func (e engine) seed(t *testing.T, ctx context.Context, lotID string, slotIDs ...string) {
	t.Helper()

	_, err := e.lots.Upsert(ctx, lotID, lotDto.UpsertLotRequest{Name: "North"})
	require.NoError(t, err)

	for _, slotID := range slotIDs {
		_, err := e.slots.Upsert(ctx, lotID, slotID, slotDto.UpsertSlotRequest{Level: "L1"})
		require.NoError(t, err)
	}
}

func TestIntegration_ConcurrentReserveHoldsSlotOnce(t *testing.T) {
	e := newEngine(t)
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin")

	e.seed(t, ctx, "lot-1", "A1", "A2")
	require.Equal(t, 2, e.availableSlots(t, "lot-1"))

	const contenders = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
		conflicts int
		others    []error
	)

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	price := 10.0

	for i := range contenders {
		wg.Add(1)

		go func(user string) {
			defer wg.Done()

			res, err := e.bookings.Reserve(ctx, user, reserveFor("lot-1", "A1", start, price))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded = append(succeeded, res.ID)
			case failure.GetCode(err) == http.StatusConflict:
				conflicts++
			default:
				others = append(others, err)
			}
		}(string(rune('a' + i)))
	}

	wg.Wait()

	require.Empty(t, others)
	assert.Len(t, succeeded, 1)
	assert.Equal(t, contenders-1, conflicts)
	assert.Equal(t, 1, e.availableSlots(t, "lot-1"))
}

func TestIntegration_LifecycleConservesCounter(t *testing.T) {
	e := newEngine(t)
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin")

	e.seed(t, ctx, "lot-2", "B1")

	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	reserved, err := e.bookings.Reserve(ctx, "u-1", reserveFor("lot-2", "B1", start, 5))
	require.NoError(t, err)
	assert.Equal(t, 0, e.availableSlots(t, "lot-2"))

	_, err = e.bookings.Reserve(ctx, "u-2", reserveFor("lot-2", "B1", start, 5))
	require.Error(t, err)
	assert.Equal(t, "slot_not_available", failure.GetMessage(err))

	checkedIn, err := e.bookings.CheckIn(ctx, checkInFor(reserved.QRCode))
	require.NoError(t, err)
	assert.Equal(t, "in_progress", checkedIn.Status)
	assert.Equal(t, 0, e.availableSlots(t, "lot-2"))

	_, err = e.bookings.Cancel(ctx, "u-1", reserved.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	completed, err := e.bookings.Complete(ctx, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	assert.Equal(t, 1, e.availableSlots(t, "lot-2"))

	again, err := e.bookings.Reserve(ctx, "u-2", reserveFor("lot-2", "B1", start, 5))
	require.NoError(t, err)

	_, err = e.bookings.Cancel(ctx, "u-2", again.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.availableSlots(t, "lot-2"))
}

func reserveFor(lotID, slotID string, start time.Time, price float64) dto.ReserveRequest {
	return dto.ReserveRequest{
		LotID:     lotID,
		SlotID:    slotID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     &price,
	}
}

func checkInFor(token string) dto.CheckInRequest {
	return dto.CheckInRequest{QRToken: token}
}
