package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"parking/infras/otel"
	"parking/infras/postgres"
	"parking/internal/domains/slot/model"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	gRepo "parking/shared/repository"
	"parking/shared/timezone"

	"github.com/jmoiron/sqlx"
)

type Slot interface {
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Slot, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, forUpdate bool, columns ...string) (model.Slot, error)
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Slot) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	SetAvailabilityTx(ctx context.Context, sqltx *sqlx.Tx, lotID, slotID string, isAvailable bool) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Slot]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Slot {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Slot](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// SetAvailabilityTx flips the slot and stamps the change time.
func (r *repositoryImpl) SetAvailabilityTx(ctx context.Context, sqltx *sqlx.Tx, lotID, slotID string, isAvailable bool) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.SetAvailabilityTx")
	defer scope.End()

	now := timezone.Now()

	return r.UpdateTx(ctx, sqltx, map[string]any{ //nolint:wrapcheck
		model.FieldIsAvailable:        isAvailable,
		model.FieldLastStatusChangeAt: now,
		constant.FieldModifiedAt:      now,
	}, model.FilterByKey(lotID, slotID))
}
