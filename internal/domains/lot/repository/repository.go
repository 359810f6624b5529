package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"parking/infras/otel"
	"parking/infras/postgres"
	"parking/internal/domains/lot/model"
	"parking/shared"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	gRepo "parking/shared/repository"
	"parking/shared/timezone"

	"github.com/jmoiron/sqlx"
)

type Lot interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Lot, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Lot, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, forUpdate bool, columns ...string) (model.Lot, error)
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Lot) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	AdjustAvailableSlotsTx(ctx context.Context, sqltx *sqlx.Tx, lotID string, delta int) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Lot]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Lot {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Lot](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// AdjustAvailableSlotsTx moves the lot counter by delta relative to its current value.
func (r *repositoryImpl) AdjustAvailableSlotsTx(ctx context.Context, sqltx *sqlx.Tx, lotID string, delta int) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".lot.AdjustAvailableSlotsTx")
	defer scope.End()

	return r.IncrementTx( //nolint:wrapcheck
		ctx,
		sqltx,
		model.FieldAvailableSlots,
		delta,
		map[string]any{constant.FieldModifiedAt: timezone.Now()},
		shared.FilterByID(lotID, model.FieldID, model.TableName),
	)
}
