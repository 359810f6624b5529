package model

import (
	gDto "parking/shared/dto"
	"parking/shared/model"
	"time"
)

const (
	TableName  = "slots"
	EntityName = "slot"

	FieldID                 = "id"
	FieldLotID              = "lot_id"
	FieldLevel              = "level"
	FieldIsAvailable        = "is_available"
	FieldLastStatusChangeAt = "last_status_change_at"
)

// Slot is identified by its id within a lot.
type Slot struct {
	ID                 string    `db:"id"`
	LotID              string    `db:"lot_id"`
	Level              string    `db:"level"`
	IsAvailable        bool      `db:"is_available"`
	LastStatusChangeAt time.Time `db:"last_status_change_at"`
	model.Metadata
}

// FilterByKey selects a single slot of a lot.
func FilterByKey(lotID, slotID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				ArgName:  "slot_lot_id",
				Field:    FieldLotID,
				Value:    lotID,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
			gDto.Filter{
				ArgName:  "slot_id",
				Field:    FieldID,
				Value:    slotID,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}
