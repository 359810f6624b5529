package model

import "parking/shared/model"

const (
	TableName  = "lots"
	EntityName = "lot"

	FieldID             = "id"
	FieldName           = "name"
	FieldAddress        = "address"
	FieldIsActive       = "is_active"
	FieldAvailableSlots = "available_slots"
)

// Lot is a parking facility. AvailableSlots is denormalized and only ever changed
// by relative increments in the same transaction that flips a slot.
type Lot struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Address        string `db:"address"`
	IsActive       bool   `db:"is_active"`
	AvailableSlots int    `db:"available_slots"`
	model.Metadata
}
