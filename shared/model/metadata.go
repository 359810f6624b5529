package model

import "time"

// Metadata is the audit trail carried by every stored row. The values are never sent to
// clients as-is; see dto.Metadata.
type Metadata struct {
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
	CreatedBy  string    `db:"created_by"`
	ModifiedBy string    `db:"modified_by"`
}

// Created stamps a new row as written by actor at the given time.
func Created(actor string, at time.Time) Metadata {
	return Metadata{CreatedAt: at, ModifiedAt: at, CreatedBy: actor, ModifiedBy: actor}
}
