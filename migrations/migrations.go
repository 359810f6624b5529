package migrations

import "embed"

// Postgres holds the schema migrations, applied in version order.
//
//go:embed postgres/*.sql
var Postgres embed.FS

const PostgresDir = "postgres"
