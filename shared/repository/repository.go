package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"parking/infras/otel"
	"parking/infras/postgres"
	"parking/shared/constant"
	"parking/shared/dto"
	"parking/shared/logger"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

const incrementDeltaArg = "increment_delta"

var errRequiredFilter = errors.New("required filter")

type namedPreparer interface {
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
}

// Repository is the table gateway shared by the domain repositories. Reads go to the read
// pool; writes only happen through a transaction handed in by the caller.
type Repository[T any] struct {
	db      *postgres.Connection
	otel    otel.Otel
	table   string
	entity  string
	primary string
	columns []string
}

func NewRepository[T any](entityName, tableName, primaryColumn string, dbConnection *postgres.Connection, otl otel.Otel) Repository[T] {
	var zero T

	return Repository[T]{
		db:      dbConnection,
		otel:    otl,
		table:   tableName,
		entity:  entityName,
		primary: primaryColumn,
		columns: dbColumns(reflect.TypeOf(zero)),
	}
}

func (repo *Repository[T]) scope(ctx context.Context, operation string) (context.Context, otel.Scope) {
	return repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+repo.entity+"."+operation)
}

func (repo *Repository[T]) fail(scope otel.Scope, action string, err error) error {
	logger.ErrorWithStack(err)
	scope.TraceError(err)

	return fmt.Errorf("failed to %s (%s): %w", action, repo.entity, err)
}

func (repo *Repository[T]) InsertTx(ctx context.Context, sqltx *sqlx.Tx, model T) error {
	ctx, scope := repo.scope(ctx, "InsertTx")
	defer scope.End()

	placeholders := make([]string, len(repo.columns))
	for i, col := range repo.columns {
		placeholders[i] = ":" + col
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", repo.table, strings.Join(repo.columns, ", "), strings.Join(placeholders, ", "))
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err := sqltx.NamedExecContext(ctx, query, model); err != nil {
		// Unique violations are expected outcomes for the caller, keep them out of the error log.
		if IsUniqueViolation(err) {
			return fmt.Errorf("failed to insert data (%s): %w", repo.entity, err)
		}

		return repo.fail(scope, "insert data", err)
	}

	return nil
}

// Get returns the zero value when nothing matches.
func (repo *Repository[T]) Get(ctx context.Context, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.scope(ctx, "Get")
	defer scope.End()

	where, args := whereClause(filter)
	query := fmt.Sprintf("SELECT %s FROM %s%s", repo.selectList(columns), repo.table, where)

	return repo.getOne(ctx, scope, repo.db.Read, query, args)
}

// GetTx reads a single row inside sqltx. With forUpdate the row stays locked until the transaction ends.
func (repo *Repository[T]) GetTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup, forUpdate bool, columns ...string) (T, error) {
	ctx, scope := repo.scope(ctx, "GetTx")
	defer scope.End()

	where, args := whereClause(filter)
	if where == "" {
		var zero T

		return zero, errRequiredFilter
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", repo.selectList(columns), repo.table, where)
	if forUpdate {
		query += " FOR UPDATE"
	}

	return repo.getOne(ctx, scope, sqltx, query, args)
}

func (repo *Repository[T]) getOne(ctx context.Context, scope otel.Scope, db namedPreparer, query string, args map[string]any) (T, error) {
	var model T

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	stmt, err := db.PrepareNamedContext(ctx, query)
	if err != nil {
		return model, repo.fail(scope, "prepare statement", err)
	}
	defer stmt.Close()

	err = stmt.GetContext(ctx, &model, args)
	if errors.Is(err, sql.ErrNoRows) {
		return model, nil
	}

	if err != nil {
		return model, repo.fail(scope, "get data", err)
	}

	return model, nil
}

func (repo *Repository[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.scope(ctx, "GetAll")
	defer scope.End()

	where, args := whereClause(filter)

	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s%s", repo.selectList(columns), repo.table, where)

	if params.SortBy != "" {
		dir := dto.SortDirAsc
		if params.SortDir == dto.SortDirDesc {
			dir = dto.SortDirDesc
		}

		fmt.Fprintf(&b, " ORDER BY %s %s", params.SortBy, dir)
	}

	if params.Limit > 0 {
		args["limit"] = params.Limit
		b.WriteString(" LIMIT :limit")

		if offset := params.Offset(); offset > 0 {
			args["offset"] = offset
			b.WriteString(" OFFSET :offset")
		}
	}

	query := b.String()
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	models := []T{}

	stmt, err := repo.db.Read.PrepareNamedContext(ctx, query)
	if err != nil {
		return models, repo.fail(scope, "prepare statement", err)
	}
	defer stmt.Close()

	if err = stmt.SelectContext(ctx, &models, args); err != nil {
		return models, repo.fail(scope, "get all data", err)
	}

	return models, nil
}

func (repo *Repository[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.scope(ctx, "Count")
	defer scope.End()

	where, args := whereClause(filter)

	query := fmt.Sprintf("SELECT COUNT(%s.%s) FROM %s%s", repo.table, repo.primary, repo.table, where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var count int

	stmt, err := repo.db.Read.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, repo.fail(scope, "prepare statement", err)
	}
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &count, args); err != nil {
		return 0, repo.fail(scope, "count data", err)
	}

	return count, nil
}

func (repo *Repository[T]) UpdateTx(ctx context.Context, sqltx *sqlx.Tx, mod map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, "UpdateTx")
	defer scope.End()

	return repo.exec(ctx, scope, sqltx, assignments(mod), mod, filter)
}

// IncrementTx applies a relative change to a numeric column, e.g. "available_slots = available_slots + :delta".
func (repo *Repository[T]) IncrementTx(ctx context.Context, sqltx *sqlx.Tx, column string, delta int, extra map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, "IncrementTx")
	defer scope.End()

	set := append([]string{fmt.Sprintf("%s = %s + :%s", column, column, incrementDeltaArg)}, assignments(extra)...)

	values := maps.Clone(extra)
	if values == nil {
		values = map[string]any{}
	}

	values[incrementDeltaArg] = delta

	return repo.exec(ctx, scope, sqltx, set, values, filter)
}

func (repo *Repository[T]) exec(ctx context.Context, scope otel.Scope, sqltx *sqlx.Tx, set []string, values map[string]any, filter dto.FilterGroup) error {
	where, args := whereClause(filter)
	if where == "" {
		return errRequiredFilter
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s", repo.table, strings.Join(set, ", "), where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	maps.Copy(args, values)

	if _, err := sqltx.NamedExecContext(ctx, query, args); err != nil {
		return repo.fail(scope, "update data", err)
	}

	return nil
}

func (repo *Repository[T]) selectList(only []string) string {
	columns := make([]string, 0, len(repo.columns))

	for _, col := range repo.columns {
		if len(only) > 0 && !slices.Contains(only, col) {
			continue
		}

		columns = append(columns, repo.table+"."+col)
	}

	return strings.Join(columns, ", ")
}

// assignments renders "col = :col" pairs in a stable order so the same update yields the same query.
func assignments(values map[string]any) []string {
	set := make([]string, 0, len(values))
	for col := range values {
		set = append(set, fmt.Sprintf("%s = :%s", col, col))
	}

	sort.Strings(set)

	return set
}

func whereClause(filter dto.FilterGroup) (string, map[string]any) {
	where, args := filter.GetWhereClause()
	if args == nil {
		args = map[string]any{}
	}

	if where == "" {
		return "", args
	}

	return " WHERE " + where, args
}

// dbColumns lists the db tags of t, descending into embedded structs.
func dbColumns(t reflect.Type) []string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var columns []string

	for i := range t.NumField() {
		field := t.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			columns = append(columns, dbColumns(field.Type)...)

			continue
		}

		if tag := field.Tag.Get("db"); tag != "" && tag != "-" {
			columns = append(columns, tag)
		}
	}

	return columns
}
