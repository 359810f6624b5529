package shared

import (
	"context"
	"fmt"
	"parking/shared/constant"
	"parking/shared/dto"
	"parking/shared/timezone"
	"reflect"
	"slices"
	"strconv"
)

// ParseOptionalBool reads a query flag. An empty value means the flag was not given.
func ParseOptionalBool(value string) (*bool, error) {
	if value == constant.Empty {
		return nil, nil //nolint:nilnil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean %q: %w", value, err)
	}

	return &parsed, nil
}

// TransformFields maps the non-zero db-tagged fields of a request struct to column updates and
// stamps the modification audit columns. Pointer fields are written through their value, so a
// pointer to false still updates the column.
func TransformFields(data any, actor string) map[string]any {
	val := reflect.Indirect(reflect.ValueOf(data))
	typ := val.Type()

	updatedFields := make(map[string]any)

	for index := range val.NumField() {
		column := typ.Field(index).Tag.Get("db")
		if column == constant.Empty || column == "-" {
			continue
		}

		field := val.Field(index)
		if field.IsZero() {
			continue
		}

		if field.Kind() == reflect.Pointer {
			field = field.Elem()
		}

		updatedFields[column] = field.Interface()
	}

	updatedFields[constant.FieldModifiedAt] = timezone.Now()
	updatedFields[constant.FieldModifiedBy] = actor

	return updatedFields
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// UserFromContext returns the authenticated user id and roles stored by the auth middleware.
func UserFromContext(ctx context.Context) (string, []string) {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	roles, _ := ctx.Value(constant.ContextKeyUserRoles).([]string)

	return userID, roles
}

func IsAdmin(roles []string) bool {
	return slices.Contains(roles, constant.RoleAdmin)
}
