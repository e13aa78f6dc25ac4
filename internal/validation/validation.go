// Package validation содержит функции разбора и проверки входных данных.
package validation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseID разбирает идентификатор из пути запроса. Строка целиком должна быть целым числом:
// "1abc" и "12.7" отклоняются, а не усекаются до числового префикса.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseAuthorID разбирает author_id из тела запроса, декодированного с UseNumber:
// целое число JSON или строку с целым числом.
func ParseAuthorID(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		return ParseID(val.String())
	case string:
		return ParseID(val)
	default:
		return 0, false
	}
}

// ParseAmount разбирает сумму вывода: неотрицательное целое число JSON или строку с таким числом.
func ParseAmount(v any) (int64, bool) {
	var raw string
	switch val := v.(type) {
	case json.Number:
		raw = val.String()
	case string:
		raw = strings.TrimSpace(val)
	default:
		return 0, false
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	if d.IsNegative() || !d.IsInteger() || !d.BigInt().IsInt64() {
		return 0, false
	}

	return d.IntPart(), true
}
