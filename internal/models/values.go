package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// ID идентификатор записи клиента: строка или число.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

const dateOnlyLayout = "2006-01-02"

// Timestamp момент времени, хранящийся как epoch-миллисекунды.
// Нечитаемое значение превращается в нулевое время, а не в ошибку.
type Timestamp struct {
	time.Time
	// DateOnly календарный день без времени ("2024-03-01").
	// Time тогда хранит этот день в UTC, а в поясе пользователя его дает At.
	DateOnly bool
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// NewDate создает календарную дату без времени.
func NewDate(y int, m time.Month, d int) Timestamp {
	return Timestamp{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), DateOnly: true}
}

// At возвращает момент в поясе loc. Дата без времени привязывается
// к полудню того же календарного дня, чтобы перевод часов не сдвигал ее.
func (ts Timestamp) At(loc *time.Location) time.Time {
	if ts.IsZero() || !ts.DateOnly {
		return ts.Time
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.Time, ts.DateOnly = parseTimestamp(bytes.TrimSpace(data))
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return jsonNull, nil
	}
	if ts.DateOnly {
		return json.Marshal(ts.Format(dateOnlyLayout))
	}
	return []byte(strconv.FormatInt(ts.UnixMilli(), 10)), nil
}

func parseTimestamp(data []byte) (time.Time, bool) {
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return time.Time{}, false
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return fromMillis(n.String()), false
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, false
	}

	s = strings.TrimSpace(s)
	if t := fromMillis(s); !t.IsZero() {
		return t, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func fromMillis(raw string) time.Time {
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

// Amount денежная сумма; Valid=false, если значение не разобралось.
type Amount struct {
	decimal.NullDecimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{NullDecimal: decimal.NullDecimal{Decimal: d, Valid: true}}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	a.NullDecimal = decimal.NullDecimal{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	a.NullDecimal = decimal.NullDecimal{Decimal: d, Valid: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return jsonNull, nil
	}
	return []byte(a.Decimal.String()), nil
}

// DecodeList разбирает документ-массив, пропуская нечитаемые элементы.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return []T{}, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(elements))
	for _, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
