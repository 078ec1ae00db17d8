package models

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tg-planner/backend/internal/analytics"
)

// TestTimestampFormats проверяет разбор даты из разных представлений.
func TestTimestampFormats(t *testing.T) {
	want := time.Date(2024, time.January, 15, 7, 0, 0, 0, time.UTC)

	cases := map[string]string{
		"millis":         `1705302000000`,
		"millis string":  `"1705302000000"`,
		"rfc3339":        `"2024-01-15T10:00:00+03:00"`,
		"rfc3339 millis": `"2024-01-15T07:00:00.000Z"`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts))
			assert.True(t, want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

// TestTimestampInvalid проверяет, что битая дата становится нулевой без ошибки.
func TestTimestampInvalid(t *testing.T) {
	for _, raw := range []string{`null`, `"yesterday"`, `{}`, `-5`, `""`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts))
		assert.True(t, ts.IsZero(), raw)
	}

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

// TestTimestampDateOnly проверяет, что дата без времени относится к дню в поясе пользователя.
func TestTimestampDateOnly(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01"`), &ts))
	require.True(t, ts.DateOnly)

	local := ts.At(newYork)
	assert.Equal(t, "2024-03-01", local.Format("2006-01-02"))
	assert.Equal(t, newYork, local.Location())

	march := analytics.Resolve(analytics.PeriodMonth, "", "", time.Date(2024, time.March, 15, 12, 0, 0, 0, newYork))
	day := analytics.Resolve(analytics.PeriodDate, "2024-03-01", "2024-03-01", time.Date(2024, time.March, 15, 12, 0, 0, 0, newYork))
	february := analytics.Resolve(analytics.PeriodDate, "2024-02-29", "2024-02-29", time.Date(2024, time.March, 15, 12, 0, 0, 0, newYork))

	records := []Transaction{{ID: "1", Date: ts}}
	assert.Len(t, analytics.FilterByRange(records, march), 1)
	assert.Len(t, analytics.FilterByRange(records, day), 1)
	assert.Empty(t, analytics.FilterByRange(records, february))

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(out))

	var withTime Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T02:00:00Z"`), &withTime))
	assert.False(t, withTime.DateOnly)
	assert.Equal(t, "2024-02-29", withTime.At(newYork).In(newYork).Format("2006-01-02"))
}

// TestAmountDecoding проверяет разбор сумм из чисел и строк.
func TestAmountDecoding(t *testing.T) {
	cases := map[string]struct {
		raw   string
		valid bool
		want  string
	}{
		"number":       {`150.75`, true, "150.75"},
		"string":       {`"99.5"`, true, "99.5"},
		"comma string": {`"10,25"`, true, "10.25"},
		"garbage":      {`"abc"`, false, ""},
		"null":         {`null`, false, ""},
		"bool":         {`true`, false, ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &a))
			assert.Equal(t, tc.valid, a.Valid)
			if tc.valid {
				assert.True(t, a.Decimal.Equal(decimal.RequireFromString(tc.want)))
			}
		})
	}
}

// TestDecodeListSkipsBrokenRecords проверяет пропуск нечитаемых элементов документа.
func TestDecodeListSkipsBrokenRecords(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": 1, "type": "expense", "amount": 100, "category": "Food", "date": 1705302000000},
		"not an object",
		{"id": "b", "type": "Income", "amount": "oops", "category": "Salary", "date": "garbage"}
	]`)

	list, err := DecodeList[Transaction](raw)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, ID("1"), list[0].ID)
	entry := list[0].Entry(time.UTC)
	assert.Equal(t, analytics.KindExpense, entry.Kind)
	assert.True(t, entry.Amount.Valid)

	second := list[1].Entry(time.UTC)
	assert.Equal(t, analytics.KindIncome, second.Kind)
	assert.False(t, second.Amount.Valid)
	assert.True(t, second.Date.IsZero())

	empty, err := DecodeList[Transaction](nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeList[Transaction](json.RawMessage(`{"a":1}`))
	assert.Error(t, err)
}

// TestMatrixTaskQuadrant проверяет определение квадранта по тегу и флагам.
func TestMatrixTaskQuadrant(t *testing.T) {
	yes, no := true, false

	q, ok := MatrixTask{Quadrant: "q3"}.QuadrantOf()
	require.True(t, ok)
	assert.Equal(t, analytics.QuadrantDelegate, q)

	q, ok = MatrixTask{Important: &yes, Urgent: &no}.QuadrantOf()
	require.True(t, ok)
	assert.Equal(t, analytics.QuadrantSchedule, q)

	_, ok = MatrixTask{Important: &yes}.QuadrantOf()
	assert.False(t, ok)
}
