package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Dated запись с датой, пригодная для фильтрации по периоду.
// Дата без времени должна относиться к календарному дню в поясе loc.
type Dated interface {
	RecordDate(loc *time.Location) time.Time
}

// Entry нормализованная денежная запись для агрегации.
// Amount невалиден, если исходная сумма не разобралась.
type Entry struct {
	Date     time.Time
	Category string
	Amount   decimal.NullDecimal
	Kind     string
}

func (e Entry) RecordDate(*time.Location) time.Time {
	return e.Date
}

// FilterByRange оставляет записи, дата которых попадает в диапазон.
// Записи без даты отбрасываются, исходный срез не меняется.
func FilterByRange[T Dated](records []T, r DateRange) []T {
	loc := r.Start.Location()
	out := make([]T, 0, len(records))
	for _, record := range records {
		date := record.RecordDate(loc)
		if date.IsZero() {
			continue
		}
		if r.Contains(date) {
			out = append(out, record)
		}
	}
	return out
}
