package analytics

import (
	"github.com/shopspring/decimal"
)

type DayTotal struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// DailyTotals возвращает доходы и расходы по каждому дню диапазона,
// включая дни без записей.
func DailyTotals(entries []Entry, r DateRange) []DayTotal {
	loc := r.Start.Location()
	index := make(map[string]int)
	days := make([]DayTotal, 0, r.Days())
	y, m, d := r.Start.Date()
	for i := range r.Days() {
		key := noon(y, m, d+i, loc).Format(DateLayout)
		index[key] = len(days)
		days = append(days, DayTotal{Date: key, Income: decimal.Zero, Expense: decimal.Zero})
	}

	for _, entry := range FilterByRange(entries, r) {
		if !entry.Amount.Valid {
			continue
		}
		i, ok := index[entry.Date.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		switch entry.Kind {
		case KindIncome:
			days[i].Income = days[i].Income.Add(entry.Amount.Decimal)
		case KindExpense:
			days[i].Expense = days[i].Expense.Add(entry.Amount.Decimal)
		}
	}
	return days
}

type Summary struct {
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	Balance     decimal.Decimal `json:"balance"`
	Count       int             `json:"count"`
	TopCategory string          `json:"top_category,omitempty"`
	TopAmount   decimal.Decimal `json:"top_amount"`
}

// Summarize считает итоги по уже отфильтрованным записям.
func Summarize(entries []Entry) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero, TopAmount: decimal.Zero}
	for _, entry := range entries {
		if !entry.Amount.Valid {
			continue
		}
		switch entry.Kind {
		case KindIncome:
			s.Income = s.Income.Add(entry.Amount.Decimal)
		case KindExpense:
			s.Expense = s.Expense.Add(entry.Amount.Decimal)
		default:
			continue
		}
		s.Count++
	}
	s.Balance = s.Income.Sub(s.Expense)

	if top := SortDescending(GroupByCategory(entries, KindExpense)); len(top) > 0 {
		s.TopCategory = top[0].Category
		s.TopAmount = top[0].Amount
	}
	return s
}

type Completion struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// CompletionOf считает долю выполненных элементов.
func CompletionOf[T any](items []T, done func(T) bool) Completion {
	c := Completion{Total: len(items)}
	for _, item := range items {
		if done(item) {
			c.Completed++
		}
	}
	c.Percentage = PercentageOf(decimal.NewFromInt(int64(c.Completed)), decimal.NewFromInt(int64(c.Total)))
	return c
}
