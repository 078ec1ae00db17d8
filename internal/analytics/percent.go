package analytics

import (
	"slices"

	"github.com/shopspring/decimal"
)

// NoData значение процента, когда итог равен нулю.
const NoData = -1.0

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// десятые доли процента в целом
const wholeTenths = 1000

// PercentageOf возвращает долю amount от total в процентах.
func PercentageOf(amount, total decimal.Decimal) float64 {
	if total.IsZero() {
		return NoData
	}

	pct, _ := amount.Div(total).Mul(hundred).Float64()
	return pct
}

type Share struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

// Shares считает доли позиций от их общей суммы.
func Shares(items []CategoryAmount) []Share {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}

	shares := make([]Share, 0, len(items))
	for _, item := range items {
		shares = append(shares, Share{
			Category:   item.Category,
			Amount:     item.Amount,
			Percentage: PercentageOf(item.Amount, total),
		})
	}
	return shares
}

// RoundPercent округляет процент до одного знака, сентинел не трогает.
func RoundPercent(pct float64) float64 {
	if pct == NoData {
		return pct
	}
	rounded, _ := decimal.NewFromFloat(pct).Round(1).Float64()
	return rounded
}

// RoundShares округляет доли одного целого до одного знака методом
// наибольшего остатка: округленные значения в сумме дают ровно 100.
// Если среди долей есть NoData, каждая доля округляется отдельно.
func RoundShares(pcts []float64) []float64 {
	out := make([]float64, len(pcts))
	if len(pcts) == 0 {
		return out
	}
	if slices.Contains(pcts, NoData) {
		for i, pct := range pcts {
			out[i] = RoundPercent(pct)
		}
		return out
	}

	type remainder struct {
		index int
		value decimal.Decimal
	}

	tenths := make([]int64, len(pcts))
	rems := make([]remainder, len(pcts))
	var sum int64
	for i, pct := range pcts {
		scaled := decimal.NewFromFloat(pct).Mul(ten)
		floor := scaled.Floor()
		tenths[i] = floor.IntPart()
		rems[i] = remainder{index: i, value: scaled.Sub(floor)}
		sum += tenths[i]
	}

	// при равных остатках добавка достается более ранней доле
	slices.SortStableFunc(rems, func(a, b remainder) int {
		return b.value.Cmp(a.value)
	})
	for k := 0; sum < wholeTenths; k++ {
		tenths[rems[k%len(rems)].index]++
		sum++
	}
	for k := len(rems) - 1; sum > wholeTenths && k >= 0; k-- {
		if i := rems[k].index; tenths[i] > 0 {
			tenths[i]--
			sum--
		}
	}

	for i, v := range tenths {
		out[i] = float64(v) / 10
	}
	return out
}
