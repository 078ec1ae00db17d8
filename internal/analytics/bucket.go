package analytics

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	OtherCategory         = "Other"
	UncategorizedCategory = "Uncategorized"
)

type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Bucket суммы по категориям. После построения не изменяется.
type Bucket struct {
	order []string
	sums  map[string]decimal.Decimal
}

// GroupByCategory суммирует записи нужного типа по категориям.
// Пустой kind означает записи любого типа.
func GroupByCategory(entries []Entry, kind string) Bucket {
	b := Bucket{sums: make(map[string]decimal.Decimal)}
	for _, entry := range entries {
		if kind != "" && entry.Kind != kind {
			continue
		}
		if !entry.Amount.Valid {
			continue
		}

		category := strings.TrimSpace(entry.Category)
		if category == "" {
			category = UncategorizedCategory
		}

		sum, seen := b.sums[category]
		if !seen {
			b.order = append(b.order, category)
		}
		b.sums[category] = sum.Add(entry.Amount.Decimal)
	}
	return b
}

func (b Bucket) Len() int {
	return len(b.order)
}

// Amount возвращает сумму категории и признак ее наличия.
func (b Bucket) Amount(category string) (decimal.Decimal, bool) {
	sum, ok := b.sums[category]
	return sum, ok
}

// Total возвращает сумму по всем категориям.
func (b Bucket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, category := range b.order {
		total = total.Add(b.sums[category])
	}
	return total
}

// Categories возвращает категории в порядке первого появления.
func (b Bucket) Categories() []string {
	return slices.Clone(b.order)
}

// SortDescending упорядочивает категории по убыванию суммы.
// При равенстве сохраняется порядок первого появления.
func SortDescending(b Bucket) []CategoryAmount {
	list := make([]CategoryAmount, 0, len(b.order))
	for _, category := range b.order {
		list = append(list, CategoryAmount{Category: category, Amount: b.sums[category]})
	}

	slices.SortStableFunc(list, func(a, c CategoryAmount) int {
		return c.Amount.Cmp(a.Amount)
	})
	return list
}

// Collapsed результат свертки хвоста списка в категорию "Other".
type Collapsed struct {
	Top    []CategoryAmount
	Others decimal.Decimal
	Rest   int
}

// CollapseTopN оставляет первые n позиций, остальные суммирует в Others.
// При n <= 0 список не сворачивается.
func CollapseTopN(list []CategoryAmount, n int) Collapsed {
	if n <= 0 || len(list) <= n {
		return Collapsed{Top: slices.Clone(list), Others: decimal.Zero}
	}

	others := decimal.Zero
	for _, item := range list[n:] {
		others = others.Add(item.Amount)
	}

	return Collapsed{
		Top:    slices.Clone(list[:n]),
		Others: others,
		Rest:   len(list) - n,
	}
}

// Items возвращает верхние позиции и, если был хвост, синтетическую "Other".
// Хвост добавляется к пользовательской категории "Other", если она уже в топе,
// так что имена категорий в результате не повторяются.
func (c Collapsed) Items() []CategoryAmount {
	items := slices.Clone(c.Top)
	if c.Rest == 0 {
		return items
	}

	if i := slices.IndexFunc(items, func(item CategoryAmount) bool { return item.Category == OtherCategory }); i >= 0 {
		items[i].Amount = items[i].Amount.Add(c.Others)
		return items
	}
	return append(items, CategoryAmount{Category: OtherCategory, Amount: c.Others})
}

func (c Collapsed) Total() decimal.Decimal {
	total := c.Others
	for _, item := range c.Top {
		total = total.Add(item.Amount)
	}
	return total
}
