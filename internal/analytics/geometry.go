package analytics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// StartAngle положение "12 часов"; углы растут по часовой стрелке.
const StartAngle = -90.0

const fullCircle = 360.0

type Slice struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
	StartAngle float64         `json:"start_angle"`
	EndAngle   float64         `json:"end_angle"`
	Sweep      float64         `json:"sweep"`
	LargeArc   bool            `json:"large_arc"`
}

// PieSlices раскладывает позиции по кругу в порядке списка.
// Позиции с неположительной суммой пропускаются; при нулевом итоге секторов нет.
func PieSlices(items []CategoryAmount) []Slice {
	positive := make([]CategoryAmount, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		if !item.Amount.IsPositive() {
			continue
		}
		positive = append(positive, item)
		total = total.Add(item.Amount)
	}

	if len(positive) == 0 {
		return nil
	}

	slices := make([]Slice, 0, len(positive))
	angle := StartAngle
	for i, item := range positive {
		share, _ := item.Amount.Div(total).Float64()
		end := angle + share*fullCircle
		if i == len(positive)-1 {
			end = StartAngle + fullCircle
		}

		sweep := end - angle
		slices = append(slices, Slice{
			Category:   item.Category,
			Amount:     item.Amount,
			Percentage: PercentageOf(item.Amount, total),
			StartAngle: angle,
			EndAngle:   end,
			Sweep:      sweep,
			LargeArc:   sweep > 180,
		})
		angle = end
	}
	return slices
}

// PointOnCircle координаты точки окружности для угла в градусах.
func PointOnCircle(cx, cy, r, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return cx + r*math.Cos(rad), cy + r*math.Sin(rad)
}

// Path строит SVG-путь сектора. Полный круг рисуется двумя дугами,
// так как одна дуга с совпадающими концами не отображается.
func (s Slice) Path(cx, cy, r float64) string {
	x0, y0 := PointOnCircle(cx, cy, r, s.StartAngle)

	if s.Sweep >= fullCircle-0.01 {
		xm, ym := PointOnCircle(cx, cy, r, s.StartAngle+fullCircle/2)
		return fmt.Sprintf("M %.3f %.3f A %.3f %.3f 0 1 1 %.3f %.3f A %.3f %.3f 0 1 1 %.3f %.3f Z",
			x0, y0, r, r, xm, ym, r, r, x0, y0)
	}

	x1, y1 := PointOnCircle(cx, cy, r, s.EndAngle)
	largeArc := 0
	if s.LargeArc {
		largeArc = 1
	}
	return fmt.Sprintf("M %.3f %.3f L %.3f %.3f A %.3f %.3f 0 %d 1 %.3f %.3f Z",
		cx, cy, x0, y0, r, r, largeArc, x1, y1)
}
