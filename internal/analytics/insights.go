package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Quadrant квадрант матрицы Эйзенхауэра.
type Quadrant int

const (
	QuadrantDoFirst   Quadrant = 1 // важно и срочно
	QuadrantSchedule  Quadrant = 2 // важно, не срочно
	QuadrantDelegate  Quadrant = 3 // срочно, не важно
	QuadrantEliminate Quadrant = 4 // не важно и не срочно
)

var quadrantNames = map[Quadrant]string{
	QuadrantDoFirst:   "urgent-important",
	QuadrantSchedule:  "not-urgent-important",
	QuadrantDelegate:  "urgent-not-important",
	QuadrantEliminate: "not-urgent-not-important",
}

func (q Quadrant) String() string {
	if name, ok := quadrantNames[q]; ok {
		return name
	}
	return "unknown"
}

func (q Quadrant) Valid() bool {
	return q >= QuadrantDoFirst && q <= QuadrantEliminate
}

// ClassifyQuadrant определяет квадрант по признакам важности и срочности.
func ClassifyQuadrant(important, urgent bool) Quadrant {
	switch {
	case important && urgent:
		return QuadrantDoFirst
	case important:
		return QuadrantSchedule
	case urgent:
		return QuadrantDelegate
	default:
		return QuadrantEliminate
	}
}

// ParseQuadrant разбирает тег квадранта из сохраненной задачи.
func ParseQuadrant(tag string) (Quadrant, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "1", "q1", "do", "urgent-important":
		return QuadrantDoFirst, true
	case "2", "q2", "schedule", "not-urgent-important":
		return QuadrantSchedule, true
	case "3", "q3", "delegate", "urgent-not-important":
		return QuadrantDelegate, true
	case "4", "q4", "eliminate", "not-urgent-not-important":
		return QuadrantEliminate, true
	default:
		return 0, false
	}
}

// Distribution количество задач по квадрантам.
type Distribution struct {
	counts [4]int
}

// Add учитывает задачу; невалидный квадрант игнорируется.
func (d *Distribution) Add(q Quadrant) {
	if !q.Valid() {
		return
	}
	d.counts[q-1]++
}

func (d Distribution) Count(q Quadrant) int {
	if !q.Valid() {
		return 0
	}
	return d.counts[q-1]
}

func (d Distribution) Total() int {
	total := 0
	for _, n := range d.counts {
		total += n
	}
	return total
}

// Percentage доля квадранта или NoData для пустого распределения.
func (d Distribution) Percentage(q Quadrant) float64 {
	return PercentageOf(decimal.NewFromInt(int64(d.Count(q))), decimal.NewFromInt(int64(d.Total())))
}

type Insight struct {
	ID      string `json:"id"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Rule строка таблицы правил: предикат и сообщение.
type Rule struct {
	ID      string
	Level   string
	Applies func(d Distribution) bool
	Message string
}

const (
	LevelWarning = "warning"
	LevelTip     = "tip"
	LevelSuccess = "success"
	LevelInfo    = "info"
)

var (
	noDataInsight = Insight{
		ID:      "no_data",
		Level:   LevelInfo,
		Message: "Add tasks to the matrix to see how your time is distributed.",
	}
	balancedInsight = Insight{
		ID:      "balanced",
		Level:   LevelSuccess,
		Message: "Your tasks are well balanced across the quadrants. Keep it up!",
	}
)

// QuadrantRules пороги матрицы Эйзенхауэра в порядке объявления.
var QuadrantRules = []Rule{
	{
		ID:      "burnout_risk",
		Level:   LevelWarning,
		Applies: func(d Distribution) bool { return d.Percentage(QuadrantDoFirst) > 50 },
		Message: "More than half of your tasks are urgent and important. You are at risk of burnout: plan ahead to keep crises from piling up.",
	},
	{
		ID:      "strategic_focus",
		Level:   LevelSuccess,
		Applies: func(d Distribution) bool { return d.Percentage(QuadrantSchedule) >= 40 },
		Message: "Great focus on important but not urgent work. This is where long-term progress happens.",
	},
	{
		ID:      "delegate_more",
		Level:   LevelTip,
		Applies: func(d Distribution) bool { return d.Percentage(QuadrantDelegate) > 30 },
		Message: "Many tasks are urgent but not important. Try delegating them to free up time.",
	},
	{
		ID:      "eliminate_distractions",
		Level:   LevelTip,
		Applies: func(d Distribution) bool { return d.Percentage(QuadrantEliminate) > 20 },
		Message: "A noticeable share of tasks is neither urgent nor important. Consider dropping them.",
	},
}

// DeriveInsights применяет QuadrantRules к распределению.
func DeriveInsights(d Distribution) []Insight {
	return Evaluate(d, QuadrantRules)
}

// Evaluate проверяет все правила без раннего выхода.
// Пустое распределение дает одно сообщение об отсутствии данных,
// отсутствие сработавших правил дает одно сообщение по умолчанию.
func Evaluate(d Distribution, rules []Rule) []Insight {
	if d.Total() == 0 {
		return []Insight{noDataInsight}
	}

	insights := make([]Insight, 0, len(rules))
	for _, rule := range rules {
		if rule.Applies(d) {
			insights = append(insights, Insight{ID: rule.ID, Level: rule.Level, Message: rule.Message})
		}
	}

	if len(insights) == 0 {
		return []Insight{balancedInsight}
	}
	return insights
}
