package analytics

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodDate  Period = "date"
)

// DateLayout формат календарной даты без времени.
const DateLayout = "2006-01-02"

// ParsePeriod разбирает название периода; неизвестные значения сводятся к дню.
func ParsePeriod(raw string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodDate:
		return p
	default:
		return PeriodDay
	}
}

// DateRange включительный диапазон в локальном времени.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains проверяет попадание момента в диапазон с учетом обеих границ.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r DateRange) StartMillis() int64 {
	return r.Start.UnixMilli()
}

func (r DateRange) EndMillis() int64 {
	return r.End.UnixMilli()
}

// Days возвращает число календарных дней в диапазоне.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(civilDay(r.End)-civilDay(r.Start)) + 1
}

// civilDay номер календарного дня от эпохи без учета часового пояса.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

// Resolve переводит выбранный период в диапазон дат относительно now.
// Все границы считаются в часовом поясе now.
func Resolve(period Period, startDate, endDate string, now time.Time) DateRange {
	switch period {
	case PeriodWeek:
		// неделя всегда начинается с понедельника
		offset := (int(now.Weekday()) + 6) % 7
		y, m, d := now.Date()
		monday := midnight(y, m, d-offset, now.Location())
		sunday := noon(y, m, d-offset+6, now.Location())
		return DateRange{Start: monday, End: endOfDay(sunday)}
	case PeriodMonth:
		y, m, _ := now.Date()
		first := midnight(y, m, 1, now.Location())
		last := noon(y, m+1, 0, now.Location())
		return DateRange{Start: first, End: endOfDay(last)}
	case PeriodYear:
		// скользящие 12 месяцев, а не календарный год
		y, m, _ := now.Date()
		first := midnight(y, m-11, 1, now.Location())
		return DateRange{Start: first, End: endOfDay(now)}
	case PeriodDate:
		return resolveExplicit(startDate, endDate, now)
	default:
		return DateRange{Start: startOfDay(now), End: endOfDay(now)}
	}
}

func resolveExplicit(startDate, endDate string, now time.Time) DateRange {
	start, hasStart := parseDay(startDate, now.Location())
	end, hasEnd := parseDay(endDate, now.Location())

	switch {
	case hasStart && hasEnd:
		if end.Before(start) {
			start, end = end, start
		}
	case hasStart:
		end = start
	case hasEnd:
		start = end
	default:
		start, end = now, now
	}

	return DateRange{Start: startOfDay(start), End: endOfDay(end)}
}

func parseDay(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	day, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return midnight(y, m, d, t.Location())
}

// midnight возвращает первый момент календарного дня.
// Если полночь пропущена переводом часов, день начинается с момента перевода.
func midnight(y int, m time.Month, d int, loc *time.Location) time.Time {
	y, m, d = noon(y, m, d, loc).Date()

	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if start.Day() != d {
		if _, end := start.ZoneBounds(); !end.IsZero() {
			return end
		}
	}
	return start
}

// noon нормализует дату через полдень, который переводы часов не затрагивают.
func noon(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
