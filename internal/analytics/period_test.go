package analytics

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*60*60)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, msk)
}

func assertDayBounds(t *testing.T, r DateRange) {
	t.Helper()

	assert.False(t, r.End.Before(r.Start), "start must not be after end")
	assert.Equal(t, 0, r.Start.Hour())
	assert.Equal(t, 0, r.Start.Minute())
	assert.Equal(t, 0, r.Start.Second())
	assert.Equal(t, 0, r.Start.Nanosecond())
	assert.Equal(t, 23, r.End.Hour())
	assert.Equal(t, 59, r.End.Minute())
	assert.Equal(t, 59, r.End.Second())
	assert.Equal(t, int(999*time.Millisecond), r.End.Nanosecond())
}

// TestResolveBoundaries проверяет границы суток для всех периодов.
func TestResolveBoundaries(t *testing.T) {
	nows := []time.Time{
		at(2024, time.January, 1, 0, 0),
		at(2024, time.February, 29, 23, 59),
		at(2023, time.December, 31, 12, 0),
		at(2024, time.July, 14, 3, 30),
	}
	periods := []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodDate, Period("bogus")}

	for _, now := range nows {
		for _, p := range periods {
			r := Resolve(p, "", "", now)
			assertDayBounds(t, r)
			assert.True(t, r.Contains(now), "period %s must contain now %s", p, now)
			assert.Equal(t, msk, r.Start.Location())
		}
	}
}

// TestResolveSkippedMidnight проверяет день, в который полночь пропущена переводом часов.
func TestResolveSkippedMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 2018-11-04 часы перевели с 00:00 сразу на 01:00
	now := time.Date(2018, time.November, 4, 12, 0, 0, 0, loc)

	for _, p := range []Period{PeriodDay, PeriodDate} {
		r := Resolve(p, "", "", now)

		assert.Equal(t, "2018-11-04", r.Start.Format(DateLayout), "period %s", p)
		assert.Equal(t, 1, r.Start.Hour(), "period %s", p)
		assert.True(t, r.Contains(now))
		assert.False(t, r.Contains(r.Start.Add(-time.Millisecond)))
		assert.Equal(t, 1, r.Days())
	}

	// неделя 2018-11-05..11 начинается в обычную полночь, а прошлая содержит день перевода
	r := Resolve(PeriodWeek, "", "", now)
	assert.Equal(t, "2018-10-29", r.Start.Format(DateLayout))
	assert.Equal(t, "2018-11-04", r.End.Format(DateLayout))
	assert.Equal(t, 7, r.Days())

	r = Resolve(PeriodDate, "2018-11-04", "2018-11-05", now)
	assert.Equal(t, "2018-11-04", r.Start.Format(DateLayout))
	assert.Equal(t, 2, r.Days())
}

// TestDaysLongRange проверяет число дней для очень длинного диапазона.
func TestDaysLongRange(t *testing.T) {
	r := Resolve(PeriodDate, "0001-01-01", "9999-12-31", at(2024, time.January, 1, 0, 0))

	assert.Equal(t, 3652059, r.Days())
	assert.Equal(t, 0, DateRange{Start: r.End, End: r.Start}.Days())
}

// TestResolveDay проверяет, что "сегодня" считается по локальному календарю.
func TestResolveDay(t *testing.T) {
	// 2024-01-19 22:00 UTC, но в MSK уже 20 января
	now := at(2024, time.January, 20, 1, 0)

	r := Resolve(PeriodDay, "", "", now)

	assert.Equal(t, "2024-01-20", r.Start.Format(DateLayout))
	assert.Equal(t, "2024-01-20", r.End.Format(DateLayout))
	assert.Equal(t, int64(24*60*60*1000-1), r.EndMillis()-r.StartMillis())
}

// TestResolveWeekStartsMonday проверяет неделю с понедельника, в том числе в воскресенье.
func TestResolveWeekStartsMonday(t *testing.T) {
	cases := map[string]time.Time{
		"monday":    at(2024, time.January, 15, 9, 0),
		"wednesday": at(2024, time.January, 17, 9, 0),
		"sunday":    at(2024, time.January, 21, 22, 0),
	}

	for name, now := range cases {
		t.Run(name, func(t *testing.T) {
			r := Resolve(PeriodWeek, "", "", now)

			assert.Equal(t, time.Monday, r.Start.Weekday())
			assert.Equal(t, "2024-01-15", r.Start.Format(DateLayout))
			assert.Equal(t, time.Sunday, r.End.Weekday())
			assert.Equal(t, "2024-01-21", r.End.Format(DateLayout))
			assert.False(t, r.Contains(at(2024, time.January, 22, 0, 0)))
			assert.Equal(t, 7, r.Days())
		})
	}
}

// TestResolveMonthLengths проверяет длину месяцев, включая високосный февраль.
func TestResolveMonthLengths(t *testing.T) {
	cases := []struct {
		now  time.Time
		days int
		last string
	}{
		{at(2024, time.February, 10, 12, 0), 29, "2024-02-29"},
		{at(2023, time.February, 10, 12, 0), 28, "2023-02-28"},
		{at(2024, time.April, 30, 23, 0), 30, "2024-04-30"},
		{at(2024, time.December, 1, 0, 0), 31, "2024-12-31"},
	}

	for _, tc := range cases {
		r := Resolve(PeriodMonth, "", "", tc.now)

		assert.Equal(t, 1, r.Start.Day())
		assert.Equal(t, tc.last, r.End.Format(DateLayout))
		assert.Equal(t, tc.days, r.Days())
	}
}

// TestResolveYearIsTrailingWindow проверяет скользящие 12 месяцев вместо календарного года.
func TestResolveYearIsTrailingWindow(t *testing.T) {
	now := at(2024, time.March, 10, 15, 0)

	r := Resolve(PeriodYear, "", "", now)

	assert.Equal(t, "2023-04-01", r.Start.Format(DateLayout))
	assert.Equal(t, "2024-03-10", r.End.Format(DateLayout))
	assert.False(t, r.Contains(at(2023, time.March, 31, 23, 59)))

	january := Resolve(PeriodYear, "", "", at(2024, time.January, 5, 8, 0))
	assert.Equal(t, "2023-02-01", january.Start.Format(DateLayout))
	assert.Equal(t, "2024-01-05", january.End.Format(DateLayout))
}

// TestResolveExplicitDates проверяет произвольный диапазон дат.
func TestResolveExplicitDates(t *testing.T) {
	now := at(2024, time.January, 20, 10, 0)

	cases := []struct {
		name       string
		start, end string
		wantStart  string
		wantEnd    string
	}{
		{"both", "2024-01-01", "2024-01-10", "2024-01-01", "2024-01-10"},
		{"only start", "2024-01-05", "", "2024-01-05", "2024-01-05"},
		{"only end", "", "2024-01-07", "2024-01-07", "2024-01-07"},
		{"none", "", "", "2024-01-20", "2024-01-20"},
		{"reversed", "2024-01-10", "2024-01-01", "2024-01-01", "2024-01-10"},
		{"garbage start", "01/05/2024", "2024-01-07", "2024-01-07", "2024-01-07"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Resolve(PeriodDate, tc.start, tc.end, now)

			assertDayBounds(t, r)
			assert.Equal(t, tc.wantStart, r.Start.Format(DateLayout))
			assert.Equal(t, tc.wantEnd, r.End.Format(DateLayout))
		})
	}
}

// TestResolveUnknownPeriod проверяет откат неизвестного периода к текущему дню.
func TestResolveUnknownPeriod(t *testing.T) {
	now := at(2024, time.May, 5, 12, 0)

	require.Equal(t, Resolve(PeriodDay, "", "", now), Resolve(Period("quarter"), "", "", now))
	assert.Equal(t, PeriodWeek, ParsePeriod(" WEEK "))
	assert.Equal(t, PeriodDay, ParsePeriod(""))
	assert.Equal(t, PeriodDay, ParsePeriod("fortnight"))
}
