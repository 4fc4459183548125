package aggregate

import "time"

// Period is one of the five fixed lookback windows.
type Period string

const (
	Daily     Period = "daily"
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

// Periods lists every period in reporting order.
var Periods = []Period{Daily, Weekly, Monthly, Quarterly, Yearly}

// NominalDays returns the period length in days.
func (p Period) NominalDays() int {
	switch p {
	case Daily:
		return 1
	case Weekly:
		return 7
	case Monthly:
		return 30
	case Quarterly:
		return 90
	case Yearly:
		return 365
	}
	return 1
}

// Window is a period anchored at a fixed instant.
//
// Entries are fetched from [Start, End). Elapsed is the averaging divisor and
// Days are the calendar days checked for goal completion; len(Days) is
// always the nominal length, so it is not clamped to Elapsed.
type Window struct {
	Period  Period
	Start   time.Time
	End     time.Time
	Elapsed int
	Days    []time.Time
}

// Windows returns the five windows for now, in reporting order.
func Windows(now time.Time) []Window {
	out := make([]Window, len(Periods))
	for i, p := range Periods {
		out[i] = WindowFor(p, now)
	}
	return out
}

// WindowFor builds the window of p anchored at now. Calendar days are taken
// in now's location. Rolling windows start N calendar days back at the same
// wall-clock time, so across a DST change they span N*24h plus or minus an
// hour.
func WindowFor(p Period, now time.Time) Window {
	today := startOfDay(now)
	nominal := p.NominalDays()
	w := Window{Period: p}

	switch p {
	case Daily:
		w.Start = today
		w.End = addDays(today, 1)
		w.Elapsed = 1
		w.Days = []time.Time{today}
	case Weekly:
		monday := addDays(today, -weekdayIndex(today))
		w.Start = monday
		w.End = addDays(monday, 7)
		w.Elapsed = weekdayIndex(today) + 1
		w.Days = dayRange(monday, 7)
	case Monthly:
		w.Start = now.AddDate(0, 0, -nominal)
		w.End = now
		w.Elapsed = today.Day()
		w.Days = dayRange(addDays(today, -(nominal - 1)), nominal)
	case Quarterly:
		w.Start = now.AddDate(0, 0, -nominal)
		w.End = now
		w.Elapsed = daysBetween(quarterStart(today), today) + 1
		w.Days = dayRange(addDays(today, -(nominal - 1)), nominal)
	case Yearly:
		w.Start = now.AddDate(0, 0, -nominal)
		w.End = now
		w.Elapsed = daysBetween(time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), today) + 1
		w.Days = dayRange(addDays(today, -(nominal - 1)), nominal)
	}

	w.Elapsed = min(max(w.Elapsed, 1), nominal)
	return w
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

// weekdayIndex is 0 for Monday through 6 for Sunday.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func quarterStart(day time.Time) time.Time {
	first := time.Month((int(day.Month())-1)/3*3 + 1)
	return time.Date(day.Year(), first, 1, 0, 0, 0, 0, day.Location())
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

func dayRange(first time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	for i := range days {
		days[i] = addDays(first, i)
	}
	return days
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
