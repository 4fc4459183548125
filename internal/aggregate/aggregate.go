// Package aggregate computes per-period metric averages, weekly day totals
// and goal-completion counts from a user's raw entries.
//
// ResolveGoals and Compute are pure functions of their inputs; Engine adds
// the store reads around them.
package aggregate

import (
	"time"

	"github.com/lifestats/lifestats/internal/models"
)

// PeriodResult is the aggregate for one period. A nil average means the
// metric had no entries in the period; 0 means it was tracked and summed to
// zero. DailyTotals is only set for the weekly period.
type PeriodResult struct {
	Averages    map[string]*float64  `json:"average_values"`
	GoalReached map[string]int       `json:"goalReached"`
	DailyTotals map[string][]float64 `json:"daily_totals,omitempty"`
}

// Result holds the five period aggregates.
type Result struct {
	Daily     PeriodResult `json:"daily"`
	Weekly    PeriodResult `json:"weekly"`
	Monthly   PeriodResult `json:"monthly"`
	Quarterly PeriodResult `json:"quarterly"`
	Yearly    PeriodResult `json:"yearly"`
}

// Get returns the aggregate for p.
func (r *Result) Get(p Period) PeriodResult {
	switch p {
	case Daily:
		return r.Daily
	case Weekly:
		return r.Weekly
	case Monthly:
		return r.Monthly
	case Quarterly:
		return r.Quarterly
	case Yearly:
		return r.Yearly
	}
	return PeriodResult{}
}

func (r *Result) set(p Period, pr PeriodResult) {
	switch p {
	case Daily:
		r.Daily = pr
	case Weekly:
		r.Weekly = pr
	case Monthly:
		r.Monthly = pr
	case Quarterly:
		r.Quarterly = pr
	case Yearly:
		r.Yearly = pr
	}
}

// Compute aggregates all five periods anchored at now. entries holds the
// entries fetched for each period; a slice may span more than its window,
// only the entries inside the window are read.
func Compute(defs []models.MetricDefinition, goals GoalMap, entries map[Period][]models.Entry, now time.Time) *Result {
	res := &Result{}
	for _, w := range Windows(now) {
		res.set(w.Period, ComputePeriod(w, defs, goals, entries[w.Period]))
	}
	return res
}

// SamePeriods returns a per-period entry map that hands every period the
// same slice.
func SamePeriods(entries []models.Entry) map[Period][]models.Entry {
	m := make(map[Period][]models.Entry, len(Periods))
	for _, p := range Periods {
		m[p] = entries
	}
	return m
}

// ComputePeriod aggregates the entries that fall inside w. Only keys present
// in defs are reported; entries for other keys are ignored.
func ComputePeriod(w Window, defs []models.MetricDefinition, goals GoalMap, entries []models.Entry) PeriodResult {
	loc := w.Start.Location()
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Key] = true
	}

	sums := make(map[string]float64, len(defs))
	counts := make(map[string]int, len(defs))
	daySums := make(map[string]map[string]float64, len(defs))
	for _, e := range entries {
		if !known[e.MetricKey] || e.Timestamp.Before(w.Start) || !e.Timestamp.Before(w.End) {
			continue
		}
		sums[e.MetricKey] += e.Value
		counts[e.MetricKey]++
		byDay := daySums[e.MetricKey]
		if byDay == nil {
			byDay = make(map[string]float64)
			daySums[e.MetricKey] = byDay
		}
		byDay[dayKey(e.Timestamp, loc)] += e.Value
	}

	pr := PeriodResult{
		Averages:    make(map[string]*float64, len(defs)),
		GoalReached: make(map[string]int, len(defs)),
	}
	if w.Period == Weekly {
		pr.DailyTotals = make(map[string][]float64, len(defs))
	}

	for _, d := range defs {
		sum := sums[d.Key]
		switch {
		case sum != 0:
			pr.Averages[d.Key] = models.Float(sum / float64(w.Elapsed))
		case counts[d.Key] > 0:
			pr.Averages[d.Key] = models.Float(0)
		default:
			pr.Averages[d.Key] = nil
		}

		if pr.DailyTotals != nil {
			totals := make([]float64, len(w.Days))
			for i, day := range w.Days {
				totals[i] = daySums[d.Key][dayKey(day, loc)]
			}
			pr.DailyTotals[d.Key] = totals
		}

		pr.GoalReached[d.Key] = 0
		target, ok := goals.Target(d.Key)
		if !ok || !d.Type.Valid() {
			continue
		}
		for _, day := range w.Days {
			if d.Type.Reached(daySums[d.Key][dayKey(day, loc)], target) {
				pr.GoalReached[d.Key]++
			}
		}
	}
	return pr
}
