package aggregate

import (
	"slices"

	"github.com/lifestats/lifestats/internal/models"
)

// GoalMap maps a metric key to its effective target value. A key that is
// absent has no target.
type GoalMap map[string]float64

// ResolveGoals merges the catalog's default goals with the user's goal
// records. Records are applied in SetAt order (stable, so equal timestamps
// keep their input order) and the last one written for a key wins.
func ResolveGoals(defs []models.MetricDefinition, goals []models.Goal) GoalMap {
	m := make(GoalMap, len(defs))
	for _, d := range defs {
		if d.DefaultGoal != nil {
			m[d.Key] = *d.DefaultGoal
		}
	}

	sorted := slices.Clone(goals)
	slices.SortStableFunc(sorted, func(a, b models.Goal) int {
		return a.SetAt.Compare(b.SetAt)
	})
	for _, g := range sorted {
		m[g.MetricKey] = g.TargetValue
	}
	return m
}

// Target returns the effective target for key.
func (m GoalMap) Target(key string) (float64, bool) {
	v, ok := m[key]
	return v, ok
}
