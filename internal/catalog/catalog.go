// Package catalog holds the default metric catalog every new user starts from.
package catalog

import (
	"fmt"
	"os"

	"github.com/lifestats/lifestats/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, ordered set of metric definitions.
type Catalog struct {
	defs  []models.MetricDefinition
	index map[string]int
}

type file struct {
	Metrics []models.MetricDefinition `yaml:"metrics"`
}

// New validates defs and builds a Catalog. Keys must be unique and non-empty
// and every type must be "min" or "max".
func New(defs []models.MetricDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]models.MetricDefinition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("metric %d: key is required", i)
		}
		if _, dup := c.index[d.Key]; dup {
			return nil, fmt.Errorf("metric %q: duplicate key", d.Key)
		}
		if !d.Type.Valid() {
			return nil, fmt.Errorf("metric %q: invalid type %q (want \"min\" or \"max\")", d.Key, d.Type)
		}
		if d.Name == "" {
			d.Name = d.Key
		}
		c.index[d.Key] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.Metrics) == 0 {
		return nil, fmt.Errorf("catalog defines no metrics")
	}
	return New(f.Metrics)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New([]models.MetricDefinition{
		{Key: "water_litres", Name: "water", Unit: "litres", Type: models.Minimum, DefaultGoal: models.Float(2)},
		{Key: "calories_kcal", Name: "calories", Unit: "kilocalories", Type: models.Maximum, DefaultGoal: models.Float(2000)},
		{Key: "sleep_hours", Name: "sleep", Unit: "hours", Type: models.Minimum, DefaultGoal: models.Float(8)},
		{Key: "productivity_hours", Name: "productivity", Unit: "hours", Type: models.Minimum, DefaultGoal: models.Float(8)},
		{Key: "exercise_hours", Name: "exercise", Unit: "hours", Type: models.Minimum, DefaultGoal: models.Float(1)},
		{Key: "spend_rupees", Name: "spends", Unit: "INR", Type: models.Maximum, DefaultGoal: models.Float(10000)},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Definitions returns a copy of the definitions in catalog order.
func (c *Catalog) Definitions() []models.MetricDefinition {
	out := make([]models.MetricDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Keys returns the metric keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.defs))
	for i, d := range c.defs {
		keys[i] = d.Key
	}
	return keys
}

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key string) (models.MetricDefinition, bool) {
	i, ok := c.index[key]
	if !ok {
		return models.MetricDefinition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of metrics.
func (c *Catalog) Len() int {
	return len(c.defs)
}
