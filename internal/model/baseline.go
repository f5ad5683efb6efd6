package model

import (
	"encoding/json"
	"math"
	"sort"
)

// BaselineKey identifies one (city, season) group.
type BaselineKey struct {
	City   string `json:"city"`
	Season Season `json:"season"`
}

// SeasonalBaseline holds the temperature mean and sample standard deviation of one
// (city, season) group.
type SeasonalBaseline struct {
	City     string  `json:"city"`
	Season   Season  `json:"season"`
	MeanTemp float64 `json:"mean_temp"`
	StdTemp  float64 `json:"std_temp"` // NaN when Count < 2
	Count    int     `json:"count"`
}

// Key returns the baseline's group key.
func (b SeasonalBaseline) Key() BaselineKey {
	return BaselineKey{City: b.City, Season: b.Season}
}

// Defined reports whether the standard deviation is known.
func (b SeasonalBaseline) Defined() bool {
	return !math.IsNaN(b.StdTemp)
}

type baselineJSON struct {
	City     string   `json:"city"`
	Season   Season   `json:"season"`
	MeanTemp float64  `json:"mean_temp"`
	StdTemp  *float64 `json:"std_temp"`
	Count    int      `json:"count"`
}

// MarshalJSON encodes an undefined StdTemp as null.
func (b SeasonalBaseline) MarshalJSON() ([]byte, error) {
	return json.Marshal(baselineJSON{
		City:     b.City,
		Season:   b.Season,
		MeanTemp: b.MeanTemp,
		StdTemp:  nullable(b.StdTemp),
		Count:    b.Count,
	})
}

// UnmarshalJSON decodes a null StdTemp as NaN.
func (b *SeasonalBaseline) UnmarshalJSON(data []byte) error {
	var raw baselineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = SeasonalBaseline{
		City:     raw.City,
		Season:   raw.Season,
		MeanTemp: raw.MeanTemp,
		StdTemp:  fromNullable(raw.StdTemp),
		Count:    raw.Count,
	}
	return nil
}

// BaselineTable is a read-only index of baselines by (city, season). It is safe for
// concurrent readers once built.
type BaselineTable struct {
	entries map[BaselineKey]SeasonalBaseline
}

// NewBaselineTable indexes baselines by key. A later entry for the same key wins.
func NewBaselineTable(baselines []SeasonalBaseline) *BaselineTable {
	entries := make(map[BaselineKey]SeasonalBaseline, len(baselines))
	for _, b := range baselines {
		entries[b.Key()] = b
	}
	return &BaselineTable{entries: entries}
}

// Lookup returns the baseline for (city, season).
func (t *BaselineTable) Lookup(city string, season Season) (SeasonalBaseline, bool) {
	if t == nil {
		return SeasonalBaseline{}, false
	}
	b, ok := t.entries[BaselineKey{City: city, Season: season}]
	return b, ok
}

// Len returns the number of (city, season) groups.
func (t *BaselineTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Baselines returns every baseline ordered by city, then season order.
func (t *BaselineTable) Baselines() []SeasonalBaseline {
	if t == nil {
		return nil
	}
	out := make([]SeasonalBaseline, 0, len(t.entries))
	for _, b := range t.entries {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Season.Order() < out[j].Season.Order()
	})
	return out
}

// Cities returns the distinct cities in the table, sorted.
func (t *BaselineTable) Cities() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var cities []string
	for k := range t.entries {
		if !seen[k.City] {
			seen[k.City] = true
			cities = append(cities, k.City)
		}
	}
	sort.Strings(cities)
	return cities
}

// MarshalJSON encodes the table as an ordered array of baselines.
func (t *BaselineTable) MarshalJSON() ([]byte, error) {
	list := t.Baselines()
	if list == nil {
		list = []SeasonalBaseline{}
	}
	return json.Marshal(list)
}

// UnmarshalJSON decodes an array of baselines.
func (t *BaselineTable) UnmarshalJSON(data []byte) error {
	var list []SeasonalBaseline
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = *NewBaselineTable(list)
	return nil
}
