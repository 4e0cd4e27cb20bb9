// Package sensors holds the registry telling the preprocessing which rule
// applies to a named observation field.
package sensors

import (
	"fmt"
	"sort"
)

type Type string

const (
	Numerical   Type = "numerical"
	Categorical Type = "categorical"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Numerical, Categorical:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown sensor type %q (numerical|categorical)", s)
	}
}

// Fields derived from the observation timestamp. They are always part of the
// registry partition because time enrichment always produces them.
const (
	Timestamp    = "timestamp"
	MonthOfYear  = "month_of_year"
	DayOfMonth   = "day_of_month"
	DayOfWeek    = "day_of_week"
	HourOfDay    = "hour_of_day"
	MinuteOfHour = "minute_of_hour"
)

type Sensor struct {
	Name  string `json:"name" yaml:"name"`
	Typed Type   `json:"typed" yaml:"typed"`
}

// Sensors maps sensor name to its type.
type Sensors map[string]Type

// Partition splits the registry into categorical and numerical names, each
// sorted and extended with the synthetic time fields.
func (s Sensors) Partition() (categoricals, numericals []string) {
	for name, typed := range s {
		switch typed {
		case Categorical:
			categoricals = append(categoricals, name)
		case Numerical:
			numericals = append(numericals, name)
		}
	}
	sort.Strings(categoricals)
	sort.Strings(numericals)

	categoricals = appendMissing(categoricals, MonthOfYear, DayOfWeek)
	numericals = appendMissing(numericals, DayOfMonth, HourOfDay, MinuteOfHour)

	return categoricals, numericals
}

func (s Sensors) List() []Sensor {
	list := make([]Sensor, 0, len(s))
	for name, typed := range s {
		list = append(list, Sensor{Name: name, Typed: typed})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func appendMissing(names []string, extra ...string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, e := range extra {
		if !seen[e] {
			names = append(names, e)
		}
	}
	return names
}
