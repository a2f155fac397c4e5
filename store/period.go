package store

import (
	"fmt"
	"regexp"
	"strconv"
)

// PeriodUnit is the unit of a billing period.
type PeriodUnit uint8

const (
	PeriodUnitUnknown PeriodUnit = iota
	PeriodUnitDay
	PeriodUnitWeek
	PeriodUnitMonth
	PeriodUnitYear
)

// Period is a billing period, e.g. one month or seven days. The zero value
// means "no period".
type Period struct {
	Value int
	Unit  PeriodUnit
}

var iso8601Period = regexp.MustCompile(`^P(\d+)([DWMY])$`)

// ParsePeriod parses the ISO-8601 subset vendors use for billing periods
// (P3D, P1W, P1M, P1Y).
func ParsePeriod(value string) (Period, error) {
	m := iso8601Period.FindStringSubmatch(value)
	if m == nil {
		return Period{}, fmt.Errorf("invalid billing period: %q", value)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid billing period: %q", value)
	}

	var unit PeriodUnit
	switch m[2] {
	case "D":
		unit = PeriodUnitDay
	case "W":
		unit = PeriodUnitWeek
	case "M":
		unit = PeriodUnitMonth
	case "Y":
		unit = PeriodUnitYear
	}

	return Period{Value: n, Unit: unit}, nil
}

func (p Period) IsZero() bool {
	return p.Value == 0 && p.Unit == PeriodUnitUnknown
}

func (p Period) String() string {
	var unit string
	switch p.Unit {
	case PeriodUnitDay:
		unit = "D"
	case PeriodUnitWeek:
		unit = "W"
	case PeriodUnitMonth:
		unit = "M"
	case PeriodUnitYear:
		unit = "Y"
	default:
		return ""
	}
	return fmt.Sprintf("P%d%s", p.Value, unit)
}
