package models

import (
	"fmt"
	"strings"
)

// TimeUnit is the cadence unit used by backup, save and stop-training fields.
type TimeUnit string

const (
	TimeUnitNever  TimeUnit = "NEVER"
	TimeUnitEpoch  TimeUnit = "EPOCH"
	TimeUnitStep   TimeUnit = "STEP"
	TimeUnitSecond TimeUnit = "SECOND"
	TimeUnitMinute TimeUnit = "MINUTE"
	TimeUnitHour   TimeUnit = "HOUR"
	TimeUnitAlways TimeUnit = "ALWAYS"
)

// TimeUnits lists every accepted unit in display order.
var TimeUnits = []TimeUnit{
	TimeUnitNever,
	TimeUnitEpoch,
	TimeUnitStep,
	TimeUnitSecond,
	TimeUnitMinute,
	TimeUnitHour,
	TimeUnitAlways,
}

// Valid reports whether u is one of the enumerated units.
func (u TimeUnit) Valid() bool {
	for _, known := range TimeUnits {
		if u == known {
			return true
		}
	}
	return false
}

// ParseTimeUnit accepts a unit name in any case.
func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("unknown time unit %q", s)
	}
	return u, nil
}
