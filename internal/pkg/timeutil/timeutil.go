// Package timeutil resolves wall-clock time in the plant's fixed display
// offset, classifies it into shifts and formats durations.
//
// Instants are always carried as UTC; conversion to the display zone happens
// only when formatting or when a shift boundary must be computed.
package timeutil

import (
	"fmt"
	"time"
)

// DisplayLayout is the timestamp layout used in exports and notifications.
const DisplayLayout = "02.01.2006 15:04:05"

// Shift is a reporting window.
type Shift string

// Shifts.
const (
	ShiftDay   Shift = "day"
	ShiftNight Shift = "night"
)

// Zone returns a fixed-offset location for the given UTC offset in hours.
func Zone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// Schedule holds the two shift boundaries, expressed as hours in Zone.
type Schedule struct {
	DayStart   int
	NightStart int
	Zone       *time.Location
}

// Current classifies now into a shift: day is [DayStart, NightStart).
func (s Schedule) Current(now time.Time) Shift {
	h := now.In(s.zone()).Hour()
	if h >= s.DayStart && h < s.NightStart {
		return ShiftDay
	}
	return ShiftNight
}

// Start returns the instant the shift containing now began. A night shift
// observed after midnight began at NightStart on the previous day.
func (s Schedule) Start(now time.Time) time.Time {
	local := now.In(s.zone())
	y, m, d := local.Date()
	switch {
	case s.Current(now) == ShiftDay:
		return time.Date(y, m, d, s.DayStart, 0, 0, 0, s.zone())
	case local.Hour() >= s.NightStart:
		return time.Date(y, m, d, s.NightStart, 0, 0, 0, s.zone())
	default:
		return time.Date(y, m, d-1, s.NightStart, 0, 0, 0, s.zone())
	}
}

func (s Schedule) zone() *time.Location {
	if s.Zone == nil {
		return time.UTC
	}
	return s.Zone
}

// ElapsedMinutes returns whole minutes between from and to, truncated.
// Negative spans count as zero.
func ElapsedMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatMinutes renders a minute count as "45 min" or "1h 5min".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}

// FormatDisplay renders t in zone using DisplayLayout. The zero time renders
// as an empty string.
func FormatDisplay(t time.Time, zone *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if zone == nil {
		zone = time.UTC
	}
	return t.In(zone).Format(DisplayLayout)
}
