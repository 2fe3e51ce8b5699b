// Package ais models vessel state reported over AIS and decodes the
// transponder's "not available" conventions.
package ais

import (
	"time"
)

// Raw values AIS uses to mean "not available".
const (
	SOGNotAvailable     = 102.3
	COGNotAvailable     = 360.0
	ROTNotAvailable     = -128.0
	HeadingNotAvailable = 511.0
	DraughtNotAvailable = 0.0
	ETANotAvailable     = 1596
)

func decode(raw, sentinel float64) Measurement {
	if raw == sentinel {
		return Unknown
	}
	return Known(raw)
}

// DecodeSOG decodes speed over ground in knots.
func DecodeSOG(raw float64) Measurement { return decode(raw, SOGNotAvailable) }

// DecodeCOG decodes course over ground in degrees.
func DecodeCOG(raw float64) Measurement { return decode(raw, COGNotAvailable) }

// DecodeROT decodes the rate of turn indicator.
func DecodeROT(raw float64) Measurement { return decode(raw, ROTNotAvailable) }

// DecodeHeading decodes true heading in degrees.
func DecodeHeading(raw float64) Measurement { return decode(raw, HeadingNotAvailable) }

// DecodeDraught decodes draught in decimetres.
func DecodeDraught(raw float64) Measurement { return decode(raw, DraughtNotAvailable) }

// DecodeETA converts the packed AIS ETA field to a time in now's location.
//
//	bits 19-16 month (0 = n/a)
//	bits 15-11 day   (0 = n/a)
//	bits 10-6  hour  (24 = n/a)
//	bits 5-0   minute (60 = n/a)
//
// Unavailable hours and minutes decode as zero. An ETA more than 180 days in
// the past is taken to mean next year. ok is false when no date is encoded or
// the date does not exist.
func DecodeETA(eta int, now time.Time) (t time.Time, ok bool) {
	if eta == ETANotAvailable || eta < 0 {
		return time.Time{}, false
	}

	minute := (eta & 0x3f) % 60
	hour := ((eta >> 6) & 0x1f) % 24
	day := (eta >> 11) & 0x1f
	month := (eta >> 16) & 0x0f
	if month == 0 || day == 0 || month > 12 {
		return time.Time{}, false
	}

	t = time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, now.Location())
	// time.Date normalises 31 September into October.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	if t.Before(now.Add(-180 * 24 * time.Hour)) {
		next := t.AddDate(1, 0, 0)
		if next.Day() != day {
			// 29 February has no counterpart next year.
			next = t.Add(365 * 24 * time.Hour)
		}
		t = next
	}
	return t, true
}
