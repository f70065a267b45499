package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// IsBusinessDay reports whether d is a Monday through Friday.
func IsBusinessDay(d civil.Date) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// Advance returns the date n business days after start. Weekends are never
// counted. With n == 0 a weekend start rolls forward to the next Monday.
func Advance(start civil.Date, n int) civil.Date {
	if n < 0 {
		n = 0
	}

	d := start
	for counted := 0; counted < n; {
		d = d.AddDays(1)
		if IsBusinessDay(d) {
			counted++
		}
	}
	for !IsBusinessDay(d) {
		d = d.AddDays(1)
	}
	return d
}

// BusinessDaysBetween counts business days in (from, to].
func BusinessDaysBetween(from, to civil.Date) int {
	n := 0
	for d := from.AddDays(1); !d.After(to); d = d.AddDays(1) {
		if IsBusinessDay(d) {
			n++
		}
	}
	return n
}
