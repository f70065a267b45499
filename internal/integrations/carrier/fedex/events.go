package fedex

import (
	"slices"
	"strings"
	"time"

	"github.com/BearBump/ShipGate/internal/models"
)

// Event timestamps carry an offset but the wall clock is what FedEx means;
// it is read as-is and stamped UTC.
var eventTimeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// ReconstructEvents keeps events with a usable location and timestamp and
// orders them by time, oldest first. Ties keep their reply order.
func ReconstructEvents(raw []RawEvent) []models.ShipmentEvent {
	events := make([]models.ShipmentEvent, 0, len(raw))
	for _, r := range raw {
		if r.Address == nil || strings.TrimSpace(r.Address.CountryCode) == "" {
			continue
		}
		ts, ok := parseWallClock(r.Timestamp)
		if !ok {
			continue
		}
		events = append(events, models.ShipmentEvent{
			Time:     ts,
			Name:     r.Description,
			Location: r.Address.location().WithPlaceholders(),
		})
	}

	slices.SortStableFunc(events, func(a, b models.ShipmentEvent) int {
		return a.Time.Compare(b.Time)
	})
	return events
}

func parseWallClock(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}
	return time.Time{}, false
}
