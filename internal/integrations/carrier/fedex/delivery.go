package fedex

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/BearBump/ShipGate/internal/integrations/carrier/calendar"
	"github.com/BearBump/ShipGate/internal/models"
)

// ShipTimestampLayout is the outbound ShipTimestamp format.
const ShipTimestampLayout = "2006-01-02T15:04:05-07:00"

type DeliveryBasis string

const (
	DeliveryBasisNone              DeliveryBasis = "none"
	DeliveryBasisExplicitTimestamp DeliveryBasis = "explicit-timestamp"
	DeliveryBasisTransitDays       DeliveryBasis = "transit-days"
)

type DeliveryInput struct {
	DeliveryDate        *civil.Date
	TransitDays         *int
	MaxTransitDays      *int
	TurnAroundTimeHours int
}

type Estimate struct {
	Basis DeliveryBasis
	Date  civil.Date
	Range models.DateRange
}

type deliveryRule struct {
	basis   DeliveryBasis
	resolve func(now time.Time, in DeliveryInput) (models.DateRange, bool)
}

// Order matters: an explicit timestamp wins over transit days.
var deliveryRules = []deliveryRule{
	{basis: DeliveryBasisExplicitTimestamp, resolve: fromDeliveryTimestamp},
	{basis: DeliveryBasisTransitDays, resolve: fromTransitDays},
}

// ResolveDelivery walks the rules in order and reports the first estimate.
// ok is false when no rule applies.
func ResolveDelivery(now time.Time, in DeliveryInput) (Estimate, bool) {
	for _, rule := range deliveryRules {
		if r, ok := rule.resolve(now, in); ok {
			return Estimate{Basis: rule.basis, Date: r.Latest, Range: r}, true
		}
	}
	return Estimate{Basis: DeliveryBasisNone}, false
}

// ShipTimestamp is now shifted by the turn-around time.
func ShipTimestamp(now time.Time, turnAroundHours int) time.Time {
	if turnAroundHours < 0 {
		turnAroundHours = 0
	}
	return now.Add(time.Duration(turnAroundHours) * time.Hour)
}

func ShipDate(now time.Time, turnAroundHours int) civil.Date {
	return civil.DateOf(ShipTimestamp(now, turnAroundHours))
}

func fromDeliveryTimestamp(_ time.Time, in DeliveryInput) (models.DateRange, bool) {
	if in.DeliveryDate == nil {
		return models.DateRange{}, false
	}
	return models.DateRange{Earliest: *in.DeliveryDate, Latest: *in.DeliveryDate}, true
}

func fromTransitDays(now time.Time, in DeliveryInput) (models.DateRange, bool) {
	if in.TransitDays == nil {
		return models.DateRange{}, false
	}

	ship := ShipDate(now, in.TurnAroundTimeHours)
	r := models.DateRange{Earliest: calendar.Advance(ship, *in.TransitDays)}
	r.Latest = r.Earliest
	if in.MaxTransitDays != nil && *in.MaxTransitDays > *in.TransitDays {
		r.Latest = calendar.Advance(ship, *in.MaxTransitDays)
	}
	return r, true
}
