package carrier

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/BearBump/ShipGate/internal/models"
)

type Credentials struct {
	Key      string `validate:"required"`
	Password string `validate:"required"`
	Account  string `validate:"required"`
	Meter    string `validate:"required"`
}

// String never prints secrets.
func (c Credentials) String() string {
	return "carrier.Credentials{account=" + mask(c.Account) + " meter=" + mask(c.Meter) + "}"
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// Transport ships a serialized request to the carrier and returns the raw body.
type Transport interface {
	Send(ctx context.Context, request []byte, creds Credentials, testMode bool) ([]byte, error)
}

type RateOptions struct {
	Test                bool
	TurnAroundTimeHours int
	Shipper             *models.Location
}

type TrackingOptions struct {
	Test               bool
	ShipDateRangeBegin *civil.Date
	ShipDateRangeEnd   *civil.Date
}

type RateFinder interface {
	FindRates(ctx context.Context, origin, destination models.Location, packages []models.Package, opts RateOptions) (*models.RateResponse, error)
}

type Tracker interface {
	FindTrackingInfo(ctx context.Context, trackingNumber string, opts TrackingOptions) (*models.TrackingResponse, error)
}

type Client interface {
	RateFinder
	Tracker
}
