// Package carriers builds carrier clients from configuration.
package carriers

import (
	"context"
	"log/slog"

	"github.com/BearBump/ShipGate/config"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/fake"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/fedex"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/httptransport"
	"github.com/BearBump/ShipGate/internal/models"
)

// NewFedEx returns a FedEx client on the HTTP gateway, or on the local
// emulator when use_emulator is set. Missing credentials are a
// *carrier.ConfigurationError.
func NewFedEx(cfg config.CarrierConfig, logger *slog.Logger) (*fedex.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UseEmulator {
		logger.Warn("fedex emulator in use, rates and tracking are synthetic")
		return fedex.New(fake.Credentials(), fake.New(), fedex.WithLogger(logger))
	}
	t := httptransport.New(cfg.TestURL, cfg.LiveURL, cfg.Timeout())
	return fedex.New(cfg.Credentials(), t, fedex.WithLogger(logger))
}

// Trackers maps carrier codes to tracking clients for the poller.
func Trackers(fx *fedex.Client) map[string]carrier.Tracker {
	return map[string]carrier.Tracker{fedex.CarrierCode: fx}
}

// Unavailable answers every request with err. The API keeps serving the
// shipment registry when the carrier is not configured.
func Unavailable(err error) carrier.Client {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) FindRates(ctx context.Context, origin, destination models.Location, packages []models.Package, opts carrier.RateOptions) (*models.RateResponse, error) {
	return nil, u.err
}

func (u unavailable) FindTrackingInfo(ctx context.Context, trackingNumber string, opts carrier.TrackingOptions) (*models.TrackingResponse, error) {
	return nil, u.err
}
