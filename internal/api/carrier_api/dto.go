package carrier_api

import (
	"strings"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
	"github.com/BearBump/ShipGate/internal/services/rates"
)

type addressDTO struct {
	City        string `json:"city" validate:"max=35"`
	State       string `json:"state" validate:"max=35"`
	PostalCode  string `json:"postal_code" validate:"max=16"`
	CountryCode string `json:"country_code" validate:"required,len=2,alpha"`
	AddressType string `json:"address_type" validate:"omitempty,oneof=residential commercial"`
}

func (a addressDTO) model() models.Location {
	return models.Location{
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: strings.ToUpper(a.CountryCode),
		AddressType: models.AddressType(a.AddressType),
	}
}

type packageDTO struct {
	WeightKg float64 `json:"weight_kg" validate:"gt=0"`
	LengthCm float64 `json:"length_cm" validate:"gte=0"`
	WidthCm  float64 `json:"width_cm" validate:"gte=0"`
	HeightCm float64 `json:"height_cm" validate:"gte=0"`
}

type rateRequestDTO struct {
	Origin              addressDTO   `json:"origin" validate:"required"`
	Destination         addressDTO   `json:"destination" validate:"required"`
	Shipper             *addressDTO  `json:"shipper" validate:"omitempty"`
	Packages            []packageDTO `json:"packages" validate:"required,min=1,max=99,dive"`
	TurnAroundTimeHours int          `json:"turn_around_time_hours" validate:"gte=0,lte=720"`
	Test                bool         `json:"test"`
}

func (r rateRequestDTO) input() rates.QuoteInput {
	pkgs := make([]models.Package, 0, len(r.Packages))
	for _, p := range r.Packages {
		pkgs = append(pkgs, models.Package{WeightKg: p.WeightKg, LengthCm: p.LengthCm, WidthCm: p.WidthCm, HeightCm: p.HeightCm})
	}
	in := rates.QuoteInput{
		Origin:      r.Origin.model(),
		Destination: r.Destination.model(),
		Packages:    pkgs,
		Options: carrier.RateOptions{
			Test:                r.Test,
			TurnAroundTimeHours: r.TurnAroundTimeHours,
		},
	}
	if r.Shipper != nil {
		s := r.Shipper.model()
		in.Options.Shipper = &s
	}
	return in
}

type shipmentItemDTO struct {
	CarrierCode    string `json:"carrier_code" validate:"required,max=32"`
	TrackingNumber string `json:"tracking_number" validate:"required,max=64"`
}

type registerShipmentsDTO struct {
	Items []shipmentItemDTO `json:"items" validate:"required,min=1,dive"`
}

func (r registerShipmentsDTO) input() []models.ShipmentCreateInput {
	out := make([]models.ShipmentCreateInput, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, models.ShipmentCreateInput{CarrierCode: it.CarrierCode, TrackingNumber: it.TrackingNumber})
	}
	return out
}

type shipmentsResponse struct {
	Shipments []*models.Shipment `json:"shipments"`
}

type eventsResponse struct {
	Events []*models.StoredEvent `json:"events"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
