package models

import "cloud.google.com/go/civil"

// Package is opaque to the carrier core: only weight and dimensions are read.
type Package struct {
	WeightKg float64 `json:"weight_kg"`
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
}

type PackageRate struct {
	Package Package `json:"package"`
	Rate    *int64  `json:"rate"`
}

type DateRange struct {
	Earliest civil.Date `json:"earliest"`
	Latest   civil.Date `json:"latest"`
}

type RateEstimate struct {
	Carrier       string        `json:"carrier"`
	ServiceCode   string        `json:"service_code"`
	ServiceName   string        `json:"service_name"`
	Currency      string        `json:"currency"`
	TotalPrice    int64         `json:"total_price"`
	PackageRates  []PackageRate `json:"package_rates"`
	DeliveryDate  *civil.Date   `json:"delivery_date,omitempty"`
	DeliveryRange *DateRange    `json:"delivery_range,omitempty"`
}

// Price is the total price in minor currency units.
func (r RateEstimate) Price() int64 {
	return r.TotalPrice
}

func (r RateEstimate) Packages() []Package {
	out := make([]Package, 0, len(r.PackageRates))
	for _, pr := range r.PackageRates {
		out = append(out, pr.Package)
	}
	return out
}

// Response holds what every carrier reply carries regardless of kind.
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
	Body    string         `json:"-"`
	Request string         `json:"-"`
}

type RateResponse struct {
	Response
	Rates []RateEstimate `json:"rates"`
}

type TrackingResponse struct {
	Response
	Tracking *TrackingRecord `json:"tracking,omitempty"`
}
