package messages

import (
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/models"
)

const (
	TopicTrackingUpdated = "tracking.updated"
	TypeTrackingUpdated  = "tracking.updated.v1"
)

// TrackingUpdated is published by the worker after every carrier check.
type TrackingUpdated struct {
	ShipmentID     uint64    `json:"shipment_id"`
	CarrierCode    string    `json:"carrier_code"`
	TrackingNumber string    `json:"tracking_number"`
	CheckedAt      time.Time `json:"checked_at"`

	Status            string     `json:"status,omitempty"`
	StatusCode        string     `json:"status_code,omitempty"`
	StatusDescription string     `json:"status_description,omitempty"`
	DeliverySignature *string    `json:"delivery_signature,omitempty"`
	ShipTime          *time.Time `json:"ship_time,omitempty"`
	StatusAt          *time.Time `json:"status_at,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Events []ShipmentEvent `json:"events,omitempty"`

	Error *string `json:"error,omitempty"`
}

type ShipmentEvent struct {
	Time        time.Time `json:"time"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	PostalCode  string    `json:"postal_code,omitempty"`
	CountryCode string    `json:"country_code"`
}

func (m TrackingUpdated) Key() []byte {
	return []byte(strconv.FormatUint(m.ShipmentID, 10))
}

func (m TrackingUpdated) Validate() error {
	if m.ShipmentID == 0 {
		return errors.New("shipment_id is empty")
	}
	if m.CheckedAt.IsZero() {
		return errors.New("checked_at is empty")
	}
	return nil
}

func EventsFromModels(in []models.ShipmentEvent) []ShipmentEvent {
	out := make([]ShipmentEvent, 0, len(in))
	for _, e := range in {
		out = append(out, ShipmentEvent{
			Time:        e.Time,
			Name:        e.Name,
			City:        e.Location.City,
			State:       e.Location.State,
			PostalCode:  e.Location.PostalCode,
			CountryCode: e.Location.CountryCode,
		})
	}
	return out
}

func (e ShipmentEvent) Model() models.ShipmentEvent {
	return models.ShipmentEvent{
		Time: e.Time,
		Name: e.Name,
		Location: models.Location{
			City:        e.City,
			State:       e.State,
			PostalCode:  e.PostalCode,
			CountryCode: e.CountryCode,
		}.WithPlaceholders(),
	}
}
