package models

import "time"

// Shipment is a tracking number registered for background polling.
type Shipment struct {
	ID                uint64         `json:"id"`
	CarrierCode       string         `json:"carrier_code"`
	TrackingNumber    string         `json:"tracking_number"`
	Status            TrackingStatus `json:"status"`
	StatusCode        string         `json:"status_code"`
	StatusDescription string         `json:"status_description"`
	DeliverySignature *string        `json:"delivery_signature,omitempty"`
	ShipTime          *time.Time     `json:"ship_time,omitempty"`
	StatusAt          *time.Time     `json:"status_at,omitempty"`
	LastCheckedAt     *time.Time     `json:"last_checked_at,omitempty"`
	NextCheckAt       time.Time      `json:"next_check_at"`
	CheckFailCount    int32          `json:"check_fail_count"`
	LastError         *string        `json:"last_error,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type StoredEvent struct {
	ID         uint64    `json:"id"`
	ShipmentID uint64    `json:"shipment_id"`
	Time       time.Time `json:"time"`
	Name       string    `json:"name"`
	Location   Location  `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
}

type ShipmentCreateInput struct {
	CarrierCode    string
	TrackingNumber string
}
