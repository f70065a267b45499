package models

import "time"

type TrackingStatus string

// Нормализованные статусы перевозчика.
const (
	TrackingStatusUnknown                 TrackingStatus = "UNKNOWN"
	TrackingStatusInTransit               TrackingStatus = "IN_TRANSIT"
	TrackingStatusDelivered               TrackingStatus = "DELIVERED"
	TrackingStatusException               TrackingStatus = "EXCEPTION"
	TrackingStatusAtAirport               TrackingStatus = "AT_AIRPORT"
	TrackingStatusAtDelivery              TrackingStatus = "AT_DELIVERY"
	TrackingStatusAtFedexFacility         TrackingStatus = "AT_FEDEX_FACILITY"
	TrackingStatusAtPickup                TrackingStatus = "AT_PICKUP"
	TrackingStatusCanceled                TrackingStatus = "CANCELED"
	TrackingStatusLocationChanged         TrackingStatus = "LOCATION_CHANGED"
	TrackingStatusDepartedFedexLocation   TrackingStatus = "DEPARTED_FEDEX_LOCATION"
	TrackingStatusVehicleFurnishedNotUsed TrackingStatus = "VEHICLE_FURNISHED_NOT_USED"
	TrackingStatusVehicleDispatched       TrackingStatus = "VEHICLE_DISPATCHED"
	TrackingStatusDelay                   TrackingStatus = "DELAY"
	TrackingStatusEnrouteToDelivery       TrackingStatus = "ENROUTE_TO_DELIVERY"
	TrackingStatusEnrouteToOriginAirport  TrackingStatus = "ENROUTE_TO_ORIGIN_AIRPORT"
	TrackingStatusEnrouteToPickup         TrackingStatus = "ENROUTE_TO_PICKUP"
	TrackingStatusAtFedexDestination      TrackingStatus = "AT_FEDEX_DESTINATION"
	TrackingStatusHeldAtLocation          TrackingStatus = "HELD_AT_LOCATION"
	TrackingStatusLeftOrigin              TrackingStatus = "LEFT_ORIGIN"
	TrackingStatusOrderCreated            TrackingStatus = "ORDER_CREATED"
	TrackingStatusOutForDelivery          TrackingStatus = "OUT_FOR_DELIVERY"
	TrackingStatusPlaneInFlight           TrackingStatus = "PLANE_IN_FLIGHT"
	TrackingStatusPlaneLanded             TrackingStatus = "PLANE_LANDED"
	TrackingStatusPickedUp                TrackingStatus = "PICKED_UP"
	TrackingStatusReturnToShipper         TrackingStatus = "RETURN_TO_SHIPPER"
	TrackingStatusAtSortFacility          TrackingStatus = "AT_SORT_FACILITY"
	TrackingStatusSplitStatus             TrackingStatus = "SPLIT_STATUS"
	TrackingStatusTransfer                TrackingStatus = "TRANSFER"
)

// Final reports whether no further status changes are expected.
func (s TrackingStatus) Final() bool {
	return s == TrackingStatusDelivered || s == TrackingStatusCanceled
}

func (s TrackingStatus) NeedsAttention() bool {
	switch s {
	case TrackingStatusException, TrackingStatusUnknown, TrackingStatusDelay, TrackingStatusReturnToShipper, "":
		return true
	default:
		return false
	}
}

type ShipmentEvent struct {
	Time     time.Time `json:"time"`
	Name     string    `json:"name"`
	Location Location  `json:"location"`
}

type TrackingRecord struct {
	Carrier           string          `json:"carrier"`
	CarrierName       string          `json:"carrier_name"`
	TrackingNumber    string          `json:"tracking_number"`
	Status            TrackingStatus  `json:"status"`
	StatusCode        string          `json:"status_code"`
	StatusDescription string          `json:"status_description"`
	Delivered         bool            `json:"delivered"`
	DeliverySignature *string         `json:"delivery_signature,omitempty"`
	Origin            Location        `json:"origin"`
	Destination       Location        `json:"destination"`
	Shipper           *Location       `json:"shipper,omitempty"`
	ShipTime          *time.Time      `json:"ship_time,omitempty"`
	ShipmentEvents    []ShipmentEvent `json:"shipment_events"`
}

// LatestEvent returns the most recent event, if any.
func (r *TrackingRecord) LatestEvent() (ShipmentEvent, bool) {
	if r == nil || len(r.ShipmentEvents) == 0 {
		return ShipmentEvent{}, false
	}
	return r.ShipmentEvents[len(r.ShipmentEvents)-1], true
}
