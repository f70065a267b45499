package fedex

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BearBump/ShipGate/internal/models"
)

// FedEx reports a few legacy currency codes that are not ISO-4217.
var currencyAliases = map[string]string{
	"UKL": "GBP",
	"SID": "SGD",
}

// NormalizeCurrency maps FedEx currency quirks to ISO-4217 codes and passes
// everything else through unchanged.
func NormalizeCurrency(raw string) string {
	if iso, ok := currencyAliases[strings.ToUpper(raw)]; ok {
		return iso
	}
	return raw
}

var serviceTypes = map[string]string{
	"PRIORITY_OVERNIGHT":                       "FedEx Priority Overnight",
	"PRIORITY_OVERNIGHT_SATURDAY_DELIVERY":     "FedEx Priority Overnight Saturday Delivery",
	"FEDEX_2_DAY":                              "FedEx 2 Day",
	"FEDEX_2_DAY_SATURDAY_DELIVERY":            "FedEx 2 Day Saturday Delivery",
	"STANDARD_OVERNIGHT":                       "FedEx Standard Overnight",
	"FIRST_OVERNIGHT":                          "FedEx First Overnight",
	"FIRST_OVERNIGHT_SATURDAY_DELIVERY":        "FedEx First Overnight Saturday Delivery",
	"FEDEX_EXPRESS_SAVER":                      "FedEx Express Saver",
	"FEDEX_1_DAY_FREIGHT":                      "FedEx 1 Day Freight",
	"FEDEX_1_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 1 Day Freight Saturday Delivery",
	"FEDEX_2_DAY_FREIGHT":                      "FedEx 2 Day Freight",
	"FEDEX_2_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 2 Day Freight Saturday Delivery",
	"FEDEX_3_DAY_FREIGHT":                      "FedEx 3 Day Freight",
	"FEDEX_3_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 3 Day Freight Saturday Delivery",
	"INTERNATIONAL_PRIORITY":                   "FedEx International Priority",
	"INTERNATIONAL_PRIORITY_SATURDAY_DELIVERY": "FedEx International Priority Saturday Delivery",
	"INTERNATIONAL_ECONOMY":                    "FedEx International Economy",
	"INTERNATIONAL_FIRST":                      "FedEx International First",
	"INTERNATIONAL_PRIORITY_FREIGHT":           "FedEx International Priority Freight",
	"INTERNATIONAL_ECONOMY_FREIGHT":            "FedEx International Economy Freight",
	"GROUND_HOME_DELIVERY":                     "FedEx Ground Home Delivery",
	"FEDEX_GROUND":                             "FedEx Ground",
	"INTERNATIONAL_GROUND":                     "FedEx International Ground",
	"SMART_POST":                               "FedEx SmartPost",
	"FEDEX_FREIGHT_PRIORITY":                   "FedEx Freight Priority",
	"FEDEX_FREIGHT_ECONOMY":                    "FedEx Freight Economy",
}

// ServiceTypes returns a copy of the known service code table.
func ServiceTypes() map[string]string {
	out := make(map[string]string, len(serviceTypes))
	for k, v := range serviceTypes {
		out[k] = v
	}
	return out
}

// ServiceNameForCode returns the display name for a FedEx service type.
// Unknown codes are title-cased: SOME_WEIRD_RATE -> "FedEx Some Weird Rate".
func ServiceNameForCode(code string) string {
	if name, ok := serviceTypes[code]; ok {
		return name
	}

	// cases.Caser is stateful, one per call.
	title := cases.Title(language.Und)
	toks := strings.FieldsFunc(code, func(r rune) bool { return r == '_' || r == ' ' })
	words := []string{"FedEx"}
	dropped := false
	for i, tok := range toks {
		w := title.String(tok)
		// первое "Fedex " убирается, где бы оно ни стояло (но не последнее слово)
		if !dropped && w == "Fedex" && i < len(toks)-1 {
			dropped = true
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

var trackingStatuses = map[string]models.TrackingStatus{
	"AA": models.TrackingStatusAtAirport,
	"AD": models.TrackingStatusAtDelivery,
	"AF": models.TrackingStatusAtFedexFacility,
	"AR": models.TrackingStatusAtFedexFacility,
	"AP": models.TrackingStatusAtPickup,
	"CA": models.TrackingStatusCanceled,
	"CH": models.TrackingStatusLocationChanged,
	"DE": models.TrackingStatusException,
	"DL": models.TrackingStatusDelivered,
	"DP": models.TrackingStatusDepartedFedexLocation,
	"DR": models.TrackingStatusVehicleFurnishedNotUsed,
	"DS": models.TrackingStatusVehicleDispatched,
	"DY": models.TrackingStatusDelay,
	"EA": models.TrackingStatusException,
	"ED": models.TrackingStatusEnrouteToDelivery,
	"EO": models.TrackingStatusEnrouteToOriginAirport,
	"EP": models.TrackingStatusEnrouteToPickup,
	"FD": models.TrackingStatusAtFedexDestination,
	"HL": models.TrackingStatusHeldAtLocation,
	"IT": models.TrackingStatusInTransit,
	"LO": models.TrackingStatusLeftOrigin,
	"OC": models.TrackingStatusOrderCreated,
	"OD": models.TrackingStatusOutForDelivery,
	"PF": models.TrackingStatusPlaneInFlight,
	"PL": models.TrackingStatusPlaneLanded,
	"PU": models.TrackingStatusPickedUp,
	"RS": models.TrackingStatusReturnToShipper,
	"SE": models.TrackingStatusException,
	"SF": models.TrackingStatusAtSortFacility,
	"SP": models.TrackingStatusSplitStatus,
	"TR": models.TrackingStatusTransfer,
}

func TrackingStatusForCode(code string) models.TrackingStatus {
	if s, ok := trackingStatuses[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return models.TrackingStatusUnknown
}

// Transit times come back as enum words, index == business days.
var transitTimes = []string{
	"UNKNOWN", "ONE_DAY", "TWO_DAYS", "THREE_DAYS", "FOUR_DAYS", "FIVE_DAYS", "SIX_DAYS",
	"SEVEN_DAYS", "EIGHT_DAYS", "NINE_DAYS", "TEN_DAYS", "ELEVEN_DAYS", "TWELVE_DAYS",
	"THIRTEEN_DAYS", "FOURTEEN_DAYS", "FIFTEEN_DAYS", "SIXTEEN_DAYS", "SEVENTEEN_DAYS",
	"EIGHTEEN_DAYS", "NINETEEN_DAYS", "TWENTY_DAYS",
}

// TransitDays converts a TransitTime word to business days. UNKNOWN and
// unrecognized words report false.
func TransitDays(word string) (int, bool) {
	word = strings.ToUpper(strings.TrimSpace(word))
	for i, w := range transitTimes {
		if w == word {
			return i, i > 0
		}
	}
	return 0, false
}
