package fedex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/internal/models"
)

func TestNormalizeCurrency(t *testing.T) {
	require.Equal(t, "GBP", NormalizeCurrency("UKL"))
	require.Equal(t, "GBP", NormalizeCurrency("ukl"))
	require.Equal(t, "SGD", NormalizeCurrency("SID"))
	require.Equal(t, "SGD", NormalizeCurrency("Sid"))

	for _, c := range []string{"CAD", "USD", "EUR", "", "gbp", "UKLX", "XX"} {
		require.Equal(t, c, NormalizeCurrency(c))
	}
}

func TestServiceNameForCode_KnownTable(t *testing.T) {
	for code, name := range ServiceTypes() {
		require.Equal(t, name, ServiceNameForCode(code), code)
	}
	require.Equal(t, "FedEx Ground", ServiceNameForCode("FEDEX_GROUND"))
	require.Equal(t, "FedEx SmartPost", ServiceNameForCode("SMART_POST"))
}

func TestServiceNameForCode_UnknownCodes(t *testing.T) {
	require.Equal(t, "FedEx Express Saver Saturday Delivery", ServiceNameForCode("FEDEX_EXPRESS_SAVER_SATURDAY_DELIVERY"))
	require.Equal(t, "FedEx Some Weird Rate", ServiceNameForCode("SOME_WEIRD_RATE"))
	require.Equal(t, "FedEx", ServiceNameForCode(""))
	require.Equal(t, "FedEx Ground Economy", ServiceNameForCode("GROUND__ECONOMY_"))
	require.Equal(t, "FedEx Some Rate", ServiceNameForCode("SOME_FEDEX_RATE"))
	require.Equal(t, "FedEx Some Fedex Rate", ServiceNameForCode("FEDEX_SOME_FEDEX_RATE"))
	require.Equal(t, "FedEx Rate Fedex", ServiceNameForCode("RATE_FEDEX"))

	// deterministic
	require.Equal(t, ServiceNameForCode("NEW_SERVICE_2"), ServiceNameForCode("NEW_SERVICE_2"))
}

func TestTrackingStatusForCode(t *testing.T) {
	require.Equal(t, models.TrackingStatusDelivered, TrackingStatusForCode("DL"))
	require.Equal(t, models.TrackingStatusDelivered, TrackingStatusForCode("dl"))
	require.Equal(t, models.TrackingStatusAtFedexFacility, TrackingStatusForCode("AR"))
	require.Equal(t, models.TrackingStatusException, TrackingStatusForCode("SE"))
	require.Equal(t, models.TrackingStatusOutForDelivery, TrackingStatusForCode("OD"))
	require.Equal(t, models.TrackingStatusUnknown, TrackingStatusForCode("ZZ"))
	require.Equal(t, models.TrackingStatusUnknown, TrackingStatusForCode(""))
}

func TestTransitDays(t *testing.T) {
	n, ok := TransitDays("FIVE_DAYS")
	require.True(t, ok)
	require.Equal(t, 5, n)

	n, ok = TransitDays("twenty_days")
	require.True(t, ok)
	require.Equal(t, 20, n)

	_, ok = TransitDays("UNKNOWN")
	require.False(t, ok)
	_, ok = TransitDays("A_FORTNIGHT")
	require.False(t, ok)
	_, ok = TransitDays("")
	require.False(t, ok)
}
