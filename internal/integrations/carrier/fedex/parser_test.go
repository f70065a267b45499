package fedex

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
)

func TestDetectKind(t *testing.T) {
	kind, err := DetectKind(fixture(t, "ottawa_to_beverly_hills_rate_response.xml"))
	require.NoError(t, err)
	require.Equal(t, ReplyKindRate, kind)

	kind, err = DetectKind(fixture(t, "tracking_response.xml"))
	require.NoError(t, err)
	require.Equal(t, ReplyKindTrack, kind)

	kind, err = DetectKind([]byte(`<ShipReply/>`))
	require.NoError(t, err)
	require.Equal(t, ReplyKindUnknown, kind)
}

func TestParse_MalformedBodies(t *testing.T) {
	cases := map[string][]byte{
		"empty":          nil,
		"whitespace":     []byte("  \n\t "),
		"no root":        []byte("not xml at all"),
		"mismatched tag": fixture(t, "invalid_fedex_reply.xml"),
		"truncated":      []byte(`<v6:RateReply xmlns:v6="http://fedex.com/ws/rate/v6"><v6:HighestSeverity>SUCC`),
		"trailing junk":  []byte(`<RateReply><HighestSeverity>SUCCESS</HighestSeverity></RateReply><oops`),
		"extra end tag":  []byte(`<RateReply><HighestSeverity>SUCCESS</HighestSeverity></RateReply></RateReply>`),
		"second root":    []byte(`<RateReply><HighestSeverity>SUCCESS</HighestSeverity></RateReply><RateReply/>`),
		"trailing text":  []byte(`<RateReply><HighestSeverity>SUCCESS</HighestSeverity></RateReply>tail`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRateReply(body)
			require.ErrorIs(t, err, carrier.ErrResponseContent)

			var contentErr *carrier.ResponseContentError
			require.ErrorAs(t, err, &contentErr)

			_, err = ParseTrackReply(body)
			require.ErrorIs(t, err, carrier.ErrResponseContent)
		})
	}
}

func TestParse_TrailingCommentAllowed(t *testing.T) {
	reply, err := ParseRateReply([]byte("<RateReply><HighestSeverity>SUCCESS</HighestSeverity></RateReply>\n<!-- end -->\n"))
	require.NoError(t, err)
	require.True(t, reply.Success)
}

func TestParseTrackReply_Latin1(t *testing.T) {
	body := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<TrackReply><HighestSeverity>SUCCESS</HighestSeverity><TrackDetails>" +
		"<StatusCode>IT</StatusCode><StatusDescription>In transit</StatusDescription>" +
		"<OriginLocationAddress><City>Montr\xe9al</City><CountryCode>CA</CountryCode></OriginLocationAddress>" +
		"</TrackDetails></TrackReply>")

	reply, err := ParseTrackReply(body)
	require.NoError(t, err)
	require.True(t, reply.Success)
	require.Equal(t, "Montréal", reply.Origin.City)
	require.NotNil(t, reply.Params)
}

func TestParse_WrongReplyKind(t *testing.T) {
	_, err := ParseRateReply(fixture(t, "tracking_response.xml"))
	require.ErrorIs(t, err, carrier.ErrResponseContent)

	_, err = ParseTrackReply(fixture(t, "ottawa_to_beverly_hills_rate_response.xml"))
	require.ErrorIs(t, err, carrier.ErrResponseContent)
}

func TestParseRateReply(t *testing.T) {
	reply, err := ParseRateReply(fixture(t, "ottawa_to_beverly_hills_rate_response.xml"))
	require.NoError(t, err)

	require.True(t, reply.Success)
	require.Equal(t, "SUCCESS - 0: Request was successfully processed.", reply.Message)
	require.NotEmpty(t, reply.Params)
	require.Len(t, reply.Quotes, 1)

	q := reply.Quotes[0]
	require.Equal(t, "FEDEX_GROUND", q.ServiceType)
	require.Equal(t, "FEDEX_GROUND", q.ServiceCode())
	require.Equal(t, "CAD", q.Currency)
	require.EqualValues(t, 3836, q.TotalNetCharge)
	require.Equal(t, &civil.Date{Year: 2011, Month: time.July, Day: 29}, q.DeliveryDate)
	require.NotNil(t, q.TransitDays)
	require.Equal(t, 5, *q.TransitDays)
	require.Nil(t, q.MaxTransitDays)
}

func TestParseRateReply_WarningAndOptions(t *testing.T) {
	reply, err := ParseRateReply(fixture(t, "raterequest_reply.xml"))
	require.NoError(t, err)

	require.True(t, reply.Success, "WARNING counts as success")
	require.Equal(t, "WARNING - 556: There are no valid services available.", reply.Message)
	require.Len(t, reply.Quotes, 3)

	saver := reply.Quotes[1]
	require.Equal(t, "FEDEX_EXPRESS_SAVER_SATURDAY_DELIVERY", saver.ServiceCode())
	require.EqualValues(t, 10405, saver.TotalNetCharge)
	require.Equal(t, 2, *saver.TransitDays)
	require.Equal(t, 4, *saver.MaxTransitDays)

	weird := reply.Quotes[2]
	require.EqualValues(t, 1201, weird.TotalNetCharge)
	require.Nil(t, weird.TransitDays)
	require.Nil(t, weird.DeliveryDate)
}

func TestParseRateReply_ErrorSeverity(t *testing.T) {
	reply, err := ParseRateReply(fixture(t, "rate_error_reply.xml"))
	require.NoError(t, err)

	require.False(t, reply.Success)
	require.Equal(t, "ERROR - 521: Destination postal code missing or invalid.", reply.Message)
	require.Empty(t, reply.Quotes)
}

func TestParseRateReply_DefaultNamespace(t *testing.T) {
	reply, err := ParseRateReply(fixture(t, "rate_success_no_details.xml"))
	require.NoError(t, err)
	require.True(t, reply.Success)
	require.Empty(t, reply.Message)
	require.Empty(t, reply.Quotes)
}

func TestParseTrackReply(t *testing.T) {
	reply, err := ParseTrackReply(fixture(t, "tracking_response.xml"))
	require.NoError(t, err)

	require.True(t, reply.Success)
	require.Equal(t, "077973360403984", reply.TrackingNumber)
	require.Equal(t, "DL", reply.StatusCode)
	require.Equal(t, "Delivered", reply.StatusDescription)
	require.True(t, reply.Delivered)
	require.NotNil(t, reply.DeliverySignature)
	require.Equal(t, "KKING", *reply.DeliverySignature)

	require.Equal(t, "NASHVILLE", reply.Origin.City)
	require.Equal(t, "TN", reply.Origin.State)
	require.Equal(t, "SACRAMENTO", reply.Destination.City)
	require.Equal(t, "CA", reply.Destination.State)
	require.Nil(t, reply.Shipper)

	require.NotNil(t, reply.ShipTime)
	require.Equal(t, time.Date(2008, 12, 3, 0, 0, 0, 0, time.UTC), *reply.ShipTime)
	require.Len(t, reply.Events, 7)
	require.NotEmpty(t, reply.Params)
}

func TestParseTrackReply_MissingDestination(t *testing.T) {
	reply, err := ParseTrackReply(fixture(t, "tracking_response_no_destination.xml"))
	require.NoError(t, err)

	require.Equal(t, models.UnknownLocation(), reply.Destination)
	require.Equal(t, "unknown", reply.Destination.City)
	require.Equal(t, "ZZ", reply.Destination.CountryCode)
}

func TestParseTrackReply_ShipperAndShipTime(t *testing.T) {
	reply, err := ParseTrackReply(fixture(t, "tracking_response_with_shipper_address.xml"))
	require.NoError(t, err)
	require.NotNil(t, reply.Shipper)
	require.Equal(t, "WALLINGFORD", reply.Shipper.City)
	require.Equal(t, "CT", reply.Shipper.State)

	reply, err = ParseTrackReply(fixture(t, "tracking_response_no_ship_time.xml"))
	require.NoError(t, err)
	require.Nil(t, reply.ShipTime)
}

func TestParseTrackReply_SignatureOnlyWhenDelivered(t *testing.T) {
	body := []byte(`<TrackReply>
  <HighestSeverity>SUCCESS</HighestSeverity>
  <TrackDetails>
    <StatusCode>IT</StatusCode>
    <DeliverySignatureName>KKING</DeliverySignatureName>
    <SignatureProofOfDeliveryAvailable>true</SignatureProofOfDeliveryAvailable>
  </TrackDetails>
</TrackReply>`)
	reply, err := ParseTrackReply(body)
	require.NoError(t, err)
	require.False(t, reply.Delivered)
	require.Nil(t, reply.DeliverySignature)

	body = []byte(`<TrackReply>
  <HighestSeverity>SUCCESS</HighestSeverity>
  <TrackDetails>
    <StatusCode>DL</StatusCode>
    <DeliverySignatureName>KKING</DeliverySignatureName>
    <SignatureProofOfDeliveryAvailable>false</SignatureProofOfDeliveryAvailable>
  </TrackDetails>
</TrackReply>`)
	reply, err = ParseTrackReply(body)
	require.NoError(t, err)
	require.True(t, reply.Delivered)
	require.Nil(t, reply.DeliverySignature)
}

func TestParseTrackReply_ActualDeliveryAddressFallback(t *testing.T) {
	body := []byte(`<TrackReply>
  <HighestSeverity>SUCCESS</HighestSeverity>
  <TrackDetails>
    <StatusCode>DL</StatusCode>
    <ActualDeliveryAddress>
      <City>Beverly Hills</City>
      <CountryCode>US</CountryCode>
    </ActualDeliveryAddress>
  </TrackDetails>
</TrackReply>`)
	reply, err := ParseTrackReply(body)
	require.NoError(t, err)
	require.Equal(t, "Beverly Hills", reply.Destination.City)
	require.Equal(t, models.UnknownPlace, reply.Destination.State)
	require.Equal(t, "US", reply.Destination.CountryCode)
	require.Equal(t, models.UnknownLocation(), reply.Origin)
}

func TestParseTrackReply_NoDetails(t *testing.T) {
	reply, err := ParseTrackReply([]byte(`<TrackReply><HighestSeverity>ERROR</HighestSeverity>
<Notifications><Severity>ERROR</Severity><Code>9040</Code><Message>No information for the following shipments has been received by our system yet.</Message></Notifications>
</TrackReply>`))
	require.NoError(t, err)
	require.False(t, reply.Success)
	require.Equal(t, "ERROR - 9040: No information for the following shipments has been received by our system yet.", reply.Message)
	require.Empty(t, reply.Events)
	require.Equal(t, models.UnknownLocation(), reply.Destination)
}
