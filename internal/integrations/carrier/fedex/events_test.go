package fedex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/internal/models"
)

func us(city string) *RawAddress {
	return &RawAddress{City: city, State: "CA", PostalCode: "95817", CountryCode: "US"}
}

func TestReconstructEvents_FromTrackReply(t *testing.T) {
	reply, err := ParseTrackReply(fixture(t, "tracking_response.xml"))
	require.NoError(t, err)

	events := ReconstructEvents(reply.Events)
	require.Len(t, events, 6)
	for i := 1; i < len(events); i++ {
		require.False(t, events[i].Time.Before(events[i-1].Time))
	}
	for _, e := range events {
		require.NotEqual(t, "Shipment information sent to FedEx", e.Name)
		require.Equal(t, time.UTC, e.Time.Location())
	}

	require.Equal(t, "Picked up", events[0].Name)
	require.Equal(t, time.Date(2008, 12, 3, 12, 47, 0, 0, time.UTC), events[0].Time)
	require.Equal(t, "Delivered", events[5].Name)
	require.Equal(t, time.Date(2008, 12, 8, 7, 43, 0, 0, time.UTC), events[5].Time)
	require.Equal(t, "95817", events[5].Location.PostalCode)
}

func TestReconstructEvents_DropsUnusable(t *testing.T) {
	raw := []RawEvent{
		{Timestamp: "2013-03-11T10:00:00-04:00", Description: "no address"},
		{Timestamp: "2013-03-11T10:00:00-04:00", Description: "blank country", Address: &RawAddress{City: "X", CountryCode: "  "}},
		{Timestamp: "yesterday", Description: "bad time", Address: us("Sacramento")},
		{Timestamp: "", Description: "no time", Address: us("Sacramento")},
		{Timestamp: "2013-03-11T10:00:00", Description: "kept", Address: &RawAddress{CountryCode: "CA"}},
	}

	events := ReconstructEvents(raw)
	require.Len(t, events, 1)
	require.Equal(t, "kept", events[0].Name)
	require.Equal(t, models.UnknownPlace, events[0].Location.City)
	require.Equal(t, models.UnknownPlace, events[0].Location.State)
	require.Equal(t, "CA", events[0].Location.CountryCode)
}

func TestReconstructEvents_WallClockIgnoresOffset(t *testing.T) {
	events := ReconstructEvents([]RawEvent{
		{Timestamp: "2013-03-11T23:30:00-08:00", Description: "late", Address: us("A")},
		{Timestamp: "2013-03-11T23:00:00+09:00", Description: "early", Address: us("B")},
	})
	require.Len(t, events, 2)
	require.Equal(t, "early", events[0].Name)
	require.Equal(t, time.Date(2013, 3, 11, 23, 0, 0, 0, time.UTC), events[0].Time)
	require.Equal(t, time.Date(2013, 3, 11, 23, 30, 0, 0, time.UTC), events[1].Time)
}

func TestReconstructEvents_StableOnTies(t *testing.T) {
	ts := "2013-03-11T10:00:00Z"
	events := ReconstructEvents([]RawEvent{
		{Timestamp: "2013-03-12T10:00:00Z", Description: "later", Address: us("A")},
		{Timestamp: ts, Description: "first", Address: us("A")},
		{Timestamp: ts, Description: "second", Address: us("B")},
		{Timestamp: ts, Description: "third", Address: us("C")},
	})
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"first", "second", "third", "later"}, names)
}

func TestReconstructEvents_Empty(t *testing.T) {
	require.Empty(t, ReconstructEvents(nil))
}
