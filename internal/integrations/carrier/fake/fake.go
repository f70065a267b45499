package fake

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
)

// Transport: локальный эмулятор FedEx XML API для демо без реальных ключей.
// Ответы детерминированы по номеру трека / индексам: часть треков станет DL.
type Transport struct {
	now func() time.Time
}

func New() *Transport { return &Transport{now: time.Now} }

// Credentials usable with the emulator.
func Credentials() carrier.Credentials {
	return carrier.Credentials{Key: "fake", Password: "fake", Account: "000000000", Meter: "000000000"}
}

type request struct {
	XMLName         xml.Name
	TrackingNumber  string `xml:"PackageIdentifier>Value"`
	ShipperPostal   string `xml:"RequestedShipment>Shipper>Address>PostalCode"`
	RecipientPostal string `xml:"RequestedShipment>Recipient>Address>PostalCode"`
	PackageCount    int    `xml:"RequestedShipment>PackageCount"`
}

func (f *Transport) Send(ctx context.Context, body []byte, creds carrier.Credentials, testMode bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var req request
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(err, "decode request")
	}

	switch req.XMLName.Local {
	case "RateRequest":
		return f.rateReply(req), nil
	case "TrackRequest":
		return f.trackReply(req), nil
	default:
		return nil, fmt.Errorf("fake fedex: unsupported request %q", req.XMLName.Local)
	}
}

func hash(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte("|"))
	}
	return h.Sum32()
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func (f *Transport) rateReply(req request) []byte {
	v := hash(req.ShipperPostal, req.RecipientPostal)
	pkgs := req.PackageCount
	if pkgs < 1 {
		pkgs = 1
	}
	ground := 1500 + int(v%4000) + 350*(pkgs-1)
	overnight := ground*3 + 999

	var b bytes.Buffer
	b.WriteString(`<RateReply xmlns="http://fedex.com/ws/rate/v6"><HighestSeverity>SUCCESS</HighestSeverity>`)
	b.WriteString(`<Notifications><Severity>SUCCESS</Severity><Source>crs</Source><Code>0</Code><Message>Request was successfully processed.</Message></Notifications>`)
	writeRate(&b, "FEDEX_GROUND", "", "FIVE_DAYS", "SEVEN_DAYS", ground)
	writeRate(&b, "PRIORITY_OVERNIGHT", "", "ONE_DAY", "", overnight)
	b.WriteString(`</RateReply>`)
	return b.Bytes()
}

func writeRate(b *bytes.Buffer, service, options, transit, maxTransit string, cents int) {
	fmt.Fprintf(b, `<RateReplyDetails><ServiceType>%s</ServiceType>`, service)
	if options != "" {
		fmt.Fprintf(b, `<AppliedOptions>%s</AppliedOptions>`, options)
	}
	fmt.Fprintf(b, `<TransitTime>%s</TransitTime>`, transit)
	if maxTransit != "" {
		fmt.Fprintf(b, `<MaximumTransitTime>%s</MaximumTransitTime>`, maxTransit)
	}
	fmt.Fprintf(b, `<RatedShipmentDetails><ShipmentRateDetail><RateType>PAYOR_ACCOUNT</RateType>`+
		`<TotalNetCharge><Currency>USD</Currency><Amount>%d.%02d</Amount></TotalNetCharge>`+
		`</ShipmentRateDetail></RatedShipmentDetails></RateReplyDetails>`, cents/100, cents%100)
}

func (f *Transport) trackReply(req request) []byte {
	now := f.now().UTC()
	v := hash(req.TrackingNumber)

	// 20% треков считаем доставленными
	code, desc := "IT", "In transit"
	if v%5 == 0 {
		code, desc = "DL", "Delivered"
	}
	shipped := now.Add(-time.Duration(24+v%48) * time.Hour).Truncate(time.Hour)

	var b bytes.Buffer
	b.WriteString(`<TrackReply xmlns="http://fedex.com/ws/track/v3"><HighestSeverity>SUCCESS</HighestSeverity>`)
	b.WriteString(`<Notifications><Severity>SUCCESS</Severity><Source>trck</Source><Code>0</Code><Message>Request was successfully processed.</Message></Notifications>`)
	fmt.Fprintf(&b, `<TrackDetails><TrackingNumber>%s</TrackingNumber><StatusCode>%s</StatusCode><StatusDescription>%s</StatusDescription>`,
		escape(req.TrackingNumber), code, desc)
	b.WriteString(`<OriginLocationAddress><City>MEMPHIS</City><StateOrProvinceCode>TN</StateOrProvinceCode><CountryCode>US</CountryCode></OriginLocationAddress>`)
	fmt.Fprintf(&b, `<ShipTimestamp>%s</ShipTimestamp>`, shipped.Format("2006-01-02T15:04:05"))
	b.WriteString(`<DestinationAddress><City>AUSTIN</City><StateOrProvinceCode>TX</StateOrProvinceCode><CountryCode>US</CountryCode></DestinationAddress>`)
	if code == "DL" {
		b.WriteString(`<DeliverySignatureName>FAKE</DeliverySignatureName><SignatureProofOfDeliveryAvailable>true</SignatureProofOfDeliveryAvailable>`)
	}
	writeEvent(&b, shipped, "PU", "Picked up", "MEMPHIS", "TN", "38118")
	writeEvent(&b, shipped.Add(6*time.Hour), "DP", "Departed FedEx location", "MEMPHIS", "TN", "38118")
	if code == "DL" {
		writeEvent(&b, shipped.Add(20*time.Hour), "DL", "Delivered", "AUSTIN", "TX", "78701")
	}
	b.WriteString(`</TrackDetails></TrackReply>`)
	return b.Bytes()
}

func writeEvent(b *bytes.Buffer, at time.Time, typ, desc, city, state, postal string) {
	fmt.Fprintf(b, `<Events><Timestamp>%s</Timestamp><EventType>%s</EventType><EventDescription>%s</EventDescription>`+
		`<Address><City>%s</City><StateOrProvinceCode>%s</StateOrProvinceCode><PostalCode>%s</PostalCode><CountryCode>US</CountryCode></Address></Events>`,
		at.Format("2006-01-02T15:04:05"), typ, desc, city, state, postal)
}
