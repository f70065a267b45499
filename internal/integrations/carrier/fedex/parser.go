package fedex

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/clbanning/mxj/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
)

func init() {
	mxj.XmlCharsetReader = charset.NewReaderLabel
}

type ReplyKind string

const (
	ReplyKindUnknown ReplyKind = ""
	ReplyKindRate    ReplyKind = "RateReply"
	ReplyKindTrack   ReplyKind = "TrackReply"
)

// Reply is what every FedEx reply carries.
type Reply struct {
	Success bool
	Message string
	Params  map[string]any
}

type RateQuote struct {
	ServiceType    string
	AppliedOptions string
	Currency       string
	TotalNetCharge int64
	DeliveryDate   *civil.Date
	TransitDays    *int
	MaxTransitDays *int
}

// ServiceCode is the service type with the Saturday delivery suffix applied.
func (q RateQuote) ServiceCode() string {
	if q.AppliedOptions == "SATURDAY_DELIVERY" {
		return q.ServiceType + "_SATURDAY_DELIVERY"
	}
	return q.ServiceType
}

type RateReply struct {
	Reply
	Quotes []RateQuote
}

type RawAddress struct {
	City        string
	State       string
	PostalCode  string
	CountryCode string
	Residential bool
}

type RawEvent struct {
	Timestamp   string
	EventType   string
	Description string
	Address     *RawAddress
}

type TrackReply struct {
	Reply
	TrackingNumber    string
	StatusCode        string
	StatusDescription string
	Delivered         bool
	DeliverySignature *string
	Origin            models.Location
	Destination       models.Location
	Shipper           *models.Location
	ShipTime          *time.Time
	Events            []RawEvent
}

type xmlNotification struct {
	Severity string `xml:"Severity"`
	Source   string `xml:"Source"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

type xmlHeader struct {
	HighestSeverity string            `xml:"HighestSeverity"`
	Notifications   []xmlNotification `xml:"Notifications"`
}

type xmlMoney struct {
	Currency string `xml:"Currency"`
	Amount   string `xml:"Amount"`
}

type xmlRatedShipmentDetail struct {
	RateType       string   `xml:"ShipmentRateDetail>RateType"`
	TotalNetCharge xmlMoney `xml:"ShipmentRateDetail>TotalNetCharge"`
}

type xmlRateReplyDetail struct {
	ServiceType          string                   `xml:"ServiceType"`
	AppliedOptions       string                   `xml:"AppliedOptions"`
	DeliveryTimestamp    string                   `xml:"DeliveryTimestamp"`
	TransitTime          string                   `xml:"TransitTime"`
	MaximumTransitTime   string                   `xml:"MaximumTransitTime"`
	RatedShipmentDetails []xmlRatedShipmentDetail `xml:"RatedShipmentDetails"`
}

type xmlRateReply struct {
	XMLName xml.Name `xml:"RateReply"`
	xmlHeader
	RateReplyDetails []xmlRateReplyDetail `xml:"RateReplyDetails"`
}

type xmlAddress struct {
	City                string `xml:"City"`
	StateOrProvinceCode string `xml:"StateOrProvinceCode"`
	PostalCode          string `xml:"PostalCode"`
	CountryCode         string `xml:"CountryCode"`
	Residential         string `xml:"Residential"`
}

type xmlTrackEvent struct {
	Timestamp        string      `xml:"Timestamp"`
	EventType        string      `xml:"EventType"`
	EventDescription string      `xml:"EventDescription"`
	Address          *xmlAddress `xml:"Address"`
}

type xmlTrackDetails struct {
	TrackingNumber                    string          `xml:"TrackingNumber"`
	StatusCode                        string          `xml:"StatusCode"`
	StatusDescription                 string          `xml:"StatusDescription"`
	OriginLocationAddress             *xmlAddress     `xml:"OriginLocationAddress"`
	DestinationAddress                *xmlAddress     `xml:"DestinationAddress"`
	ActualDeliveryAddress             *xmlAddress     `xml:"ActualDeliveryAddress"`
	ShipperAddress                    *xmlAddress     `xml:"ShipperAddress"`
	ShipTimestamp                     string          `xml:"ShipTimestamp"`
	DeliverySignatureName             string          `xml:"DeliverySignatureName"`
	SignatureProofOfDeliveryAvailable string          `xml:"SignatureProofOfDeliveryAvailable"`
	Events                            []xmlTrackEvent `xml:"Events"`
}

type xmlTrackReply struct {
	XMLName xml.Name `xml:"TrackReply"`
	xmlHeader
	TrackDetails []xmlTrackDetails `xml:"TrackDetails"`
}

// DetectKind reads the root element of a reply without decoding the rest.
func DetectKind(body []byte) (ReplyKind, error) {
	root, err := rootElement(body)
	if err != nil {
		return ReplyKindUnknown, err
	}
	switch ReplyKind(root) {
	case ReplyKindRate, ReplyKindTrack:
		return ReplyKind(root), nil
	default:
		return ReplyKindUnknown, nil
	}
}

func rootElement(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", carrier.NewResponseContentError("empty body", body)
	}
	dec := newDecoder(body)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", carrier.NewResponseContentError("no root element", body)
		}
		if err != nil {
			return "", carrier.NewResponseContentError(err.Error(), body)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func decode(body []byte, want ReplyKind, v any) error {
	kind, err := DetectKind(body)
	if err != nil {
		return err
	}
	if kind != want {
		return carrier.NewResponseContentError("expected "+string(want)+" root element", body)
	}
	dec := newDecoder(body)
	if err := dec.Decode(v); err != nil {
		return carrier.NewResponseContentError(err.Error(), body)
	}
	// после корня допустимы только пробелы, комментарии и PI
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return carrier.NewResponseContentError(err.Error(), body)
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			return carrier.NewResponseContentError("content after root element", body)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return carrier.NewResponseContentError("text after root element", body)
			}
		}
	}
}

func newDecoder(body []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// ParseRateReply decodes a RateReply body.
func ParseRateReply(body []byte) (*RateReply, error) {
	var x xmlRateReply
	if err := decode(body, ReplyKindRate, &x); err != nil {
		return nil, err
	}

	out := &RateReply{Reply: x.reply(body)}
	for _, d := range x.RateReplyDetails {
		q := RateQuote{
			ServiceType:    strings.TrimSpace(d.ServiceType),
			AppliedOptions: strings.TrimSpace(d.AppliedOptions),
			DeliveryDate:   parseDate(d.DeliveryTimestamp),
		}
		if len(d.RatedShipmentDetails) > 0 {
			charge := d.RatedShipmentDetails[0].TotalNetCharge
			q.Currency = strings.TrimSpace(charge.Currency)
			q.TotalNetCharge = minorUnits(charge.Amount)
		}
		if n, ok := TransitDays(d.TransitTime); ok {
			q.TransitDays = &n
		}
		if n, ok := TransitDays(d.MaximumTransitTime); ok {
			q.MaxTransitDays = &n
		}
		out.Quotes = append(out.Quotes, q)
	}
	return out, nil
}

// ParseTrackReply decodes a TrackReply body. Only the first TrackDetails
// block is read.
func ParseTrackReply(body []byte) (*TrackReply, error) {
	var x xmlTrackReply
	if err := decode(body, ReplyKindTrack, &x); err != nil {
		return nil, err
	}

	out := &TrackReply{
		Reply:       x.reply(body),
		Origin:      models.UnknownLocation(),
		Destination: models.UnknownLocation(),
	}
	if len(x.TrackDetails) == 0 {
		return out, nil
	}

	d := x.TrackDetails[0]
	out.TrackingNumber = strings.TrimSpace(d.TrackingNumber)
	out.StatusCode = strings.TrimSpace(d.StatusCode)
	out.StatusDescription = strings.TrimSpace(d.StatusDescription)
	out.Delivered = strings.EqualFold(out.StatusCode, "DL")

	if out.Delivered && strings.EqualFold(strings.TrimSpace(d.SignatureProofOfDeliveryAvailable), "true") {
		if sig := strings.TrimSpace(d.DeliverySignatureName); sig != "" {
			out.DeliverySignature = &sig
		}
	}

	if d.OriginLocationAddress != nil {
		out.Origin = d.OriginLocationAddress.location()
	}
	switch {
	case d.DestinationAddress != nil:
		out.Destination = d.DestinationAddress.location()
	case d.ActualDeliveryAddress != nil:
		out.Destination = d.ActualDeliveryAddress.location()
	}
	if d.ShipperAddress != nil {
		loc := d.ShipperAddress.location()
		out.Shipper = &loc
	}
	out.ShipTime = parseShipTime(d.ShipTimestamp)

	for _, e := range d.Events {
		raw := RawEvent{
			Timestamp:   strings.TrimSpace(e.Timestamp),
			EventType:   strings.TrimSpace(e.EventType),
			Description: strings.TrimSpace(e.EventDescription),
		}
		if e.Address != nil {
			raw.Address = e.Address.raw()
		}
		out.Events = append(out.Events, raw)
	}
	return out, nil
}

func (h xmlHeader) reply(body []byte) Reply {
	r := Reply{Params: params(body)}
	switch strings.ToUpper(strings.TrimSpace(h.HighestSeverity)) {
	case "SUCCESS", "WARNING", "NOTE":
		r.Success = true
	}
	if len(h.Notifications) > 0 {
		n := h.Notifications[0]
		r.Message = strings.TrimSpace(n.Severity) + " - " + strings.TrimSpace(n.Code) + ": " + strings.TrimSpace(n.Message)
	}
	return r
}

func params(body []byte) map[string]any {
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil
	}
	return map[string]any(m)
}

func (a *xmlAddress) raw() *RawAddress {
	return &RawAddress{
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.StateOrProvinceCode),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		CountryCode: strings.TrimSpace(a.CountryCode),
		Residential: strings.EqualFold(strings.TrimSpace(a.Residential), "true"),
	}
}

func (a *xmlAddress) location() models.Location {
	return a.raw().location().WithPlaceholders()
}

func (a *RawAddress) location() models.Location {
	loc := models.Location{
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
	}
	if a.Residential {
		loc.AddressType = models.AddressTypeResidential
	}
	return loc
}

// minorUnits converts "38.36" to 3836. Unparseable amounts yield 0.
func minorUnits(amount string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0
	}
	return d.Shift(2).Round(0).IntPart()
}

// parseDate reads the date component of a FedEx date or timestamp.
func parseDate(s string) *civil.Date {
	s = strings.TrimSpace(s)
	if len(s) < len("2006-01-02") {
		return nil
	}
	d, err := civil.ParseDate(s[:len("2006-01-02")])
	if err != nil {
		return nil
	}
	return &d
}

var shipTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseShipTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range shipTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
