package fedex

import (
	"encoding/xml"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
)

const (
	rateNamespace  = "http://fedex.com/ws/rate/v6"
	trackNamespace = "http://fedex.com/ws/track/v3"

	kgToLb = 2.20462262185
	cmToIn = 1 / 2.54
)

// Countries still quoting in pounds and inches.
var imperialCountries = map[string]bool{"US": true, "LR": true, "MM": true}

type xmlAuth struct {
	Key      string `xml:"UserCredential>Key"`
	Password string `xml:"UserCredential>Password"`
}

type xmlClientDetail struct {
	AccountNumber string `xml:"AccountNumber"`
	MeterNumber   string `xml:"MeterNumber"`
}

type xmlTransactionDetail struct {
	CustomerTransactionID string `xml:"CustomerTransactionId"`
}

type xmlVersion struct {
	ServiceID    string `xml:"ServiceId"`
	Major        int    `xml:"Major"`
	Intermediate int    `xml:"Intermediate"`
	Minor        int    `xml:"Minor"`
}

type xmlPartyAddress struct {
	PostalCode  string `xml:"PostalCode"`
	CountryCode string `xml:"CountryCode"`
	Residential *bool  `xml:"Residential,omitempty"`
}

type xmlParty struct {
	Address xmlPartyAddress `xml:"Address"`
}

type xmlWeight struct {
	Units string `xml:"Units"`
	Value string `xml:"Value"`
}

type xmlDimensions struct {
	Length int    `xml:"Length"`
	Width  int    `xml:"Width"`
	Height int    `xml:"Height"`
	Units  string `xml:"Units"`
}

type xmlRequestedPackage struct {
	Weight     xmlWeight     `xml:"Weight"`
	Dimensions xmlDimensions `xml:"Dimensions"`
}

type xmlRequestedShipment struct {
	ShipTimestamp     string                `xml:"ShipTimestamp"`
	DropoffType       string                `xml:"DropoffType"`
	PackagingType     string                `xml:"PackagingType"`
	Shipper           xmlParty              `xml:"Shipper"`
	Recipient         xmlParty              `xml:"Recipient"`
	Origin            *xmlParty             `xml:"Origin,omitempty"`
	RateRequestTypes  string                `xml:"RateRequestTypes"`
	PackageCount      int                   `xml:"PackageCount"`
	RequestedPackages []xmlRequestedPackage `xml:"RequestedPackages"`
}

type xmlRateRequest struct {
	XMLName                 xml.Name             `xml:"http://fedex.com/ws/rate/v6 RateRequest"`
	WebAuthenticationDetail xmlAuth              `xml:"WebAuthenticationDetail"`
	ClientDetail            xmlClientDetail      `xml:"ClientDetail"`
	TransactionDetail       xmlTransactionDetail `xml:"TransactionDetail"`
	Version                 xmlVersion           `xml:"Version"`
	ReturnTransitAndCommit  bool                 `xml:"ReturnTransitAndCommit"`
	VariableOptions         string               `xml:"VariableOptions"`
	RequestedShipment       xmlRequestedShipment `xml:"RequestedShipment"`
}

type xmlPackageIdentifier struct {
	Value string `xml:"Value"`
	Type  string `xml:"Type"`
}

type xmlTrackRequest struct {
	XMLName                 xml.Name             `xml:"http://fedex.com/ws/track/v3 TrackRequest"`
	WebAuthenticationDetail xmlAuth              `xml:"WebAuthenticationDetail"`
	ClientDetail            xmlClientDetail      `xml:"ClientDetail"`
	TransactionDetail       xmlTransactionDetail `xml:"TransactionDetail"`
	Version                 xmlVersion           `xml:"Version"`
	PackageIdentifier       xmlPackageIdentifier `xml:"PackageIdentifier"`
	ShipDateRangeBegin      string               `xml:"ShipDateRangeBegin,omitempty"`
	ShipDateRangeEnd        string               `xml:"ShipDateRangeEnd,omitempty"`
	IncludeDetailedScans    bool                 `xml:"IncludeDetailedScans"`
}

func header(creds carrier.Credentials, txID string) (xmlAuth, xmlClientDetail, xmlTransactionDetail) {
	return xmlAuth{Key: creds.Key, Password: creds.Password},
		xmlClientDetail{AccountNumber: creds.Account, MeterNumber: creds.Meter},
		xmlTransactionDetail{CustomerTransactionID: txID}
}

type rateRequestInput struct {
	Origin      models.Location
	Destination models.Location
	Packages    []models.Package
	Options     carrier.RateOptions
	Now         time.Time
}

func buildRateRequest(creds carrier.Credentials, txID string, in rateRequestInput) ([]byte, error) {
	auth, client, tx := header(creds, txID)

	shipper := in.Origin
	if in.Options.Shipper != nil {
		shipper = *in.Options.Shipper
	}
	imperial := imperialCountries[in.Origin.CountryCode]

	shipment := xmlRequestedShipment{
		ShipTimestamp:    ShipTimestamp(in.Now, in.Options.TurnAroundTimeHours).Format(ShipTimestampLayout),
		DropoffType:      "REGULAR_PICKUP",
		PackagingType:    "YOUR_PACKAGING",
		Shipper:          party(shipper),
		Recipient:        party(in.Destination),
		RateRequestTypes: "ACCOUNT",
		PackageCount:     len(in.Packages),
	}
	if shipper != in.Origin {
		origin := party(in.Origin)
		shipment.Origin = &origin
	}
	for _, p := range in.Packages {
		shipment.RequestedPackages = append(shipment.RequestedPackages, requestedPackage(p, imperial))
	}

	req := xmlRateRequest{
		WebAuthenticationDetail: auth,
		ClientDetail:            client,
		TransactionDetail:       tx,
		Version:                 xmlVersion{ServiceID: "crs", Major: 6},
		ReturnTransitAndCommit:  true,
		VariableOptions:         "SATURDAY_DELIVERY",
		RequestedShipment:       shipment,
	}
	b, err := xml.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal rate request")
	}
	return b, nil
}

func buildTrackRequest(creds carrier.Credentials, txID, trackingNumber string, opts carrier.TrackingOptions) ([]byte, error) {
	auth, client, tx := header(creds, txID)

	req := xmlTrackRequest{
		WebAuthenticationDetail: auth,
		ClientDetail:            client,
		TransactionDetail:       tx,
		Version:                 xmlVersion{ServiceID: "trck", Major: 3},
		PackageIdentifier:       xmlPackageIdentifier{Value: trackingNumber, Type: "TRACKING_NUMBER_OR_DOORTAG"},
		IncludeDetailedScans:    true,
	}
	if opts.ShipDateRangeBegin != nil {
		req.ShipDateRangeBegin = opts.ShipDateRangeBegin.String()
	}
	if opts.ShipDateRangeEnd != nil {
		req.ShipDateRangeEnd = opts.ShipDateRangeEnd.String()
	}
	b, err := xml.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal track request")
	}
	return b, nil
}

func party(loc models.Location) xmlParty {
	a := xmlPartyAddress{PostalCode: loc.PostalCode, CountryCode: loc.CountryCode}
	if !loc.Commercial() {
		residential := true
		a.Residential = &residential
	}
	return xmlParty{Address: a}
}

func requestedPackage(p models.Package, imperial bool) xmlRequestedPackage {
	weight, length, width, height := p.WeightKg, p.LengthCm, p.WidthCm, p.HeightCm
	weightUnits, dimUnits := "KG", "CM"
	if imperial {
		weight *= kgToLb
		length, width, height = length*cmToIn, width*cmToIn, height*cmToIn
		weightUnits, dimUnits = "LB", "IN"
	}

	return xmlRequestedPackage{
		Weight: xmlWeight{
			Units: weightUnits,
			Value: strconv.FormatFloat(math.Max(round3(weight), 0.1), 'f', -1, 64),
		},
		Dimensions: xmlDimensions{
			Length: ceilDim(length),
			Width:  ceilDim(width),
			Height: ceilDim(height),
			Units:  dimUnits,
		},
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func ceilDim(v float64) int {
	return int(math.Ceil(round3(v)))
}
