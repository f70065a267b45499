package models

// Плейсхолдеры для отсутствующих полей адреса.
const (
	UnknownPlace       = "unknown"
	UnknownCountryCode = "ZZ"
)

type AddressType string

const (
	AddressTypeResidential AddressType = "residential"
	AddressTypeCommercial  AddressType = "commercial"
)

type Location struct {
	City        string      `json:"city"`
	State       string      `json:"state"`
	PostalCode  string      `json:"postal_code,omitempty"`
	CountryCode string      `json:"country_code"`
	AddressType AddressType `json:"address_type,omitempty"`
}

// UnknownLocation is the location used when the carrier reports no address.
func UnknownLocation() Location {
	return Location{City: UnknownPlace, State: UnknownPlace, CountryCode: UnknownCountryCode}
}

// WithPlaceholders fills blank city, state and country with placeholders.
func (l Location) WithPlaceholders() Location {
	if l.City == "" {
		l.City = UnknownPlace
	}
	if l.State == "" {
		l.State = UnknownPlace
	}
	if l.CountryCode == "" {
		l.CountryCode = UnknownCountryCode
	}
	return l
}

func (l Location) Commercial() bool {
	return l.AddressType == AddressTypeCommercial
}
