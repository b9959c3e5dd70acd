package models

// Location is a place resolved through Google Maps
type Location struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// Label is the human readable text stored on an event
func (l Location) Label() string {
	switch {
	case l.Name != "" && l.FormattedAddress != "" && l.Name != l.FormattedAddress:
		return l.Name + ", " + l.FormattedAddress
	case l.FormattedAddress != "":
		return l.FormattedAddress
	}
	return l.Name
}
