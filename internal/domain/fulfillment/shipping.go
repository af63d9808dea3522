package fulfillment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoShippingData is returned when a line carries no shipping blob or no tracking number
	ErrNoShippingData = errors.New("line has no shipping data")
	// ErrMalformedShippingData is returned when the shipping blob is not valid JSON
	ErrMalformedShippingData = errors.New("line shipping data is malformed")
	// ErrMalformedShipDate is returned when the ship date matches none of the accepted layouts
	ErrMalformedShipDate = errors.New("line ship date is malformed")
)

// shipDateLayouts are tried in order. Day-first dates are not accepted.
var shipDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
}

// ShippingInfo is the parsed form of a line's shipping blob
type ShippingInfo struct {
	TrackingNumber string
	TrackingURL    string
	ShipDate       *time.Time
	ShipmentID     string
}

type shippingPayload struct {
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
	ShipDate       string `json:"shipDate"`
	ShipmentID     string `json:"shipmentId"`
}

// ParseShippingInfo decodes the raw shipping blob of an order line
func ParseShippingInfo(raw string) (ShippingInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ShippingInfo{}, ErrNoShippingData
	}

	var payload shippingPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ShippingInfo{}, fmt.Errorf("%w: %v", ErrMalformedShippingData, err)
	}

	info := ShippingInfo{
		TrackingNumber: strings.TrimSpace(payload.TrackingNumber),
		TrackingURL:    strings.TrimSpace(payload.TrackingURL),
		ShipmentID:     strings.TrimSpace(payload.ShipmentID),
	}
	if info.TrackingNumber == "" {
		return ShippingInfo{}, ErrNoShippingData
	}

	if s := strings.TrimSpace(payload.ShipDate); s != "" {
		d, err := ParseShipDate(s)
		if err != nil {
			return ShippingInfo{}, err
		}
		info.ShipDate = &d
	}
	return info, nil
}

// ParseShipDate parses a ship date using the accepted layouts
func ParseShipDate(s string) (time.Time, error) {
	for _, layout := range shipDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedShipDate, s)
}
