package fulfillment

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GroupLine is an eligible order line together with its parsed shipping data
type GroupLine struct {
	OrderLine
	Shipping ShippingInfo
}

// LocationGroup is the set of eligible lines sharing one location.
// ShipDate and ShipmentID are taken from the first member that carries them.
type LocationGroup struct {
	LocationID  string
	Lines       []GroupLine
	ShipDate    *time.Time
	ShipmentID  string
	TotalAmount decimal.Decimal
}

func (g *LocationGroup) add(line GroupLine) {
	g.Lines = append(g.Lines, line)
	g.TotalAmount = g.TotalAmount.Add(line.Amount)
	if g.ShipDate == nil && line.Shipping.ShipDate != nil {
		d := *line.Shipping.ShipDate
		g.ShipDate = &d
	}
	if g.ShipmentID == "" && line.Shipping.ShipmentID != "" {
		g.ShipmentID = line.Shipping.ShipmentID
	}
}

// LineIndices returns the source line indices of the group members
func (g *LocationGroup) LineIndices() []int {
	out := make([]int, len(g.Lines))
	for i, l := range g.Lines {
		out[i] = l.LineIndex
	}
	return out
}

// Partitioning is the outcome of grouping an order's lines by location
type Partitioning struct {
	Groups      []*LocationGroup
	Diagnostics []Diagnostic
}

// Partition filters the order lines to the eligible ones and groups them by
// location. Members are ordered by sequence number and groups by location id,
// so the result does not depend on the order the host returned lines in.
func Partition(lines []OrderLine) Partitioning {
	result := Partitioning{
		Groups:      make([]*LocationGroup, 0),
		Diagnostics: make([]Diagnostic, 0),
	}

	eligible := make([]GroupLine, 0, len(lines))
	for _, line := range lines {
		gl, diag, ok := checkLine(line)
		if diag != nil {
			result.Diagnostics = append(result.Diagnostics, *diag)
		}
		if ok {
			eligible = append(eligible, gl)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].SequenceNumber < eligible[j].SequenceNumber
	})

	byLocation := make(map[string]*LocationGroup)
	for _, gl := range eligible {
		group, ok := byLocation[gl.LocationID]
		if !ok {
			group = &LocationGroup{LocationID: gl.LocationID, TotalAmount: decimal.Zero}
			byLocation[gl.LocationID] = group
			result.Groups = append(result.Groups, group)
		}
		group.add(gl)
	}

	sort.Slice(result.Groups, func(i, j int) bool {
		return result.Groups[i].LocationID < result.Groups[j].LocationID
	})
	return result
}

// checkLine decides whether a line joins a group. A zero amount line is kept
// with a warning.
func checkLine(line OrderLine) (GroupLine, *Diagnostic, bool) {
	if line.Fulfilled {
		d := lineDiagnostic(LevelWarn, ReasonAlreadyFulfilled, line, "line was fulfilled by an earlier run")
		return GroupLine{}, &d, false
	}

	info, err := ParseShippingInfo(line.ShippingData)
	if err != nil {
		code := ReasonBadShippingData
		switch {
		case errors.Is(err, ErrNoShippingData):
			code = ReasonNoShippingData
		case errors.Is(err, ErrMalformedShipDate):
			code = ReasonBadShipDate
		}
		d := lineDiagnostic(LevelWarn, code, line, err.Error())
		return GroupLine{}, &d, false
	}

	if line.ItemID == "" {
		d := lineDiagnostic(LevelWarn, ReasonNoItem, line, "line has no item")
		return GroupLine{}, &d, false
	}
	if !line.Quantity.IsPositive() {
		d := lineDiagnostic(LevelWarn, ReasonInvalidQuantity, line, "quantity must be positive, got "+line.Quantity.String())
		return GroupLine{}, &d, false
	}
	if line.LocationID == "" {
		d := lineDiagnostic(LevelWarn, ReasonNoLocation, line, "line has no location")
		return GroupLine{}, &d, false
	}

	gl := GroupLine{OrderLine: line, Shipping: info}
	if line.Amount.IsZero() {
		d := lineDiagnostic(LevelWarn, ReasonZeroAmount, line, "line amount is zero")
		return gl, &d, true
	}
	return gl, nil, true
}
