package fulfillment

import "fmt"

// Level is the severity of a diagnostic
type Level string

const (
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ReasonCode identifies why a line or group was flagged
type ReasonCode string

const (
	ReasonAlreadyFulfilled   ReasonCode = "already-fulfilled"
	ReasonNoShippingData     ReasonCode = "no-json"
	ReasonBadShippingData    ReasonCode = "bad-json"
	ReasonBadShipDate        ReasonCode = "bad-date"
	ReasonNoItem             ReasonCode = "no-item"
	ReasonInvalidQuantity    ReasonCode = "invalid-quantity"
	ReasonNoLocation         ReasonCode = "no-location"
	ReasonZeroAmount         ReasonCode = "zero-amount"
	ReasonNoMatch            ReasonCode = "no-match"
	ReasonNoDestinationLines ReasonCode = "no-destination-lines"
	ReasonNothingReceived    ReasonCode = "nothing-received"
	ReasonTransformFailed    ReasonCode = "transform-failed"
	ReasonSaveFailed         ReasonCode = "save-failed"
	ReasonBudgetExhausted    ReasonCode = "budget-exhausted"
)

// NoLine marks a diagnostic that applies to a whole group
const NoLine = -1

// Diagnostic records a skipped line or group without aborting processing
type Diagnostic struct {
	Level          Level      `json:"level"`
	Code           ReasonCode `json:"code"`
	LocationID     string     `json:"location_id,omitempty"`
	LineIndex      int        `json:"line_index"`
	SequenceNumber int        `json:"sequence_number,omitempty"`
	Message        string     `json:"message"`
}

// String renders the diagnostic for logs and summaries
func (d Diagnostic) String() string {
	if d.LineIndex == NoLine {
		return fmt.Sprintf("%s %s location=%s: %s", d.Level, d.Code, d.LocationID, d.Message)
	}
	return fmt.Sprintf("%s %s line=%d seq=%d location=%s: %s",
		d.Level, d.Code, d.LineIndex, d.SequenceNumber, d.LocationID, d.Message)
}

func lineDiagnostic(level Level, code ReasonCode, line OrderLine, msg string) Diagnostic {
	return Diagnostic{
		Level:          level,
		Code:           code,
		LocationID:     line.LocationID,
		LineIndex:      line.LineIndex,
		SequenceNumber: line.SequenceNumber,
		Message:        msg,
	}
}

// GroupDiagnostic builds a group-level diagnostic
func GroupDiagnostic(level Level, code ReasonCode, locationID, msg string) Diagnostic {
	return Diagnostic{
		Level:      level,
		Code:       code,
		LocationID: locationID,
		LineIndex:  NoLine,
		Message:    msg,
	}
}

// Errors returns only the ERROR level diagnostics
func Errors(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0)
	for _, d := range diags {
		if d.Level == LevelError {
			out = append(out, d)
		}
	}
	return out
}
