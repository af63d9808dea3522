package csvimport

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// Row statuses written to a summary
const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

// SummaryLine is the outcome of one imported row
type SummaryLine struct {
	Row     int
	Status  string
	Message string
}

// WriteSummary renders lines as a row,status,message CSV document
func WriteSummary(lines []SummaryLine) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"row", "status", "message"}); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := w.Write([]string{strconv.Itoa(l.Row), l.Status, l.Message}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
