package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Parser reads a headed CSV file row by row. Quoted fields, embedded
// commas and a leading UTF-8 BOM are handled; other encodings are rejected.
type Parser struct {
	delimiter rune
	maxRows   int
	headers   []string
	headerMap map[string]int
	line      int // data rows read, including malformed ones
	rows      int
	reader    *csv.Reader
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *Parser) { p.delimiter = d }
}

// WithMaxRows caps the number of data rows; 0 means unlimited
func WithMaxRows(n int) ParserOption {
	return func(p *Parser) { p.maxRows = n }
}

// NewParser wraps r and validates that it holds UTF-8 text
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	p := &Parser{delimiter: ',', headerMap: make(map[string]int)}
	for _, opt := range opts {
		opt(p)
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	head, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(head, len(head) == peekSize) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

const peekSize = 4096

// validPrefix reports whether b is valid UTF-8. When b was cut at the peek
// window, a multi-byte rune split at the end is allowed.
func validPrefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}
	for i := 0; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

// ParseHeader reads the header row. Header names are trimmed and lowercased.
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers[i] = name
		p.headerMap[name] = i
	}
	return nil
}

// Headers returns the parsed header names
func (p *Parser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the required headers absent from the file
func (p *Parser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.headerMap[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by header name. LineNumber counts data rows
// from 1, not counting the header.
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

// Get returns the trimmed value of a column, or "" if absent
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next data row, or io.EOF when the file is exhausted.
// A malformed record returns a *RowError and the parser can continue.
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if p.maxRows > 0 && p.rows >= p.maxRows {
		return nil, ErrTooManyRows
	}
	p.line++
	if err != nil {
		return nil, &RowError{Row: p.line, Code: ErrCodeMalformedRow, Message: err.Error()}
	}
	p.rows++

	row := &Row{LineNumber: p.line, Data: make(map[string]string, len(p.headers)), RawFields: record}
	for i, h := range p.headers {
		if i < len(record) {
			row.Data[h] = strings.TrimSpace(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row, nil
}

// Rows returns the number of data rows read so far
func (p *Parser) Rows() int {
	return p.rows
}
