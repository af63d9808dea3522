package timetracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/timetracking"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/notification"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Column names of a time-tracking CSV
const (
	ColEmployee = "employee"
	ColProject  = "project"
	ColDate     = "date"
	ColHours    = "hours"
	ColMemo     = "memo"
)

const maxReportedErrors = 100

// ErrInvalidFile is returned when the upload cannot be read as a
// time-tracking CSV at all
var ErrInvalidFile = shared.NewDomainError("INVALID_FILE", "File is not a valid time-tracking CSV")

// FileStorage is the part of the file store the import uses
type FileStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// Mailer delivers summary mails
type Mailer interface {
	Send(ctx context.Context, msg notification.Message) error
}

// ImportOptions configures an ImportService
type ImportOptions struct {
	DateLayout    string
	SummaryPrefix string
	MaxRows       int
	Recipients    []string
}

// RowResult is the outcome of one data row
type RowResult struct {
	Row     int    `json:"row"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ImportResult summarizes one imported file
type ImportResult struct {
	FileName     string               `json:"file_name"`
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	FailedRows   int                  `json:"failed_rows"`
	Rows         []RowResult          `json:"rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	Truncated    bool                 `json:"truncated"`
	SummaryKey   string               `json:"summary_key,omitempty"`
	Emailed      bool                 `json:"emailed"`
}

func (r *ImportResult) pass(row int) {
	r.TotalRows++
	r.ImportedRows++
	r.Rows = append(r.Rows, RowResult{Row: row, Status: csvimport.StatusPassed})
}

func (r *ImportResult) fail(row int, msg string) {
	r.TotalRows++
	r.FailedRows++
	r.Rows = append(r.Rows, RowResult{Row: row, Status: csvimport.StatusFailed, Message: msg})
}

// ImportService loads worked hours from CSV files
type ImportService struct {
	repo      timetracking.TimeEntryRepository
	storage   FileStorage
	mailer    Mailer
	opts      ImportOptions
	validator *csvimport.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService creates an import service. storage and mailer may be nil,
// in which case summaries are neither uploaded nor mailed.
func NewImportService(repo timetracking.TimeEntryRepository, storage FileStorage, mailer Mailer, opts ImportOptions, log *zap.Logger) *ImportService {
	if opts.DateLayout == "" {
		opts.DateLayout = "2006-01-02"
	}
	if opts.SummaryPrefix == "" {
		opts.SummaryPrefix = "summaries/"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportService{
		repo:    repo,
		storage: storage,
		mailer:  mailer,
		opts:    opts,
		validator: csvimport.NewValidator(
			csvimport.Field(ColEmployee).Required().MaxLength(64).Build(),
			csvimport.Field(ColProject).Required().MaxLength(64).Build(),
			csvimport.Field(ColDate).Required().Date(opts.DateLayout).Build(),
			csvimport.Field(ColHours).Required().Decimal().
				Between(decimal.Zero, timetracking.MaxHoursPerEntry, true).Build(),
			csvimport.Field(ColMemo).MaxLength(500).Build(),
		),
		logger: log,
		now:    time.Now,
	}
}

// Import parses r, saves every valid row and reports the rest. A bad row
// never stops its siblings; only an unreadable file or a failed save does.
func (s *ImportService) Import(ctx context.Context, tenantID uuid.UUID, fileName string, r io.Reader) (*ImportResult, error) {
	log := logger.L(ctx, s.logger).With(zap.String("file", fileName))

	parser, err := csvimport.NewParser(r, csvimport.WithMaxRows(s.opts.MaxRows))
	if err != nil {
		return nil, invalidFile(err.Error())
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, invalidFile(err.Error())
	}
	if missing := parser.MissingHeaders(ColEmployee, ColProject, ColDate, ColHours); len(missing) > 0 {
		return nil, invalidFile("missing columns: " + strings.Join(missing, ", "))
	}

	result := &ImportResult{FileName: fileName, Rows: []RowResult{}}
	collected := csvimport.NewErrorCollection(maxReportedErrors)
	var entries []*timetracking.TimeEntry

	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csvimport.ErrTooManyRows) {
			result.Truncated = true
			log.Warn("time import truncated", zap.Int("max_rows", s.opts.MaxRows))
			break
		}
		var rowErr *csvimport.RowError
		if errors.As(err, &rowErr) {
			collected.Add(*rowErr)
			result.fail(rowErr.Row, rowErr.Message)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		if row.IsEmpty() {
			continue
		}

		entry, failures := s.entryFromRow(tenantID, row)
		if len(failures) > 0 {
			msgs := make([]string, len(failures))
			for i := range failures {
				collected.Add(failures[i])
				msgs[i] = failures[i].Column + ": " + failures[i].Message
			}
			result.fail(row.LineNumber, strings.Join(msgs, "; "))
			continue
		}
		entries = append(entries, entry.WithSource(fileName, row.LineNumber))
		result.pass(row.LineNumber)
	}
	result.Errors = collected.Errors()

	if len(entries) > 0 {
		if err := s.repo.SaveBatch(ctx, entries); err != nil {
			return nil, fmt.Errorf("save time entries from %s: %w", fileName, err)
		}
	}

	s.publishSummary(ctx, log, result)

	log.Info("time import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("imported", result.ImportedRows),
		zap.Int("failed", result.FailedRows),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// ImportFromStorage imports the CSV stored under key
func (s *ImportService) ImportFromStorage(ctx context.Context, tenantID uuid.UUID, key string) (*ImportResult, error) {
	if s.storage == nil {
		return nil, errors.New("file storage is not configured")
	}
	data, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return s.Import(ctx, tenantID, path.Base(key), bytes.NewReader(data))
}

func (s *ImportService) entryFromRow(tenantID uuid.UUID, row *csvimport.Row) (*timetracking.TimeEntry, []csvimport.RowError) {
	if errs := s.validator.ValidateRow(row); len(errs) > 0 {
		return nil, errs
	}
	// both parse cleanly once the validator has passed
	workDate, _ := time.Parse(s.opts.DateLayout, row.Get(ColDate))
	hours, _ := decimal.NewFromString(row.Get(ColHours))

	entry, err := timetracking.NewTimeEntry(tenantID, row.Get(ColEmployee), row.Get(ColProject), workDate, hours, row.Get(ColMemo))
	if err != nil {
		return nil, []csvimport.RowError{{
			Row:     row.LineNumber,
			Code:    csvimport.ErrCodeValidation,
			Message: err.Error(),
		}}
	}
	return entry, nil
}

// publishSummary uploads and mails the summary CSV. Failures here are
// logged and leave the saved entries in place.
func (s *ImportService) publishSummary(ctx context.Context, log *zap.Logger, result *ImportResult) {
	if s.storage == nil && (s.mailer == nil || len(s.opts.Recipients) == 0) {
		return
	}

	lines := make([]csvimport.SummaryLine, len(result.Rows))
	for i, r := range result.Rows {
		lines[i] = csvimport.SummaryLine{Row: r.Row, Status: r.Status, Message: r.Message}
	}
	summary, err := csvimport.WriteSummary(lines)
	if err != nil {
		log.Error("failed to render import summary", zap.Error(err))
		return
	}

	name := s.summaryName(result.FileName)
	if s.storage != nil {
		key := path.Join(s.opts.SummaryPrefix, name)
		if err := s.storage.Upload(ctx, key, summary, "text/csv"); err != nil {
			log.Error("failed to upload import summary", zap.String("key", key), zap.Error(err))
		} else {
			result.SummaryKey = key
		}
	}

	if s.mailer != nil && len(s.opts.Recipients) > 0 {
		msg := notification.Message{
			To:      s.opts.Recipients,
			Subject: "Time import summary: " + result.FileName,
			Body: fmt.Sprintf("Imported %d of %d rows from %s. %d rows failed.",
				result.ImportedRows, result.TotalRows, result.FileName, result.FailedRows),
			Attachments: []notification.Attachment{{FileName: name, ContentType: "text/csv", Data: summary}},
		}
		if result.Truncated {
			msg.Body += fmt.Sprintf(" The file exceeded the %d row limit and was truncated.", s.opts.MaxRows)
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Error("failed to mail import summary", zap.Error(err))
		} else {
			result.Emailed = true
		}
	}
}

func (s *ImportService) summaryName(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	if base == "" || base == "." || base == "/" {
		base = "import"
	}
	return fmt.Sprintf("%s-%s.csv", base, s.now().UTC().Format("20060102T150405Z"))
}

func invalidFile(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidFile, detail)
}
