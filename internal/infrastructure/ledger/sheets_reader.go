package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetRange is read from the first sheet of a shared spreadsheet
const SheetRange = "A:Z"

// ErrInvalidSheetLink is returned when a link carries no spreadsheet id
var ErrInvalidSheetLink = errors.New("invalid Google Sheets link")

var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

var _ ports.LedgerSheetReader = (*SheetsReader)(nil)

// SheetsReader reads a ledger from a Google spreadsheet shared with the
// service account
type SheetsReader struct {
	svc    *sheets.Service
	logger logger.Logger
}

// NewSheetsReader creates a reader with read-only access. opts usually come
// from CredentialOptions.
func NewSheetsReader(ctx context.Context, log logger.Logger, opts ...option.ClientOption) (*SheetsReader, error) {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsReader{svc: svc, logger: log}, nil
}

// CredentialOptions authenticates as a service account, from inline JSON when
// given and from keyPath otherwise
func CredentialOptions(inlineJSON, keyPath string) ([]option.ClientOption, error) {
	var credentials []byte
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		credentials = []byte(inlineJSON)
	case keyPath != "":
		b, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_KEY_PATH)")
	}

	return []option.ClientOption{
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	}, nil
}

// sheetCell renders an unformatted value. Numbers arrive as JSON numbers,
// date cells as serial numbers in the 1900 date system.
func sheetCell(row, col int, v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if row == 0 {
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
		return numericCell(col, value, false)
	case nil:
		return ""
	default:
		return fmt.Sprint(value)
	}
}

// SpreadsheetID extracts the id from a link such as
// https://docs.google.com/spreadsheets/d/{id}/edit
func SpreadsheetID(link string) (string, error) {
	m := sheetIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSheetLink, link)
	}
	return m[1], nil
}

// Read returns the values of the first sheet. Amounts are read unformatted so
// a display format can never change them.
func (s *SheetsReader) Read(ctx context.Context, link string) (entity.Table, error) {
	id, err := SpreadsheetID(link)
	if err != nil {
		return entity.Table{}, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(id, SheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return entity.Table{}, fmt.Errorf("failed to read spreadsheet %s: %w", id, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for r, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = sheetCell(r, i, v)
		}
		rows = append(rows, row)
	}

	table := toTable(rows)
	s.logger.Debug("Spreadsheet read", map[string]interface{}{
		"request_id":     middleware.GetRequestID(ctx),
		"spreadsheet_id": id,
		"rows":           len(table.Rows),
	})
	return table, nil
}
