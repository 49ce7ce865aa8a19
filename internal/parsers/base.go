// Package parsers loads the two kinds of input the service works on:
// extraction records produced by the upstream document extractor, and
// statement entries from a supplier statement of account or a ledger export.
//
// Records are read from JSON (a single object or an array). Statement
// entries are read from CSV or JSON, with common header spellings such as
// posting_date or document_number accepted for the standard columns.
//
// Rows without a document number are skipped and counted in ParseStats;
// every other malformed value degrades to an empty string so the core can
// treat it as absent.
//
// Example usage:
//
//	loader := parsers.NewLoader(parsers.DefaultLoaderConfig())
//	records, stats, err := loader.LoadRecords(ctx, []string{"bills.json", "rentals.json"})
//	if err != nil {
//		return err
//	}
//	for _, s := range stats {
//		log.Println(s)
//	}
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// utf8BOM is written by spreadsheet exports at the start of CSV files
const utf8BOM = "\uFEFF"

// ParseConfig holds configuration for CSV parsing
type ParseConfig struct {
	Delimiter        rune `json:"delimiter" mapstructure:"delimiter"`
	Comment          rune `json:"comment" mapstructure:"comment"`
	TrimLeadingSpace bool `json:"trim_leading_space" mapstructure:"trim_leading_space"`
	SkipEmptyRows    bool `json:"skip_empty_rows" mapstructure:"skip_empty_rows"`
	ValidateEncoding bool `json:"validate_encoding" mapstructure:"validate_encoding"`
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// BaseParser provides common file handling for the record and statement parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig, component string) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &BaseParser{
		config: config,
		logger: logger.WithComponent(component),
	}
}

// ParseContext holds state during parsing of one file
type ParseContext struct {
	File       string
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a new parsing context
func NewParseContext(ctx context.Context, file string) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		File:      file,
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled checks if the parsing context has been cancelled
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// Err returns the cancellation cause wrapped as an internal error
func (pc *ParseContext) Err() error {
	return errors.InternalError(errors.CodeUnexpectedError, "parsing "+pc.File, pc.ctx.Err())
}

// ColumnIndex returns the index of a normalized column name, or -1
func (pc *ParseContext) ColumnIndex(name string) int {
	if index, ok := pc.HeaderMap[name]; ok {
		return index
	}
	return -1
}

// Value returns the trimmed cell of column name, or "" when the column is
// absent or the row is short
func (pc *ParseContext) Value(row []string, name string) string {
	i := pc.ColumnIndex(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadFile reads a whole input file, mapping OS errors to file errors
func (bp *BaseParser) ReadFile(path string) ([]byte, error) {
	bp.logger.WithField("file_path", path).Debug("Reading input file")

	data, err := os.ReadFile(path)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", path).Error("Failed to read input file")
		return nil, fileError(path, err)
	}
	return data, nil
}

// OpenCSV opens a CSV file and returns a configured csv.Reader
func (bp *BaseParser) OpenCSV(path string) (*os.File, *csv.Reader, error) {
	bp.logger.WithField("file_path", path).Debug("Opening CSV file")

	file, err := os.Open(path)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", path).Error("Failed to open CSV file")
		return nil, nil, fileError(path, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, path); err != nil {
			file.Close()
			return nil, nil, err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.Comment = bp.config.Comment
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

func fileError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return errors.FileError(errors.CodeFilePermission, path, err)
	default:
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
}

// validateEncoding checks the first lines of the file for valid UTF-8
func (bp *BaseParser) validateEncoding(file *os.File, path string) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0

	for scanner.Scan() && line < 100 {
		line++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(errors.CodeInvalidFormat, path, line, "invalid UTF-8 encoding", nil).
				WithSuggestion("save the file as UTF-8 and try again")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.ParseError(errors.CodeInvalidFormat, path, line, "unreadable line", err)
	}
	return nil
}

// ReadHeaders reads the header row and maps each column to its canonical
// name through aliases. Unknown headers keep their normalized spelling.
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext, aliases map[string]string) error {
	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ParseError(errors.CodeInvalidFormat, parseCtx.File, 0, "file is empty", nil).
				WithSuggestion("ensure the file contains a header row and data rows")
		}
		return errors.ParseError(errors.CodeInvalidFormat, parseCtx.File, 1, "header row", err)
	}

	parseCtx.LineNumber++
	parseCtx.Headers = make([]string, len(headers))
	parseCtx.HeaderMap = make(map[string]int, len(headers))

	for i, h := range headers {
		key := NormalizeKey(h)
		if canonical, ok := aliases[key]; ok {
			key = canonical
		}
		parseCtx.Headers[i] = key
		// first column wins when two headers resolve to the same name
		if _, exists := parseCtx.HeaderMap[key]; !exists {
			parseCtx.HeaderMap[key] = i
		}
	}

	bp.logger.WithFields(logger.Fields{
		"file":    parseCtx.File,
		"headers": parseCtx.Headers,
	}).Debug("Read CSV headers")

	return nil
}

// ReadRow reads the next non-empty row. io.EOF marks the end of the file.
func (bp *BaseParser) ReadRow(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		if parseCtx.IsCancelled() {
			return nil, parseCtx.Err()
		}

		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}
			parseCtx.LineNumber++
			return nil, errors.ParseError(errors.CodeInvalidFormat, parseCtx.File, parseCtx.LineNumber, "malformed row", err)
		}
		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRow(row) {
			continue
		}
		return row, nil
	}
}

func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// NormalizeKey lower-cases a header or JSON key and joins its words with
// underscores, so "Posting Date", "posting-date" and "PostingDate " all
// read as posting_date.
func NormalizeKey(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), utf8BOM)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", ".", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// ParseStats holds statistics about parsing one file
type ParseStats struct {
	File          string                    `json:"file"`
	TotalLines    int                       `json:"total_lines"`
	RecordsParsed int                       `json:"records_parsed"`
	RecordsValid  int                       `json:"records_valid"`
	Skipped       []*errors.ReconcilerError `json:"skipped,omitempty"`
}

// NewParseStats creates a new ParseStats instance
func NewParseStats(file string) *ParseStats {
	return &ParseStats{File: file}
}

// Skip records a rejected row
func (ps *ParseStats) Skip(err *errors.ReconcilerError) {
	ps.Skipped = append(ps.Skipped, err)
}

// SkippedCount returns the number of rejected rows
func (ps *ParseStats) SkippedCount() int {
	return len(ps.Skipped)
}

// ErrorSummary groups the rejected rows by category and code
func (ps *ParseStats) ErrorSummary() *errors.ErrorSummary {
	return errors.NewErrorSummary(ps.Skipped)
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("%s: %d records (%d valid, %d skipped)",
		ps.File, ps.RecordsParsed, ps.RecordsValid, len(ps.Skipped))
}

// SampleErrors returns up to max skip reasons for logging
func (ps *ParseStats) SampleErrors(max int) []string {
	limit := len(ps.Skipped)
	if max > 0 && max < limit {
		limit = max
	}
	samples := make([]string, 0, limit)
	for _, e := range ps.Skipped[:limit] {
		samples = append(samples, e.Error())
	}
	return samples
}

// MergeStats totals several per-file statistics
func MergeStats(all []*ParseStats) *ParseStats {
	total := NewParseStats("total")
	for _, s := range all {
		if s == nil {
			continue
		}
		total.TotalLines += s.TotalLines
		total.RecordsParsed += s.RecordsParsed
		total.RecordsValid += s.RecordsValid
		total.Skipped = append(total.Skipped, s.Skipped...)
	}
	return total
}
