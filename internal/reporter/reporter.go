// Package reporter renders reconciliation runs for people and for other tools.
//
// Supported output formats:
//   - Console: summary, exceptions and matching overview for a terminal
//   - JSON: the full run for programmatic consumption
//   - CSV: one table (reconciliation items or record rows) for spreadsheets
//   - TXT: the fixed-width reconciliation report handed to suppliers
//   - XLSX: a workbook with reconciliation, records and summary sheets
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatTXT})
//	if err != nil {
//		return err
//	}
//	err = gen.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatTXT     OutputFormat = "txt"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatTXT, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format must go to a file rather than a terminal
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// Table selects which table a single-table format writes
type Table string

const (
	TableAuto           Table = "auto"
	TableReconciliation Table = "reconciliation"
	TableRecords        Table = "records"
)

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Title heads the console and TXT reports, typically the supplier name
	Title string `json:"title" mapstructure:"title"`

	// Table picks the CSV table; auto prefers reconciliation items
	Table Table `json:"table" mapstructure:"table"`

	// Detail level options
	IncludeMatchedItems bool `json:"include_matched_items" mapstructure:"include_matched_items"`
	IncludeRecords      bool `json:"include_records" mapstructure:"include_records"`
	IncludeParseStats   bool `json:"include_parse_stats" mapstructure:"include_parse_stats"`

	// MaxConsoleItems limits item lists on the console; 0 means no limit
	MaxConsoleItems int `json:"max_console_items" mapstructure:"max_console_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		Title:               "AP Line-Item Reconciliation",
		Table:               TableAuto,
		IncludeMatchedItems: false,
		IncludeRecords:      true,
		IncludeParseStats:   true,
		MaxConsoleItems:     50,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	switch c.Table {
	case "", TableAuto, TableReconciliation, TableRecords:
	default:
		return fmt.Errorf("invalid table: %s", c.Table)
	}

	if c.MaxConsoleItems < 0 {
		return fmt.Errorf("max console items cannot be negative, got %d", c.MaxConsoleItems)
	}

	if c.Format == FormatCSV && c.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter cannot be empty")
	}

	return nil
}

// ReportGenerator generates reports in various formats
type ReportGenerator struct {
	config *ReportConfig
	now    func() time.Time
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		now:    time.Now,
	}, nil
}

// GenerateReport writes a report of result to writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	case FormatTXT:
		return rg.generateTextReport(result, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateJSONReport writes the run as one JSON document
func (rg *ReportGenerator) generateJSONReport(result *reconciler.RunResult, writer io.Writer) error {
	output := map[string]interface{}{
		"run_id":       result.RunID,
		"processed_at": result.ProcessedAt,
		"as_of":        result.AsOf.Format("2006-01-02"),
	}

	if result.HasReconciliation() {
		output["summary"] = result.Summary
		output["items"] = result.Items
		output["preprocessing"] = result.Preprocessing
	}

	if result.HasRecords() {
		output["match_summary"] = result.MatchSummary
		output["matches"] = result.Matching.Matches
		if rg.config.IncludeRecords {
			output["rows"] = result.Rows
		}
	}

	if rg.config.IncludeParseStats && len(result.ParseStats) > 0 {
		output["parse_stats"] = result.ParseStats
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// generateCSVReport writes a single table
func (rg *ReportGenerator) generateCSVReport(result *reconciler.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	headers, rows := rg.csvTable(result)
	if rg.config.CSVHeaders {
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) csvTable(result *reconciler.RunResult) ([]string, [][]string) {
	table := rg.config.Table
	if table == "" || table == TableAuto {
		table = TableReconciliation
		if !result.HasReconciliation() && result.HasRecords() {
			table = TableRecords
		}
	}

	if table == TableRecords {
		rows := make([][]string, 0, len(result.Rows))
		for _, r := range result.Rows {
			rows = append(rows, recordValues(r))
		}
		return RecordColumns, rows
	}

	// exports always carry every item, matched or not
	rows := make([][]string, 0, len(result.Items))
	for _, it := range result.Items {
		rows = append(rows, itemValues(it))
	}
	return ReconciliationColumns, rows
}

// itemsForOutput drops matched items from console listings unless
// configured to keep them. The summary always covers every item.
func (rg *ReportGenerator) itemsForOutput(items []*models.ReconciliationItem) []*models.ReconciliationItem {
	if rg.config.IncludeMatchedItems {
		return items
	}
	out := make([]*models.ReconciliationItem, 0, len(items))
	for _, it := range items {
		if it.IsException() {
			out = append(out, it)
		}
	}
	return out
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
