package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"document-reconciliation-service/internal/aggregator"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/reconciler"
	"document-reconciliation-service/pkg/errors"
)

var testAsOf = time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)

func amount(text string) *models.Amount {
	a := models.ParseAmount(text)
	return &a
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func sampleItems() []*models.ReconciliationItem {
	return []*models.ReconciliationItem{
		{
			DocNo: "INV-1001", DocType: "Invoice",
			SOAAmount: amount("1,000.00"), LedgerAmount: amount("1000"), Variance: dec("0"),
			SOADate: "14-Feb-2026", LedgerDate: "15-Feb-2026", DateDiffDays: intPtr(1),
			AgingDays: 10, AgingBucket: models.Bucket0To30,
			Status: models.StatusMatch, Investigation: models.InvestigationApproved,
			LastUpdated: testAsOf,
		},
		{
			DocNo: "INV-1002", DocType: "Invoice",
			SOAAmount: amount("2,500.00"), LedgerAmount: amount("2,200.00"), Variance: dec("300"),
			SOADate: "10-Jan-2026", LedgerDate: "12-Jan-2026", DateDiffDays: intPtr(2),
			AgingDays: 45, AgingBucket: models.Bucket31To60,
			Status: models.StatusAmountMismatch, Investigation: models.InvestigationUnderInvestigation,
			AssignedTo:  "Wei",
			LastUpdated: time.Date(2026, 2, 23, 15, 0, 0, 0, time.UTC),
		},
		{
			DocNo: "INV-1003", DocType: "Invoice",
			SOAAmount: amount("750.00"),
			SOADate:   "21-Nov-2025",
			AgingDays: 95, AgingBucket: models.BucketOver90,
			Status: models.StatusMissingInLedger, Investigation: models.InvestigationUnderInvestigation,
			LastUpdated: testAsOf,
		},
		{
			DocNo: "DN-9", DocType: "Debit Note",
			LedgerAmount: amount("120.50"),
			LedgerDate:   "19-Feb-2026",
			AgingDays:    5, AgingBucket: models.Bucket0To30,
			Status: models.StatusMissingInSOA, Investigation: models.InvestigationUnderInvestigation,
			LastUpdated: testAsOf,
		},
	}
}

func sampleRecords() []*models.ExtractedRecord {
	return []*models.ExtractedRecord{
		{
			DocNo:     "TNB-1",
			Category:  models.LabelUtility,
			Company:   "Tenaga Nasional Berhad",
			Amounts:   map[string]string{"grand_total": "980.00"},
			RawFields: map[string]string{"Lease ID": "LID-0032"},
		},
		{
			DocNo:       "RNT-1",
			Category:    models.LabelRental,
			Company:     "Sunway REIT",
			Amounts:     map[string]string{"grand_total": "12,000.00"},
			Identifiers: models.Identifiers{LeaseID: "LID-0032"},
		},
		{DocNo: "TNB-2", Category: models.LabelUtility, Company: "Other Power"},
	}
}

func newTestService(t *testing.T) *reconciler.Service {
	t.Helper()
	config := reconciler.DefaultServiceConfig()
	config.Reconciler.AsOf = testAsOf
	svc, err := reconciler.NewService(config, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// reconciliationResult holds statement items only
func reconciliationResult() *reconciler.RunResult {
	items := sampleItems()
	summary := aggregator.Summarize(items)
	return &reconciler.RunResult{
		RunID:       "run-1",
		ProcessedAt: testAsOf,
		AsOf:        testAsOf,
		Items:       items,
		Summary:     &summary,
	}
}

// recordsResult holds matched records only
func recordsResult(t *testing.T) *reconciler.RunResult {
	t.Helper()
	result := newTestService(t).MatchRecords(sampleRecords())
	result.RunID = "run-2"
	return result
}

// fullResult carries both halves of a run
func fullResult(t *testing.T) *reconciler.RunResult {
	t.Helper()
	result := reconciliationResult()
	records := recordsResult(t)
	result.Records = records.Records
	result.Matching = records.Matching
	result.MatchSummary = records.MatchSummary
	result.Rows = records.Rows
	return result
}

func newGenerator(t *testing.T, config *ReportConfig) *ReportGenerator {
	t.Helper()
	gen, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("unexpected error creating generator: %v", err)
	}
	gen.now = func() time.Time { return testAsOf }
	return gen
}

func configWith(format OutputFormat) *ReportConfig {
	config := DefaultReportConfig()
	config.Format = format
	return config
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:        "default config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      DefaultReportConfig(),
			expectError: false,
		},
		{
			name:        "invalid format",
			config:      &ReportConfig{Format: "pdf"},
			expectError: true,
		},
		{
			name:        "invalid table",
			config:      &ReportConfig{Format: FormatCSV, Table: "ledger", CSVDelimiter: ','},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if generator == nil {
					t.Errorf("expected generator but got nil")
				}
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
		binary bool
	}{
		{FormatConsole, true, false},
		{FormatJSON, true, false},
		{FormatCSV, true, false},
		{FormatTXT, true, false},
		{FormatXLSX, true, true},
		{"invalid", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if tt.format.IsValid() != tt.valid {
				t.Errorf("expected IsValid() = %v for format %s", tt.valid, tt.format)
			}
			if tt.format.IsBinary() != tt.binary {
				t.Errorf("expected IsBinary() = %v for format %s", tt.binary, tt.format)
			}
		})
	}
}

func TestReportConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*ReportConfig)
		expectError bool
	}{
		{"default", func(c *ReportConfig) {}, false},
		{"empty table means auto", func(c *ReportConfig) { c.Table = "" }, false},
		{"records table", func(c *ReportConfig) { c.Table = TableRecords }, false},
		{"unknown format", func(c *ReportConfig) { c.Format = "html" }, true},
		{"unknown table", func(c *ReportConfig) { c.Table = "ledger" }, true},
		{"negative console limit", func(c *ReportConfig) { c.MaxConsoleItems = -1 }, true},
		{"csv without delimiter", func(c *ReportConfig) { c.Format = FormatCSV; c.CSVDelimiter = 0 }, true},
		{"console ignores delimiter", func(c *ReportConfig) { c.CSVDelimiter = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultReportConfig()
			tt.modify(config)
			err := config.Validate()

			if tt.expectError && err == nil {
				t.Errorf("expected validation error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestGenerateReport(t *testing.T) {
	result := fullResult(t)

	for _, format := range []OutputFormat{FormatConsole, FormatJSON, FormatCSV, FormatTXT, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			gen := newGenerator(t, configWith(format))

			var buf bytes.Buffer
			if err := gen.GenerateReport(result, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.Len() == 0 {
				t.Errorf("expected output for format %s", format)
			}
		})
	}

	gen := newGenerator(t, nil)
	if err := gen.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Errorf("expected error for nil result")
	}
}

func TestTextReportLayout(t *testing.T) {
	config := configWith(FormatTXT)
	config.Title = "AP Line-Item Reconciliation  –  Acme Supplies"
	gen := newGenerator(t, config)

	var buf bytes.Buffer
	if err := gen.GenerateReport(reconciliationResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if lines[0] != "AP Line-Item Reconciliation  –  Acme Supplies" {
		t.Errorf("title line = %q", lines[0])
	}
	if lines[1] != "Generated: 24 Feb 2026" {
		t.Errorf("generated line = %q", lines[1])
	}
	if lines[2] != strings.Repeat("=", 60) {
		t.Errorf("expected 60 '=' separator, got %q", lines[2])
	}
	if lines[5] != strings.Repeat("-", 100) {
		t.Errorf("expected 100 '-' separator, got %q", lines[5])
	}

	// four items follow the header, every item including matches
	wantRow := fmt.Sprintf("%-14s  %12s  %12s  %10s  %-20s  %3dd  %s",
		"INV-1002", "2,500", "2,200", "300", "Amount Mismatch", 45, "Under Investigation")
	if lines[7] != wantRow {
		t.Errorf("mismatch row:\n got %q\nwant %q", lines[7], wantRow)
	}
	if !strings.Contains(lines[6], "INV-1001") {
		t.Errorf("expected matched item in first row, got %q", lines[6])
	}
	if !strings.Contains(lines[8], "INV-1003") || !strings.Contains(lines[8], "           -") {
		t.Errorf("expected missing ledger amount shown as '-', got %q", lines[8])
	}

	tail := lines[len(lines)-4:]
	want := []string{
		fmt.Sprintf("SOA Total:      %12s", "4,250"),
		fmt.Sprintf("Ledger Total:   %12s", "3,321"),
		fmt.Sprintf("Net Variance:   %12s", "930"),
		fmt.Sprintf("Match Rate:     %11s%%", "25"),
	}
	if !reflect.DeepEqual(tail, want) {
		t.Errorf("totals block:\n got %q\nwant %q", tail, want)
	}
}

func TestTextReportRequiresReconciliation(t *testing.T) {
	gen := newGenerator(t, configWith(FormatTXT))
	if err := gen.GenerateReport(recordsResult(t), &bytes.Buffer{}); err == nil {
		t.Errorf("expected error for a records-only result")
	}
}

func TestJSONReport(t *testing.T) {
	gen := newGenerator(t, configWith(FormatJSON))

	var buf bytes.Buffer
	if err := gen.GenerateReport(fullResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc["run_id"] != "run-1" {
		t.Errorf("run_id = %v", doc["run_id"])
	}
	if doc["as_of"] != "2026-02-24" {
		t.Errorf("as_of = %v", doc["as_of"])
	}

	items, _ := doc["items"].([]interface{})
	if len(items) != 4 {
		t.Errorf("expected all 4 items in JSON, got %d", len(items))
	}

	summary, _ := doc["summary"].(map[string]interface{})
	if summary["match_rate"] != 25.0 {
		t.Errorf("match_rate = %v", summary["match_rate"])
	}
	if summary["exceptions"] != 3.0 {
		t.Errorf("exceptions = %v", summary["exceptions"])
	}

	rows, _ := doc["rows"].([]interface{})
	if len(rows) != 3 {
		t.Errorf("expected 3 record rows, got %d", len(rows))
	}
	if _, ok := doc["match_summary"]; !ok {
		t.Errorf("expected match_summary in JSON output")
	}
}

func TestCSVFormatting(t *testing.T) {
	tests := []struct {
		name        string
		result      func(t *testing.T) *reconciler.RunResult
		table       Table
		delimiter   rune
		wantHeaders []string
		wantRows    int
	}{
		{"auto picks reconciliation", fullResult, TableAuto, ',', ReconciliationColumns, 4},
		{"auto falls back to records", recordsResult, TableAuto, ',', RecordColumns, 3},
		{"explicit records table", fullResult, TableRecords, ';', RecordColumns, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := configWith(FormatCSV)
			config.Table = tt.table
			config.CSVDelimiter = tt.delimiter
			gen := newGenerator(t, config)

			var buf bytes.Buffer
			if err := gen.GenerateReport(tt.result(t), &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			reader := csv.NewReader(&buf)
			reader.Comma = tt.delimiter
			records, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("output is not valid CSV: %v", err)
			}

			if !reflect.DeepEqual(records[0], tt.wantHeaders) {
				t.Errorf("headers = %v", records[0])
			}
			if len(records)-1 != tt.wantRows {
				t.Errorf("expected %d data rows, got %d", tt.wantRows, len(records)-1)
			}
		})
	}
}

func TestCSVItemValues(t *testing.T) {
	gen := newGenerator(t, configWith(FormatCSV))

	var buf bytes.Buffer
	if err := gen.GenerateReport(reconciliationResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	mismatch := records[2]
	want := []string{
		"INV-1002", "Invoice", "2,500.00", "2,200.00", "300.00",
		"10-Jan-2026", "12-Jan-2026", "2", "45", "31–60",
		"Amount Mismatch", "Under Investigation", "Wei", "2026-02-23 15:00",
	}
	if !reflect.DeepEqual(mismatch, want) {
		t.Errorf("mismatch row:\n got %q\nwant %q", mismatch, want)
	}

	missing := records[3]
	if missing[3] != "" || missing[4] != "" || missing[7] != "" {
		t.Errorf("absent ledger amount, variance and date diff should be blank, got %q", missing)
	}
}

func TestCSVWithoutHeaders(t *testing.T) {
	config := configWith(FormatCSV)
	config.CSVHeaders = false
	gen := newGenerator(t, config)

	var buf bytes.Buffer
	if err := gen.GenerateReport(reconciliationResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(buf.String(), "Doc No") {
		t.Errorf("expected no header row")
	}
	if got := strings.Count(buf.String(), "\n"); got != 4 {
		t.Errorf("expected 4 lines, got %d", got)
	}
}

func TestConsoleOutputSections(t *testing.T) {
	tests := []struct {
		name        string
		result      func(t *testing.T) *reconciler.RunResult
		modify      func(*ReportConfig)
		contains    []string
		notContains []string
	}{
		{
			name:   "full run",
			result: fullResult,
			modify: func(c *ReportConfig) {},
			contains: []string{
				"AP LINE-ITEM RECONCILIATION",
				"Run:       run-1",
				"=== SUMMARY ===",
				"SOA Total:        4,250.00",
				"Missing Docs:     2",
				"Ledger Total:     3,320.50",
				"Match Rate:       25.0%",
				"=== AGING OF EXCEPTIONS ===",
				"90+    days: 1",
				"=== EXCEPTIONS ===",
				"INV-1002",
				"→ Wei",
				"=== UTILITY MATCHING ===",
				"TNB-1 → RNT-1",
				"Utility bills without a rental invoice",
				"TNB-2",
			},
			notContains: []string{"INV-1001", "=== ITEMS ==="},
		},
		{
			name:     "matched items included",
			result:   func(*testing.T) *reconciler.RunResult { return reconciliationResult() },
			modify:   func(c *ReportConfig) { c.IncludeMatchedItems = true },
			contains: []string{"=== ITEMS ===", "INV-1001"},
			notContains: []string{
				"=== EXCEPTIONS ===",
				"=== UTILITY MATCHING ===",
			},
		},
		{
			name:        "console limit",
			result:      func(*testing.T) *reconciler.RunResult { return reconciliationResult() },
			modify:      func(c *ReportConfig) { c.MaxConsoleItems = 1 },
			contains:    []string{"INV-1002", "... and 2 more"},
			notContains: []string{"INV-1003"},
		},
		{
			name:        "records only",
			result:      recordsResult,
			modify:      func(c *ReportConfig) {},
			contains:    []string{"=== UTILITY MATCHING ===", "Matched:     1 (50.0%)"},
			notContains: []string{"=== SUMMARY ==="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := configWith(FormatConsole)
			tt.modify(config)
			gen := newGenerator(t, config)

			var buf bytes.Buffer
			if err := gen.GenerateReport(tt.result(t), &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			output := buf.String()

			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q", want)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(output, unwanted) {
					t.Errorf("expected output not to contain %q", unwanted)
				}
			}
		})
	}
}

func TestXLSXReport(t *testing.T) {
	gen := newGenerator(t, configWith(FormatXLSX))

	var buf bytes.Buffer
	if err := gen.GenerateReport(fullResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	want := []string{SheetReconciliation, SheetRecords, SheetSummary}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	rows, err := f.GetRows(SheetReconciliation)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header plus 4 items, got %d rows", len(rows))
	}
	if rows[0][0] != "Doc No" || rows[2][0] != "INV-1002" {
		t.Errorf("unexpected sheet contents: %v", rows[:3])
	}
	if got := rows[2][2:5]; !reflect.DeepEqual(got, []string{"2,500.00", "2,200.00", "300.00"}) {
		t.Errorf("amounts = %v, want statement text and fixed variance", got)
	}
	if rows[2][8] != "45" {
		t.Errorf("aging days = %q", rows[2][8])
	}

	summary, err := f.GetRows(SheetSummary)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	var soaTotal string
	for _, row := range summary {
		if len(row) == 2 && row[0] == "SOA Total" {
			soaTotal = row[1]
		}
	}
	if soaTotal != "4250.00" {
		t.Errorf("SOA Total = %q, want 4250.00", soaTotal)
	}

	records, err := f.GetRows(SheetRecords)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected header plus 3 records, got %d rows", len(records))
	}
}

func TestXLSXKeepsAmountText(t *testing.T) {
	result := reconciliationResult()
	result.Items = []*models.ReconciliationItem{{
		DocNo: "INV-7", DocType: "Invoice",
		SOAAmount: amount("RM 8,500.10"), LedgerAmount: amount("8,200.00"), Variance: dec("300.1"),
		AgingDays: 3, AgingBucket: models.Bucket0To30,
		Status: models.StatusAmountMismatch, Investigation: models.InvestigationUnderInvestigation,
		LastUpdated: testAsOf,
	}}

	var buf bytes.Buffer
	if err := newGenerator(t, configWith(FormatXLSX)).GenerateReport(result, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"C2", "RM 8,500.10"},
		{"D2", "8,200.00"},
		{"E2", "300.10"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(SheetReconciliation, tt.cell)
		if err != nil {
			t.Fatalf("failed to read %s: %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestGrouped(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   string
	}{
		{"1234567.891", 2, "1,234,567.89"},
		{"-1000", 0, "-1,000"},
		{"999", 0, "999"},
		{"100000", 2, "100,000.00"},
		{"3320.5", 0, "3,321"},
		{"-0.4", 0, "0"},
		{"0", 2, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := grouped(decimal.RequireFromString(tt.value), tt.places); got != tt.want {
				t.Errorf("grouped(%s, %d) = %q, want %q", tt.value, tt.places, got, tt.want)
			}
		})
	}
}

func TestDisplayAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount *models.Amount
		want   string
	}{
		{"absent", nil, "-"},
		{"blank", &models.Amount{}, "-"},
		{"unreadable", amount("n/a"), "n/a"},
		{"grouped", amount("(1,234.5)"), "-1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayAmount(tt.amount, 2); got != tt.want {
				t.Errorf("displayAmount() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0.0},
		{1, 4, 25.0},
		{3, 3, 100.0},
	}

	for _, tt := range tests {
		if got := percentage(tt.part, tt.total); got != tt.want {
			t.Errorf("percentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"INV-1", 14, "INV-1"},
		{"VERY-LONG-DOCUMENT-NO", 8, "VERY-LO…"},
		{"ABC", 1, "A"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestItemsForOutput(t *testing.T) {
	items := sampleItems()

	gen := newGenerator(t, nil)
	if got := gen.itemsForOutput(items); len(got) != 3 {
		t.Errorf("expected 3 exceptions, got %d", len(got))
	}

	config := DefaultReportConfig()
	config.IncludeMatchedItems = true
	gen = newGenerator(t, config)
	if got := gen.itemsForOutput(items); len(got) != 4 {
		t.Errorf("expected all 4 items, got %d", len(got))
	}
}

func TestUpdateConfiguration(t *testing.T) {
	gen := newGenerator(t, nil)

	if err := gen.UpdateConfiguration(configWith(FormatJSON)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if gen.GetConfiguration().Format != FormatJSON {
		t.Errorf("expected format to be updated")
	}

	if err := gen.UpdateConfiguration(&ReportConfig{Format: "bogus"}); err == nil {
		t.Errorf("expected error for invalid configuration")
	}
	if gen.GetConfiguration().Format != FormatJSON {
		t.Errorf("invalid configuration must not replace the current one")
	}
}

func TestSafeReportGenerator_Validation(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		table  Table
		result func(t *testing.T) *reconciler.RunResult
	}{
		{"txt without statements", FormatTXT, TableAuto, recordsResult},
		{"records table without records", FormatCSV, TableRecords, func(*testing.T) *reconciler.RunResult { return reconciliationResult() }},
		{"reconciliation table without statements", FormatCSV, TableReconciliation, recordsResult},
		{"nil result", FormatJSON, TableAuto, func(*testing.T) *reconciler.RunResult { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := configWith(tt.format)
			config.Table = tt.table
			srg, err := NewSafeReportGenerator(config, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var buf bytes.Buffer
			err = srg.GenerateReportSafely(tt.result(t), &buf)
			re, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("expected ReconcilerError, got %v", err)
			}
			if re.Category != errors.CategoryValidation {
				t.Errorf("category = %s, want %s", re.Category, errors.CategoryValidation)
			}
			if buf.Len() != 0 {
				t.Errorf("expected no partial output on failure")
			}
		})
	}
}

func TestSafeReportGenerator_InvalidConfig(t *testing.T) {
	_, err := NewSafeReportGenerator(&ReportConfig{Format: "pdf"}, nil)
	re, ok := errors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("expected ReconcilerError, got %v", err)
	}
	if re.Category != errors.CategoryConfiguration {
		t.Errorf("category = %s", re.Category)
	}
}

func TestSafeReportGenerator_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "reconciliation.txt")

	srg, err := NewSafeReportGenerator(configWith(FormatTXT), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := srg.WriteToFile(reconciliationResult(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(data), "INV-1002") {
		t.Errorf("report file is missing items")
	}

	// a failed render leaves no file behind
	failed := filepath.Join(t.TempDir(), "failed.txt")
	if err := srg.WriteToFile(recordsResult(t), failed); err == nil {
		t.Errorf("expected error for records-only txt report")
	}
	if _, err := os.Stat(failed); !os.IsNotExist(err) {
		t.Errorf("expected no file after a failed render")
	}
}

func TestSafeReportGenerator_FallbackPolicy(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   bool
	}{
		{FormatConsole, false},
		{FormatJSON, true},
		{FormatCSV, true},
		{FormatTXT, true},
		{FormatXLSX, false},
	}

	for _, tt := range tests {
		srg, err := NewSafeReportGenerator(configWith(tt.format), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := srg.shouldAttemptFormatFallback(); got != tt.want {
			t.Errorf("shouldAttemptFormatFallback() for %s = %v, want %v", tt.format, got, tt.want)
		}
	}
}
