package reporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/reconciler"
)

// Sheet names of the workbook export
const (
	SheetReconciliation = "Reconciliation"
	SheetRecords        = "Records"
	SheetSummary        = "Summary"
)

// generateXLSXReport writes a workbook with one sheet per table plus a summary
func (rg *ReportGenerator) generateXLSXReport(result *reconciler.RunResult, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var sheets []string
	if result.HasReconciliation() {
		rows := make([][]interface{}, 0, len(result.Items))
		for _, it := range result.Items {
			rows = append(rows, itemCells(it))
		}
		sheets = append(sheets, SheetReconciliation)
		if err := writeSheet(f, SheetReconciliation, ReconciliationColumns, rows, header); err != nil {
			return err
		}
	}

	if result.HasRecords() && rg.config.IncludeRecords {
		rows := make([][]interface{}, 0, len(result.Rows))
		for _, r := range result.Rows {
			values := recordValues(r)
			cells := make([]interface{}, len(values))
			for i, v := range values {
				cells[i] = v
			}
			cells[0] = r.No
			rows = append(rows, cells)
		}
		sheets = append(sheets, SheetRecords)
		if err := writeSheet(f, SheetRecords, RecordColumns, rows, header); err != nil {
			return err
		}
	}

	sheets = append(sheets, SheetSummary)
	if err := writeSheet(f, SheetSummary, []string{"Metric", "Value"}, summaryCells(result), header); err != nil {
		return err
	}

	// NewFile starts with Sheet1; the first real sheet takes its place
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to locate sheet %s: %w", sheets[0], err)
	}
	f.SetActiveSheet(idx)

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, columns []string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	head := make([]interface{}, len(columns))
	for i, c := range columns {
		head[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}

	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", name, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", name, i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	return f.SetColWidth(name, "A", lastCol, 16)
}

// itemCells is itemValues with day counts kept numeric. Amounts stay as
// the statement text and the variance as a fixed two-place string.
func itemCells(it *models.ReconciliationItem) []interface{} {
	values := itemValues(it)
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	if it.DateDiffDays != nil {
		cells[7] = *it.DateDiffDays
	}
	cells[8] = it.AgingDays
	return cells
}

func summaryCells(result *reconciler.RunResult) [][]interface{} {
	rows := [][]interface{}{
		{"Run ID", result.RunID},
		{"As Of", result.AsOf.Format("2006-01-02")},
	}

	if s := result.Summary; s != nil {
		rows = append(rows,
			[]interface{}{"Documents", s.TotalItems},
			[]interface{}{"SOA Total", s.SOATotal.StringFixed(2)},
			[]interface{}{"Ledger Total", s.LedgerTotal.StringFixed(2)},
			[]interface{}{"Net Variance", s.NetVariance.StringFixed(2)},
			[]interface{}{"Mismatch Amount", s.MismatchAmount.StringFixed(2)},
			[]interface{}{"Overdue Variance", s.OverdueVariance.StringFixed(2)},
			[]interface{}{"Match Rate %", s.MatchRate},
		)
		for _, status := range models.AllStatuses {
			rows = append(rows, []interface{}{string(status), s.StatusCounts[status]})
		}
		for _, b := range s.Buckets() {
			rows = append(rows, []interface{}{"Aging " + string(b.Bucket), b.Count})
		}
	}

	if m := result.MatchSummary; m != nil {
		rows = append(rows,
			[]interface{}{"Utility Bills", m.Utilities},
			[]interface{}{"Rental Candidates", m.Candidates},
			[]interface{}{"Matched", m.Matched},
			[]interface{}{"Unmatched", m.Unmatched},
			[]interface{}{"Ambiguous Matches", m.Ambiguous},
		)
	}
	return rows
}
