package reporter

import (
	"fmt"
	"io"
	"strings"

	"document-reconciliation-service/internal/reconciler"
)

// generateTextReport writes the fixed-width report. Amounts are rounded to
// whole units the way the printed statement shows them.
func (rg *ReportGenerator) generateTextReport(result *reconciler.RunResult, writer io.Writer) error {
	if !result.HasReconciliation() {
		return fmt.Errorf("text report needs statement and ledger entries")
	}

	s := result.Summary
	lines := []string{
		rg.config.Title,
		"Generated: " + result.AsOf.Format("02 Jan 2006"),
		strings.Repeat("=", 60),
		"",
		fmt.Sprintf("%-14s  %12s  %12s  %10s  %-20s  %5s  %s",
			"Doc No", "SOA", "Ledger", "Variance", "Status", "Aging", "Investigation"),
		strings.Repeat("-", 100),
	}

	for _, it := range result.Items {
		lines = append(lines, fmt.Sprintf("%-14s  %12s  %12s  %10s  %-20s  %3dd  %s",
			it.DocNo,
			displayAmount(it.SOAAmount, 0),
			displayAmount(it.LedgerAmount, 0),
			displayVariance(it.Variance, 0),
			it.Status,
			it.AgingDays,
			it.Investigation))
	}

	lines = append(lines,
		"",
		strings.Repeat("-", 100),
		fmt.Sprintf("SOA Total:      %12s", grouped(s.SOATotal, 0)),
		fmt.Sprintf("Ledger Total:   %12s", grouped(s.LedgerTotal, 0)),
		fmt.Sprintf("Net Variance:   %12s", grouped(s.NetVariance, 0)),
		fmt.Sprintf("Match Rate:     %11.0f%%", s.MatchRate),
	)

	_, err := io.WriteString(writer, strings.Join(lines, "\n")+"\n")
	return err
}
