package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/parsers"
	"document-reconciliation-service/internal/reconciler"
)

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *reconciler.RunResult, writer io.Writer) error {
	// Report header
	fmt.Fprintf(writer, "%s\n", strings.ToUpper(rg.config.Title))
	fmt.Fprintf(writer, "Run:       %s\n", result.RunID)
	fmt.Fprintf(writer, "As of:     %s\n", result.AsOf.Format("02 Jan 2006"))
	fmt.Fprintf(writer, "Generated: %s\n", rg.now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:  %v\n\n", result.Duration)

	if result.HasReconciliation() {
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(result, writer)
		fmt.Fprintf(writer, "\n")

		fmt.Fprintf(writer, "=== AGING OF EXCEPTIONS ===\n")
		rg.printAging(result, writer)
		fmt.Fprintf(writer, "\n")

		items := rg.itemsForOutput(result.Items)
		if len(items) > 0 {
			if rg.config.IncludeMatchedItems {
				fmt.Fprintf(writer, "=== ITEMS ===\n")
			} else {
				fmt.Fprintf(writer, "=== EXCEPTIONS ===\n")
			}
			rg.printItems(items, writer)
			fmt.Fprintf(writer, "\n")
		}
	}

	if result.HasRecords() {
		fmt.Fprintf(writer, "=== UTILITY MATCHING ===\n")
		rg.printMatching(result, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeParseStats && len(result.ParseStats) > 0 {
		fmt.Fprintf(writer, "=== INPUT FILES ===\n")
		rg.printParseStats(result.ParseStats, writer)
	}

	return nil
}

func (rg *ReportGenerator) printSummary(result *reconciler.RunResult, writer io.Writer) {
	s := result.Summary
	fmt.Fprintf(writer, "Documents:        %d\n", s.TotalItems)
	for _, status := range models.AllStatuses {
		count := s.StatusCounts[status]
		fmt.Fprintf(writer, "  %-18s %d (%.1f%%)\n", string(status)+":", count, percentage(count, s.TotalItems))
	}

	fmt.Fprintf(writer, "\nSOA Total:        %s\n", grouped(s.SOATotal, 2))
	fmt.Fprintf(writer, "Ledger Total:     %s\n", grouped(s.LedgerTotal, 2))
	fmt.Fprintf(writer, "Net Variance:     %s\n", grouped(s.NetVariance, 2))
	fmt.Fprintf(writer, "Mismatch Amount:  %s\n", grouped(s.MismatchAmount, 2))
	fmt.Fprintf(writer, "Overdue Variance: %s\n", grouped(s.OverdueVariance, 2))
	fmt.Fprintf(writer, "Match Rate:       %.1f%%\n", s.MatchRate)
	fmt.Fprintf(writer, "Missing Docs:     %d\n", s.Missing())

	fmt.Fprintf(writer, "\nInvestigation:\n")
	for _, state := range []models.InvestigationState{
		models.InvestigationUnderInvestigation,
		models.InvestigationResolved,
		models.InvestigationApproved,
	} {
		fmt.Fprintf(writer, "  %-20s %d\n", string(state)+":", s.Investigations[state])
	}

	for _, p := range result.Preprocessing {
		if p != nil && p.Dropped() > 0 {
			fmt.Fprintf(writer, "\nDropped from %s: %d without doc_no, %d duplicates", p.Side, p.MissingDocNo, p.Duplicates)
			if len(p.DuplicateDocs) > 0 {
				fmt.Fprintf(writer, " (%s)", strings.Join(p.DuplicateDocs, ", "))
			}
			fmt.Fprintf(writer, "\n")
		}
	}
}

func (rg *ReportGenerator) printAging(result *reconciler.RunResult, writer io.Writer) {
	for _, b := range result.Summary.Buckets() {
		fmt.Fprintf(writer, "  %-6s days: %d\n", b.Bucket, b.Count)
	}
}

func (rg *ReportGenerator) printItems(items []*models.ReconciliationItem, writer io.Writer) {
	fmt.Fprintf(writer, "%-14s  %12s  %12s  %10s  %-18s  %5s  %s\n",
		"Doc No", "SOA", "Ledger", "Variance", "Status", "Aging", "Investigation")

	for i, it := range items {
		line := fmt.Sprintf("%-14s  %12s  %12s  %10s  %-18s  %4dd  %s",
			truncate(it.DocNo, 14),
			displayAmount(it.SOAAmount, 2),
			displayAmount(it.LedgerAmount, 2),
			displayVariance(it.Variance, 2),
			it.Status,
			it.AgingDays,
			it.Investigation)
		if it.AssignedTo != "" {
			line += " → " + it.AssignedTo
		}
		fmt.Fprintf(writer, "%s\n", line)

		// Limit output for very long lists
		if max := rg.config.MaxConsoleItems; max > 0 && i+1 >= max && len(items) > max {
			fmt.Fprintf(writer, "  ... and %d more\n", len(items)-max)
			break
		}
	}
}

func (rg *ReportGenerator) printMatching(result *reconciler.RunResult, writer io.Writer) {
	m := result.MatchSummary
	fmt.Fprintf(writer, "Records:     %d\n", len(result.Records))
	fmt.Fprintf(writer, "Utilities:   %d\n", m.Utilities)
	fmt.Fprintf(writer, "Candidates:  %d\n", m.Candidates)
	fmt.Fprintf(writer, "Matched:     %d (%.1f%%)\n", m.Matched, percentage(m.Matched, m.Utilities))
	fmt.Fprintf(writer, "Unmatched:   %d\n", m.Unmatched)
	fmt.Fprintf(writer, "Confidence:  High %d, Medium %d, Low %d\n",
		m.ByConfidence[models.ConfidenceHigh],
		m.ByConfidence[models.ConfidenceMedium],
		m.ByConfidence[models.ConfidenceLow])

	if len(result.Matching.Matches) > 0 {
		fmt.Fprintf(writer, "\nMatches:\n")
		for _, mr := range result.Matching.Matches {
			fmt.Fprintf(writer, "  %s → %s  score %d (%s) on %s\n",
				mr.LeftID, mr.RightID, mr.Score, mr.Confidence, strings.Join(mr.MatchedOn, ", "))
		}
	}

	if len(result.Matching.Ambiguities) > 0 {
		fmt.Fprintf(writer, "\nCheck these pairings:\n")
		for _, a := range result.Matching.Ambiguities {
			fmt.Fprintf(writer, "  %s\n", a)
		}
	}

	if len(result.Matching.UnmatchedUtilities) > 0 {
		fmt.Fprintf(writer, "\nUtility bills without a rental invoice:\n")
		for i, u := range result.Matching.UnmatchedUtilities {
			fmt.Fprintf(writer, "  %d. %s  %s  %s\n", i+1, u.DocNo, u.Company, u.TotalAmount())
		}
	}
}

func (rg *ReportGenerator) printParseStats(stats []*parsers.ParseStats, writer io.Writer) {
	for _, s := range stats {
		if s == nil {
			continue
		}
		fmt.Fprintf(writer, "%s\n", s)
		for _, sample := range s.SampleErrors(3) {
			fmt.Fprintf(writer, "    skipped: %s\n", sample)
		}
	}
}
