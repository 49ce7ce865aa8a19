package identifiers

import (
	"regexp"
	"strings"
)

// Scraper pulls one identifier out of free text
type Scraper func(text string) (string, bool)

var (
	lotNoPattern     = regexp.MustCompile(`(?i)Lot\s*No\.?\s*[:：]?\s*(\S+)`)
	unitNoPattern    = regexp.MustCompile(`(?i)Unit\s*No\.?\s*[:：]?\s*(\S+)`)
	leaseIDPattern   = regexp.MustCompile(`(?i)Lease\s*ID\.?\s*[:：]?\s*(\S+)`)
	accountNoPattern = regexp.MustCompile(`(?i)Account\s*No\.?\s*[:：]?\s*(\S+)`)
	locationPattern  = regexp.MustCompile(`(?:The\s+\w+\s+Mall|[\w\s]+Mall|[\w\s]+Hotel|[\w\s]+Plaza)`)
	meterPattern     = regexp.MustCompile(`Meter Readings?\s*([\d,]+(?:\.\d+)?)\s*[-–]\s*([\d,]+(?:\.\d+)?)`)
	nonDigits        = regexp.MustCompile(`\D+`)
)

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimRight(m[1], ",;.")
	if v == "" {
		return "", false
	}
	return v, true
}

// ScrapeLotNo finds "Lot No: X" in text
func ScrapeLotNo(text string) (string, bool) {
	return firstGroup(lotNoPattern, text)
}

// ScrapeUnitNo finds "Unit No: X" in text
func ScrapeUnitNo(text string) (string, bool) {
	return firstGroup(unitNoPattern, text)
}

// ScrapeLeaseID finds "Lease ID: X" in text
func ScrapeLeaseID(text string) (string, bool) {
	return firstGroup(leaseIDPattern, text)
}

// ScrapeAccountNo finds "Account No: X" in text
func ScrapeAccountNo(text string) (string, bool) {
	return firstGroup(accountNoPattern, text)
}

// ScrapeLocation returns the mall, hotel or plaza name mentioned in text
func ScrapeLocation(text string) (string, bool) {
	if !strings.Contains(text, "Mall") && !strings.Contains(text, "Hotel") && !strings.Contains(text, "Plaza") {
		return "", false
	}
	m := locationPattern.FindString(text)
	m = strings.TrimSpace(m)
	return m, m != ""
}

// ScrapeMeterRange reads a "Meter Reading 1,200 - 1,450" range. Thousands
// separators are removed from both values.
func ScrapeMeterRange(text string) (before, after string, ok bool) {
	m := meterPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return strings.ReplaceAll(m[1], ",", ""), strings.ReplaceAll(m[2], ",", ""), true
}

// NormalizeLeaseID keeps only the digits so "LID-0032" and "0032" compare equal
func NormalizeLeaseID(id string) string {
	return nonDigits.ReplaceAllString(id, "")
}
