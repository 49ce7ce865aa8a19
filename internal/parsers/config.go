package parsers

import (
	"fmt"
	"strings"
)

// Canonical statement columns
const (
	ColumnDocNo   = "doc_no"
	ColumnDocType = "doc_type"
	ColumnDate    = "date"
	ColumnAmount  = "amount"
	ColumnDebit   = "debit"
	ColumnCredit  = "credit"
)

// StatementConfig describes how statement and ledger files are read
type StatementConfig struct {
	Parse *ParseConfig `json:"parse" mapstructure:"parse"`

	// ColumnAliases maps a normalized header to a canonical column.
	// Entries here are added to the built-in aliases.
	ColumnAliases map[string]string `json:"column_aliases,omitempty" mapstructure:"column_aliases"`

	// EntriesKey names the array inside a JSON object that holds entries
	EntriesKey []string `json:"entries_key" mapstructure:"entries_key"`
}

// defaultColumnAliases are the header spellings seen on statement exports
var defaultColumnAliases = map[string]string{
	"doc_no":           ColumnDocNo,
	"document_no":      ColumnDocNo,
	"document_number":  ColumnDocNo,
	"doc_number":       ColumnDocNo,
	"docno":            ColumnDocNo,
	"invoice_no":       ColumnDocNo,
	"invoice_number":   ColumnDocNo,
	"reference":        ColumnDocNo,
	"reference_no":     ColumnDocNo,
	"ref_no":           ColumnDocNo,
	"doc_type":         ColumnDocType,
	"document_type":    ColumnDocType,
	"type":             ColumnDocType,
	"date":             ColumnDate,
	"posting_date":     ColumnDate,
	"doc_date":         ColumnDate,
	"document_date":    ColumnDate,
	"invoice_date":     ColumnDate,
	"transaction_date": ColumnDate,
	"amount":           ColumnAmount,
	"total":            ColumnAmount,
	"total_amount":     ColumnAmount,
	"amount_myr":       ColumnAmount,
	"debit":            ColumnDebit,
	"dr":               ColumnDebit,
	"credit":           ColumnCredit,
	"cr":               ColumnCredit,
}

// DefaultStatementConfig reads comma-separated files with the built-in aliases
func DefaultStatementConfig() *StatementConfig {
	return &StatementConfig{
		Parse:         DefaultParseConfig(),
		ColumnAliases: map[string]string{},
		EntriesKey:    []string{"entries", "transactions", "items", "soa", "ledger"},
	}
}

// Validate checks if the statement configuration is valid
func (c *StatementConfig) Validate() error {
	if c.Parse != nil && c.Parse.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	for alias, column := range c.ColumnAliases {
		switch column {
		case ColumnDocNo, ColumnDocType, ColumnDate, ColumnAmount, ColumnDebit, ColumnCredit:
		default:
			return fmt.Errorf("alias %q maps to unknown column %q", alias, column)
		}
	}
	return nil
}

// Aliases returns the built-in aliases merged with configured ones
func (c *StatementConfig) Aliases() map[string]string {
	merged := make(map[string]string, len(defaultColumnAliases)+len(c.ColumnAliases))
	for k, v := range defaultColumnAliases {
		merged[k] = v
	}
	for k, v := range c.ColumnAliases {
		merged[NormalizeKey(k)] = v
	}
	return merged
}

// ParseDelimiter reads a delimiter flag value; "tab" and "\t" mean a tab
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", s)
}

// LoaderConfig controls concurrent loading of several input files
type LoaderConfig struct {
	MaxConcurrentFiles int              `json:"max_concurrent_files" mapstructure:"max_concurrent_files"`
	Statement          *StatementConfig `json:"statement" mapstructure:"statement"`
}

// DefaultLoaderConfig loads up to four files at once
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxConcurrentFiles: 4,
		Statement:          DefaultStatementConfig(),
	}
}

// Validate checks if the loader configuration is valid
func (c *LoaderConfig) Validate() error {
	if c.MaxConcurrentFiles <= 0 {
		return fmt.Errorf("max concurrent files must be positive, got %d", c.MaxConcurrentFiles)
	}
	if c.Statement != nil {
		return c.Statement.Validate()
	}
	return nil
}
