package models

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount keeps an amount's source text for display next to its parsed value.
// Valid is false when the text could not be read as a number; such amounts
// are shown verbatim but never used in arithmetic.
type Amount struct {
	Text  string
	Value decimal.Decimal
	Valid bool
}

// ParseAmount reads statement amounts such as "8,500.00", "RM 1,200",
// "(1,000.00)" and "-2000". Parentheses mean a negative amount.
func ParseAmount(text string) Amount {
	a := Amount{Text: strings.TrimSpace(text)}
	s := a.Text
	if s == "" {
		return a
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// currency codes and symbols in front of the number
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r) || r == '$' || r == '€' || r == '£'
	})
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r)
	})
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return a
	}
	if negative {
		d = d.Neg()
	}

	a.Value = d
	a.Valid = true
	return a
}

// NewAmount builds a valid amount from a decimal
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Text: d.String(), Value: d, Valid: true}
}

// String returns the verbatim text
func (a Amount) String() string {
	return a.Text
}

// MarshalJSON emits the verbatim text so exports never renumber amounts
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Text)
}

// UnmarshalJSON accepts a JSON string or number
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw interface{}
	d := json.NewDecoder(strings.NewReader(string(data)))
	d.UseNumber()
	if err := d.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*a = Amount{}
	case string:
		*a = ParseAmount(v)
	case json.Number:
		*a = ParseAmount(v.String())
	default:
		*a = Amount{}
	}
	return nil
}
