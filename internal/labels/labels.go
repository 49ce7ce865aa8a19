// Package labels maps free-text document-type strings onto the fixed set of
// canonical labels. The same ordered keyword table doubles as a fallback
// classifier over a document's body text.
package labels

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"document-reconciliation-service/internal/models"
)

// Rule maps a canonical label to the keywords that signal it
type Rule struct {
	Label    models.CanonicalLabel `yaml:"label"`
	Keywords []string              `yaml:"keywords"`
}

// DefaultRules are evaluated in order and the first rule with a keyword
// found as a whole word (or its plural) in the cleaned text wins.
// commercial_invoice is last because "invoice" appears on almost every
// document.
var DefaultRules = []Rule{
	{models.LabelCreditNote, []string{"credit note", "credit memo", "creditnote", "refund note"}},
	{models.LabelBankStatement, []string{"bank statement", "running balance", "bank account statement", "bank stmt"}},
	{models.LabelSOA, []string{"statement of account", "soa", "outstanding balance", "aging", "ageing", "statement"}},
	{models.LabelUtility, []string{"utility", "utilities", "electricity", "meter reading", "tariff", "kwh", "billing period", "subscriber", "telecom", "water bill"}},
	{models.LabelHotel, []string{"hotel", "folio", "room charge", "check in", "check out", "guest name"}},
	{models.LabelTravel, []string{"travel", "flight", "airline", "itinerary", "routing", "passenger", "ticket"}},
	{models.LabelRental, []string{"rental", "base rent", "monthly rent", "lease", "tenancy", "tenant", "service charge", "lot no", "unit no"}},
	{models.LabelCommercialInvoice, []string{"invoice", "purchase order", "bill of lading", "barcode", "commercial"}},
}

var defaultAliases = map[string]models.CanonicalLabel{
	"tax invoice":          models.LabelCommercialInvoice,
	"invoice":              models.LabelCommercialInvoice,
	"commercial invoice":   models.LabelCommercialInvoice,
	"sales invoice":        models.LabelCommercialInvoice,
	"debit note":           models.LabelCommercialInvoice,
	"inv":                  models.LabelCommercialInvoice,
	"bank statement":       models.LabelBankStatement,
	"bank":                 models.LabelBankStatement,
	"credit memo":          models.LabelCreditNote,
	"credit note":          models.LabelCreditNote,
	"cn":                   models.LabelCreditNote,
	"statement of account": models.LabelSOA,
	"statement":            models.LabelSOA,
	"utility bill":         models.LabelUtility,
	"electricity bill":     models.LabelUtility,
	"telco bill":           models.LabelUtility,
	"hotel folio":          models.LabelHotel,
	"hotel invoice":        models.LabelHotel,
	"travel invoice":       models.LabelTravel,
	"air ticket":           models.LabelTravel,
	"e ticket":             models.LabelTravel,
	"rental invoice":       models.LabelRental,
	"rent":                 models.LabelRental,
	"lease invoice":        models.LabelRental,
}

var (
	separatorRun  = regexp.MustCompile(`[_\-]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalizer holds an alias table and an ordered rule table. The zero value
// is not usable; call New.
type Normalizer struct {
	mu      sync.RWMutex
	aliases map[string]models.CanonicalLabel
	rules   []Rule
}

// New returns a Normalizer seeded with the built-in aliases and rules
func New() *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]models.CanonicalLabel, len(defaultAliases)),
		rules:   make([]Rule, len(DefaultRules)),
	}
	for k, v := range defaultAliases {
		n.aliases[k] = v
	}
	for i, r := range DefaultRules {
		n.rules[i] = Rule{Label: r.Label, Keywords: append([]string(nil), r.Keywords...)}
	}
	return n
}

// Normalize canonicalizes a raw label. It never fails; anything it cannot
// place is unknown.
func (n *Normalizer) Normalize(raw string) models.CanonicalLabel {
	trimmed := trimLabel(raw)
	if l := models.CanonicalLabel(trimmed); l.IsValid() {
		return l
	}

	cleaned := clean(trimmed)
	if cleaned == "" {
		return models.LabelUnknown
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if l, ok := n.aliases[cleaned]; ok {
		return l
	}
	return n.scan(cleaned)
}

// Classify returns the normalized label, or when that is unknown, the first
// rule matching the document body.
func (n *Normalizer) Classify(label, bodyText string) models.CanonicalLabel {
	if l := n.Normalize(label); l != models.LabelUnknown {
		return l
	}

	body := clean(strings.ToLower(bodyText))
	if body == "" {
		return models.LabelUnknown
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scan(body)
}

// AddAlias registers an extra alias. The alias is cleaned the same way raw
// labels are.
func (n *Normalizer) AddAlias(alias string, label models.CanonicalLabel) bool {
	key := clean(trimLabel(alias))
	if key == "" || !label.IsValid() {
		return false
	}

	n.mu.Lock()
	n.aliases[key] = label
	n.mu.Unlock()
	return true
}

// AddKeywords appends keywords to an existing rule without changing rule order
func (n *Normalizer) AddKeywords(label models.CanonicalLabel, keywords ...string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := range n.rules {
		if n.rules[i].Label != label {
			continue
		}
		for _, kw := range keywords {
			if kw = clean(strings.ToLower(kw)); kw != "" {
				n.rules[i].Keywords = append(n.rules[i].Keywords, kw)
			}
		}
		return true
	}
	return false
}

func (n *Normalizer) scan(text string) models.CanonicalLabel {
	for _, rule := range n.rules {
		for _, kw := range rule.Keywords {
			if containsWord(text, kw) {
				return rule.Label
			}
		}
	}
	return models.LabelUnknown
}

// containsWord reports whether kw occurs in text with no letter directly
// before it and nothing but an optional plural "s" or "es" before the next
// non-letter. "soa" does not hit "soap" and "lease" does not hit "please".
func containsWord(text, kw string) bool {
	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		start := from + i
		if !letterBefore(text, start) && wordEnds(text[start+len(kw):]) {
			return true
		}
		from = start + 1
	}
	return false
}

func letterBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsLetter(r)
}

func wordEnds(rest string) bool {
	for _, suffix := range []string{"", "s", "es"} {
		if !strings.HasPrefix(rest, suffix) {
			continue
		}
		tail := rest[len(suffix):]
		if tail == "" {
			return true
		}
		if r, _ := utf8.DecodeRuneInString(tail); !unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func trimLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSpace(strings.Trim(s, "\"'`“”‘’"))
}

func clean(s string) string {
	s = separatorRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

var std = New()

// Default returns the process-wide normalizer used by Normalize and Classify
func Default() *Normalizer {
	return std
}

// Normalize canonicalizes raw with the default normalizer
func Normalize(raw string) models.CanonicalLabel {
	return std.Normalize(raw)
}

// Classify runs the default normalizer with a body-text fallback
func Classify(label, bodyText string) models.CanonicalLabel {
	return std.Classify(label, bodyText)
}
