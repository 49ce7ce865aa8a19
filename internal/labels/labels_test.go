package labels

import (
	"os"
	"path/filepath"
	"testing"

	"document-reconciliation-service/internal/models"
	apperrors "document-reconciliation-service/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw      string
		expected models.CanonicalLabel
	}{
		// canonical hits
		{"utility", models.LabelUtility},
		{"  \"SOA\" ", models.LabelSOA},
		{"'bank_statement'", models.LabelBankStatement},

		// aliases
		{"Credit Memo", models.LabelCreditNote},
		{"CN", models.LabelCreditNote},
		{"Tax-Invoice", models.LabelCommercialInvoice},
		{"bank__statement", models.LabelBankStatement},
		{"credit-note", models.LabelCreditNote},
		{"statement   of account", models.LabelSOA},

		// keyword rules
		{"Monthly Electricity Charges", models.LabelUtility},
		{"hotel accommodation", models.LabelHotel},
		{"flight booking", models.LabelTravel},
		{"tenancy billing", models.LabelRental},
		{"proforma invoice", models.LabelCommercialInvoice},
		{"Soap Invoice", models.LabelCommercialInvoice},
		{"monthly statements", models.LabelSOA},
		{"lease-invoices", models.LabelRental},

		// precedence
		{"credit note against invoice", models.LabelCreditNote},
		{"utility invoice", models.LabelUtility},
		{"bank statement of account", models.LabelBankStatement},

		// nothing matches
		{"XYZ nonsense", models.LabelUnknown},
		{"", models.LabelUnknown},
		{"\"\"", models.LabelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Credit Memo", "XYZ nonsense", "utility bill", "rental", "whatever", "Tax Invoice"}
	for _, l := range models.CanonicalLabels {
		inputs = append(inputs, string(l))
	}

	for _, in := range inputs {
		once := Normalize(in)
		if !once.IsValid() {
			t.Errorf("Normalize(%q) returned non-canonical %q", in, once)
		}
		if twice := Normalize(string(once)); twice != once {
			t.Errorf("Normalize not idempotent for %q: %v then %v", in, once, twice)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		body     string
		expected models.CanonicalLabel
	}{
		{"label wins", "Credit Memo", "running balance", models.LabelCreditNote},
		{"fallback to body", "XYZ nonsense", "Date  Description  Debit  Credit  Running Balance", models.LabelBankStatement},
		{"missing label", "", "Meter Reading 1,200 - 1,450 kWh", models.LabelUtility},
		{"nothing anywhere", "???", "lorem ipsum", models.LabelUnknown},
		{"empty body", "garbage", "", models.LabelUnknown},
		{"soap is not soa", "", "Invoice for 200 units of hand soap", models.LabelCommercialInvoice},
		{"please is not lease", "", "Commercial invoice. Please remit within 30 days", models.LabelCommercialInvoice},
		{"packaging is not aging", "", "Invoice: gift packaging and delivery", models.LabelCommercialInvoice},
		{"standalone soa", "", "SOA as at 31 Jan 2026", models.LabelSOA},
		{"aging report", "", "Aging: 0-30 days 1,200.00", models.LabelSOA},
		{"glued to digits", "", "Usage 250kWh", models.LabelUtility},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.label, tt.body); got != tt.expected {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.label, tt.body, got, tt.expected)
			}
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		kw   string
		want bool
	}{
		{"hand soap", "soa", false},
		{"soa 2026", "soa", true},
		{"please remit", "lease", false},
		{"new lease", "lease", true},
		{"two leases", "lease", true},
		{"leased unit", "lease", false},
		{"packaging", "aging", false},
		{"aging", "aging", true},
		{"please lease", "lease", true},
		{"room charges", "room charge", true},
		{"x", "lease", false},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.kw, func(t *testing.T) {
			if got := containsWord(tt.text, tt.kw); got != tt.want {
				t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
			}
		})
	}
}

func TestAddAliasAndKeywords(t *testing.T) {
	n := New()

	if !n.AddAlias("Rent Statement", models.LabelRental) {
		t.Fatal("expected alias to be added")
	}
	if got := n.Normalize("rent_statement"); got != models.LabelRental {
		t.Errorf("expected rental, got %v", got)
	}
	if n.AddAlias("x", "nope") {
		t.Error("expected invalid label to be rejected")
	}

	if got := n.Normalize("sewerage charges"); got != models.LabelUnknown {
		t.Fatalf("expected unknown before keyword added, got %v", got)
	}
	if !n.AddKeywords(models.LabelUtility, "Sewerage") {
		t.Fatal("expected keywords to be added")
	}
	if got := n.Normalize("sewerage charges"); got != models.LabelUtility {
		t.Errorf("expected utility, got %v", got)
	}

	// the package default must not see per-instance changes
	if got := Normalize("rent statement"); got != models.LabelSOA {
		t.Errorf("expected default normalizer to keep soa precedence, got %v", got)
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "aliases.yaml")
		content := "aliases:\n  rent statement: rental\n  e-folio: hotel\nkeywords:\n  utility: [sewerage]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		n := New()
		if err := n.LoadAliases(path); err != nil {
			t.Fatalf("LoadAliases() error = %v", err)
		}
		if got := n.Normalize("Rent Statement"); got != models.LabelRental {
			t.Errorf("expected rental, got %v", got)
		}
		if got := n.Normalize("E_Folio"); got != models.LabelHotel {
			t.Errorf("expected hotel, got %v", got)
		}
		if got := n.Classify("", "indah sewerage"); got != models.LabelUtility {
			t.Errorf("expected utility, got %v", got)
		}
	})

	t.Run("unknown target label", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("aliases:\n  foo: invoices\n"), 0644); err != nil {
			t.Fatal(err)
		}

		err := New().LoadAliases(path)
		re, ok := apperrors.AsReconcilerError(err)
		if !ok || re.Category != apperrors.CategoryConfiguration {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		err := New().LoadAliases(filepath.Join(dir, "missing.yaml"))
		re, ok := apperrors.AsReconcilerError(err)
		if !ok || re.Code != apperrors.CodeFileNotFound {
			t.Errorf("expected file not found error, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		if err := os.WriteFile(path, []byte("aliases: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}

		err := New().LoadAliases(path)
		re, ok := apperrors.AsReconcilerError(err)
		if !ok || re.Category != apperrors.CategoryParse {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}
