package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultVocabulary_Lookups(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		name   string
		lookup func(string) (string, bool)
		token  string
		want   string
		wantOK bool
	}{
		{"provider canonical case", v.Provider, "Hubtel", "hubtel", true},
		{"provider padded", v.Provider, "  PAYSTACK ", "paystack", true},
		{"unknown provider", v.Provider, "stripe", "", false},
		{"region display form", v.Region, "south africa", "South Africa", true},
		{"unknown region", v.Region, "Egypt", "", false},
		{"status", func(s string) (string, bool) { st, ok := v.Status(s); return string(st), ok }, "FAILED", "failed", true},
		{"channel", func(s string) (string, bool) { c, ok := v.Channel(s); return string(c), ok }, "Bank_Transfer", "bank_transfer", true},
		{"ussd is not a channel", func(s string) (string, bool) { c, ok := v.Channel(s); return string(c), ok }, "ussd", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("lookup(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("lookup(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestVocabulary_Patterns(t *testing.T) {
	v := DefaultVocabulary()

	if !v.IsTimestamp("2024-01-01T10:00:00Z") {
		t.Error("ISO timestamp not recognized")
	}
	if v.IsTimestamp("2024-01-01") {
		t.Error("bare date should not be a timestamp")
	}
	if !v.IsCurrency("ngn") {
		t.Error("lowercase known currency not recognized")
	}
	if v.IsCurrency("ABC") {
		t.Error("unknown three-letter code accepted as currency")
	}
	if v.IsCurrency("NGNX") {
		t.Error("four-letter token accepted as currency")
	}
	if !v.IsMode("LIVE") {
		t.Error("mode marker not recognized")
	}
}

func TestNewVocabulary_Overrides(t *testing.T) {
	v, err := NewVocabulary(VocabularySpec{
		Providers: []string{"Flutterwave", "flutterwave", " "},
		Regions:   []string{"Uganda"},
	})
	if err != nil {
		t.Fatalf("NewVocabulary() error: %v", err)
	}

	if got := v.Providers(); len(got) != 1 || got[0] != "Flutterwave" {
		t.Errorf("Providers() = %v, want [Flutterwave]", got)
	}
	if _, ok := v.Provider("hubtel"); ok {
		t.Error("overridden provider list still contains defaults")
	}
	if _, ok := v.Status("successful"); !ok {
		t.Error("empty statuses should fall back to defaults")
	}
	if got := v.Regions(); len(got) != 1 || got[0] != "Uganda" {
		t.Errorf("Regions() = %v, want [Uganda]", got)
	}
}

func TestNewVocabulary_InvalidPattern(t *testing.T) {
	_, err := NewVocabulary(VocabularySpec{TimestampPattern: "("})
	if err == nil {
		t.Fatal("expected error for invalid timestamp pattern")
	}
	if !strings.Contains(err.Error(), "timestamp_pattern") {
		t.Errorf("error %q should name the field", err)
	}
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := `providers:
  - hubtel
  - mtn_momo
regions: [Ghana, Uganda]
channels: [card, mobile_money, ussd]
currencies: [GHS, UGX]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary() error: %v", err)
	}
	if _, ok := v.Provider("MTN_MOMO"); !ok {
		t.Error("provider from file not loaded")
	}
	if c, ok := v.Channel("USSD"); !ok || c != "ussd" {
		t.Errorf("Channel(USSD) = %q, %v", c, ok)
	}
	if v.IsCurrency("NGN") {
		t.Error("currency list should be replaced by file contents")
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadVocabulary(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		os.WriteFile(bad, []byte("providers: [unclosed"), 0o644)
		if _, err := LoadVocabulary(bad); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}
