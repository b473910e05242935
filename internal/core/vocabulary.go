package core

// vocabulary.go holds the bounded set of values the recovery engine knows
// about. Every classification decision goes through a Vocabulary, so tests
// and deployments can swap in their own sets without touching package state.

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default patterns used when a vocabulary file does not override them.
const (
	DefaultTimestampPattern = `^\d{4}-\d{2}-\d{2}T`
	DefaultCurrencyPattern  = `^[A-Za-z]{3}$`
)

// Defaults mirror the provider export this tool was written for.
var (
	DefaultProviders  = []string{"cellulant", "hubtel", "interswitch", "ozow", "paystack", "spotflow_accounts", "tembo_plus"}
	DefaultRegions    = []string{"Nigeria", "Ghana", "South Africa", "Kenya", "Tanzania"}
	DefaultStatuses   = []string{string(StatusSuccessful), string(StatusFailed), string(StatusAbandoned), string(StatusCancelled), string(StatusInProgress)}
	DefaultChannels   = []string{string(ChannelCard), string(ChannelBankTransfer), string(ChannelEFT), string(ChannelMobileMoney)}
	DefaultCurrencies = []string{"NGN", "GHS", "ZAR", "KES", "TZS", "UGX", "XOF", "XAF", "RWF", "USD", "EUR", "GBP"}
	DefaultModes      = []string{"live", "test"}
)

// termSet is a case-insensitive set that remembers the canonical spelling.
type termSet struct {
	canonical map[string]string
	ordered   []string
}

func newTermSet(values []string) termSet {
	s := termSet{canonical: make(map[string]string, len(values))}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := s.canonical[key]; dup {
			continue
		}
		s.canonical[key] = v
		s.ordered = append(s.ordered, v)
	}
	return s
}

func (s termSet) lookup(token string) (string, bool) {
	v, ok := s.canonical[strings.ToLower(strings.TrimSpace(token))]
	return v, ok
}

// Vocabulary is the immutable set of known providers, regions, statuses,
// channels and currencies plus the timestamp and currency patterns.
// Membership tests are case-insensitive and ignore surrounding whitespace.
type Vocabulary struct {
	providers  termSet
	regions    termSet
	statuses   termSet
	channels   termSet
	currencies termSet
	modes      termSet

	timestampPattern *regexp.Regexp
	currencyPattern  *regexp.Regexp
}

// VocabularySpec is the serializable form of a Vocabulary.
// Empty lists and patterns fall back to the defaults.
type VocabularySpec struct {
	Providers        []string `yaml:"providers"`
	Regions          []string `yaml:"regions"`
	Statuses         []string `yaml:"statuses"`
	Channels         []string `yaml:"channels"`
	Currencies       []string `yaml:"currencies"`
	Modes            []string `yaml:"modes"`
	TimestampPattern string   `yaml:"timestamp_pattern"`
	CurrencyPattern  string   `yaml:"currency_pattern"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(VocabularySpec{})
	if err != nil {
		// Default patterns are constants; failure here is a programming error.
		panic(fmt.Sprintf("default vocabulary: %v", err))
	}
	return v
}

// NewVocabulary builds a Vocabulary from spec, filling gaps with defaults.
func NewVocabulary(spec VocabularySpec) (*Vocabulary, error) {
	tsPattern := orDefault(spec.TimestampPattern, DefaultTimestampPattern)
	ts, err := regexp.Compile(tsPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_pattern %q: %w", tsPattern, err)
	}
	curPattern := orDefault(spec.CurrencyPattern, DefaultCurrencyPattern)
	cur, err := regexp.Compile(curPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid currency_pattern %q: %w", curPattern, err)
	}

	return &Vocabulary{
		providers:        newTermSet(orDefaults(spec.Providers, DefaultProviders)),
		regions:          newTermSet(orDefaults(spec.Regions, DefaultRegions)),
		statuses:         newTermSet(orDefaults(spec.Statuses, DefaultStatuses)),
		channels:         newTermSet(orDefaults(spec.Channels, DefaultChannels)),
		currencies:       newTermSet(orDefaults(spec.Currencies, DefaultCurrencies)),
		modes:            newTermSet(orDefaults(spec.Modes, DefaultModes)),
		timestampPattern: ts,
		currencyPattern:  cur,
	}, nil
}

// LoadVocabulary reads a YAML vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var spec VocabularySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return NewVocabulary(spec)
}

// Provider returns the canonical provider name for token.
func (v *Vocabulary) Provider(token string) (string, bool) { return v.providers.lookup(token) }

// Region returns the canonical region name for token.
func (v *Vocabulary) Region(token string) (string, bool) { return v.regions.lookup(token) }

// Status returns the canonical status for token.
func (v *Vocabulary) Status(token string) (Status, bool) {
	s, ok := v.statuses.lookup(token)
	return Status(strings.ToLower(s)), ok
}

// Channel returns the canonical channel for token.
func (v *Vocabulary) Channel(token string) (Channel, bool) {
	c, ok := v.channels.lookup(token)
	return Channel(strings.ToLower(c)), ok
}

// IsTimestamp reports whether token looks like an ISO-8601 timestamp.
func (v *Vocabulary) IsTimestamp(token string) bool {
	return v.timestampPattern.MatchString(strings.TrimSpace(token))
}

// IsCurrency reports whether token is a known currency code.
func (v *Vocabulary) IsCurrency(token string) bool {
	token = strings.TrimSpace(token)
	if !v.currencyPattern.MatchString(token) {
		return false
	}
	_, ok := v.currencies.lookup(token)
	return ok
}

// IsMode reports whether token is an environment marker such as "live".
func (v *Vocabulary) IsMode(token string) bool {
	_, ok := v.modes.lookup(token)
	return ok
}

// Regions lists the regions in configured order.
func (v *Vocabulary) Regions() []string { return append([]string(nil), v.regions.ordered...) }

// Providers lists the providers in configured order.
func (v *Vocabulary) Providers() []string { return append([]string(nil), v.providers.ordered...) }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orDefaults(values, defs []string) []string {
	if len(values) == 0 {
		return defs
	}
	return values
}
