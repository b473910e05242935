package core

import (
	"strings"
)

// Classifier tags tokens with their semantic role using a Vocabulary.
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier creates a Classifier backed by vocab.
func NewClassifier(vocab *Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// Classify returns the role of a single token. prev is the role of the
// token immediately before it, used to recognize the optional rate column.
//
// Order matters: the first matching rule wins.
func (c *Classifier) Classify(token string, prev Role) Role {
	t := strings.TrimSpace(token)
	if t == "" {
		return RoleUnknown
	}

	if c.vocab.IsTimestamp(t) {
		return RoleTimestamp
	}
	if _, ok := c.vocab.Provider(t); ok {
		return RoleProvider
	}
	if _, ok := c.vocab.Region(t); ok {
		return RoleRegion
	}
	if _, ok := c.vocab.Status(t); ok {
		return RoleStatus
	}
	if _, ok := c.vocab.Channel(t); ok {
		return RoleChannel
	}
	if c.vocab.IsCurrency(t) {
		return RoleCurrency
	}
	if isDecimal(t) {
		if prev == RoleCurrency {
			return RoleRate
		}
		// Bare amounts are not messages.
		return RoleUnknown
	}
	if c.vocab.IsMode(t) || isIdentifier(t) {
		return RoleUnknown
	}
	return RoleMessage
}

// ClassifyRow tags every token of a row left to right.
func (c *Classifier) ClassifyRow(tokens []string) []ClassifiedField {
	out := make([]ClassifiedField, len(tokens))
	prev := RoleUnknown
	for i, tok := range tokens {
		role := c.Classify(tok, prev)
		out[i] = ClassifiedField{RawField: RawField{Text: tok, Index: i}, Role: role}
		prev = role
	}
	return out
}

// isDecimal reports whether s is a plain or thousands-separated number.
func isDecimal(s string) bool {
	return ToPgNumeric(s).Valid
}

// isIdentifier reports whether s is a customer identifier such as an email.
func isIdentifier(s string) bool {
	return !strings.ContainsAny(s, " \t") && strings.Contains(s, "@")
}
