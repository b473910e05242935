package core

import (
	"regexp"
	"strings"
)

// channelLike matches the shape of channel values in exports (card,
// bank_transfer, ussd). Used to recognize a channel the vocabulary lacks.
var channelLike = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Builder assembles a classified group into a Transaction.
type Builder struct {
	vocab     *Vocabulary
	normalize MessageNormalizer
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMessageNormalizer replaces the default message normalization.
func WithMessageNormalizer(fn MessageNormalizer) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.normalize = fn
		}
	}
}

// NewBuilder creates a Builder backed by vocab.
func NewBuilder(vocab *Vocabulary, opts ...BuilderOption) *Builder {
	b := &Builder{vocab: vocab, normalize: NormalizeMessage}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces a Transaction from g, or an *IncompleteTransactionError
// when the provider, region or status is missing.
//
// The first occurrence of each skeleton role binds it; repeats are part of
// the message, which is how a merged row's echoed status ("successful")
// survives as message text. Free text between the region and the status is
// the customer columns and never reaches the message.
func (b *Builder) Build(g Group) (Transaction, error) {
	var (
		tx   Transaction
		seen roleSet

		message     []string
		customer    []string
		statusAt    = -1
		rawChannel  string
		rawChanSlot = -1 // position in message where rawChannel would have gone
	)

	for i, f := range g.Fields {
		text := strings.TrimSpace(f.Text)
		role := f.Role

		if seen.has(role) {
			switch role {
			case RoleProvider, RoleRegion, RoleStatus, RoleChannel:
				message = append(message, f.Text)
			}
			// Later timestamps, currencies and rates belong to nothing.
			continue
		}

		if (role == RoleMessage || role == RoleUnknown) && seen.has(RoleRegion) && !seen.has(RoleStatus) {
			if text != "" {
				customer = append(customer, text)
			}
			continue
		}

		switch role {
		case RoleProvider:
			tx.Provider, _ = b.vocab.Provider(text)
		case RoleRegion:
			tx.Region, _ = b.vocab.Region(text)
		case RoleStatus:
			tx.Status, _ = b.vocab.Status(text)
			statusAt = i
		case RoleChannel:
			tx.Channel, _ = b.vocab.Channel(text)
		case RoleTimestamp:
			tx.Timestamp = ParseTimestamp(text)
		case RoleCurrency:
			tx.Currency = ToPgText(strings.ToUpper(text))
		case RoleRate:
			tx.Rate = ToPgNumeric(text)
		case RoleMessage:
			if statusAt >= 0 && i == statusAt+1 && channelLike.MatchString(text) && b.channelSlot(g.Fields, i+1) {
				rawChannel = text
				rawChanSlot = len(message)
				continue
			}
			message = append(message, f.Text)
			continue
		default:
			continue
		}
		seen = seen.add(role)
	}

	var missing []Role
	for _, r := range []Role{RoleProvider, RoleRegion, RoleStatus} {
		if !seen.has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return Transaction{}, &IncompleteTransactionError{Missing: missing, Tokens: g.Tokens()}
	}

	if !seen.has(RoleChannel) {
		tx.Channel = ChannelOther
		tx.RawChannel = rawChannel
	} else if rawChanSlot >= 0 {
		// A known channel turned up later, so the candidate was message text.
		message = append(message[:rawChanSlot], append([]string{rawChannel}, message[rawChanSlot:]...)...)
	}

	tx.Customer = pickCustomer(customer)
	tx.Message = b.normalize(strings.Join(message, ","))
	return tx, nil
}

// channelSlot reports whether the field at next is what follows a channel
// column: a currency, a mode, or more message text. A lone word followed by
// a timestamp or the end of the group is the message itself.
func (b *Builder) channelSlot(fields []ClassifiedField, next int) bool {
	if next >= len(fields) {
		return false
	}
	f := fields[next]
	switch f.Role {
	case RoleCurrency, RoleMessage:
		return true
	case RoleUnknown:
		return b.vocab.IsMode(strings.TrimSpace(f.Text))
	}
	return false
}

// pickCustomer prefers an email-like token, then the first customer column.
func pickCustomer(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	customer := parts[0]
	for _, p := range parts {
		if strings.Contains(p, "@") {
			customer = p
			break
		}
	}
	return strings.TrimSpace(strings.Trim(customer, `"`))
}
