// Package core provides the recovery and aggregation logic for payment exports.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Placeholders used in place of missing data.
const (
	// MissingDateMarker is shown for a transaction whose timestamp could not be recovered.
	MissingDateMarker = "<missing-date>"

	// BlankMessage replaces an empty provider message.
	BlankMessage = "<blank>"
)

// Status is the outcome of a transaction attempt.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusAbandoned  Status = "abandoned"
	StatusCancelled  Status = "cancelled"
	StatusInProgress Status = "inprogress"
)

// StatusOrder is the display order for status counts.
var StatusOrder = []Status{StatusSuccessful, StatusFailed, StatusAbandoned, StatusCancelled, StatusInProgress}

// IsSuccess reports whether messages with this status count as success messages.
func (s Status) IsSuccess() bool { return s == StatusSuccessful }

// IsFailure reports whether messages with this status count as failure messages.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusAbandoned || s == StatusCancelled
}

// Channel is the payment method used.
type Channel string

const (
	ChannelCard         Channel = "card"
	ChannelBankTransfer Channel = "bank_transfer"
	ChannelEFT          Channel = "eft"
	ChannelMobileMoney  Channel = "mobile_money"
	ChannelOther        Channel = "other"
)

// ChannelOrder is the display order for channel counts.
var ChannelOrder = []Channel{ChannelCard, ChannelBankTransfer, ChannelEFT, ChannelMobileMoney, ChannelOther}

// Timestamp is a recovered ISO-8601 value. The zero value is a missing date.
type Timestamp struct {
	Raw string    // Text as found in the export
	At  time.Time // Parsed instant; zero if Raw did not parse
}

// Missing reports whether no timestamp was recovered.
func (t Timestamp) Missing() bool { return t.Raw == "" }

// String returns the raw timestamp or MissingDateMarker.
func (t Timestamp) String() string {
	if t.Missing() {
		return MissingDateMarker
	}
	return t.Raw
}

// Transaction is one normalized record recovered from an export row.
// Provider, Region and Status are always resolved; Channel falls back to ChannelOther.
type Transaction struct {
	Line       int // 1-based source line
	Timestamp  Timestamp
	Provider   string
	Region     string
	Status     Status
	Channel    Channel
	RawChannel string // Unrecognized channel text, kept when Channel is ChannelOther
	Message    string
	Customer   string         // Customer column text, an email when one is present
	Currency   pgtype.Text    // Valid=false when absent
	Rate       pgtype.Numeric // Valid=false when absent
}

// Role is the semantic role of a token within a row.
type Role int

const (
	RoleUnknown Role = iota
	RoleTimestamp
	RoleProvider
	RoleRegion
	RoleStatus
	RoleChannel
	RoleCurrency
	RoleRate
	RoleMessage
)

var roleNames = map[Role]string{
	RoleUnknown:   "unknown",
	RoleTimestamp: "timestamp",
	RoleProvider:  "provider",
	RoleRegion:    "region",
	RoleStatus:    "status",
	RoleChannel:   "channel",
	RoleCurrency:  "currency",
	RoleRate:      "rate",
	RoleMessage:   "message",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// RawField is a single token from a tokenized row.
type RawField struct {
	Text  string
	Index int // Position within the row
}

// ClassifiedField is a RawField tagged with its role.
type ClassifiedField struct {
	RawField
	Role Role
}

// Group is a contiguous run of fields believed to encode one transaction.
type Group struct {
	Fields []ClassifiedField

	// Complete is true once a Region, a Status and a Channel followed the Provider.
	Complete bool
}

// Tokens returns the raw text of the group's fields.
func (g Group) Tokens() []string {
	out := make([]string, len(g.Fields))
	for i, f := range g.Fields {
		out[i] = f.Text
	}
	return out
}

// Rejection records a group that could not be built into a Transaction.
type Rejection struct {
	Line   int
	Reason string
	Tokens []string
}

// ParseResult contains everything recovered from one export file.
type ParseResult struct {
	RunID        string
	FileName     string
	Transactions []Transaction
	Rows         int // Physical rows read, including the header
	Groups       int // Candidate groups detected
	Rejected     int // Groups and rows that could not be recovered
	Rejections   []Rejection
	BytesRead    int64
	Duration     time.Duration
}
