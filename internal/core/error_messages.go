// Package core provides the recovery and aggregation logic for payment exports.
//
// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// users can quote to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: The export exceeds the configured size limit
//	          Action: Split the export by date range and analyze each part
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: A line could not be tokenized
//	          Action: Ensure the export is comma-separated text
//	          Patterns: "invalid csv"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save the export as UTF-8
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was uploaded
//	          Action: Select an export to analyze
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The export has no rows
//	          Action: Check that the export was downloaded completely
//	          Patterns: "empty file"
//
//	FILE006 - No transactions: No row contained a recognizable transaction
//	          Action: Check that the export lists provider, region and status values
//	          Patterns: "no transactions recovered"
//
//	FILE007 - File not found: The export path does not exist
//	          Action: Check the file path
//	          Patterns: "no such file"
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - Incomplete transaction: A group lacked provider, region or status
//	           Action: Download the rejected groups to review them
//	           Patterns: "incomplete transaction"
//
// # Analysis Errors (UPL001-UPL099)
//
//	UPL001 - Analysis cancelled
//	         Patterns: "analysis cancelled"
//
//	UPL002 - System busy: Too many analyses in progress
//	         Patterns: "too many concurrent analyses"
//
//	UPL003 - Report expired: The report is no longer stored
//	         Patterns: "report not found"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Report Errors (RPT001-RPT099)
//
//	RPT001 - Invalid top count
//	         Patterns: "invalid top count"
//
//	RPT002 - Invalid message kind
//	         Patterns: "invalid enum"
//
//	RPT003 - No data: The region or provider has no transactions in the report
//	         Patterns: "no transactions for selection"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones. When a user
// reports ERR000, check the logs for the original error.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE007)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Export exceeds the maximum file size",
			Action:  "Split the export by date range and analyze each part",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "A line of the export is not valid CSV",
			Action:  "Ensure the export is comma-separated text",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the export as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was uploaded",
			Action:  "Select an export to analyze",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The export is empty",
			Action:  "Check that the export was downloaded completely",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no transactions recovered",
		msg: UserMessage{
			Message: "No transactions could be recovered from the export",
			Action:  "Check that rows list provider, region and status values",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Export file not found",
			Action:  "Check the file path",
			Code:    "FILE007",
		},
	},

	// =========================================================================
	// Parse Errors (PARSE001)
	// =========================================================================
	{
		pattern: "incomplete transaction",
		msg: UserMessage{
			Message: "A transaction was missing its provider, region or status",
			Action:  "Download the rejected groups to review them",
			Code:    "PARSE001",
		},
	},

	// =========================================================================
	// Analysis Errors (UPL001-UPL005)
	// =========================================================================
	{
		pattern: "analysis cancelled",
		msg: UserMessage{
			Message: "Analysis was cancelled",
			Action:  "Start a new analysis when ready",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many concurrent analyses",
		msg: UserMessage{
			Message: "System is busy analyzing other exports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "The report may have expired. Please analyze the export again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller export or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Report Errors (RPT001-RPT003)
	// =========================================================================
	{
		pattern: "invalid top count",
		msg: UserMessage{
			Message: "Top count must be a positive number",
			Action:  "Use a value such as 5 or 10",
			Code:    "RPT001",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "Message kind is not in the allowed list",
			Action:  "Use success or failure",
			Code:    "RPT002",
		},
	},
	{
		pattern: "no transactions for selection",
		msg: UserMessage{
			Message: "No transactions match the selected region or provider",
			Action:  "Check the spelling against the report's region and provider lists",
			Code:    "RPT003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(&FileReadError{Path: "x.csv", Err: ErrEmptyFile})
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
