package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Messages are chosen to match the patterns in error_messages.go.
var (
	ErrEmptyFile       = errors.New("empty file")
	ErrNoTransactions  = errors.New("no transactions recovered")
	ErrFileTooLarge    = errors.New("file too large")
	ErrReportNotFound  = errors.New("report not found")
	ErrNoFileProvided  = errors.New("no file provided")
	ErrInvalidTopCount = errors.New("invalid top count")
	ErrNoMatchingData  = errors.New("no transactions for selection")
)

// FileReadError is returned when an export cannot be read at all: the file is
// missing, unreadable, empty, or yields no transactions. It is fatal to a run.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read export: %v", e.Err)
	}
	return fmt.Sprintf("read export %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// IncompleteTransactionError is returned by the Builder when a group lacks a
// provider, region or status. It is recoverable: the group is discarded and
// the rest of the row is still processed.
type IncompleteTransactionError struct {
	Missing []Role
	Tokens  []string
}

func (e *IncompleteTransactionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = r.String()
	}
	return fmt.Sprintf("incomplete transaction: missing %s", strings.Join(names, ", "))
}

// IsIncomplete reports whether err is an IncompleteTransactionError.
func IsIncomplete(err error) bool {
	var ite *IncompleteTransactionError
	return errors.As(err, &ite)
}
