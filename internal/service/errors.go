package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrSubmissionInProgress = errors.New("order submission already in progress")
)

// ValidationError lists the offending fields by their JSON names, sorted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

// RemoteMutationError is a cart or order mutation the server did not accept.
// The optimistic local change is not rolled back.
type RemoteMutationError struct {
	Op        string
	ProductID string
	Err       error
}

func (e *RemoteMutationError) Error() string {
	if e.ProductID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.ProductID, e.Err)
}

func (e *RemoteMutationError) Unwrap() error { return e.Err }

// RemoteFetchError means the local view may be stale.
type RemoteFetchError struct {
	Resource string
	Err      error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Resource, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// OrderSubmissionError carries the server's message and field issues verbatim. StatusCode is 0
// when no response arrived.
type OrderSubmissionError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string
	Err        error
}

func (e *OrderSubmissionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprint(e.Err)
	}
	if details := e.Details(); details != "" {
		return "order submission failed: " + msg + " (" + details + ")"
	}
	return "order submission failed: " + msg
}

// Details renders the field issues as "field: issue, issue; field: issue", fields sorted.
func (e *OrderSubmissionError) Details() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *OrderSubmissionError) Unwrap() error { return e.Err }
