package ndk

import (
	"fmt"
	"sort"
	"strings"
)

// This file holds the error taxonomy for the kit. Transport errors
// (ConnectionError, TimeoutError, AuthenticationError, RequestRejected) abort
// a fetch and surface to the caller immediately; they are never retried
// silently. A successful fetch of zero rows is not an error at all - callers
// check RecordSet.Len, they do not look for an "empty" error.

// ConnectionError means the endpoint was unreachable. It is the only
// transport error besides TimeoutError which a caller may reasonably retry,
// and then only for idempotent reads.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Endpoint, e.Err)
}

// Cause returns the underlying error, for errors.Cause.
func (e *ConnectionError) Cause() error { return e.Err }

// TimeoutError means the fetch did not complete within the caller-specified
// timeout. It is distinct from ConnectionError: the endpoint may be fine and
// merely slow.
type TimeoutError struct {
	Endpoint string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetching from %s timed out: %v", e.Endpoint, e.Err)
}

// Cause returns the underlying error, for errors.Cause.
func (e *TimeoutError) Cause() error { return e.Err }

// AuthenticationError means the access credential was missing or rejected.
// Never retried automatically.
type AuthenticationError struct {
	Endpoint string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication to %s failed: %s", e.Endpoint, e.Reason)
}

// RequestRejected means the endpoint reported the request itself was
// malformed - typically an unrecognized filter field name. It carries the
// original parameters and the raw server message so a typo in a field name is
// visibly different from a field value that simply matched nothing.
type RequestRejected struct {
	Endpoint string
	Params   map[string]string
	Status   int
	Message  string
}

func (e *RequestRejected) Error() string {
	return fmt.Sprintf("request to %s rejected (status %d): %s [params: %s]",
		e.Endpoint, e.Status, e.Message, formatParams(e.Params))
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}

// Retryable reports whether err is a transient transport error which a caller
// may retry for an idempotent read. RequestRejected and AuthenticationError
// are never retryable. The whole cause chain is checked, so a wrapped
// ConnectionError stays retryable and a ConnectionError wrapping a plain
// error does too.
func Retryable(err error) bool {
	for err != nil {
		switch err.(type) {
		case *ConnectionError, *TimeoutError:
			return true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// TypeMismatch records one value which violated its column's declared type.
type TypeMismatch struct {
	Column   string
	Declared ColumnType
	Row      int
	Observed Kind
}

// ValidationMismatch reports schema drift between an expected schema and an
// observed RecordSet, with enough detail to correct the request without
// re-running it.
type ValidationMismatch struct {
	MissingColumns    []string
	UnexpectedColumns []string
	TypeMismatches    []TypeMismatch
}

func (e *ValidationMismatch) Error() string {
	parts := []string{}
	if len(e.MissingColumns) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns: %s", strings.Join(e.MissingColumns, ", ")))
	}
	if len(e.UnexpectedColumns) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected columns: %s", strings.Join(e.UnexpectedColumns, ", ")))
	}
	for _, m := range e.TypeMismatches {
		parts = append(parts, fmt.Sprintf("column '%s' declared %s but row %d holds %s",
			m.Column, m.Declared, m.Row, m.Observed))
	}
	if len(parts) == 0 {
		return "schema mismatch"
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// DerivationError reports one row on which a derivation rule could not
// produce a value. It is per-row and non-fatal: the row is dropped and the
// error aggregated while the rest of the batch proceeds.
type DerivationError struct {
	Rule   string
	Row    int
	Reason string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation '%s' failed on row %d: %s", e.Rule, e.Row, e.Reason)
}

// ProjectionError means a projection requested a column absent from the
// schema. It is fatal to the call - never a silently-empty column.
type ProjectionError struct {
	Column    string
	Available []string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection requested unknown column '%s' (available: %s)",
		e.Column, strings.Join(e.Available, ", "))
}
