package cloudlibrary

import (
	"errors"
	"fmt"
)

// ErrLoanLimit is reported by Borrow when the account already holds its
// maximum number of loans. The download manager handles it with a
// single return-and-retry fallback; every other API failure is final.
var ErrLoanLimit = errors.New("too many loans")

// AuthError indicates that login or session verification failed.
// It aborts the whole run: nothing else works without a session.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// NotFoundError indicates that a response lacked an expected record.
// When the raw response was persisted for diagnosis, DumpPath names the
// file it was written to.
type NotFoundError struct {
	Key      string
	DumpPath string
}

func (e *NotFoundError) Error() string {
	if e.DumpPath != "" {
		return fmt.Sprintf("%q not found in response (raw response dumped to %s)", e.Key, e.DumpPath)
	}
	return fmt.Sprintf("%q not found in response", e.Key)
}

// APIError is a failure reported inside an otherwise well-formed
// borrow or return response.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}
