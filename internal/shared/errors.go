package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthorization  = fmt.Errorf("authorization required")
	ErrTokenExpired   = fmt.Errorf("access token expired")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// Remote and storage errors
	ErrNetwork        = fmt.Errorf("network request failed")
	ErrRemoteAPI      = fmt.Errorf("remote API rejected request")
	ErrLocalStore     = fmt.Errorf("local store failure")
	ErrNotFound       = fmt.Errorf("record not found")
	ErrAlreadyRunning = fmt.Errorf("sync already running")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// AuthorizationError reports an absent or expired remote session. Callers surface it as "needs re-login".
type AuthorizationError struct {
	Reason string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrAuthorization, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrAuthorization, e.Reason)
}

func (e *AuthorizationError) Unwrap() []error {
	return unwrapAll(ErrAuthorization, e.Err)
}

// NetworkError is a transient transport failure talking to the remote service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrNetwork, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return unwrapAll(ErrNetwork, e.Err)
}

// RemoteAPIError is a request the remote service answered but rejected.
//
// Code is the HTTP status, or zero when the response could not be decoded.
type RemoteAPIError struct {
	Op   string
	Code int
	Body string
	Err  error
}

func (e *RemoteAPIError) Error() string {
	msg := fmt.Sprintf("%v: %s: status %d", ErrRemoteAPI, e.Op, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteAPIError) Unwrap() []error {
	return unwrapAll(ErrRemoteAPI, e.Err)
}

// LocalStoreError wraps a failure of the local SQLite store.
type LocalStoreError struct {
	Op  string
	Err error
}

func (e *LocalStoreError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrLocalStore, e.Op, e.Err)
}

func (e *LocalStoreError) Unwrap() []error {
	return unwrapAll(ErrLocalStore, e.Err)
}

// AlreadyRunningError is returned when a second export run is attempted while one is active.
type AlreadyRunningError struct {
	RunID string
}

func (e *AlreadyRunningError) Error() string {
	if e.RunID == "" {
		return ErrAlreadyRunning.Error()
	}
	return fmt.Sprintf("%v: run %s in progress", ErrAlreadyRunning, e.RunID)
}

func (e *AlreadyRunningError) Unwrap() error {
	return ErrAlreadyRunning
}

// StoreError wraps err as a [LocalStoreError] unless it is nil or already one.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var lse *LocalStoreError
	if errors.As(err, &lse) {
		return err
	}
	return &LocalStoreError{Op: op, Err: err}
}

func unwrapAll(sentinel, err error) []error {
	if err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, err}
}
