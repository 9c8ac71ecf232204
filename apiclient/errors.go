package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRequestFailed    = errors.New("apiclient: request failed")
	ErrServiceError     = errors.New("apiclient: service error")
	ErrCreateRequest    = errors.New("apiclient: failed to create request")
	ErrEncodeBody       = errors.New("apiclient: failed to encode request body")
	ErrReadResponse     = errors.New("apiclient: failed to read response")
	ErrResponseTooLarge = errors.New("apiclient: response body too large")
	ErrRawResponse      = errors.New("apiclient: response body is not JSON")
	ErrDecodeResponse   = errors.New("apiclient: failed to decode response")
	ErrIncompleteLogin  = errors.New("apiclient: login response is missing tokens")

	// ErrTerminalAuth matches every *AuthError.
	ErrTerminalAuth           = errors.New("apiclient: authentication cannot be restored")
	ErrTokenRefreshFailed     = errors.New("apiclient: token refresh failed")
	ErrAuthFailedAfterRefresh = errors.New("apiclient: authentication failed after refresh")

	ErrNoRefreshToken  = errors.New("apiclient: no refresh token available")
	ErrRefreshRequest  = errors.New("apiclient: refresh request failed")
	ErrRefreshRejected = errors.New("apiclient: refresh rejected")
	ErrNoAccessToken   = errors.New("apiclient: no access token in refresh response")
)

// APIError is a failing response whose body was valid JSON. Body is kept
// verbatim so callers can pull out per-field validation messages.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
	RequestID  string
}

func (e *APIError) Error() string {
	if detail := e.Detail(); detail != "" {
		return detail
	}

	if nonField := e.NonFieldErrors(); len(nonField) > 0 {
		return strings.Join(nonField, "; ")
	}

	return fmt.Sprintf("apiclient: service returned status %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrServiceError //nolint:errorlint
}

func (e *APIError) Unwrap() error {
	return ErrServiceError
}

func (e *APIError) Decode(v any) error {
	return json.Unmarshal(e.Body, v)
}

func (e *APIError) Detail() string {
	fields := e.fields()

	raw, ok := fields[fieldDetail]
	if !ok {
		return ""
	}

	var detail string
	if err := json.Unmarshal(raw, &detail); err != nil {
		return ""
	}

	return detail
}

func (e *APIError) NonFieldErrors() []string {
	fields := e.fields()

	raw, ok := fields[fieldNonFieldErrors]
	if !ok {
		return nil
	}

	return messages(raw)
}

// FieldErrors returns the per-field messages, skipping detail, code and
// non_field_errors.
func (e *APIError) FieldErrors() map[string][]string {
	out := make(map[string][]string)

	for name, raw := range e.fields() {
		switch name {
		case fieldDetail, fieldCode, fieldNonFieldErrors:
			continue
		}

		if msgs := messages(raw); len(msgs) > 0 {
			out[name] = msgs
		}
	}

	return out
}

func (e *APIError) fields() map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &fields); err != nil {
		return nil
	}

	return fields
}

func messages(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}

	return nil
}

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// AuthError is a terminal authentication failure. By the time it is returned
// the credentials are cleared and the caller has been sent to sign-in.
type AuthError struct {
	Reason error
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Cause)
	}

	return e.Reason.Error()
}

func (e *AuthError) Is(target error) bool {
	return target == ErrTerminalAuth //nolint:errorlint
}

func (e *AuthError) Unwrap() []error {
	errs := []error{e.Reason}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}

	return errs
}

func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}

	return nil, false
}
