package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/andyle182810/ussdadmin/notify"
)

const (
	fieldDetail         = "detail"
	fieldCode           = "code"
	fieldNonFieldErrors = "non_field_errors"

	// CodeTokenNotValid is the marker the backend puts in the body when the
	// bearer token is expired or malformed.
	CodeTokenNotValid = "token_not_valid"
)

const (
	successTitle              = "Success"
	sessionExpiredTitle       = "Session expired"
	sessionExpiredDescription = "Please sign in again."

	messageCreated   = "Created successfully"
	messageUpdated   = "Updated successfully"
	messageDeleted   = "Deleted successfully"
	messageSucceeded = "Operation completed successfully"
)

// AuthFailureDetector reports whether a parsed response means the access
// token was not accepted.
type AuthFailureDetector func(statusCode int, payload json.RawMessage) bool

func DefaultAuthFailureDetector(statusCode int, payload json.RawMessage) bool {
	if statusCode == http.StatusUnauthorized {
		return true
	}

	var body struct {
		Code string `json:"code"`
	}

	if err := json.Unmarshal(payload, &body); err != nil {
		return false
	}

	return body.Code == CodeTokenNotValid
}

func shouldNotify(method string, opts RequestOptions) bool {
	if method == http.MethodGet {
		return false
	}

	return !opts.SuppressNotification
}

func successMessage(method, explicit string) string {
	if explicit != "" {
		return explicit
	}

	switch method {
	case http.MethodPost:
		return messageCreated
	case http.MethodPut, http.MethodPatch:
		return messageUpdated
	case http.MethodDelete:
		return messageDeleted
	default:
		return messageSucceeded
	}
}

func (c *Client) emitSuccess(ctx context.Context, method, message string) {
	// GET never produces a success toast, whatever the caller asked for.
	if method == http.MethodGet {
		return
	}

	c.notifier.Notify(ctx, notify.Notification{
		Title:       successTitle,
		Description: message,
		Variant:     notify.VariantSuccess,
	})
}
