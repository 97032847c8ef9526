package api

import (
	"errors"
	"fmt"
)

// ErrNetwork marks failures where no HTTP response was received at all
// (DNS, connect, timeout). Distinct from HTTP-level errors so the UI can
// show a generic connectivity message.
var ErrNetwork = errors.New("api: network error")

// ErrSessionExpired is returned when a 401 could not be recovered by a
// refresh-token exchange. The logout hook has already fired by the time a
// caller sees this error.
var ErrSessionExpired = errors.New("api: session expired")

// APIError is a non-2xx HTTP response decoded from the backend.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Stable message keys the UI layer resolves to localized text.
const (
	MsgNetwork         = "error_network"
	MsgSessionExpired  = "error_session_expired"
	MsgBadRequest      = "error_bad_request"
	MsgForbidden       = "error_forbidden"
	MsgNotFound        = "error_not_found"
	MsgTimeout         = "error_timeout"
	MsgTooManyRequests = "error_too_many_requests"
	MsgServer          = "error_server"
	MsgClient          = "error_client"
	MsgUnknown         = "error_unknown"
)

// UserMessage maps an error to a stable message key by status bucket.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return MsgSessionExpired
	}
	if errors.Is(err, ErrNetwork) {
		return MsgNetwork
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return MsgUnknown
	}
	switch {
	case apiErr.Status == 400:
		return MsgBadRequest
	case apiErr.Status == 403:
		return MsgForbidden
	case apiErr.Status == 404:
		return MsgNotFound
	case apiErr.Status == 408:
		return MsgTimeout
	case apiErr.Status == 429:
		return MsgTooManyRequests
	case apiErr.Status >= 500:
		return MsgServer
	default:
		return MsgClient
	}
}
