// Package graph provides an HTTP client for the Microsoft Graph API
// with automatic retry, rate limiting, and error classification, plus
// the OAuth2 flows (device code, browser, silent) used to obtain tokens.
package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrConflict     = errors.New("graph: conflict")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
)

// ErrNotLoggedIn is returned when a silent token acquisition finds no saved
// token file. Callers should run one of the interactive login flows.
var ErrNotLoggedIn = errors.New("graph: not logged in")

// GraphError wraps a sentinel error with HTTP status code, request ID,
// and the API error message body for debugging.
type GraphError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *GraphError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		// 509 Bandwidth Limit Exceeded (SharePoint).
		const statusBandwidthExceeded = 509
		return code == statusBandwidthExceeded
	}
}

// AADSTS error codes the identity platform embeds in error descriptions.
// Tenants with conditional access policies block browser-less clients with
// 53003; 50058 means a silent sign-in could not complete without user
// interaction. Both are cues to fall back to the device code flow.
const (
	codeConditionalAccess = "AADSTS53003"
	codeSilentSignIn      = "AADSTS50058"
)

// IsConditionalAccessBlocked reports whether err carries the identity
// platform's conditional-access block code.
func IsConditionalAccessBlocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), codeConditionalAccess)
}

// IsSilentSignInFailed reports whether err carries the identity platform's
// interaction-required code for failed silent sign-ins.
func IsSilentSignInFailed(err error) bool {
	return err != nil && strings.Contains(err.Error(), codeSilentSignIn)
}
