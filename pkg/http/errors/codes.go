package errors

import "net/http"

// Error codes returned in HTTP and WebSocket error responses.
const (
	ErrCodeUnauthorized = "unauthorized"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeUnknownTier      = "unknown_tier"

	// Game errors
	ErrCodeInvalidIntent = "invalid_intent"
	ErrCodeSessionClosed = "session_closed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeUnknownWindow          = "unknown_leaderboard_window"
)

var statusByCode = map[string]int{
	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeInvalidRequest:         http.StatusBadRequest,
	ErrCodeValidationFailed:       http.StatusBadRequest,
	ErrCodeMissingField:           http.StatusBadRequest,
	ErrCodeUnknownTier:            http.StatusBadRequest,
	ErrCodeInvalidIntent:          http.StatusConflict,
	ErrCodeSessionClosed:          http.StatusGone,
	ErrCodeInvalidPayload:         http.StatusBadRequest,
	ErrCodeUnknownMessageType:     http.StatusBadRequest,
	ErrCodeInternalError:          http.StatusInternalServerError,
	ErrCodeServiceUnavailable:     http.StatusServiceUnavailable,
	ErrCodeLeaderboardFetchFailed: http.StatusServiceUnavailable,
	ErrCodeUnknownWindow:          http.StatusNotFound,
}

// StatusFor returns the HTTP status a code is reported with, 500 when unknown.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
