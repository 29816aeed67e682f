package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Context keys for error values
const (
	SessionIDKey = "session_id"
)
