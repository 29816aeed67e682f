package types

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// NodeID represents a unique identifier for a knowledge graph node
type NodeID string

var nodeIDPattern = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)

// Validate checks if the NodeID is valid
func (n NodeID) Validate() error {
	if n == "" {
		return goerr.New("node ID cannot be empty")
	}
	if !nodeIDPattern.MatchString(string(n)) {
		return goerr.New("node ID must be lowercase alphanumeric with hyphens or underscores", goerr.V("id", n))
	}
	return nil
}

// String returns the string representation of NodeID
func (n NodeID) String() string {
	return string(n)
}

// RelationType represents the type of a directed relationship between nodes
type RelationType string

// String returns the string representation of RelationType
func (r RelationType) String() string {
	return string(r)
}

// SessionID represents a unique identifier for a learning session
type SessionID string

// NewSessionID generates a new time-ordered SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// Validate checks if the SessionID is valid
func (s SessionID) Validate() error {
	if s == "" {
		return goerr.New("session ID cannot be empty")
	}
	return nil
}

// String returns the string representation of SessionID
func (s SessionID) String() string {
	return string(s)
}

// InteractionID represents a unique identifier for a single interaction
type InteractionID string

// NewInteractionID generates a new time-ordered InteractionID
func NewInteractionID() InteractionID {
	return InteractionID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of InteractionID
func (i InteractionID) String() string {
	return string(i)
}

// Secret holds a credential value. Log output is redacted by the masq
// filter configured in the logger, keyed on this type.
type Secret string

// String returns the raw secret value
func (s Secret) String() string {
	return string(s)
}
