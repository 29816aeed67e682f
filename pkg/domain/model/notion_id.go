package model

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidNotionID is returned when the input cannot be parsed as a Notion ID
var ErrInvalidNotionID = goerr.New("invalid Notion ID")

// hexPattern matches 32 hex characters (a Notion database ID without dashes)
var hexPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// ParseNotionID extracts a Notion database ID from a raw ID or a Notion URL,
// so the import command accepts whatever the user copied out of Notion.
// The returned ID is always in UUID format (8-4-4-4-12) as required by the
// Notion API. Accepted formats:
//   - Raw ID: "abc123def456789012345678901234567"
//   - UUID format: "12345678-90ab-cdef-1234-567890abcdef"
//   - Notion URL: "https://www.notion.so/workspace/Title-abc123def456...?v=..."
//   - Notion URL: "https://www.notion.so/abc123def456..."
func ParseNotionID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidNotionID
	}

	var hex string
	var err error

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		hex, err = parseNotionURL(input)
	} else {
		hex, err = normalizeNotionID(input)
	}
	if err != nil {
		return "", err
	}

	return toUUIDFormat(hex), nil
}

func parseNotionURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidNotionID
	}

	host := u.Hostname()
	if host != "www.notion.so" && host != "notion.so" {
		return "", ErrInvalidNotionID
	}

	// The ID is the last 32 hex chars of the last path segment, which may
	// carry a page title prefix: /workspace/Biology-Curriculum-abc123...
	path := strings.TrimRight(u.Path, "/")
	segments := strings.Split(path, "/")
	if len(segments) == 0 {
		return "", ErrInvalidNotionID
	}

	lastSegment := segments[len(segments)-1]
	clean := strings.ReplaceAll(lastSegment, "-", "")
	if len(clean) >= 32 {
		candidate := clean[len(clean)-32:]
		if hexPattern.MatchString(candidate) {
			return candidate, nil
		}
	}

	return "", ErrInvalidNotionID
}

func normalizeNotionID(input string) (string, error) {
	clean := strings.ReplaceAll(input, "-", "")
	clean = strings.ToLower(clean)
	if hexPattern.MatchString(clean) {
		return clean, nil
	}
	return "", ErrInvalidNotionID
}

// toUUIDFormat converts a 32-char hex string to UUID format (8-4-4-4-12)
func toUUIDFormat(hex string) string {
	return hex[0:8] + "-" + hex[8:12] + "-" + hex[12:16] + "-" + hex[16:20] + "-" + hex[20:32]
}
