package types

import "fmt"

// ComplexityLevel represents the assessed difficulty level of a question
type ComplexityLevel string

const (
	ComplexityBeginner     ComplexityLevel = "beginner"
	ComplexityIntermediate ComplexityLevel = "intermediate"
	ComplexityAdvanced     ComplexityLevel = "advanced"
)

// AllComplexityLevels returns all valid complexity levels
func AllComplexityLevels() []ComplexityLevel {
	return []ComplexityLevel{
		ComplexityBeginner,
		ComplexityIntermediate,
		ComplexityAdvanced,
	}
}

// IsValid checks if the complexity level is valid
func (c ComplexityLevel) IsValid() bool {
	switch c {
	case ComplexityBeginner,
		ComplexityIntermediate,
		ComplexityAdvanced:
		return true
	default:
		return false
	}
}

// Normalize returns the level, treating empty or unknown values as intermediate
func (c ComplexityLevel) Normalize() ComplexityLevel {
	if !c.IsValid() {
		return ComplexityIntermediate
	}
	return c
}

// Rank returns an ordinal for progression comparison (beginner < intermediate < advanced)
func (c ComplexityLevel) Rank() int {
	switch c {
	case ComplexityBeginner:
		return 1
	case ComplexityIntermediate:
		return 2
	case ComplexityAdvanced:
		return 3
	default:
		return 0
	}
}

// String returns the string representation of the complexity level
func (c ComplexityLevel) String() string {
	return string(c)
}

// ParseComplexityLevel parses a string into a ComplexityLevel
func ParseComplexityLevel(s string) (ComplexityLevel, error) {
	level := ComplexityLevel(s)
	if !level.IsValid() {
		return "", fmt.Errorf("invalid complexity level: %s", s)
	}
	return level, nil
}
