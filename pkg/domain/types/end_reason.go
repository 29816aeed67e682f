package types

// EndReason represents why a recording turn ended
type EndReason string

const (
	// EndReasonSilence means the trailing silence threshold elapsed (normal end of turn)
	EndReasonSilence EndReason = "silence"
	// EndReasonMaxDuration means the max turn duration cap forced a cutoff
	EndReasonMaxDuration EndReason = "max_duration"
	// EndReasonAborted means the turn was cancelled; no utterance is emitted for it
	EndReasonAborted EndReason = "aborted"
)

// AllEndReasons returns all valid end reasons
func AllEndReasons() []EndReason {
	return []EndReason{
		EndReasonSilence,
		EndReasonMaxDuration,
		EndReasonAborted,
	}
}

// IsValid checks if the end reason is valid
func (r EndReason) IsValid() bool {
	switch r {
	case EndReasonSilence,
		EndReasonMaxDuration,
		EndReasonAborted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the end reason
func (r EndReason) String() string {
	return string(r)
}
