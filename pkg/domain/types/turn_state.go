package types

// TurnState represents the state of the turn recorder state machine
type TurnState string

const (
	TurnStateIdle            TurnState = "IDLE"
	TurnStateRecording       TurnState = "RECORDING"
	TurnStateTrailingSilence TurnState = "TRAILING_SILENCE"
	TurnStateEmitted         TurnState = "EMITTED"
)

// AllTurnStates returns all valid turn states
func AllTurnStates() []TurnState {
	return []TurnState{
		TurnStateIdle,
		TurnStateRecording,
		TurnStateTrailingSilence,
		TurnStateEmitted,
	}
}

// IsValid checks if the turn state is valid
func (s TurnState) IsValid() bool {
	switch s {
	case TurnStateIdle,
		TurnStateRecording,
		TurnStateTrailingSilence,
		TurnStateEmitted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the turn state
func (s TurnState) String() string {
	return string(s)
}
