package types

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy shared across services and use cases. Load-time errors are
// fatal; the per-turn collaborator errors each have a defined degraded path
// in the chat use case.
var (
	// ErrGraphIntegrity marks a malformed knowledge base at load time.
	// It always aborts startup; no partial graph is ever served.
	ErrGraphIntegrity = goerr.New("knowledge graph integrity violation")

	// ErrNodeNotFound marks a lookup of an unknown node ID
	ErrNodeNotFound = goerr.New("knowledge node not found")

	// ErrTranscriptionFailed marks an empty or low-confidence transcription result
	ErrTranscriptionFailed = goerr.New("transcription failed")

	// ErrGenerationFailed marks an empty response or failure from the generation collaborator
	ErrGenerationFailed = goerr.New("generation failed")

	// ErrSynthesisFailed marks a failure of the speech synthesis collaborator
	ErrSynthesisFailed = goerr.New("synthesis failed")

	// ErrDeadlineExceeded marks a collaborator call that exceeded its time budget.
	// Callers treat it like the corresponding collaborator error.
	ErrDeadlineExceeded = goerr.New("collaborator call deadline exceeded")
)
