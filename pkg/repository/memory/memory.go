package memory

import (
	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	sessions *sessionRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		sessions: newSessionRepository(),
	}
}

func (m *Memory) Sessions() interfaces.SessionRepository {
	return m.sessions
}

func (m *Memory) Close() error {
	return nil
}
