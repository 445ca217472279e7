package memory

import (
	"github.com/teamctx-lab/teamctx/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-memory repository for development and tests
type Memory struct {
	context   *contextRepository
	project   *projectRepository
	principal *principalRepository
}

var _ interfaces.Repository = &Memory{}

// New creates an empty in-memory repository
func New() *Memory {
	return &Memory{
		context:   newContextRepository(),
		project:   newProjectRepository(),
		principal: newPrincipalRepository(),
	}
}

func (m *Memory) Context() interfaces.ContextRepository {
	return m.context
}

func (m *Memory) Project() interfaces.ProjectRepository {
	return m.project
}

func (m *Memory) Principal() interfaces.PrincipalRepository {
	return m.principal
}

func (m *Memory) Close() error {
	return nil
}
