package port

import (
	"context"

	"github.com/biosales/agent-sales/internal/core/domain"
)

type AgentStore interface {
	Create(ctx context.Context, agent *domain.Agent) error

	// GetByEmail returns domain.ErrAgentNotFound if no agent matches.
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)

	// List returns all agents with the given role, or all agents when
	// role is empty.
	List(ctx context.Context, role string) ([]domain.Agent, error)

	Update(ctx context.Context, agent *domain.Agent) error

	Delete(ctx context.Context, id string) error
}
