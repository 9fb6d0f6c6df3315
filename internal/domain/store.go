package domain

import "context"

// AgentStore is the persistent state this core depends on. Each method
// maps to a single atomic store operation; the store's transactional
// guarantees are the only concurrency control at this layer.
type AgentStore interface {
	// ActiveAssignmentTargets returns the distinct non-empty assignee
	// addresses of task assignments whose status occupies the agent
	// (assigned or running).
	ActiveAssignmentTargets(ctx context.Context) ([]string, error)

	// AgentsWithStatus returns all agents whose status is one of the
	// given statuses. A store with no matching agents yields an empty
	// slice, not an error.
	AgentsWithStatus(ctx context.Context, statuses ...AgentStatus) ([]Agent, error)

	// AgentByAddress looks up the agent with the given address,
	// returning ErrNotFound when no agent has it.
	AgentByAddress(ctx context.Context, address string) (*Agent, error)

	// UpdateAgentStatus persists a new status for the agent with the
	// given id. The transition is not validated.
	UpdateAgentStatus(ctx context.Context, id string, status AgentStatus) error

	// InsertAgent persists a new agent record. Constraint violations
	// (e.g. duplicate address) surface as store errors.
	InsertAgent(ctx context.Context, a *Agent) error

	// AddFundedAmount accumulates successfully advanced credits onto
	// the agent record with the given address.
	AddFundedAmount(ctx context.Context, address string, cents int64) error
}
