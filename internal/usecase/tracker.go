package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"clutch/internal/domain"
)

// createdByOrchestrator marks records registered by this core rather
// than imported from elsewhere.
const createdByOrchestrator = "orchestrator"

// Tracker computes which child agents are idle, records status
// transitions, and registers newly spawned agents. It holds no agent
// state in memory; the store is authoritative on every call.
type Tracker struct {
	store  domain.AgentStore
	logger *slog.Logger
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store domain.AgentStore, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// ListIdle returns every agent whose status is in the idle set and
// whose address is not the target of an assigned or running task.
// Idleness is recomputed from the store on every call; assignment state
// changes outside this core, so it is never cached. Order is
// store-determined. An empty store yields an empty slice.
func (t *Tracker) ListIdle(ctx context.Context) ([]domain.IdleAgent, error) {
	busy, err := t.store.ActiveAssignmentTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("query active assignments: %w", err)
	}
	busySet := make(map[string]struct{}, len(busy))
	for _, addr := range busy {
		busySet[addr] = struct{}{}
	}

	agents, err := t.store.AgentsWithStatus(ctx, domain.IdleStatuses()...)
	if err != nil {
		return nil, fmt.Errorf("query idle-status agents: %w", err)
	}

	idle := make([]domain.IdleAgent, 0, len(agents))
	for _, a := range agents {
		if _, taken := busySet[a.Address]; taken {
			continue
		}
		role := a.Role
		if role == "" {
			role = domain.DefaultRole
		}
		idle = append(idle, domain.IdleAgent{
			Address: a.Address,
			Name:    a.Name,
			Role:    role,
			Status:  a.Status,
		})
	}
	return idle, nil
}

// SelectForRole picks an idle agent for a task. The role parameter is
// reserved for a future ranking strategy; the current policy returns
// the first idle agent regardless of role. A nil Candidate with a nil
// error means no agent is currently available.
//
// The result is advisory: nothing reserves the agent, so concurrent
// callers can select the same one. Re-check after writing the
// assignment.
func (t *Tracker) SelectForRole(ctx context.Context, role string) (*domain.Candidate, error) {
	idle, err := t.ListIdle(ctx)
	if err != nil {
		return nil, err
	}
	if len(idle) == 0 {
		t.logger.Debug("no idle agent available", "role", role)
		return nil, nil
	}
	pick := idle[0]
	t.logger.Info("agent selected", "address", pick.Address, "name", pick.Name, "role", role)
	return &domain.Candidate{Address: pick.Address, Name: pick.Name}, nil
}

// SetStatus records a new status for the agent with the given address.
// An unknown address is a silent no-op: callers are not guaranteed the
// address still exists. The transition itself is not validated.
func (t *Tracker) SetStatus(ctx context.Context, address string, status domain.AgentStatus) error {
	agent, err := t.store.AgentByAddress(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		t.logger.Debug("status update for unknown agent ignored", "address", address, "status", status)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup agent %s: %w", address, err)
	}
	if err := t.store.UpdateAgentStatus(ctx, agent.ID, status); err != nil {
		return fmt.Errorf("update agent %s status: %w", agent.ID, err)
	}
	t.logger.Info("agent status changed", "agent_id", agent.ID, "address", address, "status", status)
	return nil
}

// RegisterRequest carries the caller-supplied fields of a new agent.
type RegisterRequest struct {
	Address   string
	Name      string
	Role      string // empty defaults to domain.DefaultRole
	SandboxID string
}

// Register creates a new agent record with a fresh ULID, status
// running, and a zero funded-amount accumulator. Store rejections
// (e.g. a duplicate address) propagate uninterpreted.
func (t *Tracker) Register(ctx context.Context, req RegisterRequest) (*domain.Agent, error) {
	role := req.Role
	if role == "" {
		role = domain.DefaultRole
	}
	agent := &domain.Agent{
		ID:        newID(),
		Name:      req.Name,
		Address:   req.Address,
		SandboxID: req.SandboxID,
		Role:      role,
		Status:    domain.StatusRunning,
		CreatedAt: time.Now().UTC(),
		Genesis:   "spawned as " + role,
		CreatedBy: createdByOrchestrator,
	}
	if err := t.store.InsertAgent(ctx, agent); err != nil {
		return nil, err
	}
	t.logger.Info("agent registered",
		"agent_id", agent.ID,
		"address", agent.Address,
		"name", agent.Name,
		"role", agent.Role,
		"sandbox_id", agent.SandboxID,
	)
	return agent, nil
}

// newID generates a lexically sortable unique identifier.
func newID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
