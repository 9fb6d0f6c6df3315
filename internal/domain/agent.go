package domain

import (
	"fmt"
	"time"
)

// AgentStatus is the lifecycle state of a child agent.
// Statuses are stored as text; ParseAgentStatus is the only way a raw
// string from the store boundary becomes an AgentStatus.
type AgentStatus string

const (
	StatusRunning    AgentStatus = "running"
	StatusHealthy    AgentStatus = "healthy"
	StatusWorking    AgentStatus = "working"
	StatusPaused     AgentStatus = "paused"
	StatusTerminated AgentStatus = "terminated"
)

// idleStatuses are the states in which an agent may accept new work,
// provided it also holds no active task assignment.
var idleStatuses = []AgentStatus{StatusRunning, StatusHealthy}

// IdleStatuses returns the set of statuses eligible for new work.
func IdleStatuses() []AgentStatus {
	out := make([]AgentStatus, len(idleStatuses))
	copy(out, idleStatuses)
	return out
}

// ParseAgentStatus converts a stored textual status into an AgentStatus.
// Unrecognized values are rejected rather than passed through.
func ParseAgentStatus(s string) (AgentStatus, error) {
	switch AgentStatus(s) {
	case StatusRunning, StatusHealthy, StatusWorking, StatusPaused, StatusTerminated:
		return AgentStatus(s), nil
	}
	return "", fmt.Errorf("%w: agent status %q", ErrInvalidStatus, s)
}

// DefaultRole is assigned when an agent is registered without a role.
const DefaultRole = "generalist"

// Agent is a child agent record. The persistent store owns it; callers
// read and mutate it through the store but never hold it across calls
// as authoritative state.
type Agent struct {
	ID                string // ULID, immutable
	Name              string
	Address           string // unique external account address
	SandboxID         string
	Role              string // defaults to DefaultRole
	Status            AgentStatus
	FundedAmountCents int64 // lifetime credits advanced to this agent
	CreatedAt         time.Time
	Genesis           string // free-text genesis metadata
	CreatedBy         string // who initiated registration
}

// IdleAgent is the projection returned by idle queries.
type IdleAgent struct {
	Address string
	Name    string
	Role    string
	Status  AgentStatus
}

// Candidate identifies an agent selected for task assignment.
type Candidate struct {
	Address string
	Name    string
}

// Identity is the orchestrator's own ledger address, fixed for the
// process lifetime. Recalled credits are sent here.
type Identity struct {
	Address string
}
