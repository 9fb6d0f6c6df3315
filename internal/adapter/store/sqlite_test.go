package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"clutch/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "clutch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertAgent(t *testing.T, s *SQLiteStore, id, address string, status domain.AgentStatus) {
	t.Helper()
	err := s.InsertAgent(context.Background(), &domain.Agent{
		ID:        id,
		Name:      "agent-" + id,
		Address:   address,
		SandboxID: "sb-" + id,
		Role:      "generalist",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		Genesis:   "spawned as generalist",
		CreatedBy: "orchestrator",
	})
	if err != nil {
		t.Fatalf("InsertAgent(%s): %v", id, err)
	}
}

func insertAssignment(t *testing.T, s *SQLiteStore, id, assignee string, status domain.TaskStatus) {
	t.Helper()
	err := s.CreateAssignment(context.Background(), &domain.TaskAssignment{
		ID:              id,
		GraphID:         "graph-1",
		AssigneeAddress: assignee,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment(%s): %v", id, err)
	}
}

func TestActiveAssignmentTargets(t *testing.T) {
	s := openTestStore(t)

	insertAssignment(t, s, "t1", "addr-1", domain.TaskAssigned)
	insertAssignment(t, s, "t2", "addr-2", domain.TaskRunning)
	insertAssignment(t, s, "t3", "addr-3", domain.TaskCompleted)
	insertAssignment(t, s, "t4", "", domain.TaskAssigned) // unassigned
	insertAssignment(t, s, "t5", "addr-1", domain.TaskRunning)

	targets, err := s.ActiveAssignmentTargets(context.Background())
	if err != nil {
		t.Fatalf("ActiveAssignmentTargets: %v", err)
	}

	got := make(map[string]struct{}, len(targets))
	for _, a := range targets {
		got[a] = struct{}{}
	}
	if len(got) != 2 {
		t.Fatalf("targets = %v, want distinct {addr-1, addr-2}", targets)
	}
	for _, want := range []string{"addr-1", "addr-2"} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing target %s", want)
		}
	}
}

func TestActiveAssignmentTargetsEmpty(t *testing.T) {
	s := openTestStore(t)
	targets, err := s.ActiveAssignmentTargets(context.Background())
	if err != nil {
		t.Fatalf("ActiveAssignmentTargets: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("expected no targets, got %v", targets)
	}
}

func TestAgentsWithStatus(t *testing.T) {
	s := openTestStore(t)

	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)
	insertAgent(t, s, "a2", "addr-2", domain.StatusHealthy)
	insertAgent(t, s, "a3", "addr-3", domain.StatusWorking)
	insertAgent(t, s, "a4", "addr-4", domain.StatusTerminated)

	agents, err := s.AgentsWithStatus(context.Background(), domain.IdleStatuses()...)
	if err != nil {
		t.Fatalf("AgentsWithStatus: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("agents = %v, want 2", agents)
	}
	for _, a := range agents {
		if a.Status != domain.StatusRunning && a.Status != domain.StatusHealthy {
			t.Errorf("agent %s has status %q, outside the idle set", a.ID, a.Status)
		}
	}
}

func TestAgentByAddressRoundTrip(t *testing.T) {
	s := openTestStore(t)
	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)

	a, err := s.AgentByAddress(context.Background(), "addr-1")
	if err != nil {
		t.Fatalf("AgentByAddress: %v", err)
	}
	if a.ID != "a1" || a.Name != "agent-a1" || a.SandboxID != "sb-a1" {
		t.Errorf("round-trip mismatch: %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}
}

func TestAgentByAddressNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AgentByAddress(context.Background(), "addr-ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAgentStatus(t *testing.T) {
	s := openTestStore(t)
	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)

	if err := s.UpdateAgentStatus(context.Background(), "a1", domain.StatusPaused); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	a, err := s.AgentByAddress(context.Background(), "addr-1")
	if err != nil {
		t.Fatalf("AgentByAddress: %v", err)
	}
	if a.Status != domain.StatusPaused {
		t.Errorf("status = %q, want %q", a.Status, domain.StatusPaused)
	}

	if err := s.UpdateAgentStatus(context.Background(), "ghost", domain.StatusPaused); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestInsertAgentDuplicateAddress(t *testing.T) {
	s := openTestStore(t)
	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)

	err := s.InsertAgent(context.Background(), &domain.Agent{
		ID: "a2", Name: "other", Address: "addr-1",
		Status: domain.StatusRunning, CreatedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected unique constraint violation on duplicate address")
	}
}

func TestAddFundedAmountAccumulates(t *testing.T) {
	s := openTestStore(t)
	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)

	if err := s.AddFundedAmount(context.Background(), "addr-1", 1500); err != nil {
		t.Fatalf("AddFundedAmount: %v", err)
	}
	if err := s.AddFundedAmount(context.Background(), "addr-1", 250); err != nil {
		t.Fatalf("AddFundedAmount: %v", err)
	}

	a, err := s.AgentByAddress(context.Background(), "addr-1")
	if err != nil {
		t.Fatalf("AgentByAddress: %v", err)
	}
	if a.FundedAmountCents != 1750 {
		t.Errorf("funded amount = %d, want 1750", a.FundedAmountCents)
	}

	if err := s.AddFundedAmount(context.Background(), "addr-ghost", 100); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown address, got %v", err)
	}
}

func TestUnknownStoredStatusRejectedOnRead(t *testing.T) {
	s := openTestStore(t)
	insertAgent(t, s, "a1", "addr-1", domain.StatusRunning)

	// The update path does not validate, so a bogus status can land in
	// the store; reads must reject it instead of passing it through.
	if err := s.UpdateAgentStatus(context.Background(), "a1", domain.AgentStatus("zombie")); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	_, err := s.AgentByAddress(context.Background(), "addr-1")
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetAssignmentStatus(t *testing.T) {
	s := openTestStore(t)
	insertAssignment(t, s, "t1", "addr-1", domain.TaskAssigned)

	if err := s.SetAssignmentStatus(context.Background(), "t1", domain.TaskCompleted); err != nil {
		t.Fatalf("SetAssignmentStatus: %v", err)
	}
	targets, err := s.ActiveAssignmentTargets(context.Background())
	if err != nil {
		t.Fatalf("ActiveAssignmentTargets: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("completed assignment still counted as busy: %v", targets)
	}

	if err := s.SetAssignmentStatus(context.Background(), "ghost", domain.TaskRunning); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown assignment, got %v", err)
	}
}
