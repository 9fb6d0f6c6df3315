package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clutch/internal/domain"
)

// SQLiteStore implements domain.AgentStore using SQLite. Every method
// is a single statement, so atomicity comes from SQLite itself.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open agent db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate agent db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id                  TEXT PRIMARY KEY,
			name                TEXT NOT NULL,
			address             TEXT NOT NULL UNIQUE,
			sandbox_id          TEXT NOT NULL DEFAULT '',
			role                TEXT NOT NULL DEFAULT 'generalist',
			status              TEXT NOT NULL,
			funded_amount_cents INTEGER NOT NULL DEFAULT 0,
			created_at          TEXT NOT NULL,
			genesis             TEXT NOT NULL DEFAULT '',
			created_by          TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS task_assignments (
			id               TEXT PRIMARY KEY,
			graph_id         TEXT NOT NULL,
			assignee_address TEXT,
			status           TEXT NOT NULL,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_status
			ON task_assignments(status)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ActiveAssignmentTargets(ctx context.Context) ([]string, error) {
	query, args := inClause(
		"SELECT DISTINCT assignee_address FROM task_assignments WHERE assignee_address IS NOT NULL AND assignee_address != '' AND status IN (%s)",
		taskStatusStrings(domain.BusyStatuses()),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		targets = append(targets, addr)
	}
	return targets, rows.Err()
}

func (s *SQLiteStore) AgentsWithStatus(ctx context.Context, statuses ...domain.AgentStatus) ([]domain.Agent, error) {
	if len(statuses) == 0 {
		return nil, fmt.Errorf("%w: no statuses given", domain.ErrInvalidInput)
	}
	query, args := inClause(
		"SELECT id, name, address, sandbox_id, role, status, funded_amount_cents, created_at, genesis, created_by FROM agents WHERE status IN (%s)",
		agentStatusStrings(statuses),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) AgentByAddress(ctx context.Context, address string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, address, sandbox_id, role, status, funded_amount_cents, created_at, genesis, created_by FROM agents WHERE address = ?",
		address,
	)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent %s: %w", address, domain.ErrNotFound)
	}
	return a, err
}

func (s *SQLiteStore) UpdateAgentStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE agents SET status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) InsertAgent(ctx context.Context, a *domain.Agent) error {
	role := a.Role
	if role == "" {
		role = domain.DefaultRole
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO agents (id, name, address, sandbox_id, role, status, funded_amount_cents, created_at, genesis, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Name, a.Address, a.SandboxID, role, string(a.Status),
		a.FundedAmountCents, a.CreatedAt.UTC().Format(time.RFC3339Nano),
		a.Genesis, a.CreatedBy,
	)
	return err
}

func (s *SQLiteStore) AddFundedAmount(ctx context.Context, address string, cents int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE agents SET funded_amount_cents = funded_amount_cents + ? WHERE address = ?",
		cents, address,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("agent %s: %w", address, domain.ErrNotFound)
	}
	return nil
}

// CreateAssignment persists a task assignment. The Tracker never calls
// this; it exists so the surrounding orchestrator can populate
// assignment state through the same adapter.
func (s *SQLiteStore) CreateAssignment(ctx context.Context, t *domain.TaskAssignment) error {
	var assignee any
	if t.AssigneeAddress != "" {
		assignee = t.AssigneeAddress
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO task_assignments (id, graph_id, assignee_address, status, created_at) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.GraphID, assignee, string(t.Status),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// SetAssignmentStatus updates an assignment's status by id.
func (s *SQLiteStore) SetAssignmentStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE task_assignments SET status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("assignment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*domain.Agent, error) {
	var a domain.Agent
	var status, createdStr string
	if err := row.Scan(
		&a.ID, &a.Name, &a.Address, &a.SandboxID, &a.Role,
		&status, &a.FundedAmountCents, &createdStr, &a.Genesis, &a.CreatedBy,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseAgentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.ID, err)
	}
	a.Status = parsed
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &a, nil
}

// inClause expands a query containing a single %s IN-list placeholder.
func inClause(format string, values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf(format, strings.Join(marks, ", ")), args
}

func agentStatusStrings(in []domain.AgentStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func taskStatusStrings(in []domain.TaskStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// Compile-time interface check.
var _ domain.AgentStore = (*SQLiteStore)(nil)
