package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a task assignment.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// busyStatuses are the assignment states that make the assignee
// ineligible for new work.
var busyStatuses = []TaskStatus{TaskAssigned, TaskRunning}

// BusyStatuses returns the assignment states that occupy an agent.
func BusyStatuses() []TaskStatus {
	out := make([]TaskStatus, len(busyStatuses))
	copy(out, busyStatuses)
	return out
}

// ParseTaskStatus converts a stored textual status into a TaskStatus,
// rejecting unrecognized values.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskPending, TaskAssigned, TaskRunning, TaskCompleted, TaskFailed, TaskCancelled:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("%w: task status %q", ErrInvalidStatus, s)
}

// TaskAssignment links a task in a graph to the agent working it.
// This core reads assignments to compute idleness; the surrounding
// orchestrator owns their lifecycle.
type TaskAssignment struct {
	ID              string
	GraphID         string
	AssigneeAddress string // empty when unassigned
	Status          TaskStatus
	CreatedAt       time.Time
}
