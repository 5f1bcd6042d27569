package entity

import (
	"fmt"
	"time"

	projectentity "github.com/ovaphlow/trident/service-board-go/internal/project/entity"
	userentity "github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

// Status is the closed set of board lanes.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusDone       Status = "DONE"
)

// ParseStatus validates a wire value against the closed set of lanes.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown issue status %q", s)
}

// Priority is the closed set of issue priorities.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority validates a wire value against the closed set.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown issue priority %q", s)
}

// Issue is one card on a project board. Order is zero-based and dense within
// the (project, status) lane; the issue service is the only writer of it.
// ReporterID is set at creation and never changes.
type Issue struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Status      Status    `db:"status" json:"status"`
	Priority    Priority  `db:"priority" json:"priority"`
	Order       int       `db:"lane_order" json:"order"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	SprintID    *string   `db:"sprint_id" json:"sprint_id,omitempty"`
	ReporterID  string    `db:"reporter_id" json:"reporter_id"`
	AssigneeID  *string   `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HydratedIssue is an issue with its reporter and assignee user records, the
// shape board and listing endpoints return.
type HydratedIssue struct {
	Issue
	Reporter *userentity.User       `json:"reporter,omitempty"`
	Assignee *userentity.User       `json:"assignee,omitempty"`
	Project  *projectentity.Project `json:"project,omitempty"`
}
