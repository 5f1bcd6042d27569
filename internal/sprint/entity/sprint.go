package entity

import (
	"fmt"
	"time"
)

// Status is the closed set of sprint lifecycle states.
type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus validates a wire value against the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPlanned, StatusActive, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown sprint status %q", s)
}

// Sprint is a time-boxed iteration of a project. Status starts PLANNED and
// only ever moves forward (PLANNED -> ACTIVE -> COMPLETED).
type Sprint struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Status    Status    `db:"status" json:"status"`
	ProjectID string    `db:"project_id" json:"project_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
