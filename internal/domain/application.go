package domain

import (
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of an application
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
	// ApplicationKicked marks an application whose applicant was removed
	// (kick or disband). The applicant's client reads it as a removal notice.
	ApplicationKicked ApplicationStatus = "kicked"
)

// ParseApplicationStatus converts a stored or query value into a status
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch ApplicationStatus(s) {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationKicked:
		return ApplicationStatus(s), nil
	default:
		return "", fmt.Errorf("unknown application status %q", s)
	}
}

// Outstanding reports whether the application still ties the applicant to the team
func (s ApplicationStatus) Outstanding() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted:
		return true
	case ApplicationRejected, ApplicationKicked:
		return false
	default:
		return false
	}
}

// Application is a player's request to join a team
type Application struct {
	ID            string            `json:"id"`
	TeamID        string            `json:"team_id"`
	ApplicantID   string            `json:"applicant_id"`
	ApplicantName string            `json:"applicant_name"`
	Rank          string            `json:"rank"`
	Role          string            `json:"role"`
	Note          string            `json:"note"`
	Status        ApplicationStatus `json:"status"`
	AppliedAt     time.Time         `json:"applied_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ApplyRequest is the applicant-supplied part of an application
type ApplyRequest struct {
	Rank string `json:"rank"`
	Role string `json:"role"`
	Note string `json:"note"`
}

// RemovalNotice is the applicant-facing view of a kicked application
type RemovalNotice struct {
	ApplicationID string    `json:"application_id"`
	TeamID        string    `json:"team_id"`
	RemovedAt     time.Time `json:"removed_at"`
}

// Notice converts a kicked application into a removal notice
func (a *Application) Notice() RemovalNotice {
	return RemovalNotice{ApplicationID: a.ID, TeamID: a.TeamID, RemovedAt: a.UpdatedAt}
}
