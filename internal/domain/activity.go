package domain

import "time"

// Indicators are the per-viewer freshness signals of one team
type Indicators struct {
	TeamID              string    `json:"team_id"`
	UnreadChat          bool      `json:"unread_chat"`
	PendingApplications bool      `json:"pending_applications"`
	PendingCount        int       `json:"pending_count"`
	LastActive          time.Time `json:"last_active"`
}

// ComputeIndicators derives the signals from shared team state and the
// viewer's local last-opened marker. Pending applications are only
// surfaced to roles that can act on them.
func ComputeIndicators(post *RecruitmentPost, viewerID string, lastOpened time.Time, pending int) Indicators {
	ind := Indicators{
		TeamID:     post.ID,
		UnreadChat: post.LastActive.After(lastOpened),
		LastActive: post.LastActive,
	}
	if role, ok := post.Members.RoleOf(viewerID); ok && role.CanManageApplications() {
		ind.PendingCount = pending
		ind.PendingApplications = pending > 0
	}
	return ind
}
