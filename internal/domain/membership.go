package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Role is a member's position within a team
type Role string

const (
	RoleCaptain     Role = "captain"
	RoleViceCaptain Role = "vice_captain"
	RoleMember      Role = "member"
)

// ParseRole converts a stored or user-supplied value into a Role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCaptain, RoleViceCaptain, RoleMember:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Title is the human readable role name used in system messages
func (r Role) Title() string {
	switch r {
	case RoleCaptain:
		return "Captain"
	case RoleViceCaptain:
		return "Vice Captain"
	case RoleMember:
		return "Member"
	default:
		return string(r)
	}
}

// CanManageApplications reports whether the role may accept or reject applications
func (r Role) CanManageApplications() bool {
	switch r {
	case RoleCaptain, RoleViceCaptain:
		return true
	case RoleMember:
		return false
	default:
		return false
	}
}

// CanKick reports whether a member holding r may remove a member holding target.
// Captains remove anyone but a captain; vice captains remove plain members only.
func (r Role) CanKick(target Role) bool {
	switch r {
	case RoleCaptain:
		return target == RoleViceCaptain || target == RoleMember
	case RoleViceCaptain:
		return target == RoleMember
	case RoleMember:
		return false
	default:
		return false
	}
}

// CanLeave reports whether a member holding r may leave on their own.
// A captain only goes away by disbanding.
func (r Role) CanLeave() bool {
	switch r {
	case RoleViceCaptain, RoleMember:
		return true
	case RoleCaptain:
		return false
	default:
		return false
	}
}

// Member is one roster entry
type Member struct {
	UID      string    `json:"uid"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Roster maps uid to member. Entries are replaced whole, never edited in place.
type Roster map[string]Member

// NewRoster creates a roster holding only the captain
func NewRoster(captain Member) Roster {
	captain.Role = RoleCaptain
	return Roster{captain.UID: captain}
}

// Get returns the member with the given uid
func (r Roster) Get(uid string) (Member, bool) {
	m, ok := r[uid]
	return m, ok
}

// RoleOf returns the role of uid, if uid is a member
func (r Roster) RoleOf(uid string) (Role, bool) {
	m, ok := r[uid]
	return m.Role, ok
}

// Captain returns the team captain
func (r Roster) Captain() (Member, bool) {
	for _, m := range r {
		if m.Role == RoleCaptain {
			return m, true
		}
	}
	return Member{}, false
}

// CountRole counts members holding role
func (r Roster) CountRole(role Role) int {
	n := 0
	for _, m := range r {
		if m.Role == role {
			n++
		}
	}
	return n
}

// Ordered lists members by join time, uid breaking ties
func (r Roster) Ordered() []Member {
	out := make([]Member, 0, len(r))
	for _, m := range r {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// With returns a copy of the roster with m stored under m.UID
func (r Roster) With(m Member) Roster {
	out := make(Roster, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[m.UID] = m
	return out
}

// Without returns a copy of the roster with uid removed
func (r Roster) Without(uid string) Roster {
	out := make(Roster, len(r))
	for k, v := range r {
		if k != uid {
			out[k] = v
		}
	}
	return out
}

// Validate checks the single captain invariant and the capacity limit
func (r Roster) Validate(maxMembers int) error {
	if n := r.CountRole(RoleCaptain); n != 1 {
		return fmt.Errorf("roster has %d captains, want exactly 1", n)
	}
	if maxMembers > 0 && len(r) > maxMembers {
		return fmt.Errorf("roster has %d members, limit is %d", len(r), maxMembers)
	}
	return nil
}

// MarshalJSON encodes the roster as a list in join order
func (r Roster) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Ordered())
}

// UnmarshalJSON accepts the list encoding produced by MarshalJSON
func (r *Roster) UnmarshalJSON(data []byte) error {
	var members []Member
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	out := make(Roster, len(members))
	for _, m := range members {
		out[m.UID] = m
	}
	*r = out
	return nil
}
