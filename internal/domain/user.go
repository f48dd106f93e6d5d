package domain

import "strings"

// Identity is the authenticated principal supplied by the caller. Its
// credentials are never verified here; authorization looks up the role
// recorded for Identity.ID in the team roster.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Premium bool   `json:"premium"`
}

// IsZero reports whether no principal was supplied
func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.ID) == ""
}

// DisplayName falls back to the id when no name was supplied
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return i.ID
}

// IdentityClaims are the bearer token claims read by the identity middleware
type IdentityClaims struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Premium bool   `json:"premium"`
}

// Identity converts the claims into a principal
func (c IdentityClaims) Identity() Identity {
	return Identity{ID: c.Sub, Name: c.Name, Email: c.Email, Premium: c.Premium}
}
