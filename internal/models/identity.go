package models

// Identity is an authenticated caller. Guests have no stored account.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Guest       bool   `json:"guest"`
	Admin       bool   `json:"admin,omitempty"`
}

// User is a registered account.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Rating       int    `json:"rating"`
	IsAdmin      bool   `json:"isAdmin"`
}

// Identity returns the caller identity for an authenticated account.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.Username, Admin: u.IsAdmin}
}
