package models

import "fmt"

// Member is the handle the detector keeps for a joining account. It carries
// enough to kick or ban the account; the detector never owns the account itself.
type Member struct {
	GuildID  string
	UserID   string
	Username string
	Bot      bool
}

func (m Member) String() string {
	if m.Username == "" {
		return m.UserID
	}
	return fmt.Sprintf("%s (%s)", m.Username, m.UserID)
}
