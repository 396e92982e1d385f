package database

// ActionRecord is one row of the moderation action journal.
type ActionRecord struct {
	ID        int64
	GuildID   string
	UserID    string
	Username  string
	Action    string
	Reason    string
	Succeeded bool
	Error     string
	CreatedAt int64
}

// GuildActionStats summarises the journal for one guild.
type GuildActionStats struct {
	GuildID   string
	Total     int
	Succeeded int
	Failed    int
	LastAt    int64
}
