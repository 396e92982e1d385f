package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-raidguard/internal/models"
)

// Database is the SQLite journal of the kicks and bans the raid detector
// issued. It is write-mostly and never read back into detection state.
type Database struct {
	db *sql.DB
}

// Open creates or opens the journal at path.
func Open(path string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return d, nil
}

// IsConnected checks if database connection is alive
func (d *Database) IsConnected() bool {
	return d != nil && d.db != nil && d.db.Ping() == nil
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS moderation_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT DEFAULT '',
		action TEXT NOT NULL,
		reason TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		error TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_moderation_actions_guild ON moderation_actions(guild_id);
	CREATE INDEX IF NOT EXISTS idx_moderation_actions_created ON moderation_actions(created_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordAction journals one issued action along with its outcome.
func (d *Database) RecordAction(action *models.Action) error {
	errText := ""
	if action.Err != nil {
		errText = action.Err.Error()
	}

	_, err := d.db.Exec(
		`INSERT INTO moderation_actions (guild_id, user_id, username, action, reason, succeeded, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.Member.GuildID, action.Member.UserID, action.Member.Username,
		action.Type.String(), action.Reason, action.Succeeded(), errText, time.Now().UnixMilli(),
	)
	return err
}

// GetRecentActions returns the newest actions for a guild, newest first.
func (d *Database) GetRecentActions(guildID string, limit int) ([]*ActionRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, guild_id, user_id, username, action, reason, succeeded, error, created_at
		 FROM moderation_actions WHERE guild_id = ? ORDER BY id DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ActionRecord
	for rows.Next() {
		var r ActionRecord
		var succeeded int
		if err := rows.Scan(&r.ID, &r.GuildID, &r.UserID, &r.Username, &r.Action, &r.Reason, &succeeded, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Succeeded = succeeded != 0
		records = append(records, &r)
	}

	return records, rows.Err()
}

func (d *Database) GetGuildStats(guildID string) (*GuildActionStats, error) {
	stats := &GuildActionStats{GuildID: guildID}
	err := d.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(succeeded), 0), COALESCE(MAX(created_at), 0)
		 FROM moderation_actions WHERE guild_id = ?`,
		guildID,
	).Scan(&stats.Total, &stats.Succeeded, &stats.LastAt)
	if err != nil {
		return nil, err
	}

	stats.Failed = stats.Total - stats.Succeeded
	return stats, nil
}
