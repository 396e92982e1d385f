package dispatcher

import (
	"context"

	"go-raidguard/internal/logging"
	"go-raidguard/internal/models"
)

// ActionJournal stores a record of every action issued, whatever its outcome.
type ActionJournal interface {
	RecordAction(action *models.Action) error
}

// JournaledModerator forwards to another Moderator and journals the result.
// Journal failures are logged and never change the action's outcome.
type JournaledModerator struct {
	next    Moderator
	journal ActionJournal
}

func NewJournaledModerator(next Moderator, journal ActionJournal) *JournaledModerator {
	return &JournaledModerator{next: next, journal: journal}
}

func (jm *JournaledModerator) Kick(ctx context.Context, member models.Member, reason string) error {
	action := models.NewKickAction(member, reason)
	action.Err = jm.next.Kick(ctx, member, reason)
	jm.record(action)
	return action.Err
}

func (jm *JournaledModerator) Ban(ctx context.Context, member models.Member, deleteDays int, reason string) error {
	action := models.NewBanAction(member, deleteDays, reason)
	action.Err = jm.next.Ban(ctx, member, deleteDays, reason)
	jm.record(action)
	return action.Err
}

func (jm *JournaledModerator) record(action *models.Action) {
	if err := jm.journal.RecordAction(action); err != nil {
		logging.Warn("Failed to journal %s of %s in guild %s: %v",
			action.Type, action.Member, action.Member.GuildID, err)
	}
}
