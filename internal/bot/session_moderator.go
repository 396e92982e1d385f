package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"go-raidguard/internal/models"
)

type memberRemover interface {
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// SessionModerator issues kicks and bans through discordgo's REST client,
// which shares the session's rate-limit buckets.
type SessionModerator struct {
	api memberRemover
}

func NewSessionModerator(api memberRemover) *SessionModerator {
	return &SessionModerator{api: api}
}

func (sm *SessionModerator) Kick(ctx context.Context, member models.Member, reason string) error {
	return sm.api.GuildMemberDeleteWithReason(member.GuildID, member.UserID, reason, discordgo.WithContext(ctx))
}

func (sm *SessionModerator) Ban(ctx context.Context, member models.Member, deleteDays int, reason string) error {
	return sm.api.GuildBanCreateWithReason(member.GuildID, member.UserID, reason, deleteDays, discordgo.WithContext(ctx))
}
