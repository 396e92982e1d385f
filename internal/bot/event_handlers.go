package bot

import (
	"context"
	"time"

	"go-raidguard/internal/logging"
	"go-raidguard/internal/models"

	"github.com/bwmarrin/discordgo"
)

// JoinWatcher receives member joins and removals; the raid detector implements it.
type JoinWatcher interface {
	OnJoin(ctx context.Context, guildID string, member models.Member, now time.Time)
	OnRemoval(guildID, userID string)
}

type HandlerOptions struct {
	// Activity is shown as "Watching <Activity>" once ready.
	Activity string
	// MentionReply is sent when a message mentions the bot; empty disables it.
	MentionReply string
}

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type eventHandlers struct {
	watcher JoinWatcher
	opts    HandlerOptions
	now     func() time.Time
}

// SetupEventHandlers wires gateway events to the join watcher.
func (s *Session) SetupEventHandlers(watcher JoinWatcher, opts HandlerOptions) {
	logging.Info("Setting up Discord event handlers...")

	h := &eventHandlers{watcher: watcher, opts: opts, now: time.Now}
	s.discord.AddHandler(h.onReady)
	s.discord.AddHandler(h.onGuildMemberAdd)
	s.discord.AddHandler(h.onGuildMemberRemove)
	s.discord.AddHandler(h.onMessageCreate)

	logging.Info("Discord event handlers configured")
}

func (h *eventHandlers) onReady(sess *discordgo.Session, r *discordgo.Ready) {
	logging.Info("%s is connected!", r.User.Username)

	if h.opts.Activity == "" {
		return
	}
	if err := sess.UpdateWatchStatus(0, h.opts.Activity); err != nil {
		logging.Warn("Failed to set presence: %v", err)
	}
}

func (h *eventHandlers) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.GuildID == "" {
		return
	}

	member := models.Member{
		GuildID:  m.GuildID,
		UserID:   m.User.ID,
		Username: m.User.Username,
		Bot:      m.User.Bot,
	}
	h.watcher.OnJoin(context.Background(), m.GuildID, member, h.now())
}

func (h *eventHandlers) onGuildMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil || m.GuildID == "" {
		return
	}

	h.watcher.OnRemoval(m.GuildID, m.User.ID)
}

func (h *eventHandlers) onMessageCreate(sess *discordgo.Session, m *discordgo.MessageCreate) {
	if sess.State == nil || sess.State.User == nil {
		return
	}
	h.replyIfMentioned(sess, sess.State.User.ID, m.Message)
}

func (h *eventHandlers) replyIfMentioned(sender messageSender, selfID string, m *discordgo.Message) {
	if h.opts.MentionReply == "" || m == nil || m.Author == nil || m.Author.ID == selfID {
		return
	}
	if !mentions(m, selfID) {
		return
	}

	if _, err := sender.ChannelMessageSend(m.ChannelID, h.opts.MentionReply); err != nil {
		logging.Warn("Error sending message: %v", err)
	}
}

func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}
