package bot

import (
	"fmt"

	"go-raidguard/internal/logging"

	"github.com/bwmarrin/discordgo"
)

// Intents covers member joins/removals and guild messages for the mention reply.
const Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers

type Session struct {
	discord *discordgo.Session
	token   string
	BotID   string
}

var globalSession *Session

// Initialize creates the Discord session without connecting it.
func Initialize(token string) error {
	if token == "" {
		return fmt.Errorf("no Discord token configured")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = Intents
	// Each gateway event is handled on its own goroutine.
	dg.SyncEvents = false

	globalSession = &Session{
		discord: dg,
		token:   token,
	}

	return nil
}

// GetSession returns the global Discord session
func GetSession() *Session {
	return globalSession
}

// GetDiscord returns the underlying discordgo session
func (s *Session) GetDiscord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if s.discord.State.User != nil {
		s.BotID = s.discord.State.User.ID
		logging.Info("Bot ID: %s", s.BotID)
	}

	logging.Info("Discord bot connected successfully")
	return nil
}

// Close closes the Discord connection
func (s *Session) Close() error {
	if s != nil && s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// Moderator returns a moderator that kicks and bans through this session.
func (s *Session) Moderator() *SessionModerator {
	return NewSessionModerator(s.discord)
}
