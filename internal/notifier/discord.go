package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-raidguard/internal/decision"
)

// maxListedMembers keeps the member field under Discord's 1024 character limit.
const maxListedMembers = 20

// EmbedSender is the part of *discordgo.Session the notifier uses.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DefaultCooldown is the minimum gap between two raid reports for one guild.
const DefaultCooldown = 30 * time.Second

// Notifier posts raid summaries to a moderation log channel.
type Notifier struct {
	sender    EmbedSender
	channelID string
	cooldown  *CooldownManager
	now       func() time.Time
}

func New(sender EmbedSender, channelID string) *Notifier {
	return &Notifier{
		sender:    sender,
		channelID: channelID,
		cooldown:  NewCooldownManager(DefaultCooldown),
		now:       time.Now,
	}
}

// WithCooldown replaces the per-guild report cooldown.
func (n *Notifier) WithCooldown(d time.Duration) *Notifier {
	n.cooldown = NewCooldownManager(d)
	return n
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil && n.channelID != ""
}

// SendRaidReport posts the summary of one action pass, unless another report
// for the same guild went out within the cooldown.
func (n *Notifier) SendRaidReport(report decision.RaidReport) error {
	if !n.Enabled() {
		return nil
	}

	now := n.now()
	ok, folded := n.cooldown.Acquire(report.GuildID, report.Actioned, now)
	if !ok {
		return nil
	}

	embed := BuildRaidEmbed(report, now)
	if folded > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⏱️ Since Last Report",
			Value: fmt.Sprintf("**%d** more members actioned", folded),
		})
	}

	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		return fmt.Errorf("failed to send raid report to channel %s: %w", n.channelID, err)
	}
	return nil
}

func BuildRaidEmbed(report decision.RaidReport, now time.Time) *discordgo.MessageEmbed {
	color := 0xED4245
	if report.Failed > 0 {
		color = 0xFEE75C
	}

	return &discordgo.MessageEmbed{
		Title:       "🛡️ Raid Detected",
		Color:       color,
		Description: fmt.Sprintf("**Action Taken:** %s", report.Action),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🏠 Guild",
				Value:  fmt.Sprintf("`%s`", report.GuildID),
				Inline: true,
			},
			{
				Name:   "📈 Joins in Window",
				Value:  fmt.Sprintf("**%d**", report.LiveJoins),
				Inline: true,
			},
			{
				Name:   "🔨 Actioned",
				Value:  fmt.Sprintf("**%d** (%d failed)", report.Actioned, report.Failed),
				Inline: true,
			},
			{
				Name:   "👥 Members",
				Value:  memberList(report),
				Inline: false,
			},
			{
				Name:   "🕐 Timestamp",
				Value:  fmt.Sprintf("<t:%d:F>", now.Unix()),
				Inline: false,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Raid defense",
		},
		Timestamp: now.Format(time.RFC3339),
	}
}

func memberList(report decision.RaidReport) string {
	if len(report.Members) == 0 {
		return "none"
	}

	var b strings.Builder
	for i, m := range report.Members {
		if i == maxListedMembers {
			fmt.Fprintf(&b, "…and %d more", len(report.Members)-maxListedMembers)
			break
		}
		fmt.Fprintf(&b, "<@%s> (`%s`)\n", m.UserID, m.UserID)
	}
	return strings.TrimSpace(b.String())
}
