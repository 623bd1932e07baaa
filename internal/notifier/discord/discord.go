package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/trophy"
)

const colorBlue = 0x3498db

// session is the part of *discordgo.Session the notifier uses.
// This allows for easy mocking in tests.
type session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier posts tracking notifications into Discord text channels. The
// destination id of every call is the channel id.
type Notifier struct {
	session session
	metrics metrics.Metrics
	timeout time.Duration
}

// NewNotifier creates a new Notifier on an open session.
func NewNotifier(s *discordgo.Session, metrics metrics.Metrics) *Notifier {
	return NewNotifierWithSession(s, metrics)
}

// NewNotifierWithSession creates a new Notifier with any session implementation.
// Useful for tests that need to intercept API calls.
func NewNotifierWithSession(s session, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		session: s,
		metrics: metrics,
		timeout: 10 * time.Second,
	}
}

func (n *Notifier) sendText(channelID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	msg, err := n.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return n.done(channelID, msg, err)
}

func (n *Notifier) sendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	msg, err := n.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return n.done(channelID, msg, err)
}

func (n *Notifier) done(channelID string, msg *discordgo.Message, err error) error {
	if err != nil {
		n.metrics.IncNotifFailed()
		log.Error("Failed to send Discord message", "error", err, "channel", channelID)
		return fmt.Errorf("failed to post message: %w", err)
	}
	n.metrics.IncNotifSent()
	if msg != nil {
		log.Debug("Sent Discord message", "channel", channelID, "message", msg.ID)
	}
	return nil
}

func (n *Notifier) SendTrackingStarted(destinationID string, player clash.Player, trophies int) error {
	return n.sendText(destinationID, notifier.TrackingStartedText(player, trophies))
}

func (n *Notifier) SendTrackingFailed(destinationID, tag, reason string) error {
	return n.sendText(destinationID, notifier.TrackingFailedText(tag, reason))
}

func (n *Notifier) SendNotEligible(destinationID string, player clash.Player) error {
	return n.sendText(destinationID, notifier.NotEligibleText(player))
}

func (n *Notifier) SendTrophyChange(destinationID string, event trophy.Event) error {
	return n.sendText(destinationID, event.Message)
}

func (n *Notifier) SendEligibilityLost(destinationID string, player clash.Player) error {
	return n.sendText(destinationID, notifier.EligibilityLostText(player))
}

func (n *Notifier) SendTrackingStopped(destinationID, playerName string) error {
	return n.sendText(destinationID, notifier.TrackingStoppedText(playerName))
}

func (n *Notifier) SendSummaryIneligible(destinationID string, player clash.Player) error {
	return n.sendText(destinationID, notifier.SummaryIneligibleText(player))
}

func (n *Notifier) SendDailySummary(destinationID string, summary notifier.DailySummary) error {
	return n.sendEmbed(destinationID, SummaryEmbed(summary))
}

// SummaryEmbed renders a daily summary as an embed.
func SummaryEmbed(s notifier.DailySummary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       notifier.SummaryTitle,
		Description: fmt.Sprintf("Summary for %s", s.PlayerName),
		Color:       colorBlue,
	}
	if s.FirstSummary {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Note",
			Value: notifier.FirstSummaryNote,
		})
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Trophy Change", Value: notifier.SummaryChangeText(s.Delta())},
		&discordgo.MessageEmbedField{Name: "Starting Trophies", Value: notifier.TrophiesText(s.Start), Inline: true},
		&discordgo.MessageEmbedField{Name: "Current Trophies", Value: notifier.TrophiesText(s.Current), Inline: true},
	)
	if s.ClanName != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Clan", Value: s.ClanName, Inline: true})
	}
	if s.LeagueIconURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: s.LeagueIconURL}
	}
	if !s.At.IsZero() {
		embed.Timestamp = s.At.Format(time.RFC3339)
	}
	return embed
}
