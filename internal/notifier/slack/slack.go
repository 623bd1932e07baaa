package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/trophy"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier mirrors tracking notifications into a single Slack channel. The
// destination id is only used as context in the message.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message) (string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotifSent()
	log.Debug("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) sendText(destinationID, text string) error {
	_, _, err := s.sendMessage(formatText(destinationID, text))
	return err
}

func (s *Notifier) SendTrackingStarted(destinationID string, player clash.Player, trophies int) error {
	return s.sendText(destinationID, notifier.TrackingStartedText(player, trophies))
}

func (s *Notifier) SendTrackingFailed(destinationID, tag, reason string) error {
	return s.sendText(destinationID, notifier.TrackingFailedText(tag, reason))
}

func (s *Notifier) SendNotEligible(destinationID string, player clash.Player) error {
	return s.sendText(destinationID, notifier.NotEligibleText(player))
}

func (s *Notifier) SendTrophyChange(destinationID string, event trophy.Event) error {
	return s.sendText(destinationID, event.Message)
}

func (s *Notifier) SendEligibilityLost(destinationID string, player clash.Player) error {
	return s.sendText(destinationID, notifier.EligibilityLostText(player))
}

func (s *Notifier) SendTrackingStopped(destinationID, playerName string) error {
	return s.sendText(destinationID, notifier.TrackingStoppedText(playerName))
}

func (s *Notifier) SendSummaryIneligible(destinationID string, player clash.Player) error {
	return s.sendText(destinationID, notifier.SummaryIneligibleText(player))
}

func (s *Notifier) SendDailySummary(destinationID string, summary notifier.DailySummary) error {
	_, _, err := s.sendMessage(formatSummary(destinationID, summary))
	return err
}

// toMrkdwn converts Discord style bold markers to Slack's.
func toMrkdwn(text string) string {
	return strings.ReplaceAll(text, "**", "*")
}

func contextBlock(destinationID string) *slack.ContextBlock {
	return slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Discord channel `%s`", destinationID), false, false),
	)
}

// formatText wraps a plain notification in a section plus a context block.
func formatText(destinationID, text string) slack.Message {
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", toMrkdwn(text), false, false), nil, nil),
		contextBlock(destinationID),
	)
}

func formatSummary(destinationID string, s notifier.DailySummary) slack.Message {
	blocks := make([]slack.Block, 0, 5)

	headerText := slack.NewTextBlockObject("plain_text", notifier.SummaryTitle, true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if s.FirstSummary {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", notifier.FirstSummaryNote, false, false), nil, nil))
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Player*\n%s", s.PlayerName), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Trophy Change*\n%s", notifier.SummaryChangeText(s.Delta())), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Starting Trophies*\n%s", notifier.TrophiesText(s.Start)), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Current Trophies*\n%s", notifier.TrophiesText(s.Current)), false, false),
	}
	if s.ClanName != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Clan*\n%s", s.ClanName), false, false))
	}
	var accessory *slack.Accessory
	if s.LeagueIconURL != "" {
		accessory = slack.NewAccessory(slack.NewImageBlockElement(s.LeagueIconURL, "league"))
	}
	blocks = append(blocks, slack.NewSectionBlock(nil, fields, accessory))
	blocks = append(blocks, contextBlock(destinationID))

	return slack.NewBlockMessage(blocks...)
}
