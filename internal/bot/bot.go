// Package bot implements the /player Discord slash commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

const commandTimeout = 30 * time.Second

// New creates a Bot. botUserID is the bot's own user, granted access to the
// tracking channels it creates.
func New(session Session, client clash.Client, store tracking.Store, tracker Tracker, summary Summarizer, cfg Config, botUserID string) *Bot {
	return &Bot{
		session:   session,
		client:    client,
		store:     store,
		tracker:   tracker,
		summary:   summary,
		cfg:       cfg,
		botUserID: botUserID,
	}
}

// RegisterCommands replaces the application's commands with /player. With a
// guild configured the commands are registered for that guild only.
func (b *Bot) RegisterCommands() error {
	log.Info("Registering slash commands", "guild", b.cfg.GuildID)
	cmds, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.ApplicationID, b.cfg.GuildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Info("Slash commands registered", "count", len(cmds))
	return nil
}

// HandleInteraction is the discordgo handler for interaction events.
func (b *Bot) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(i)
}

func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != commandName || len(data.Options) == 0 {
		log.Warn("Unknown command", "command", data.Name)
		return
	}

	req := parseRequest(i)
	log.Debug("Received command", "subcommand", req.Subcommand, "owner", req.OwnerID, "guild", req.GuildID)

	// Respond immediately to avoid the three second timeout.
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Error("Failed to acknowledge command", "subcommand", req.Subcommand, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	r := b.dispatch(ctx, req)

	edit := &discordgo.WebhookEdit{Content: &r.Content}
	if len(r.Embeds) > 0 {
		edit.Embeds = &r.Embeds
	}
	if _, err := b.session.InteractionResponseEdit(i.Interaction, edit); err != nil {
		log.Error("Failed to send command response", "subcommand", req.Subcommand, "error", err)
	}
}

func parseRequest(i *discordgo.InteractionCreate) request {
	sub := i.ApplicationCommandData().Options[0]
	req := request{Subcommand: sub.Name, GuildID: i.GuildID}
	for _, opt := range sub.Options {
		if opt.Name == "tag" && opt.Type == discordgo.ApplicationCommandOptionString {
			req.Tag = opt.StringValue()
		}
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		req.OwnerID = i.Member.User.ID
	case i.User != nil:
		req.OwnerID = i.User.ID
	}
	return req
}

func (b *Bot) dispatch(ctx context.Context, req request) reply {
	switch req.Subcommand {
	case "link":
		return b.link(ctx, req)
	case "check":
		return b.check(ctx, req)
	case "track":
		return b.track(ctx, req)
	case "untrack":
		return b.untrack(ctx, req)
	case "list_tracked":
		return b.listTracked(ctx, req)
	case "force_summary":
		return b.forceSummary(ctx, req)
	default:
		log.Warn("Unknown subcommand", "subcommand", req.Subcommand)
		return reply{Content: "Unknown command."}
	}
}

// ChannelResolver checks that tracking destinations still exist as Discord
// channels.
type ChannelResolver struct {
	session Session
}

func NewChannelResolver(session Session) ChannelResolver {
	return ChannelResolver{session: session}
}

// DestinationExists reports whether the channel still exists. Errors other
// than an unknown channel count as existing.
func (r ChannelResolver) DestinationExists(channelID string) bool {
	_, err := r.session.Channel(channelID)
	if err == nil {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return false
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false
		}
	}
	log.Warn("Could not resolve channel, assuming it exists", "channel", channelID, "error", err)
	return true
}
