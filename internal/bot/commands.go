package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/poller"
	"github.com/mauv0809/legend-tracker/internal/registry"
	"github.com/mauv0809/legend-tracker/internal/summary"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

const commandName = "player"

func tagOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tag",
		Description: description,
		Required:    required,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	sub := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: description,
			Options:     options,
		}
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandName,
			Description: "Clash of Clans player commands",
			Options: []*discordgo.ApplicationCommandOption{
				sub("link", "Link your Clash of Clans account", tagOption("Your player tag, e.g. #2PP", true)),
				sub("check", "Show a player's profile", tagOption("Player tag, defaults to your linked account", false)),
				sub("track", "Track a player's Legend League trophies", tagOption("Player tag, defaults to your linked account", false)),
				sub("untrack", "Stop tracking a player", tagOption("Player tag, defaults to your linked account", false)),
				sub("list_tracked", "List the players you are tracking"),
				sub("force_summary", "Send the daily summary now", tagOption("Player tag, defaults to every tracked player", false)),
			},
		},
	}
}

// resolveTag returns the normalized tag from the request, falling back to
// the owner's linked account.
func (b *Bot) resolveTag(req request) (string, *reply) {
	if req.Tag != "" {
		return clash.NormalizeTag(req.Tag), nil
	}
	tag, err := b.store.LookupLink(req.OwnerID)
	if errors.Is(err, tracking.ErrNotFound) {
		return "", &reply{Content: noLinkText}
	}
	if err != nil {
		log.Error("Failed to look up linked account", "owner", req.OwnerID, "error", err)
		return "", &reply{Content: genericErrorText}
	}
	return tag, nil
}

func (b *Bot) fetchPlayer(ctx context.Context, tag string) (clash.Player, *reply) {
	player, err := b.client.GetPlayer(ctx, tag)
	if errors.Is(err, clash.ErrPlayerNotFound) {
		return clash.Player{}, &reply{Content: playerNotFoundText(tag)}
	}
	if err != nil {
		log.Error("Failed to fetch player", "tag", tag, "error", err)
		return clash.Player{}, &reply{Content: apiErrorText}
	}
	return player, nil
}

func (b *Bot) link(ctx context.Context, req request) reply {
	if req.Tag == "" {
		return reply{Content: "Please provide your player tag."}
	}
	tag := clash.NormalizeTag(req.Tag)
	player, errReply := b.fetchPlayer(ctx, tag)
	if errReply != nil {
		return *errReply
	}
	if err := b.store.UpsertLink(req.OwnerID, tag); err != nil {
		log.Error("Failed to link account", "owner", req.OwnerID, "tag", tag, "error", err)
		return reply{Content: genericErrorText}
	}
	log.Info("Linked account", "owner", req.OwnerID, "tag", tag)
	return reply{Content: linkedText(player)}
}

func (b *Bot) check(ctx context.Context, req request) reply {
	tag, errReply := b.resolveTag(req)
	if errReply != nil {
		return *errReply
	}
	player, errReply := b.fetchPlayer(ctx, tag)
	if errReply != nil {
		return *errReply
	}
	return reply{Embeds: []*discordgo.MessageEmbed{PlayerEmbed(player)}}
}

func (b *Bot) track(ctx context.Context, req request) reply {
	if req.GuildID == "" {
		return reply{Content: "Tracking channels can only be created inside a server."}
	}
	tag, errReply := b.resolveTag(req)
	if errReply != nil {
		return *errReply
	}

	count, err := b.store.CountTrackingByOwner(req.OwnerID)
	if err != nil {
		log.Error("Failed to count tracked players", "owner", req.OwnerID, "error", err)
		return reply{Content: genericErrorText}
	}
	if b.cfg.MaxTrackedPerOwner > 0 && count >= b.cfg.MaxTrackedPerOwner {
		return reply{Content: tooManyTrackedText(b.cfg.MaxTrackedPerOwner)}
	}
	if _, err := b.store.FindTrackingByOwner(tag, req.OwnerID); err == nil {
		return reply{Content: alreadyTrackingText(tag)}
	}

	player, errReply := b.fetchPlayer(ctx, tag)
	if errReply != nil {
		return *errReply
	}
	if !player.InLeague(b.cfg.EligibleLeagueID) {
		return reply{Content: notInLeagueText(player)}
	}

	channel, err := b.session.GuildChannelCreateComplex(req.GuildID, b.trackingChannel(req, player))
	if err != nil {
		log.Error("Failed to create tracking channel", "guild", req.GuildID, "tag", tag, "error", err)
		return reply{Content: "Could not create the tracking channel. Check that I have the Manage Channels permission."}
	}

	if _, err := b.tracker.Start(ctx, tag, req.OwnerID, channel.ID); err != nil {
		log.Warn("Failed to start tracking", "tag", tag, "owner", req.OwnerID, "error", err)
		b.deleteChannel(channel.ID)
		switch {
		case errors.Is(err, registry.ErrAlreadyTracking):
			return reply{Content: alreadyTrackingText(tag)}
		case errors.Is(err, poller.ErrNotEligible):
			return reply{Content: notInLeagueText(player)}
		default:
			return reply{Content: fmt.Sprintf("Could not start tracking %s. Please try again later.", clash.DisplayTag(tag))}
		}
	}
	return reply{Content: trackingStartedText(player, channel.ID)}
}

func (b *Bot) untrack(ctx context.Context, req request) reply {
	tag, errReply := b.resolveTag(req)
	if errReply != nil {
		return *errReply
	}
	record, err := b.tracker.CancelByOwner(ctx, tag, req.OwnerID)
	if errors.Is(err, registry.ErrNotTracking) {
		return reply{Content: notTrackingText(tag)}
	}
	if errors.Is(err, registry.ErrStarting) {
		return reply{Content: stillStartingText(tag)}
	}
	if err != nil {
		log.Error("Failed to stop tracking", "tag", tag, "owner", req.OwnerID, "error", err)
		return reply{Content: genericErrorText}
	}
	b.deleteChannel(record.DestinationID)
	return reply{Content: fmt.Sprintf("Stopped tracking **%s**.", clash.DisplayTag(tag))}
}

func (b *Bot) listTracked(ctx context.Context, req request) reply {
	records, err := b.store.ListTrackingByOwner(req.OwnerID)
	if err != nil {
		log.Error("Failed to list tracked players", "owner", req.OwnerID, "error", err)
		return reply{Content: genericErrorText}
	}
	if len(records) == 0 {
		return reply{Content: "You are not tracking any players. Use `/player track` to start."}
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("**Tracked players (%d/%d)**", len(records), b.cfg.MaxTrackedPerOwner))
	for _, r := range records {
		player, err := b.client.GetPlayer(ctx, r.PlayerTag)
		if err != nil {
			log.Warn("Failed to fetch tracked player", "tag", r.PlayerTag, "error", err)
			lines = append(lines, trackedLineFallback(r))
			continue
		}
		lines = append(lines, trackedLine(player, r.DestinationID))
	}
	return reply{Content: strings.Join(lines, "\n")}
}

func (b *Bot) forceSummary(ctx context.Context, req request) reply {
	tag := clash.NormalizeTag(req.Tag)
	res, err := b.summary.RunSummary(ctx, tag)
	if errors.Is(err, summary.ErrNotTracked) {
		return reply{Content: notTrackingText(tag)}
	}
	if err != nil {
		log.Error("Forced summary failed", "tag", tag, "error", err)
		return reply{Content: genericErrorText}
	}
	return reply{Content: summaryResultText(res)}
}

// trackingChannel describes a private channel only the bot can write to and
// the owner can read.
func (b *Bot) trackingChannel(req request, player clash.Player) discordgo.GuildChannelCreateData {
	const (
		ownerAllow = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
		botAllow   = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
			discordgo.PermissionEmbedLinks | discordgo.PermissionReadMessageHistory | discordgo.PermissionManageChannels
	)
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: req.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: req.OwnerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ownerAllow, Deny: discordgo.PermissionSendMessages},
	}
	if b.botUserID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: b.botUserID, Type: discordgo.PermissionOverwriteTypeMember, Allow: botAllow})
	}
	return discordgo.GuildChannelCreateData{
		Name:                 ChannelName(player.Name),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Trophy tracking for %s (%s)", player.Name, clash.DisplayTag(player.Tag)),
		PermissionOverwrites: overwrites,
	}
}

func (b *Bot) deleteChannel(channelID string) {
	if _, err := b.session.ChannelDelete(channelID); err != nil {
		log.Warn("Failed to delete tracking channel", "channel", channelID, "error", err)
	}
}

// ChannelName returns the tracking channel name for a player name.
func ChannelName(playerName string) string {
	name := strings.ToLower(strings.TrimSpace(playerName))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		name = "player"
	}
	return name + "-trophy-tracker"
}
