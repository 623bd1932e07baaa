package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/summary"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

// Session is the part of *discordgo.Session the bot uses.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Tracker starts and stops trophy tracking.
type Tracker interface {
	Start(ctx context.Context, tag, ownerID, destinationID string) (tracking.TrackedPlayer, error)
	CancelByOwner(ctx context.Context, tag, ownerID string) (tracking.TrackedPlayer, error)
}

// Summarizer runs the daily summary on demand.
type Summarizer interface {
	RunSummary(ctx context.Context, tag string) (summary.Result, error)
}

type Config struct {
	ApplicationID      string
	GuildID            string
	EligibleLeagueID   int
	MaxTrackedPerOwner int
}

// Bot answers the /player slash commands.
type Bot struct {
	session   Session
	client    clash.Client
	store     tracking.Store
	tracker   Tracker
	summary   Summarizer
	cfg       Config
	botUserID string
}

// request is a parsed /player invocation.
type request struct {
	Subcommand string
	Tag        string
	OwnerID    string
	GuildID    string
}

// reply is the answer to a command. Embeds are optional.
type reply struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}
