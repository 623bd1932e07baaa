package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	LogLevel      string
	Discord       DiscordConfig
	Clash         ClashConfig
	Slack         SlackConfig
	Turso         TursoConfig
	ProjectID     string
	Tracking      TrackingConfig
}

type DiscordConfig struct {
	Token         string
	ApplicationID string
	GuildID       string
}

type ClashConfig struct {
	APIToken          string
	BaseURL           string
	RequestsPerSecond float64
}

// SlackConfig is optional. When both fields are set every notification is
// mirrored to the channel.
type SlackConfig struct {
	Token     string
	ChannelID string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// TrackingConfig holds the knobs of the trophy pollers and the daily summary.
type TrackingConfig struct {
	PollInterval             time.Duration
	RetryDelay               time.Duration
	InitAttempts             int
	InitBackoff              time.Duration
	EligibleLeagueID         int
	ResetHour                int
	ResetMinute              int
	Location                 *time.Location
	AnnounceThreeStarDefense bool
	MaxTrackedPerOwner       int
	MaxMissedPolls           int
}

// SlackEnabled reports whether the Slack mirror is configured.
func (c Config) SlackEnabled() bool {
	return c.Slack.Token != "" && c.Slack.ChannelID != ""
}
