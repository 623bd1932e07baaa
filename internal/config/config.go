package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	defaultClashBaseURL = "https://api.clashofclans.com/v1"
	// LegendLeagueID is the league id of Legend League in the Clash of Clans API.
	LegendLeagueID = 29000022
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("Error: %s", err)
	}
	return cfg
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var missing []string
	getEnv := func(key string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		missing = append(missing, key)
		return ""
	}
	getEnvOrDefault := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		DBName:        getEnvOrDefault("DB_NAME", "./data/legend-tracker.db"),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", "./migrations"),
		Port:          getEnvOrDefault("PORT", "8080"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		Discord: DiscordConfig{
			Token:         getEnv("DISCORD_BOT_TOKEN"),
			ApplicationID: getEnv("DISCORD_APPLICATION_ID"),
			GuildID:       getEnvOrDefault("DISCORD_GUILD_ID", ""),
		},
		Clash: ClashConfig{
			APIToken: getEnv("COC_API_TOKEN"),
			BaseURL:  strings.TrimRight(getEnvOrDefault("COC_API_BASE_URL", defaultClashBaseURL), "/"),
		},
		Slack: SlackConfig{
			Token:     getEnvOrDefault("SLACK_BOT_TOKEN", ""),
			ChannelID: getEnvOrDefault("SLACK_CHANNEL_ID", ""),
		},
		Turso: TursoConfig{
			PrimaryURL: getEnvOrDefault("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvOrDefault("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: getEnvOrDefault("GCP_PROJECT", ""),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.Clash.RequestsPerSecond, err = strconv.ParseFloat(getEnvOrDefault("COC_REQUESTS_PER_SECOND", "10"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid COC_REQUESTS_PER_SECOND: %w", err)
	}

	t := &cfg.Tracking
	if t.PollInterval, err = time.ParseDuration(getEnvOrDefault("POLL_INTERVAL", "30s")); err != nil {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if t.RetryDelay, err = time.ParseDuration(getEnvOrDefault("RETRY_DELAY", "5s")); err != nil {
		return Config{}, fmt.Errorf("invalid RETRY_DELAY: %w", err)
	}
	if t.InitBackoff, err = time.ParseDuration(getEnvOrDefault("INIT_BACKOFF", "2s")); err != nil {
		return Config{}, fmt.Errorf("invalid INIT_BACKOFF: %w", err)
	}
	if t.InitAttempts, err = strconv.Atoi(getEnvOrDefault("INIT_ATTEMPTS", "3")); err != nil || t.InitAttempts < 1 {
		return Config{}, fmt.Errorf("invalid INIT_ATTEMPTS: must be a positive integer")
	}
	if t.EligibleLeagueID, err = strconv.Atoi(getEnvOrDefault("ELIGIBLE_LEAGUE_ID", strconv.Itoa(LegendLeagueID))); err != nil {
		return Config{}, fmt.Errorf("invalid ELIGIBLE_LEAGUE_ID: %w", err)
	}
	if t.MaxTrackedPerOwner, err = strconv.Atoi(getEnvOrDefault("MAX_TRACKED_PER_OWNER", "3")); err != nil {
		return Config{}, fmt.Errorf("invalid MAX_TRACKED_PER_OWNER: %w", err)
	}
	if t.MaxMissedPolls, err = strconv.Atoi(getEnvOrDefault("MAX_MISSED_POLLS", "10")); err != nil {
		return Config{}, fmt.Errorf("invalid MAX_MISSED_POLLS: %w", err)
	}
	if t.AnnounceThreeStarDefense, err = strconv.ParseBool(getEnvOrDefault("ANNOUNCE_THREE_STAR_DEFENSE", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid ANNOUNCE_THREE_STAR_DEFENSE: %w", err)
	}

	resetAt, err := time.Parse("15:04", getEnvOrDefault("RESET_TIME", "22:00"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid RESET_TIME, expected HH:MM: %w", err)
	}
	t.ResetHour, t.ResetMinute = resetAt.Hour(), resetAt.Minute()

	if t.Location, err = time.LoadLocation(getEnvOrDefault("RESET_TIMEZONE", "America/Phoenix")); err != nil {
		return Config{}, fmt.Errorf("invalid RESET_TIMEZONE: %w", err)
	}

	return cfg, nil
}
