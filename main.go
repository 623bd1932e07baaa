package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/bot"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/config"
	"github.com/mauv0809/legend-tracker/internal/database"
	server "github.com/mauv0809/legend-tracker/internal/http"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/notifier/discord"
	"github.com/mauv0809/legend-tracker/internal/notifier/slack"
	"github.com/mauv0809/legend-tracker/internal/poller"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/registry"
	"github.com/mauv0809/legend-tracker/internal/schedule"
	"github.com/mauv0809/legend-tracker/internal/summary"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("Unknown log level, keeping default", "level", cfg.LogLevel)
	}

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	trackingStore := tracking.New(db)
	metricsStore := metrics.New(db)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	appMetrics := metrics.WithStore(metricsSvc, metricsStore)

	var events pubsub.PubSubClient
	if cfg.ProjectID != "" {
		events, err = pubsub.New(rootCtx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
	} else {
		log.Info("GCP_PROJECT not set, events are not published")
		events = pubsub.NewNoop()
	}
	defer events.Close()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %s", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	var sink notifier.Notifier = discord.NewNotifier(session, appMetrics)
	if cfg.SlackEnabled() {
		log.Info("Mirroring notifications to Slack", "channel", cfg.Slack.ChannelID)
		sink = notifier.NewFanout(sink, slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, appMetrics))
	}

	clashClient := clash.NewClient(cfg.Clash.BaseURL, cfg.Clash.APIToken, cfg.Clash.RequestsPerSecond)
	daily := schedule.NewDaily(cfg.Tracking.ResetHour, cfg.Tracking.ResetMinute, cfg.Tracking.Location)

	pollerCfg := poller.Config{
		Interval:                 cfg.Tracking.PollInterval,
		RetryDelay:               cfg.Tracking.RetryDelay,
		InitAttempts:             cfg.Tracking.InitAttempts,
		InitBackoff:              cfg.Tracking.InitBackoff,
		EligibleLeagueID:         cfg.Tracking.EligibleLeagueID,
		Schedule:                 daily,
		AnnounceThreeStarDefense: cfg.Tracking.AnnounceThreeStarDefense,
		MaxMissedPolls:           cfg.Tracking.MaxMissedPolls,
	}
	newPoller := func(record tracking.TrackedPlayer) registry.Runner {
		return poller.New(record, clashClient, trackingStore, sink, appMetrics, events, pollerCfg)
	}

	scheduler := summary.New(clashClient, trackingStore, sink, appMetrics, events, daily, cfg.Tracking.EligibleLeagueID)

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open Discord connection: %s", err)
	}
	defer session.Close()
	log.Info("Connected to Discord", "user", session.State.User.Username)

	trackers := registry.New(trackingStore, newPoller, bot.NewChannelResolver(session), appMetrics)
	commands := bot.New(session, clashClient, trackingStore, trackers, scheduler, bot.Config{
		ApplicationID:      cfg.Discord.ApplicationID,
		GuildID:            cfg.Discord.GuildID,
		EligibleLeagueID:   cfg.Tracking.EligibleLeagueID,
		MaxTrackedPerOwner: cfg.Tracking.MaxTrackedPerOwner,
	}, session.State.User.ID)

	session.AddHandler(commands.HandleInteraction)
	if err := commands.RegisterCommands(); err != nil {
		log.Fatalf("Failed to register slash commands: %s", err)
	}

	if _, err := trackers.ResumeAll(rootCtx); err != nil {
		log.Error("Failed to resume tracked players", "error", err)
	}
	go scheduler.Run(rootCtx)

	s := server.NewServer(trackingStore, metricsStore, metricsHandler, trackers, scheduler)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "error", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)
	}

	// Create a context with a timeout for the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	if err := trackers.Shutdown(ctx); err != nil {
		log.Error("Poller shutdown failed", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	} else {
		log.Info("Server gracefully stopped")
	}

	log.Info("Server process shutting down")
}
