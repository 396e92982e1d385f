package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-raidguard/internal/bot"
	"go-raidguard/internal/config"
	"go-raidguard/internal/database"
	"go-raidguard/internal/decision"
	"go-raidguard/internal/dispatcher"
	"go-raidguard/internal/logging"
	"go-raidguard/internal/metrics"
	"go-raidguard/internal/notifier"
	"go-raidguard/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load failed: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitGlobalLogger(cfg.LoggingOptions()); err != nil {
		fmt.Fprintf(os.Stderr, "Logger init failed: %v\n", err)
		os.Exit(1)
	}

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		logging.Fatal("Bot init failed: %v", err)
	}
	session := bot.GetSession()

	components, err := startComponents(cfg, session)
	if err != nil {
		logging.Fatal("Startup failed: %v", err)
	}

	session.SetupEventHandlers(components.detector, bot.HandlerOptions{
		Activity:     cfg.Bot.Activity,
		MentionReply: cfg.Bot.Reply,
	})

	if err := session.Connect(); err != nil {
		stopComponents(components)
		logging.Fatal("Connect failed: %v", err)
	}

	logging.Info("Watching for raids: %d joins within %v triggers %s",
		cfg.Detection.MinUsersJoin, cfg.Detection.Window, cfg.ActionType())

	waitForShutdown()

	if err := session.Close(); err != nil {
		logging.Warn("Error closing Discord session: %v", err)
	}
	stopComponents(components)

	logging.Info("Shutdown complete")
	logging.GlobalLogger.Close()
}

type Components struct {
	watcher  *state.WatcherState
	detector *decision.RaidDetector
	journal  *database.Database
	exporter *metrics.Exporter
}

func startComponents(cfg *config.Config, session *bot.Session) (*Components, error) {
	c := &Components{
		watcher: state.NewWatcherState(cfg.Detection.Window),
	}

	moderator, err := buildModerator(cfg, session)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Path != "" {
		journal, err := database.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		c.journal = journal
		moderator = dispatcher.NewJournaledModerator(moderator, journal)
		logging.Info("Action journal at %s", cfg.Database.Path)
	}

	c.detector = decision.NewRaidDetector(c.watcher, moderator, decision.Policy{
		MinUsersJoin:  cfg.Detection.MinUsersJoin,
		Action:        cfg.ActionType(),
		Reason:        cfg.Moderation.Reason,
		BanDeleteDays: cfg.Moderation.BanDeleteDays,
	})

	if cfg.Notifier.LogChannelID != "" {
		n := notifier.New(session.GetDiscord(), cfg.Notifier.LogChannelID)
		c.detector.SetRaidHandler(func(report decision.RaidReport) {
			if err := n.SendRaidReport(report); err != nil {
				logging.Warn("%v", err)
			}
		})
	}

	if cfg.Metrics.Listen != "" {
		c.exporter = metrics.NewExporter(cfg.Metrics.Listen)
		if err := c.exporter.Start(); err != nil {
			stopComponents(c)
			return nil, fmt.Errorf("failed to start metrics listener: %w", err)
		}
	}

	return c, nil
}

func buildModerator(cfg *config.Config, session *bot.Session) (dispatcher.Moderator, error) {
	switch cfg.Moderation.Executor {
	case config.ExecutorREST:
		pool := dispatcher.NewHTTPPool(dispatcher.PoolOptions{
			Size:    cfg.Network.HTTPPoolSize,
			Timeout: cfg.Network.RequestTimeout,
		})
		if !pool.Warmup(cfg.Network.APIBaseURL) {
			logging.Warn("HTTP pool warmup against %s failed", cfg.Network.APIBaseURL)
		}
		return dispatcher.NewRESTModerator(pool, dispatcher.NewRateLimitMonitor(),
			cfg.Bot.Token, cfg.Network.APIBaseURL, cfg.Network.RequestTimeout), nil
	case config.ExecutorSession:
		return session.Moderator(), nil
	default:
		return nil, fmt.Errorf("unknown moderation executor %q", cfg.Moderation.Executor)
	}
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logging.Info("Shutdown signal received")
}

func stopComponents(c *Components) {
	if c.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.exporter.Shutdown(ctx); err != nil {
			logging.Warn("Metrics shutdown: %v", err)
		}
		cancel()
	}

	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			logging.Warn("Closing action journal: %v", err)
		}
	}
}
