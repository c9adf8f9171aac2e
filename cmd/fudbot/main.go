// Package main contains the entrypoint for the FUD bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/fudbot/internal/agent"
	"github.com/edgard/fudbot/internal/bot"
	"github.com/edgard/fudbot/internal/bot/handlers"
	"github.com/edgard/fudbot/internal/bot/tasks"
	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/database"
	"github.com/edgard/fudbot/internal/llm"
	"github.com/edgard/fudbot/internal/logger"
	"github.com/edgard/fudbot/internal/memory"
	"github.com/edgard/fudbot/internal/persona"
	"github.com/edgard/fudbot/internal/social"
	"github.com/edgard/fudbot/internal/telegram"
	"github.com/edgard/fudbot/internal/tracker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, runs the bot until ctx is cancelled and
// returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load env file", "path", *envPath, "error", err)
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	store, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("Failed to open memory store", "driver", cfg.Storage.Driver, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close memory store", "error", err)
		}
	}()

	mem, err := memory.NewManager(ctx, store, log)
	if err != nil {
		log.Error("Failed to load memory", "error", err)
		return 1
	}

	p, err := persona.Load(cfg.Character.Dir, cfg.Character.Name)
	if err != nil {
		log.Error("Failed to load persona", "dir", cfg.Character.Dir, "name", cfg.Character.Name, "error", err)
		return 1
	}
	log.Info("Persona loaded", "name", p.Name)

	completer, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize LLM client", "provider", cfg.LLM.Provider, "error", err)
		return 1
	}
	ag := agent.New(completer, p, log)

	tokens := tracker.NewClient(cfg.Tracker, log)
	platform := social.NewClient(ctx, cfg.Twitter, log)

	botInfo := &handlers.BotInfo{}
	hDeps := handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		BotInfo: botInfo,
		Memory:  mem,
		Tokens:  tokens,
		Chat:    ag,
	}

	var (
		tg      *tgbot.Bot
		runOpts []bot.RuntimeOption
	)
	if cfg.Telegram.Token != "" {
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log,
			tgbot.WithMiddlewares(logger.Middleware(log)),
			tgbot.WithDefaultHandler(handlers.NewChatHandler(hDeps)),
		)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}

		me, err := tg.GetMe(ctx)
		if err != nil {
			log.Error("Failed to get bot info", "error", err)
			return 1
		}
		botInfo.ID, botInfo.Username = me.ID, me.Username
		log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

		if cfg.Telegram.MirrorChatID != 0 {
			runOpts = append(runOpts, bot.WithAnnouncer(telegram.NewNotifier(tg, cfg.Telegram.MirrorChatID, log)))
		}
	} else {
		log.Info("Telegram token not set, control surface disabled")
	}

	rt := bot.NewRuntime(cfg.Bot, mem, []*agent.Agent{ag}, tokens, platform, log, runOpts...)

	if tg != nil {
		hDeps.Status = rt
		if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return 1
		}
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Ticker: rt, Store: store})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap, clockwork.NewRealClock())
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, rt, mem, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// openStore opens the memory backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (memory.Store, error) {
	switch cfg.Driver {
	case "json":
		return memory.NewFileStore(cfg.MemoryPath, cfg.ProcessedPath, log), nil
	case "sqlite":
		s, err := database.NewSQLiteStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := database.NewPostgresStore(ctx, cfg.PostgresURL, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
