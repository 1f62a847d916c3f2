package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/channel"
	"github.com/soyeahso/teo/internal/channel/telegram"
	"github.com/soyeahso/teo/internal/channel/webchat"
	"github.com/soyeahso/teo/internal/config"
	"github.com/soyeahso/teo/internal/features/finance"
	"github.com/soyeahso/teo/internal/features/habits"
	"github.com/soyeahso/teo/internal/features/menu"
	"github.com/soyeahso/teo/internal/features/news"
	"github.com/soyeahso/teo/internal/features/settings"
	"github.com/soyeahso/teo/internal/features/weather"
	"github.com/soyeahso/teo/internal/routing"
	"github.com/soyeahso/teo/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("preparing directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Channel registry doubles as the engine's transport lookup.
			channels := channel.NewRegistry(log)

			engine := anchor.New(anchor.Config{
				HistoryDepth: cfg.Session.HistoryDepth,
				DefaultTTL:   time.Duration(cfg.Session.InputTTLSeconds) * time.Second,
				IdleHorizon:  time.Duration(cfg.Session.IdleHours) * time.Hour,
			}, channels, menu.Root, log)

			// Durable session storage (SQLite by default) so anchors
			// survive a restart.
			var users *store.UserStore
			var habitStore *store.HabitStore
			if cfg.Session.Store == "sqlite" {
				db, err := store.Open(paths.DBPath(), log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()

				sessions := store.NewSessionStore(db)
				engine.SetPersister(sessions)
				restored, err := sessions.LoadAll()
				if err != nil {
					return fmt.Errorf("loading sessions: %w", err)
				}
				engine.Restore(restored)

				users = store.NewUserStore(db)
				habitStore = store.NewHabitStore(db)
				log.Info().Str("path", paths.DBPath()).Msg("using SQLite store")
			} else {
				memDB, err := store.Open(":memory:", log)
				if err != nil {
					return fmt.Errorf("opening in-memory database: %w", err)
				}
				defer memDB.Close()
				users = store.NewUserStore(memDB)
				habitStore = store.NewHabitStore(memDB)
				log.Info().Msg("using in-memory store")
			}

			// Features
			menu.Register(engine)
			weather.New(engine, weather.NewClient(), users, cfg.Weather.DefaultCity, log).Register()
			news.New(engine, news.NewClient()).Register()
			habits.New(engine, habitStore).Register()
			finance.New(engine, finance.NewClient(cfg.Finance.SheetsAPIKey), users, log).Register()
			settings.New(engine, users).Register()

			// Channels
			if cfg.Channels.Telegram != nil {
				channels.Register(telegram.New(*cfg.Channels.Telegram, log))
			}
			if cfg.Channels.Webchat != nil {
				channels.Register(webchat.New(*cfg.Channels.Webchat, log))
			}
			if channels.Count() == 0 {
				return fmt.Errorf("no channels configured")
			}

			// Per-session-key serialized routing
			router := routing.NewRouter(ctx, engine, log)
			for _, id := range channels.List() {
				if ch, ok := channels.Get(id); ok {
					router.Wire(ch)
				}
			}

			channels.StartAll(ctx)
			defer channels.StopAll(ctx)

			sweep := time.Duration(cfg.Session.SweepMinutes) * time.Minute
			go engine.RunSweeper(ctx, sweep)

			log.Info().
				Int("channels", channels.Count()).
				Int("history_depth", cfg.Session.HistoryDepth).
				Int("input_ttl_s", cfg.Session.InputTTLSeconds).
				Msg("teo running")

			<-ctx.Done()
			router.Drain()
			log.Info().Msg("shutting down")
			return nil
		},
	}

	return cmd
}
