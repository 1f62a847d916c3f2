package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/teo/internal/config"
	"github.com/soyeahso/teo/internal/store"
	"github.com/soyeahso/teo/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Teo status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Teo %s\n\n", version.Version)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			// Session config
			fmt.Printf("Session: store=%s history=%d ttl=%ds idle=%dh\n",
				cfg.Session.Store, cfg.Session.HistoryDepth,
				cfg.Session.InputTTLSeconds, cfg.Session.IdleHours)

			// Channels
			if cfg.Channels.Telegram != nil {
				fmt.Printf("Telegram: configured (poll timeout %ds)\n", cfg.Channels.Telegram.PollTimeout)
			} else {
				fmt.Println("Telegram: (not configured)")
			}
			if cfg.Channels.Webchat != nil {
				fmt.Printf("Webchat: %s\n", cfg.Channels.Webchat.Addr)
			} else {
				fmt.Println("Webchat: (not configured)")
			}

			// Persisted sessions
			if cfg.Session.Store == "sqlite" {
				if db, err := store.Open(paths.DBPath(), log); err == nil {
					defer db.Close()
					if n, err := store.NewSessionStore(db).Count(); err == nil {
						fmt.Printf("Sessions: %d persisted\n", n)
					}
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
