// Command streamctl is the streamwatch operations CLI.
//
// Usage:
//
//	streamctl probe
//	streamctl plan
//	streamctl prefs get
//	streamctl prefs set early,traditional
//	streamctl prefs set ""
//	streamctl notify test
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/powellbutte/streamwatch/internal/config"
	"github.com/powellbutte/streamwatch/internal/db"
	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/planner"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "streamctl",
		Short: "Streamwatch operations CLI",
	}

	root.AddCommand(probeCmd())
	root.AddCommand(planCmd())
	root.AddCommand(prefsCmd())
	root.AddCommand(notifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run loads config, opens the state store, and invokes fn with both.
func run(fn func(ctx context.Context, cfg *config.Config, store kvstore.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var store kvstore.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		store = kvstore.NewPostgres(pool.Pool)
	} else {
		logger.Warn("No DATABASE_URL set, reading defaults and discarding writes")
		store = kvstore.NewMemory()
	}

	return fn(ctx, cfg, store)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// --------------------------------------------------------------------------
// probe command
// --------------------------------------------------------------------------

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe the channel's live status once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, _ kvstore.Store) error {
				oc := oracle.NewClient(cfg.YouTubeAPIKey, cfg.YouTubeChannelID, cfg.ProbeTimeout)
				if !oc.IsConfigured() {
					return fmt.Errorf("YOUTUBE_API_KEY is required")
				}

				start := time.Now()
				status, err := oc.Probe(ctx)
				if err != nil {
					return fmt.Errorf("probe: %w", err)
				}
				logger.Info("probe finished", "duration", time.Since(start).Round(time.Millisecond))

				resp := map[string]interface{}{"live": status.Live}
				if status.Live {
					resp["streamId"] = status.StreamID
					resp["watchUrl"] = oc.WatchURL(status.StreamID)
				}
				return printJSON(resp)
			})
		},
	}
}

// --------------------------------------------------------------------------
// plan command
// --------------------------------------------------------------------------

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the next reminder instant for each enabled service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, store kvstore.Store) error {
				prefs, err := planner.LoadPreferences(ctx, store, config.ServiceRegistry)
				if err != nil {
					logger.Warn("preferences unavailable, using defaults", "error", err)
				}
				now := time.Now().In(cfg.Location())
				return printJSON(planner.Plan(prefs, config.ServiceRegistry, now))
			})
		},
	}
}

// --------------------------------------------------------------------------
// prefs commands
// --------------------------------------------------------------------------

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect or replace the service subscription set",
	}
	cmd.AddCommand(prefsGetCmd())
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored service subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, _ *config.Config, store kvstore.Store) error {
				prefs, err := planner.LoadPreferences(ctx, store, config.ServiceRegistry)
				if err != nil {
					return err
				}
				return printJSON(prefs)
			})
		},
	}
}

func prefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <ids>",
		Short: "Replace subscriptions with a comma-separated ID list (empty string disables all)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, _ *config.Config, store kvstore.Store) error {
				enabled := []string{}
				for _, id := range strings.Split(args[0], ",") {
					if trimmed := strings.TrimSpace(id); trimmed != "" {
						enabled = append(enabled, trimmed)
					}
				}

				prefs := planner.Preferences{Enabled: enabled}
				if err := prefs.Validate(config.ServiceRegistry); err != nil {
					return err
				}
				if err := planner.SavePreferences(ctx, store, prefs); err != nil {
					return err
				}
				logger.Info("preferences saved", "enabled", len(prefs.Enabled))
				return printJSON(prefs)
			})
		},
	}
}

// --------------------------------------------------------------------------
// notify command
// --------------------------------------------------------------------------

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification delivery checks",
	}
	cmd.AddCommand(notifyTestCmd())
	return cmd
}

func notifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification through the configured emitter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, _ kvstore.Store) error {
				var emitter notify.Emitter
				if webhook := notify.NewWebhookEmitter(cfg.NotifyWebhookURL, logger); webhook != nil {
					emitter = webhook
				} else {
					logger.Warn("No NOTIFY_WEBHOOK_URL set, emitting to log")
					emitter = notify.NewLogEmitter(logger)
				}

				n := notify.Test()
				if err := emitter.Emit(ctx, n); err != nil {
					return fmt.Errorf("emit test notification: %w", err)
				}
				return printJSON(n)
			})
		},
	}
}
