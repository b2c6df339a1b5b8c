package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"kanji/internal/caldav"
	"kanji/internal/collector"
	"kanji/internal/config"
	"kanji/internal/google"
	"kanji/internal/meeting"
	"kanji/internal/resolver"
	"kanji/internal/server"
	"kanji/internal/summary"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "kanji",
		Usage: "Find the meeting slot that suits a group best.",
		Commands: []*cli.Command{
			authCommand(),
			calendarsCommand(),
			resolveCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to read its calendars.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				return errors.New("account name must not be empty")
			}
			tokenFile := filepath.Join(cfg.TokenDir, google.TokenFile(accountName))

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the calendars a plan can refer to.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			accounts, err := google.GetTokenAccounts(cfg.TokenDir)
			if err != nil {
				return fmt.Errorf("could not list google accounts: %w", err)
			}
			for _, acc := range accounts {
				gClient, err := google.NewClient(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.TokenDir, acc)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}
				cals, err := gClient.ListCalendars(c.Context)
				if err != nil {
					return err
				}
				for _, cal := range cals {
					fmt.Printf("google\t%s\t%s\t%s\n", acc, cal.ID, cal.Summary)
				}
			}

			if cfg.CalDAVEnabled() {
				dav, err := caldav.NewClient(logger, cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.Location)
				if err != nil {
					return fmt.Errorf("failed to create caldav client: %w", err)
				}
				cals, err := dav.ListCalendars(c.Context)
				if err != nil {
					return err
				}
				for _, cal := range cals {
					fmt.Printf("caldav\t%s\t%s\t%s\n", cfg.CalDAVUsername, cal.Path, cal.Name)
				}
			}
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Collect availability for a meeting plan and pick the best slot.",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "plan", Aliases: []string{"p"}, Required: true, Usage: "Meeting plan file (YAML or JSON)."},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON."},
			&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute, Usage: "Give up collecting availability after this long."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			plan, err := meeting.Load(c.Path("plan"), cfg.Location)
			if err != nil {
				return err
			}

			coll, err := newCollector(logger, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			report, err := coll.Collect(ctx, plan)
			if err != nil {
				return fmt.Errorf("could not collect availability: %w", err)
			}

			result := resolver.Resolve(report.Request)
			s := summary.New(plan.Title, report, result)
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			s.Render(os.Stdout)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve slot resolution over HTTP.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address. Overrides SERVER_ADDR."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			coll, err := newCollector(logger, cfg)
			if err != nil {
				return err
			}

			addr := cfg.ServerAddr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(logger, coll, cfg.Location),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("Starting HTTP server.", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			logger.Info("HTTP server stopped.")
			return nil
		},
	}
}

// newCollector wires the configured calendar providers into a collector.
// Google accounts are opened on first use from their saved tokens.
func newCollector(logger *slog.Logger, cfg *config.Config) (*collector.Collector, error) {
	var dav collector.BusySource
	if cfg.CalDAVEnabled() {
		client, err := caldav.NewClient(logger, cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		dav = client
	} else {
		logger.Debug("CalDAV credentials not set, caldav participants will count as busy.")
	}

	openGoogle := func(ctx context.Context, account string) (collector.BusySource, error) {
		// The client outlives the request that first needed it.
		client, err := google.NewClient(context.WithoutCancel(ctx), logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.TokenDir, account)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return collector.New(logger, cfg.Fetch, dav, openGoogle), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
