package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bobby4fischer/pettrack/internal/app"
	"github.com/bobby4fischer/pettrack/internal/auth"
	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/httpapi"
	"github.com/bobby4fischer/pettrack/internal/scheduler"
	"github.com/google/uuid"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	// Text on a terminal, JSON when piped into a collector.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pettrack",
		Short:         "Session-gated task tracker with a virtual pet ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDigestCmd(), newUserCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the live channel, and the digest scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig()
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if cfg.JWTSecret == "" {
				return errors.New("PETTRACK_JWT_SECRET must be set")
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PETTRACK_ADDR)")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides PETTRACK_DB)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	digests, err := scheduler.NewDigestScheduler(cfg.DigestCron, a.Digests, logger)
	if err != nil {
		return err
	}
	digests.Start()
	defer digests.Stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewServer(a, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newDigestCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run one digest aggregation pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig()
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			logger := newLogger()

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sent, err := a.Digests.RunOnce(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			logger.Info("digest_complete", "sent", sent)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides PETTRACK_DB)")
	return cmd
}

func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "User provisioning helpers",
	}
	user.AddCommand(newUserCreateCmd(), newUserTokenCmd())
	return user
}

func newUserCreateCmd() *cobra.Command {
	var email, name string
	var optOut bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print a bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			cfg := config.LoadConfig()
			if cfg.JWTSecret == "" {
				return errors.New("PETTRACK_JWT_SECRET must be set")
			}

			a, err := app.New(cfg, newLogger())
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now().UTC()
			u := &domain.User{
				ID:          uuid.NewString(),
				Email:       email,
				DisplayName: name,
				EmailOptIn:  !optOut,
				Pet:         domain.Pet{Vitality: domain.VitalityMax, LastDecayAt: now},
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := a.Users.Create(cmd.Context(), u); err != nil {
				return err
			}

			token, err := auth.IssueToken(cfg.JWTSecret, u.ID, 30*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("id:    %s\ntoken: %s\n", u.ID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&optOut, "no-digest", false, "opt out of digest email")
	return cmd
}

func newUserTokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a fresh bearer token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			cfg := config.LoadConfig()
			if cfg.JWTSecret == "" {
				return errors.New("PETTRACK_JWT_SECRET must be set")
			}

			a, err := app.New(cfg, newLogger())
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Users.GetByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(cfg.JWTSecret, u.ID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}
