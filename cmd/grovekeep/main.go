// Command grovekeep serves the grovekeep HTTP API and runs maintenance
// tasks against the configured backend.
//
// Usage:
//
//	grovekeep serve [-addr :8080]
//	grovekeep register -email ada@gmail.com [-name Ada] [-id ada]
//	grovekeep seclog
//	grovekeep purge-sessions
//	grovekeep purge-orphans
//	grovekeep delete-user -id <user id>
//
// Settings come from GROVEKEEP_* environment variables, optionally loaded
// from a .env file in the working directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/httpapi"
	"github.com/panyam/grovekeep/metrics"
)

const usage = `usage: grovekeep <command> [flags]

commands:
  serve           run the HTTP API
  register        create an account (password read from the terminal)
  seclog          print the security log as JSON lines
  purge-sessions  drop expired sessions
  purge-orphans   delete user data whose account is gone
  delete-user     remove an account and its data
`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("grovekeep failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return dispatch(ctx, cfg, args, stdout, logger)
}

func dispatch(ctx context.Context, cfg *AppConfig, args []string, stdout io.Writer, logger *slog.Logger) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(ctx, cfg, rest, logger)
	case "register":
		return withAuth(ctx, cfg, logger, nil, func(auth *gk.Auth) error {
			return cmdRegister(ctx, auth, rest, stdout)
		})
	case "seclog":
		return withAuth(ctx, cfg, logger, nil, func(auth *gk.Auth) error {
			return cmdSecLog(ctx, auth, stdout)
		})
	case "purge-sessions":
		return withAuth(ctx, cfg, logger, nil, func(auth *gk.Auth) error {
			n, err := auth.PurgeExpiredSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "removed %d expired sessions\n", n)
			return nil
		})
	case "purge-orphans":
		return withAuth(ctx, cfg, logger, nil, func(auth *gk.Auth) error {
			n, err := auth.PurgeOrphanedData(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "removed %d orphaned data records\n", n)
			return nil
		})
	case "delete-user":
		return withAuth(ctx, cfg, logger, nil, func(auth *gk.Auth) error {
			return cmdDeleteUser(ctx, auth, rest, stdout)
		})
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// withAuth opens the backend, builds an Auth and closes the backend after fn
func withAuth(ctx context.Context, cfg *AppConfig, logger *slog.Logger, extra []gk.Option, fn func(*gk.Auth) error) error {
	backend, closer, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := append([]gk.Option{gk.WithLogger(logger)}, extra...)
	auth, err := gk.New(backend, cfg.Auth, opts...)
	if err != nil {
		return err
	}
	return fn(auth)
}

func cmdServe(ctx context.Context, cfg *AppConfig, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	return withAuth(ctx, cfg, logger, []gk.Option{gk.WithRecorder(recorder)}, func(auth *gk.Auth) error {
		api := httpapi.NewServer(auth, logger)

		router := mux.NewRouter()
		router.Handle("/metrics", metrics.Handler(reg)).Methods(http.MethodGet)
		router.PathPrefix("/").Handler(recorder.InstrumentHandler(api.Handler()))

		srv := &http.Server{
			Addr:              *addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", *addr, "backend", cfg.Backend)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func cmdRegister(ctx context.Context, auth *gk.Auth, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	id := fs.String("id", "", "user identifier (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	password, err := promptNewPassword(stdout)
	if err != nil {
		return err
	}

	userID, err := auth.Register(ctx, gk.RegisterRequest{
		Email:       *email,
		Password:    password,
		DisplayName: *name,
		ID:          *id,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "registered %s\n", userID)
	return nil
}

func cmdSecLog(ctx context.Context, auth *gk.Auth, stdout io.Writer) error {
	enc := json.NewEncoder(stdout)
	for _, ev := range auth.SecurityEvents(ctx) {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func cmdDeleteUser(ctx context.Context, auth *gk.Auth, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)
	id := fs.String("id", "", "user identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	if err := auth.AdminDeleteUser(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %s\n", *id)
	return nil
}
