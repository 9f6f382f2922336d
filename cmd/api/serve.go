package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/melih/requirement-validator/internal/adapters/events"
	httpadapter "github.com/melih/requirement-validator/internal/adapters/http"
	"github.com/melih/requirement-validator/internal/adapters/nlp"
	"github.com/melih/requirement-validator/internal/adapters/storage"
	"github.com/melih/requirement-validator/internal/config"
	"github.com/melih/requirement-validator/internal/core/recipe"
	"github.com/melih/requirement-validator/internal/core/validator"
	"github.com/melih/requirement-validator/internal/launcher"
	"github.com/melih/requirement-validator/internal/logging"
)

func newServeCmd() *cobra.Command {
	var (
		app  string
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an application locator (default main:app) over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("app") {
				cfg.App = app
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cleanup, err := logging.Init(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&app, "app", recipe.DefaultLocator, "application locator (module:attribute)")
	cmd.Flags().StringVar(&host, "host", launcher.DefaultHost, "bind host")
	cmd.Flags().IntVar(&port, "port", launcher.DefaultPort, "bind port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.Get()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	reg := launcher.NewRegistry()
	err := reg.Register(recipe.DefaultLocator, func() (*fiber.App, error) {
		deps, closeDeps, err := buildDeps(cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, closeDeps)
		return httpadapter.NewApp(deps), nil
	})
	if err != nil {
		return err
	}

	app, err := reg.Resolve(cfg.App)
	if err != nil {
		return err
	}

	srv := &launcher.Server{
		App:             app,
		Host:            cfg.Host,
		Port:            cfg.Port,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Log:             *log,
	}
	log.Info().Str("app", cfg.App).Str("addr", srv.Addr()).Msg("starting server")
	return srv.Serve(ctx)
}

// buildDeps wires the validator, history store and event stream from configuration.
func buildDeps(cfg *config.Config) (httpadapter.Deps, func(), error) {
	log := logging.Get()
	deps := httpadapter.Deps{Log: *log}

	if cfg.NLPEnabled {
		deps.Validator = validator.New(nlp.NewTagger())
	} else {
		log.Warn().Msg("nlp disabled; specificity check skipped")
		deps.Validator = validator.New(nil)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.StorageEnabled {
		store, err := storage.NewBadgerStore(cfg.StoragePath)
		if err != nil {
			return deps, nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		deps.Store = store
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.NATSURL, cfg.NATSSubject, *log)
		if err != nil {
			closeAll()
			return deps, nil, err
		}
		closers = append(closers, pub.Close)
		deps.Events = pub
	}

	return deps, closeAll, nil
}
