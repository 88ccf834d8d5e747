package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apptbook/apptbook/internal/config"
	"github.com/apptbook/apptbook/internal/domain/appointment"
	"github.com/apptbook/apptbook/internal/platform/db"
	"github.com/apptbook/apptbook/internal/platform/middleware"
	"github.com/apptbook/apptbook/internal/platform/seed"
	"github.com/apptbook/apptbook/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "apptbook-server",
		Short: "Appointment book API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newRepository picks the storage backend the config asks for.
func newRepository(ctx context.Context, cfg *config.Config) (appointment.Repository, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return appointment.NewPGRepo(pool), pool.Close, nil
	default:
		repo, err := appointment.NewFileRepo(cfg.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open data file: %w", err)
		}
		return repo, func() {}, nil
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the appointment book API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeRepo()
	logger.Info().Str("storage", cfg.Storage).Msg("storage ready")

	svc := appointment.NewService(repo)

	if cfg.SeedDemo {
		if _, err := seed.Demo(ctx, svc, logger, seed.Options{}); err != nil {
			logger.Fatal().Err(err).Msg("demo seeding failed")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiV1 := e.Group("/api/v1")
	appointment.NewHandler(svc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty collection with demo appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			random, _ := cmd.Flags().GetInt("random")
			rngSeed, _ := cmd.Flags().GetUint64("rng-seed")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			repo, closeRepo, err := newRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			svc := appointment.NewService(repo)
			created, err := seed.Demo(ctx, svc, logger, seed.Options{Random: random, Seed: rngSeed})
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d appointments\n", created)
			return nil
		},
	}
	cmd.Flags().Int("random", 0, "number of randomized appointments on top of the fixed demo set")
	cmd.Flags().Uint64("rng-seed", 0, "seed for reproducible random data (0 = random)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	newMigrator := func(ctx context.Context) (*db.Migrator, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		return db.NewMigrator(pool, migrations.Files), pool.Close, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, closePool, err := newMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			applied, err := m.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migrations\n", applied)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, closePool, err := newMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, st := range statuses {
				state := "pending"
				if st.Applied {
					state = "applied " + st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-30s %s\n", st.Version, st.Name, state)
			}
			return nil
		},
	})

	return cmd
}
