package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/jobdeck/automata/pkg/cmd"
	"github.com/jobdeck/automata/pkg/log"
	"github.com/jobdeck/automata/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "automata-sweeper",
		EnableShellCompletion: true,
		Usage:                 "Resume delayed executions and requeue stale pending runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing action plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for sweep runs",
				Value:   "@every 30s",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "stale-after",
				Usage:   "Age after which a pending execution without a resume point is requeued",
				Value:   workflow.DefaultStaleAfter,
				Sources: cli.EnvVars("STALE_AFTER"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json, pretty)",
				Value:   "json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := "sweeper-" + uuid.New().String()[:8]
			logger := log.WithModule("automata-sweeper").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing sweeper")

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), "automata-sweeper", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			engine := workflow.NewEngine(persistence, registry, eventBus, logger, workerID)
			sweeper := workflow.NewSweeper(persistence, engine, logger, command.Duration("stale-after"))

			err := sweeper.Start(ctx, command.String("schedule"))
			if err != nil {
				return err
			}

			<-ctx.Done()
			sweeper.Stop()

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
