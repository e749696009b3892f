package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/jobdeck/automata/pkg/cmd"
	"github.com/jobdeck/automata/pkg/log"
	"github.com/jobdeck/automata/pkg/sources/queue"
)

func main() {
	command := &cli.Command{
		Name:                  "automata-dispatcher",
		EnableShellCompletion: true,
		Usage:                 "Consume domain events from the trigger queue and dispatch them to workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address of the trigger queue",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				Value:   "0",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list the core product pushes trigger envelopes onto",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("TRIGGER_QUEUE"),
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

			logger := log.WithModule("automata-dispatcher")
			logger.InfoContext(ctx, "Initializing dispatcher")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "automata-dispatcher", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			connection := map[string]string{
				"addr":     command.String("redis-addr"),
				"password": command.String("redis-password"),
				"db":       command.String("redis-db"),
			}

			consumer := queue.NewConsumer(connection, command.String("queue"), eventBus, logger)

			err := consumer.Start(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Dispatcher started, consuming trigger queue")
			<-ctx.Done()

			return consumer.Stop(context.Background())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
