package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/fluxion-dev/fluxion/pkg/cmd"
	"github.com/fluxion-dev/fluxion/pkg/log"
	"github.com/fluxion-dev/fluxion/pkg/orchestrator"
	"github.com/fluxion-dev/fluxion/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxion-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker to execute workflow graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed execution lock (in-process lock when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "node-timeout",
				Usage:   "Per-node execution time budget",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("NODE_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing via OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("fluxion-worker")

			logger.InfoContext(ctx, "Initializing Fluxion worker")

			opts := []orchestrator.WorkerOption{
				orchestrator.WithNodeTimeout(command.Duration("node-timeout")),
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "fluxion-worker")
				if err != nil {
					return err
				}

				opts = append(opts, orchestrator.WithTracer(tracer))
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxion-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			worker := orchestrator.NewWorker(
				persistence,
				eventBus,
				cmd.NewRegistry(logger),
				cmd.NewLocker(command.String("redis-url")),
				logger,
				opts...,
			)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			logger.InfoContext(ctx, "Worker started", "worker_id", worker.ID())

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down worker...")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
