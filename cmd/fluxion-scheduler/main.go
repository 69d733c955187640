// Package main runs the cron scheduler that submits executions for
// published workflows with schedule trigger nodes.
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
	"github.com/fluxion-dev/fluxion/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxion-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Submit executions for cron-scheduled workflows",
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
			&cli.DurationFlag{
				Name:    "reload-interval",
				Usage:   "How often the scheduler re-scans workflows for schedule changes",
				Value:   time.Minute,
				Sources: cli.EnvVars("RELOAD_INTERVAL"),
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

			logger := log.WithModule("fluxion-scheduler")

			logger.InfoContext(ctx, "Initializing Fluxion scheduler")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxion-scheduler", logger)
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

			orch := orchestrator.NewOrchestrator(persistence, eventBus, cmd.NewRegistry(logger), logger)
			sched := scheduler.NewScheduler(persistence, orch, logger)

			if err := sched.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start scheduler", "error", err)

				return err
			}

			defer sched.Stop()

			ticker := time.NewTicker(command.Duration("reload-interval"))
			defer ticker.Stop()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			for {
				select {
				case <-ticker.C:
					if err := sched.Reload(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to reload schedules", "error", err)
					}
				case <-sigChan:
					logger.InfoContext(ctx, "Shutting down scheduler...")

					return nil
				}
			}
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
