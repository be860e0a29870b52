package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-leave/internal/bootstrap"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/messaging/kafka/producer"
	"go-leave/internal/shared/clock"
	"go-leave/internal/shared/connection"
	"go-leave/internal/sla"

	"go.uber.org/zap"
)

// RunWorker hosts the background loops: the outbox producer that drains
// pending events to kafka and the SLA sweeper that escalates overdue
// requests.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	rdb, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	defer rdb.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	leaveService, err := buildLeaveService(sqlDB, gormDB, rdb)
	if err != nil {
		return err
	}
	sweeper := sla.NewSweeper(leave.NewRepository(gormDB, sqlDB), leaveService, clock.System())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	go runSLASweeps(ctx, sweeper, bootstrap.NewStdoutAuditLogger(), logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

func runSLASweeps(ctx context.Context, sweeper *sla.Sweeper, audit bootstrap.AuditLogger, logger *zap.Logger) {
	interval := sweepInterval()
	logger.Info("sla sweeper started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sla sweeper stopped")
			return
		case <-ticker.C:
			report := sweeper.RunOnce(ctx)
			if report.Found == 0 {
				continue
			}
			audit.Log(ctx, bootstrap.AuditLog{
				Action:  "SLA_SWEEP",
				Message: "overdue leave requests escalated",
				Meta: map[string]any{
					"found":     report.Found,
					"escalated": report.Escalated,
					"skipped":   report.Skipped,
					"errors":    report.Errors,
				},
			})
		}
	}
}

func sweepInterval() time.Duration {
	raw := os.Getenv("SLA_SWEEP_INTERVAL")
	if raw == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
