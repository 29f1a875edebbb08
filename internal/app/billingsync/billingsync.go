// Package billingsync собирает воркер синхронизации: разбор событий платёжного
// провайдера, назначение тренера и проверку reCAPTCHA новых регистраций.
package billingsync

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/streadway/amqp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	billingservice "github.com/magabrotheeeer/coaching-platform/internal/services/billing"
	"github.com/magabrotheeeer/coaching-platform/internal/services/recaptcha"
	"github.com/magabrotheeeer/coaching-platform/internal/storage/repository"
)

// App воркер синхронизации и его ресурсы.
type App struct {
	reconciler  *billingservice.Reconciler
	signup      *recaptcha.SignupHandler
	concurrency int
	db          *repository.Storage
	conn        *amqp.Connection
	ch          *amqp.Channel
	grpcServer  *grpc.Server
	health      *health.Server
	listener    net.Listener
	logger      *slog.Logger
}

// New подключает хранилище и брокер и поднимает gRPC health-сервер.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := repository.CheckDatabaseReady(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.ConsumerPrefetch, rabbitmq.BillingTopology())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	verifier := recaptcha.NewClient(cfg.RecaptchaSecret, cfg.RecaptchaURL, cfg.RecaptchaTimeout)

	return &App{
		reconciler:  billingservice.NewReconciler(db, logger),
		signup:      recaptcha.NewSignupHandler(db, verifier, cfg.MinScore, logger),
		concurrency: cfg.ConsumerPrefetch,
		db:          db,
		conn:        conn,
		ch:          ch,
		grpcServer:  grpcServer,
		health:      healthServer,
		listener:    lis,
		logger:      logger,
	}, nil
}

// Run запускает потребителей очередей и health-сервер; работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueBillingEvents, a.concurrency, a.reconciler.HandleMessage); err != nil {
		a.logger.Error("failed to start billing consumer", sl.Err(err))
		a.close()
		return err
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueSignupEvents, a.concurrency, a.signup.HandleMessage); err != nil {
		a.logger.Error("failed to start signup consumer", sl.Err(err))
		a.close()
		return err
	}
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("gRPC health service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		a.logger.Info("billing-sync shutting down gracefully")
		a.health.Shutdown()
		a.grpcServer.GracefulStop()
	case err = <-errCh:
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
