package notificationgateway

import (
	"context"
	"net/http"
	"time"

	"order-notifier/internal/general/config"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/general/postgres"
	"order-notifier/internal/general/rabbitmq"
	"order-notifier/internal/general/server"
	"order-notifier/internal/general/websocket"
	"order-notifier/internal/software/gateway/handler"
	"order-notifier/internal/software/gateway/service"

	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context, prefetch, maxConcurrent int) error {
	logger := logger.New("notification-gateway")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("./config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, nil)
		return err
	}

	// set up a Postgres connection pool and make sure the schema exists
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the push connections and the session service
	ws := websocket.NewWebSocket(logger, jwtManager)
	uow := postgres.NewUnitOfWork(pool)
	sessions := postgres.NewSessionRepo(pool)
	svc := service.NewGatewayService(logger, uow, sessions, ws, rmq, prefetch)

	mux := http.NewServeMux()
	httpHandler := handler.NewGatewayHTTPHandler(svc, logger, jwtManager, ws.ConnectDriver, ws)
	if cfg.JWT.DevTokens {
		httpHandler.EnableDevTokens()
		logger.Info(ctx, "dev_tokens_enabled", "POST /tokens is mounted; do not enable in production", nil)
	}
	httpHandler.RegisterRoutes(mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.RunPushConsumer(gctx) })
	g.Go(func() error {
		return server.Serve(gctx, logger, cfg.Services.NotificationGatewayPort, maxConcurrent, mux)
	})

	err = g.Wait()
	logger.Info(context.WithoutCancel(ctx), "service_stopped", "Notification gateway stopped", nil)
	return err
}
