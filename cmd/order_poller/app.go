package orderpoller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/general/config"
	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/general/postgres"
	"order-notifier/internal/general/rabbitmq"
	"order-notifier/internal/general/server"
	"order-notifier/internal/general/supabase"
	"order-notifier/internal/general/workqueue"
	"order-notifier/internal/software/orderwatch/handler"
	"order-notifier/internal/software/orderwatch/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context, prefetch, maxConcurrent int) error {
	// set up a new logger for the order poller with a static request ID for startup logs
	logger := logger.New("order-poller")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile("./config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, nil)
		return err
	}
	if strings.TrimSpace(cfg.Poller.Namespace) == "" {
		err := errors.New("poller.namespace is required")
		logger.Error(ctx, "config_invalid", "Poller namespace is not configured", err, nil)
		return err
	}
	if prefetch <= 0 {
		prefetch = cfg.Poller.Prefetch
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

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	pub := rabbitmq.NewMQPublisher(rmq)
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	formatter, err := notification.NewFormatter(cfg.Backend.Language, cfg.Backend.Currency)
	if err != nil {
		logger.Error(ctx, "formatter_init_failed", "Failed to build notification formatter", err,
			map[string]any{"language": cfg.Backend.Language, "currency": cfg.Backend.Currency})
		return err
	}

	// detection pipeline: session store -> backend -> notification fanout
	sessions := postgres.NewSessionRepo(pool)
	orders := supabase.NewClient(cfg.Backend.Timeout, logger)
	sink := service.NewMQSink(pub, logger)
	detector := service.NewDetector(logger, sessions, orders, sink, formatter)

	// task scheduling through the broker
	tasks := workqueue.New(pub, logger)
	defer tasks.Stop()

	scheduler := service.NewScheduler(logger, tasks, cfg.Poller.Namespace, cfg.Poller.BurstDelays, cfg.Poller.RecurringEvery)
	worker := service.NewWorker(logger, detector, tasks, service.RetryPolicy{
		Initial:     cfg.Poller.RetryInitial,
		Max:         cfg.Poller.RetryMax,
		MaxAttempts: cfg.Poller.RetryMaxAttempt,
	})

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewPollerHTTPHandler(scheduler, logger, jwtManager,
		handler.HealthCheck{Name: "database", Check: pool.Ping},
		handler.HealthCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if !rmq.Ready() {
				return errors.New("rabbitmq not connected")
			}
			return nil
		}},
	)
	httpHandler.RegisterRoutes(mux)

	g, gctx := errgroup.WithContext(ctx)

	// poll worker
	g.Go(func() error {
		return rmq.ConsumeForever(gctx, contracts.QueuePollTasks, contracts.ProducerOrderPoller, prefetch,
			func(ctx context.Context, d amqp.Delivery) error {
				return worker.Handle(ctx, d.Body)
			})
	})

	// an unreachable broker at this point is not fatal: the recurring schedule is
	// registered regardless and manual polls stay available
	if err := scheduler.Start(gctx); err != nil {
		logger.Error(ctx, "poll_schedule_partial", "Some startup polls could not be requested", err,
			map[string]any{"namespace": cfg.Poller.Namespace})
	}

	g.Go(func() error {
		return server.Serve(gctx, logger, cfg.Services.OrderPollerPort, maxConcurrent, mux)
	})

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Order poller started for namespace %s", cfg.Poller.Namespace),
		map[string]any{"namespace": cfg.Poller.Namespace, "prefetch": prefetch, "recurring_every": cfg.Poller.RecurringEvery.String()},
	)

	err = g.Wait()
	logger.Info(context.WithoutCancel(ctx), "service_stopped", "Order poller stopped", nil)
	return err
}
