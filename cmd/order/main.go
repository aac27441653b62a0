package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/gateway"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/account"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/cart"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/catalog"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/discovery"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/grpc"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/lock"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/logging"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/order"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/payment"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const probeInterval = 15 * time.Second

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting order service",
		zap.String("name", cfg.Server.Name),
		zap.Int("http_port", cfg.HTTP.Port))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(&cfg.Database)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}
	store := repository.NewStore(db)
	defer store.Close()

	checks := map[string]grpc.Check{"database": store.Ping}

	var (
		cache  order.OrderCache
		locker lock.Locker = lock.NewLocalLocker()
	)
	if cfg.Redis.Enabled {
		rdb := repository.NewRedisRepository(&cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
		}
		cache = rdb
		locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, logger)
		checks["redis"] = rdb.Ping
	}

	var (
		auditStore order.AuditStore
		recorder   notification.Recorder
	)
	if cfg.MongoDB.Enabled {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = mongoRepo.Close(context.Background()) }()
		auditStore = mongoRepo
		recorder = mongoRepo
		checks["mongodb"] = mongoRepo.Ping
	}

	senders := make([]notification.Sender, 0, len(cfg.Notification.Channels))
	for _, ch := range cfg.Notification.Channels {
		switch ch {
		case "log":
			senders = append(senders, notification.NewLogSender(logger))
		case "email":
			senders = append(senders, notification.NewEmailSender(cfg.Mail))
		case "kafka":
			writer := notification.NewKafkaWriter(cfg.Kafka)
			defer writer.Close()
			senders = append(senders, notification.NewKafkaSender(writer))
		}
	}
	dispatcher, err := notification.NewDispatcher(senders, notification.Options{
		Retry: notification.RetryPolicy{
			MaxAttempts:  cfg.Notification.MaxAttempts,
			InitialDelay: cfg.Notification.InitialDelay,
			MaxDelay:     cfg.Notification.MaxDelay,
		},
		SendTimeout: cfg.Notification.SendTimeout,
		Recorder:    recorder,
	}, logger)
	if err != nil {
		return err
	}
	// Runs before the kafka writer closes.
	defer dispatcher.Stop()

	composer, err := notification.NewComposer(cfg.Payment.LinkBase, cfg.Notification.FrontendURL)
	if err != nil {
		return err
	}

	stripeGateway := payment.NewStripeGateway(cfg.Payment.StripeSecretKey, nil, cfg.Payment.Timeout, logger)
	auditor := order.NewAuditor(auditStore, cfg.Server.Name, logger)
	// Runs before the mongo client disconnects.
	defer auditor.Wait()
	lookup := catalog.NewStoreLookup(store, cfg.Catalog.Timeout)

	health := grpc.NewHealthServer(cfg, checks, logger)

	gw := gateway.NewGateway(cfg, logger, gateway.Services{
		Carts:       cart.NewService(store, lookup, locker, logger),
		Builder:     order.NewBuilder(store, locker, composer, dispatcher, auditor, logger),
		Coordinator: order.NewCoordinator(store, cache, stripeGateway, cfg.Payment.Currency, composer, dispatcher, auditor, logger),
		Accounts:    account.NewService(store, composer, dispatcher, logger),
		Health:      health,
	})
	gw.SetupRoutes()
	srv := gw.Server()

	// Connect to etcd for service discovery
	if cfg.Etcd.Enabled {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			return err
		}
		defer sd.Close()

		instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.HTTP.Port}
		if err := sd.Register(ctx, instance); err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sd.Deregister(dctx, instance); err != nil {
				logger.Error("Failed to deregister service", zap.Error(err))
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.GRPC.Enabled {
		g.Go(health.Start)
	}
	g.Go(func() error {
		health.Run(gctx, probeInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		health.Stop()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
