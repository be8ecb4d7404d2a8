package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pyop-labs/ticketing-backend/config"
	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	cache "github.com/pyop-labs/ticketing-backend/internal/database/redis"
	"github.com/pyop-labs/ticketing-backend/internal/service"
	"github.com/pyop-labs/ticketing-backend/internal/transport"
	"github.com/pyop-labs/ticketing-backend/internal/worker"
	"github.com/pyop-labs/ticketing-backend/pkg/payment"
	"github.com/pyop-labs/ticketing-backend/pkg/postgres"
	"github.com/pyop-labs/ticketing-backend/pkg/queue"
	"github.com/pyop-labs/ticketing-backend/pkg/redis"
	"github.com/pyop-labs/ticketing-backend/pkg/telegram"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	// Initialize Redis cache
	redisClient := redis.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()
	eventCache := cache.NewEventCache(redisClient, cfg.App.CacheTTL)

	// Initialize Telegram bot
	var telegramBot *telegram.Bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramBot = telegram.NewBot(cfg.Telegram.BotToken)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot not configured, notifications disabled")
	}

	// Initialize payment signature verifier
	var verifier *payment.Verifier
	if cfg.Payment.Enabled && cfg.Payment.Secret != "" {
		verifier = payment.NewVerifier(cfg.Payment.Secret)
		logrus.Info("Payment signature verification enabled")
	} else {
		logrus.Warn("Payment secret not provided, signature verification disabled")
	}

	// Initialize task queue
	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	if cfg.Queue.Enabled {
		queueConfig := queue.DefaultRedisQueueConfig()
		queueConfig.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		queueConfig.Password = cfg.Redis.Password
		queueConfig.DB = cfg.Redis.DB
		queueConfig.MaxRetries = cfg.Queue.MaxRetries
		queueConfig.BaseDelay = cfg.Queue.BaseDelay

		retryManager := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay)

		redisQueue, err = queue.NewRedisQueue(queueConfig, retryManager, nil)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
		} else {
			logrus.Info("Redis queue initialized")
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Initialize services
	orderService := service.NewOrderService(orderRepo, eventRepo, userRepo, verifier, eventCache, taskPublisher)
	eventService := service.NewEventService(eventRepo, orderRepo, userRepo, categoryRepo, eventCache, cfg.App.EventRetention)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start queue consumer if the queue is available
	if redisQueue != nil {
		var bot queue.TelegramBot
		if telegramBot != nil {
			bot = telegramBot
		}
		taskHandler := queue.NewTaskHandler(orderService, eventService, bot, cfg.Telegram.ChatID)

		go func() {
			if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")
	}

	// Initialize cleanup worker
	cleanupWorker := worker.NewEventCleanupWorker(eventService, taskPublisher, cfg.Worker.PurgeInterval)
	go cleanupWorker.Start(ctx)
	logrus.Info("Cleanup worker started")

	// Initialize handlers
	eventHandler := transport.NewEventHandler(eventService)
	orderHandler := transport.NewOrderHandler(orderService)
	userHandler := transport.NewUserHandler(userService)
	categoryHandler := transport.NewCategoryHandler(categoryService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(eventHandler, orderHandler, userHandler, categoryHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutdown: %s", err.Error())
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
