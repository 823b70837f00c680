package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"fuddly/internal/adapter/api"
	"fuddly/internal/adapter/api/handler"
	apimiddleware "fuddly/internal/adapter/api/middleware"
	"fuddly/internal/adapter/api/router"
	"fuddly/internal/adapter/catalog"
	"fuddly/internal/adapter/repository"
	domainrepo "fuddly/internal/domain/repository"
	"fuddly/internal/infrastructure/bus"
	"fuddly/internal/infrastructure/events"
	"fuddly/internal/infrastructure/firebase"
	"fuddly/internal/infrastructure/ratelimit"
	"fuddly/internal/infrastructure/websocket"
	"fuddly/internal/usecase"
	"fuddly/pkg/config"
	"fuddly/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Environment); err != nil {
		logger.Error("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt, err := credentials(cfg)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase: %v", err)
		os.Exit(1)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Error("Failed to initialize Firebase Auth: %v", err)
		os.Exit(1)
	}
	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)

	var (
		convRepo domainrepo.ConversationRepository
		msgRepo  domainrepo.MessageRepository
		userRepo domainrepo.UserRepository = firebaseAuthClient

		productRepo domainrepo.ProductRepository = catalog.NewHTTPProductRepository(cfg.ProductAPIBaseURL, nil)
	)
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		convRepo = repository.NewMemoryConversationRepository()
		msgRepo = repository.NewMemoryMessageRepository()
	default:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			logger.Error("Failed to create Firestore client: %v", err)
			os.Exit(1)
		}
		defer firestoreClient.Close()

		convRepo = repository.NewFirestoreConversationRepository(firestoreClient)
		msgRepo = repository.NewFirestoreMessageRepository(firestoreClient)
		userRepo = repository.NewFirestoreUserRepository(firestoreClient, firebaseAuthClient)
		if cfg.ProductSource == "firestore" {
			productRepo = repository.NewFirestoreProductRepository(firestoreClient)
		}
	}

	conversationUseCase := usecase.NewConversationUseCase(convRepo, msgRepo, productRepo, userRepo)
	messageUseCase := usecase.NewMessageUseCase(convRepo, msgRepo)

	deliveryBus := bus.NewLocalBus()
	if cfg.RedisAddr != "" {
		deliveryBus, err = bus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			logger.Error("Failed to connect delivery bus: %v", err)
			os.Exit(1)
		}
		logger.Info("Delivery bus: redis %s channel %s", cfg.RedisAddr, cfg.RedisChannel)
	}
	defer deliveryBus.Close()

	publisher := events.NewNoopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Error("Failed to create message event publisher: %v", err)
			os.Exit(1)
		}
		logger.Info("Message events: kafka topic %s", cfg.KafkaTopic)
	}
	defer publisher.Close()

	sendLimiter := ratelimit.NewRateLimiter(cfg.SendRatePerMinute, cfg.SendRateBurst)
	sendLimiter.StartCleanupRoutine(ctx)
	restLimiter := ratelimit.NewRateLimiter(cfg.RestRatePerMinute, cfg.RestRatePerMinute/10+1)
	restLimiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager(messageUseCase, conversationUseCase, websocket.Options{
		Bus:          deliveryBus,
		Publisher:    publisher,
		Limiter:      sendLimiter,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err := wsManager.Start(ctx); err != nil {
		logger.Error("Failed to start delivery bus subscription: %v", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuthClient)

	router.Setup(e, router.Handlers{
		Conversation: handler.NewConversationHandler(conversationUseCase, messageUseCase),
		WebSocket:    handler.NewWebSocketHandler(ctx, wsManager, firebaseAuthClient, cfg.AllowedOrigins),
		Health:       handler.NewHealthHandler(),
	}, authMiddleware, apimiddleware.RateLimit(restLimiter))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on port %s (store: %s)", cfg.ServerPort, cfg.StoreDriver)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		wsManager.Shutdown()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func credentials(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)), nil
	}

	path := cfg.FirebaseServiceAccountPath
	if path == "" {
		path = "./firebase-service-account.json"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New("service account file does not exist: " + path)
	}

	logger.Info("Using Firebase service account from file: %s", path)
	return option.WithCredentialsFile(path), nil
}
