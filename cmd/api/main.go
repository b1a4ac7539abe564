package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/adapter/api/handler"
	apimiddleware "chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/adapter/api/router"
	"chatterbox/internal/adapter/repository"
	domainrepo "chatterbox/internal/domain/repository"
	"chatterbox/internal/domain/service"
	"chatterbox/internal/infrastructure/firebase"
	"chatterbox/internal/infrastructure/memstore"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/internal/infrastructure/storage"
	"chatterbox/internal/infrastructure/websocket"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/config"
	"chatterbox/pkg/logger"
)

type repositories struct {
	mailboxes     domainrepo.MailboxRepository
	presence      domainrepo.PresenceRepository
	reactions     domainrepo.ReactionRepository
	notifications domainrepo.NotificationRepository
	socialGraph   domainrepo.SocialGraphRepository
	blobs         service.BlobStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var firebaseApp *fbapp.App
	if cfg.UsesFirebase() {
		firebaseApp, err = fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, cfg.ClientOptions()...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
	}

	repos, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var verifier firebase.TokenVerifier
	var devIssuer *firebase.DevTokenIssuer
	if cfg.AuthMode == "dev" {
		devIssuer = firebase.NewDevTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
		verifier = devIssuer
		logger.Warn("AUTH_MODE=dev: tokens are self-issued, never use this in production")
	} else {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)
	}

	rateLimiter := ratelimit.NewRateLimiter(cfg.SendRatePerMinute)
	rateLimiter.StartCleanupRoutine(10*time.Minute, ctx.Done())

	presenceUseCase := usecase.NewPresenceUseCase(repos.presence, cfg.PresenceStaleAfter)
	typingDebouncer := usecase.NewTypingDebouncer(presenceUseCase, cfg.TypingDebounce)
	deliveryUseCase := usecase.NewDeliveryUseCase(repos.mailboxes)
	reactionUseCase := usecase.NewReactionUseCase(repos.mailboxes, repos.reactions, rateLimiter)
	notificationUseCase := usecase.NewNotificationUseCase(repos.notifications, repos.socialGraph)
	followUseCase := usecase.NewFollowUseCase(repos.socialGraph, notificationUseCase)
	chatUseCase := usecase.NewChatUseCase(
		repos.mailboxes,
		repos.reactions,
		repos.blobs,
		rateLimiter,
		typingDebouncer,
		presenceUseCase,
		deliveryUseCase,
	)

	wsManager := websocket.NewManager(websocket.Services{
		Chat:          chatUseCase,
		Delivery:      deliveryUseCase,
		Presence:      presenceUseCase,
		Typing:        typingDebouncer,
		Reactions:     reactionUseCase,
		Notifications: notificationUseCase,
	})
	wsManager.Start(ctx)

	handler.Setup(chatUseCase, deliveryUseCase, reactionUseCase, presenceUseCase, typingDebouncer, notificationUseCase, followUseCase)
	handler.SetupHealthHandler(cfg.StoreBackend, wsManager)
	if devIssuer != nil {
		handler.SetupDevTokenHandler(devIssuer)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	httpLimiter := apimiddleware.NewRateLimiter(cfg.HTTPRatePerMinute, time.Minute)
	httpLimiter.StartCleanupRoutine(5*time.Minute, ctx.Done())

	router.Setup(e, authMiddleware, httpLimiter)
	router.SetupDevRouter(e, cfg.AuthMode)
	router.SetupWebSocketRouter(e, handler.NewWebSocketHandler(wsManager), authMiddleware)

	go func() {
		logger.Info("Starting server on port %s (store=%s, auth=%s)", cfg.ServerPort, cfg.StoreBackend, cfg.AuthMode)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
	typingDebouncer.StopAll()
}

// openStore builds the repositories for cfg.StoreBackend. The returned func
// releases the underlying clients.
func openStore(ctx context.Context, cfg *config.Config) (repositories, func()) {
	if cfg.StoreBackend == "memory" {
		store := memstore.New()
		logger.Warn("STORE_BACKEND=memory: state is lost on restart and not shared between instances")
		return repositories{
			mailboxes:     store.Mailboxes(),
			presence:      store.Presence(),
			reactions:     store.Reactions(),
			notifications: store.Notifications(),
			socialGraph:   store.SocialGraph(),
			blobs:         memstore.NewBlobStore(),
		}, func() {}
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, cfg.ClientOptions()...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}

	repos := repositories{
		mailboxes:     repository.NewFirestoreMailboxRepository(firestoreClient),
		presence:      repository.NewFirestorePresenceRepository(firestoreClient),
		reactions:     repository.NewFirestoreReactionRepository(firestoreClient),
		notifications: repository.NewFirestoreNotificationRepository(firestoreClient),
		socialGraph:   repository.NewFirestoreSocialGraphRepository(firestoreClient),
	}

	closers := []func() error{firestoreClient.Close}
	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, cfg.ClientOptions()...)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		repos.blobs = storageClient
		closers = append(closers, storageClient.Close)
	} else {
		logger.Warn("STORAGE_BUCKET is not set: media messages are disabled")
	}

	return repos, func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Warn("Close failed: %v", err)
			}
		}
	}
}
