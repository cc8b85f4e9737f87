package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatwire/internal/auth"
	"chatwire/internal/chat"
	"chatwire/internal/config"
	"chatwire/internal/db"
	"chatwire/internal/profile"
	"chatwire/internal/realtime"
	"chatwire/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg.Server.Development())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Platform layer.
	database, err := db.NewDatabase(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer database.Close(context.Background())
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	if err := database.EnsureIndexes(ctx); err != nil {
		return err
	}
	log.Info("indexes ensured")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	defer redisClient.Close()
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	respond := web.NewResponder(log, cfg.Server.Development())

	// Identity boundary.
	verifier := auth.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	authMiddleware := auth.NewMiddleware(verifier)

	// Profile directory.
	profileRepo := profile.NewRepository(database)
	profileService := profile.NewService(profileRepo)
	profileHandler := profile.NewHandler(profileService, respond)

	// Realtime layer.
	presence := realtime.NewPresence()
	hub := realtime.NewHub(redisClient, presence, log)
	hubHandler := realtime.NewHandler(hub, log)

	go hub.Run()
	go hub.SubscribeToRedis(ctx)
	defer hub.Shutdown()

	// Conversation/message core.
	convRepo := chat.NewConversationRepository(database)
	msgRepo := chat.NewMessageRepository(database)
	chatService := chat.NewService(convRepo, msgRepo, profileService, hub, presence, log)
	chatHandler := chat.NewHandler(chatService, respond)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", hubHandler.ServeWs)

		r.Get("/api/users", profileHandler.ListUsers)
		r.Post("/api/users/sync", profileHandler.SyncProfile)

		r.Get("/api/conversations", chatHandler.ListConversations)
		r.Post("/api/conversations", chatHandler.EnsureConversation)
		r.Post("/api/conversations/group", chatHandler.CreateGroup)
		r.Get("/api/conversations/{conversationID}", chatHandler.GetConversationDetail)
		r.Post("/api/conversations/{conversationID}/read", chatHandler.ResetUnread)

		r.Get("/api/messages/{conversationID}", chatHandler.ListMessages)
		r.Post("/api/messages", chatHandler.SendMessage)
		r.Post("/api/messages/{messageID}/seen", chatHandler.MarkSeen)
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
