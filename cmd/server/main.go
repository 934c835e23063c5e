package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/promptopia/backend/internal/auth"
	"github.com/ayush/promptopia/backend/internal/config"
	"github.com/ayush/promptopia/backend/internal/middleware"
	"github.com/ayush/promptopia/backend/internal/prompt"
	"github.com/ayush/promptopia/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	promptStore := store.NewPromptStore(pgPool)
	if err := promptStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	userStore := store.NewUserStore(mongoClient.Database(cfg.MongoDB))
	if err := userStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	states := store.NewStateStore(rdb)

	// ── MinIO (optional avatar storage) ──────────────────────
	var avatars auth.AvatarUploader
	if cfg.MinioEndpoint != "" {
		avatarStore, err := store.NewAvatarStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("minio connect: %v", err)
		}
		avatars = avatarStore
	}

	// ── Session strategy ─────────────────────────────────────
	tokens, err := auth.NewStrategy(cfg.SessionStrategy, cfg.SessionSecret)
	if err != nil {
		log.Fatalf("session strategy: %v", err)
	}

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(userStore, promptStore, avatars, tokens, cfg.Production())
	googleHandler := auth.NewGoogleHandler(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL,
		cfg.BaseURL, states, userStore, tokens, cfg.Production(),
	)
	promptHandler := prompt.NewHandler(promptStore, userStore)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
		r.Post("/logout", authHandler.Logout)
		r.Get("/google", googleHandler.Login)
		r.Get("/google/callback", googleHandler.Callback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Get("/me", authHandler.Me)
			r.Post("/profile/image", authHandler.UpdateProfileImage)
			r.Get("/dashboard/stats", authHandler.DashboardStats)
		})
	})

	r.Route("/api/prompt", func(r chi.Router) {
		r.Get("/", promptHandler.List)
		r.Get("/{id}", promptHandler.Get)
		r.With(middleware.OptionalAuth(tokens)).Get("/{id}/bookmark", promptHandler.CheckBookmark)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Post("/", promptHandler.Create)
			r.Get("/saved", promptHandler.Saved)
			r.Patch("/{id}", promptHandler.Update)
			r.Delete("/{id}", promptHandler.Delete)
			r.Post("/{id}/bookmark", promptHandler.ToggleBookmark)
		})
	})

	r.Get("/api/users/{id}/posts", promptHandler.UserPosts)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Printf("Backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
