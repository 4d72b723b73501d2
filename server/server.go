package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"watchtrail/cache"
	"watchtrail/config"
	"watchtrail/core/auth"
	"watchtrail/db"
	"watchtrail/logger"
	"watchtrail/model"
	"watchtrail/repository"
)

// Start initializes and starts the backend HTTP server.
func Start() {
	cfg := config.Load()
	auth.Configure(cfg.JWTSecret, cfg.TokenTTL)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()
	logger.Info("Successfully connected to Redis")

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if err := db.AutoMigrateModels(&model.ProgressRecord{}); err != nil {
		logger.Fatal("Failed to migrate progress records", logger.ErrorField(err))
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	progressRepo := repository.NewGormProgressRepository(db.GormDB)
	apiHandler := NewAPIHandler(userRepo, progressRepo, cfg)

	router := mux.NewRouter()

	// CORS: the extension calls these endpoints from browser contexts.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/mocklogin", apiHandler.MockLoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// Sync + data endpoints
	router.HandleFunc("/sync", apiHandler.AuthMiddleware(apiHandler.SyncHandler)).Methods(http.MethodPost)
	router.HandleFunc("/user/{id}/data", apiHandler.UserDataHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
