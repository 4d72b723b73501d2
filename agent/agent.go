package agent

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"watchtrail/config"
	"watchtrail/core/trail"
	"watchtrail/logger"
)

// Agent is the local watch-progress process: it ingests observations
// from content scripts, keeps the local store, and reconciles pending
// changes with the backend on a timer.
type Agent struct {
	cfg      *config.Config
	store    *trail.Store
	queue    *trail.Queue
	session  *trail.Session
	pipeline *trail.Pipeline
	registry *trail.Registry
	sched    *trail.Scheduler

	mu         sync.RWMutex
	backendURL string
}

// New builds an agent from configuration.
func New(cfg *config.Config) (*Agent, error) {
	store, err := trail.NewStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	queue := trail.NewQueue()
	session := trail.NewSession()

	a := &Agent{
		cfg:        cfg,
		store:      store,
		queue:      queue,
		session:    session,
		pipeline:   trail.NewPipeline(store, queue),
		registry:   trail.NewRegistry(),
		backendURL: cfg.BackendURL,
	}
	a.sched = trail.NewScheduler(
		queue,
		session,
		trail.NewClient(cfg.HTTPTimeout),
		a.BackendURL,
		cfg.SyncInterval,
	)
	return a, nil
}

// BackendURL returns the currently configured backend base URL, which
// may change at runtime via the .env watch. Empty means unconfigured.
func (a *Agent) BackendURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backendURL
}

func (a *Agent) setBackendURL(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backendURL != url {
		logger.Info("Backend URL updated", logger.String("backendUrl", url))
		a.backendURL = url
	}
}

// Start runs the agent HTTP server and the sync scheduler until an
// interrupt arrives, then shuts both down gracefully.
func (a *Agent) Start() {
	router := mux.NewRouter()

	// Content scripts call this API cross-origin from page contexts.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/observe", a.ObserveHandler).Methods(http.MethodPost)
	router.HandleFunc("/store", a.StoreHandler).Methods(http.MethodGet)
	router.HandleFunc("/like", a.LikeHandler).Methods(http.MethodPost)
	router.HandleFunc("/resume", a.ResumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/session", a.AttachSessionHandler).Methods(http.MethodPost)
	router.HandleFunc("/session", a.DetachSessionHandler).Methods(http.MethodDelete)
	router.HandleFunc("/status", a.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/context", a.ContextSocketHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         a.cfg.AgentAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.sched.Run(ctx)
	go a.watchConfig(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Agent listening",
			logger.String("addr", a.cfg.AgentAddr),
			logger.String("backendUrl", a.BackendURL()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start agent server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down agent...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Agent forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("Agent stopped")
}

// watchConfig follows the .env file so edits to BACKEND_URL take effect
// on the next tick, the same way the original consulted stored settings
// on every flush.
func (a *Agent) watchConfig(ctx context.Context) {
	if a.cfg.EnvPath == "" {
		return
	}
	if _, err := os.Stat(a.cfg.EnvPath); err != nil {
		logger.Debug("No config file to watch", logger.String("path", a.cfg.EnvPath))
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Config watch unavailable", logger.ErrorField(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(a.cfg.EnvPath); err != nil {
		logger.Warn("Failed to watch config file",
			logger.String("path", a.cfg.EnvPath),
			logger.ErrorField(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			vars, err := godotenv.Read(a.cfg.EnvPath)
			if err != nil {
				logger.Warn("Failed to reload config file", logger.ErrorField(err))
				continue
			}
			a.setBackendURL(vars["BACKEND_URL"])
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watch error", logger.ErrorField(err))
		}
	}
}
