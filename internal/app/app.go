package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/bot"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/broadcast"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/config"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/github"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/logger"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/mapstatus"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/storage"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/storage/boltdb"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app := &App{
		config: cfg,
		logger: logger.New(cfg.LogLevel, cfg.LogFile),
	}

	app.logger.Info("Starting Genesis map bot...")

	if err := app.initStorage(); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initHTTPServer()

	return app, nil
}

// initStorage opens the local bolt store for the user registry and the
// enabled-flag mirror.
func (a *App) initStorage() error {
	if dir := filepath.Dir(a.config.DataPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := boltdb.Open(a.config.DataPath)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}

	a.logger.Info("Local storage ready", zap.String("path", a.config.DataPath))
	a.db = db
	return nil
}

// initBot wires the remote status store, the broadcast engine and the
// Telegram bot together.
func (a *App) initBot() error {
	remote := github.NewClient(
		a.config.GitHubToken,
		a.config.GitHubOwner,
		a.config.GitHubRepo,
		a.config.GitHubBranch,
		a.logger,
	)
	status := mapstatus.NewStore(remote, a.config.MapStatusPath, a.db, a.logger)

	telegramBot, err := bot.NewBot(a.config.TelegramToken, status, a.db, nil, a.config.AdminID, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	// The broadcast engine sends through the same API client the bot uses.
	engine := broadcast.NewEngine(telegramBot.API(), a.db, a.logger)
	telegramBot.SetBroadcaster(engine)

	a.logger.Info("Bot created successfully",
		zap.Int64("admin_id", a.config.AdminID),
		zap.String("status_path", a.config.MapStatusPath),
	)
	a.bot = telegramBot
	return nil
}

// initHTTPServer starts the keep-alive HTTP endpoint used by the hosting
// platform's uptime checks.
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Default port
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Genesis map bot is running")
	})

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.bot.Start(); err != nil {
			a.logger.Fatal("Failed to start bot", zap.Error(err))
		}
	}()

	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown stops accepting updates, waits for in-flight handlers, then
// releases the HTTP server and local storage.
func (a *App) Shutdown() error {
	a.bot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing local storage", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
