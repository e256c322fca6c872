// Package app wires configuration into a running chat session and owns the
// lifecycle of its dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"gochat/config"
	"gochat/internal/cache"
	"gochat/internal/core"
	"gochat/internal/engine"
	"gochat/internal/history"
	"gochat/internal/httpclient"
	"gochat/internal/models"
	"gochat/internal/observability"
	"gochat/internal/providers"
	"gochat/internal/providers/openai"
	"gochat/internal/server"
	"gochat/internal/session"
	"gochat/internal/speech"
	"gochat/internal/status"
	"gochat/internal/storage"
)

// App holds a session engine and everything behind it.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	history *history.Result
	cache   cache.Cache
	engine  *engine.Engine
	catalog *models.Catalog
	speaker speech.Speaker
	latest  *status.Latest
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the options for creating an App.
type Config struct {
	// AppConfig is the validated application configuration.
	AppConfig *config.Config

	// Factory constructs providers. Defaults to one with the OpenAI provider registered.
	Factory *providers.ProviderFactory

	// Status receives updates in addition to the logger, e.g. a terminal renderer.
	Status engine.StatusReporter

	Logger *slog.Logger
}

// NewFactory returns a provider factory with the built-in providers registered.
func NewFactory() *providers.ProviderFactory {
	f := providers.NewProviderFactory()
	f.Add(openai.Registration)
	return f
}

// New creates an App. The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = NewFactory()
	}
	if appCfg.Metrics.Enabled {
		factory.SetHooks(observability.NewPrometheusHooks())
	}

	a := &App{config: appCfg, logger: logger, latest: &status.Latest{}}

	provider := providers.NewLazy(factory, providerConfig(appCfg))

	historyResult, err := history.New(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	a.history = historyResult

	store := session.New(a.loadRecent(ctx)...)

	endpoint := BaseURL(appCfg)
	modelCache, err := cache.New(ctx, appCfg.Cache, endpoint)
	if err != nil {
		logger.Warn("model cache unavailable, listing models uncached", "type", appCfg.Cache.Type, "error", err)
		modelCache = nil
	}
	a.cache = modelCache
	a.catalog = models.NewCatalog(provider, a.cache, endpoint, cache.TTL(appCfg.Cache))

	a.speaker = newSpeaker(appCfg.Speech)

	reporters := status.Multi{a.latest, status.NewLogger(logger)}
	if cfg.Status != nil {
		reporters = append(reporters, cfg.Status)
	}

	engineCfg := engine.Config{
		Provider:     provider,
		ProviderName: appCfg.Provider.Type,
		Store:        store,
		History:      historyResult.Recorder,
		Speaker:      a.speaker,
		Status:       reporters,
		Preferences: engine.Preferences{
			Stream:        appCfg.Chat.Stream,
			HistoryPaused: appCfg.Chat.HistoryPaused,
			AutoSpeak:     appCfg.Chat.AutoSpeak,
		},
		Logger: logger,
	}
	if appCfg.Metrics.Enabled {
		engineCfg.Observer = observability.AskMetrics{}
	}
	a.engine, err = engine.New(engineCfg)
	if err != nil {
		closeErr := a.closeResources()
		return nil, errors.Join(fmt.Errorf("failed to create engine: %w", err), closeErr)
	}

	var ping server.Pinger
	if historyResult.Storage != nil {
		ping = historyResult.Storage
	}
	a.server = server.New(server.Deps{
		Session: a.engine,
		Models:  a.catalog,
		Status:  a.latest,
		Storage: ping,
		Model:   a.Model(),
	}, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		SwaggerEnabled:  appCfg.Server.SwaggerEnabled,
	})

	a.logStartupInfo()
	return a, nil
}

// providerConfig maps application configuration onto the provider factory's input.
func providerConfig(cfg *config.Config) providers.Config {
	pc := providers.Config{
		Type:       cfg.Provider.Type,
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		UseAzure:   cfg.Provider.UseAzure,
		APIVersion: cfg.Provider.APIVersion,
	}
	if cfg.Proxy.Complete() {
		pc.Proxy = httpclient.ProxyConfig{
			Protocol: cfg.Proxy.Protocol,
			Host:     cfg.Proxy.Host,
			Port:     cfg.Proxy.Port,
		}
	}
	return pc
}

// BaseURL returns the completion endpoint base URL in effect.
func BaseURL(cfg *config.Config) string {
	if cfg.Provider.BaseURL != "" {
		return cfg.Provider.BaseURL
	}
	return openai.DefaultBaseURL
}

func newSpeaker(cfg config.SpeechConfig) speech.Speaker {
	if !cfg.Enabled {
		return speech.Noop{}
	}
	name := cfg.Command
	if name == "" {
		name = speech.DefaultCommand()
	}
	return speech.NewCommand(name, cfg.Args...)
}

// loadRecent returns the most recent stored exchanges to seed a new session.
func (a *App) loadRecent(ctx context.Context) []core.Exchange {
	n := a.config.History.LoadOnStart
	if n <= 0 || !a.config.History.Enabled {
		return nil
	}
	recent, err := a.history.Recorder.List(ctx, n)
	if err != nil {
		a.logger.Warn("failed to load history", "error", err)
		return nil
	}
	if len(recent) > 0 {
		a.logger.Info("history loaded", "count", len(recent))
	}
	return recent
}

// Engine returns the session engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Catalog returns the model catalog.
func (a *App) Catalog() *models.Catalog {
	return a.catalog
}

// History returns the history recorder.
func (a *App) History() history.Interface {
	return a.history.Recorder
}

// Storage returns the history storage connection, or nil when history is disabled.
func (a *App) Storage() storage.Storage {
	return a.history.Storage
}

// Status returns the most recent status update holder.
func (a *App) Status() *status.Latest {
	return a.latest
}

// Model returns the configured default model selection.
func (a *App) Model() core.ModelSelection {
	return core.ModelSelection{
		Name:        a.config.Model.Option,
		Temperature: a.config.Model.Temperature,
		Prompt:      a.config.Model.Prompt,
	}
}

// Handler returns the HTTP surface.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	a.logger.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			a.logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown tears components down in dependency order: HTTP server, speech,
// history (flushing queued exchanges), model cache. It is idempotent and
// returns every close failure joined.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.logger.Debug("shutting down")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

func (a *App) closeResources() error {
	var errs []error
	if a.speaker != nil {
		a.speaker.Stop()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history close: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) logStartupInfo() {
	cfg := a.config
	a.logger.Debug("session configured",
		"provider", cfg.Provider.Type,
		"model", cfg.Model.Option,
		"azure", cfg.Provider.UseAzure,
		"proxy", cfg.Proxy.Complete(),
		"stream", cfg.Chat.Stream,
	)
	if cfg.History.Enabled {
		a.logger.Debug("history enabled", "storage", cfg.Storage.Type, "retention_days", cfg.History.RetentionDays)
	} else {
		a.logger.Debug("history disabled")
	}
	a.logger.Debug("model cache configured", "type", cfg.Cache.Type, "ttl_seconds", cfg.Cache.TTL)
	if cfg.Server.SwaggerEnabled {
		a.logger.Info("swagger UI enabled", "path", "/swagger/index.html")
	}
}
