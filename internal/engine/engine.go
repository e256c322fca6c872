// Package engine runs question/answer exchanges against a chat completion
// provider and keeps the session store current while answers arrive.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gochat/internal/classify"
	"gochat/internal/compose"
	"gochat/internal/core"
	"gochat/internal/llmclient"
	"gochat/internal/session"
	"gochat/internal/status"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Request modes, used in logs and metrics.
const (
	ModeStream   = "stream"
	ModeBuffered = "buffered"
)

// OutcomeSuccess is reported to the Observer for a completed ask. Failed asks
// report their classify.Kind.
const OutcomeSuccess = "success"

// HistorySink persists finalized exchanges.
type HistorySink interface {
	Add(ctx context.Context, ex core.Exchange) error
}

// Speaker plays answers aloud.
type Speaker interface {
	Stop()
	Speak(text string)
}

// StatusReporter receives user-facing progress and failure notifications.
type StatusReporter interface {
	Report(u status.Update)
}

// Observer is notified when asks start and finish.
type Observer interface {
	AskStarted(mode string)
	AskFinished(mode, outcome string, duration time.Duration)
}

// Preferences are the session-wide switches read at the start of every ask.
type Preferences struct {
	Stream        bool `json:"stream" yaml:"stream"`
	HistoryPaused bool `json:"history_paused" yaml:"history_paused"`
	AutoSpeak     bool `json:"auto_speak" yaml:"auto_speak"`
}

// Config wires an Engine. Provider and Store are required.
type Config struct {
	Provider     core.Provider
	ProviderName string
	Store        *session.Store
	History      HistorySink
	Speaker      Speaker
	Status       StatusReporter
	Observer     Observer
	Preferences  Preferences
	Logger       *slog.Logger
}

// Engine is safe for concurrent use. Concurrent asks each own their exchange;
// snapshots are keyed by exchange ID and loading is counted.
type Engine struct {
	provider     core.Provider
	providerName string
	store        *session.Store
	history      HistorySink
	speaker      Speaker
	status       StatusReporter
	observer     Observer
	logger       *slog.Logger

	mu    sync.RWMutex
	prefs Preferences
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Provider == nil {
		return nil, errors.New("engine: provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reporter := cfg.Status
	if reporter == nil {
		reporter = status.NewLogger(logger)
	}
	name := cfg.ProviderName
	if name == "" {
		name = "openai"
	}
	return &Engine{
		provider:     cfg.Provider,
		providerName: name,
		store:        cfg.Store,
		history:      cfg.History,
		speaker:      cfg.Speaker,
		status:       reporter,
		observer:     cfg.Observer,
		logger:       logger,
		prefs:        cfg.Preferences,
	}, nil
}

// Store returns the session the engine writes to.
func (e *Engine) Store() *session.Store {
	return e.store
}

// Provider returns the completion provider.
func (e *Engine) Provider() core.Provider {
	return e.provider
}

// Preferences returns the current session preferences.
func (e *Engine) Preferences() Preferences {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.prefs
}

// SetPreferences replaces the session preferences. Asks already running keep
// the preferences they started with.
func (e *Engine) SetPreferences(p Preferences) {
	e.mu.Lock()
	e.prefs = p
	e.mu.Unlock()
}

// Outcome is the result of one ask. Failure is nil when the answer completed.
type Outcome struct {
	Exchange core.Exchange
	Failure  *classify.Result
}

// Ask appends a new exchange for question, requests the answer and stores it.
// Dispatch failures are reported through the status channel and never
// returned; the exchange stays in the session with whatever answer text
// arrived. The only error is ErrEmptyQuestion.
func (e *Engine) Ask(ctx context.Context, question string, model core.ModelSelection) (core.Exchange, error) {
	out, err := e.AskOutcome(ctx, question, model)
	return out.Exchange, err
}

// AskOutcome is Ask, also returning the classified failure of this exchange.
func (e *Engine) AskOutcome(ctx context.Context, question string, model core.ModelSelection) (Outcome, error) {
	if strings.TrimSpace(question) == "" {
		return Outcome{}, ErrEmptyQuestion
	}
	prefs := e.Preferences()
	mode := ModeBuffered
	if prefs.Stream {
		mode = ModeStream
	}

	ex := core.NewExchange(question)
	e.store.Append(ex)
	e.store.BeginLoading()
	defer e.store.EndLoading()
	e.status.Report(status.Pending())

	e.store.Select(ex.ID)

	req := &core.ChatRequest{
		Model:       model.Name,
		Temperature: model.ParseTemperature(),
		Messages:    compose.Messages(compose.Before(e.store.Exchanges(), ex.ID), question, model.Prompt),
	}

	start := time.Now()
	if e.observer != nil {
		e.observer.AskStarted(mode)
	}

	var err error
	if prefs.Stream {
		ex, err = e.stream(ctx, req, ex)
	} else {
		ex, err = e.buffered(ctx, req, ex, prefs)
	}
	duration := time.Since(start)

	if err != nil {
		result := e.fail(ex, err)
		e.logger.Warn("ask failed",
			"exchange_id", ex.ID,
			"model", model.Name,
			"mode", mode,
			"kind", result.Kind,
			"duration", duration,
			"error", err,
		)
		if e.observer != nil {
			e.observer.AskFinished(mode, string(result.Kind), duration)
		}
		return Outcome{Exchange: ex, Failure: &result}, nil
	}

	e.status.Report(status.Done())
	if !prefs.HistoryPaused {
		e.record(ctx, ex)
	}

	e.logger.Info("ask completed",
		"exchange_id", ex.ID,
		"model", model.Name,
		"mode", mode,
		"answer_len", len(ex.Answer),
		"duration", duration,
	)
	if e.observer != nil {
		e.observer.AskFinished(mode, OutcomeSuccess, duration)
	}
	return Outcome{Exchange: ex}, nil
}

// stream consumes SSE fragments, publishing a snapshot per non-empty
// fragment. On error the partial exchange is returned with the error.
func (e *Engine) stream(ctx context.Context, req *core.ChatRequest, ex core.Exchange) (core.Exchange, error) {
	body, err := e.provider.StreamChatCompletion(ctx, req)
	if err != nil {
		return ex, err
	}
	reader := llmclient.NewStreamReader(body, e.providerName)
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			e.logger.Debug("failed to close stream", "exchange_id", ex.ID, "error", cerr)
		}
	}()

	var answer strings.Builder
	for {
		fragment, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ex, err
		}
		if fragment == "" {
			continue
		}
		answer.WriteString(fragment)
		ex.Answer = answer.String()
		e.store.PublishSnapshot(ex)
	}

	e.store.Replace(ex)
	e.store.ClearSnapshot(ex.ID)
	return ex, nil
}

func (e *Engine) buffered(ctx context.Context, req *core.ChatRequest, ex core.Exchange, prefs Preferences) (core.Exchange, error) {
	resp, err := e.provider.ChatCompletion(ctx, req)
	if err != nil {
		return ex, err
	}
	ex.Answer = resp.FirstContent()

	if prefs.AutoSpeak && e.speaker != nil {
		e.speaker.Stop()
		e.speaker.Speak(ex.Answer)
	}
	e.store.Replace(ex)
	return ex, nil
}

// fail reports exactly one failure status and keeps the partial answer.
func (e *Engine) fail(ex core.Exchange, err error) classify.Result {
	result := classify.Classify(err)
	e.store.Replace(ex)
	e.store.ClearSnapshot(ex.ID)
	e.status.Report(status.Failed(result.Title, result.Message))
	return result
}

func (e *Engine) record(ctx context.Context, ex core.Exchange) {
	if e.history == nil {
		return
	}
	if err := e.history.Add(context.WithoutCancel(ctx), ex); err != nil {
		e.logger.Error("failed to record exchange", "exchange_id", ex.ID, "error", fmt.Errorf("history add: %w", err))
	}
}
