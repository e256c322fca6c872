// Package status carries user-facing progress and failure notifications.
package status

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Style is the visual treatment of an update.
type Style string

const (
	Animated Style = "animated"
	Success  Style = "success"
	Failure  Style = "failure"
)

// Update is one status transition.
type Update struct {
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Style   Style  `json:"style"`
}

// Fixed progress titles.
const (
	TitlePending = "Getting your answer..."
	TitleDone    = "Got your answer!"
)

// Pending returns the update shown while a request is outstanding.
func Pending() Update { return Update{Title: TitlePending, Style: Animated} }

// Done returns the update shown after a successful answer.
func Done() Update { return Update{Title: TitleDone, Style: Success} }

// Failed returns a failure update.
func Failed(title, message string) Update {
	return Update{Title: title, Message: message, Style: Failure}
}

// Logger reports updates through slog.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger. A nil logger uses slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Report implements the engine's status reporter.
func (l *Logger) Report(u Update) {
	switch u.Style {
	case Failure:
		l.logger.Warn(u.Title, "message", u.Message)
	case Animated:
		l.logger.Debug(u.Title)
	default:
		l.logger.Info(u.Title, "message", u.Message)
	}
}

const (
	ansiReset  = "\033[0m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
)

// Writer renders updates as single lines, optionally coloured.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer, color bool) *Writer {
	return &Writer{w: w, color: color}
}

// Report implements the engine's status reporter.
func (w *Writer) Report(u Update) {
	line := u.Title
	if u.Message != "" {
		line += ": " + u.Message
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		_, _ = fmt.Fprintf(w.w, "%s%s%s\n", styleColor(u.Style), line, ansiReset)
		return
	}
	_, _ = fmt.Fprintf(w.w, "[%s] %s\n", u.Style, line)
}

func styleColor(s Style) string {
	switch s {
	case Success:
		return ansiGreen
	case Failure:
		return ansiRed
	default:
		return ansiYellow
	}
}

// Multi fans an update out to several reporters.
type Multi []interface{ Report(Update) }

// Report implements the engine's status reporter.
func (m Multi) Report(u Update) {
	for _, r := range m {
		r.Report(u)
	}
}

// Latest remembers the most recent update.
type Latest struct {
	mu   sync.RWMutex
	last Update
	set  bool
}

// Report records u.
func (l *Latest) Report(u Update) {
	l.mu.Lock()
	l.last, l.set = u, true
	l.mu.Unlock()
}

// Last returns the most recent update and whether one was reported.
func (l *Latest) Last() (Update, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.set
}
