// Package speech plays answers aloud through an external text-to-speech command.
package speech

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// Speaker plays text and can interrupt playback.
type Speaker interface {
	Stop()
	Speak(text string)
}

// DefaultCommand returns the platform TTS program.
func DefaultCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak"
}

// Command speaks by running an external program with the text as its last
// argument. At most one utterance plays at a time.
type Command struct {
	name string
	args []string

	// speakMu serializes Speak so an utterance is always registered before
	// the next one stops it.
	speakMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommand creates a speaker for the given program. An empty name uses DefaultCommand.
func NewCommand(name string, args ...string) *Command {
	if name == "" {
		name = DefaultCommand()
	}
	return &Command{name: name, args: args}
}

// Speak starts playback in the background. A failure to start is logged.
func (c *Command) Speak(text string) {
	if text == "" {
		return
	}
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), c.args...), text)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		slog.Warn("failed to start speech command", "command", c.name, "error", err)
		return
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Debug("speech command exited with error", "command", c.name, "error", err)
		}
	}()
}

// Stop kills in-progress playback and waits for the process to exit.
func (c *Command) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Speaking reports whether playback is in progress.
func (c *Command) Speaking() bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Noop discards all playback requests.
type Noop struct{}

func (Noop) Stop()        {}
func (Noop) Speak(string) {}
