package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"gochat/internal/core"
	"gochat/internal/engine"
	"gochat/internal/session"
	"gochat/internal/status"
)

const helpText = `Commands:
  /clear     forget this session's exchanges (stored history is kept)
  /models    list available models
  /history   show recently stored exchanges
  /stream    toggle streaming answers
  /pause     toggle recording to history
  /speak     toggle reading answers aloud
  /help      show this help
  /quit      exit`

type chatSession interface {
	Ask(ctx context.Context, question string, model core.ModelSelection) (core.Exchange, error)
	Store() *session.Store
	Preferences() engine.Preferences
	SetPreferences(p engine.Preferences)
}

type modelLister interface {
	List(ctx context.Context) ([]core.Model, error)
}

type historyLister interface {
	List(ctx context.Context, limit int) ([]core.Exchange, error)
}

type repl struct {
	session      chatSession
	models       modelLister
	history      historyLister
	model        core.ModelSelection
	historyLimit int

	in     io.Reader
	out    io.Writer
	prompt bool
}

func (r *repl) run(ctx context.Context) error {
	events, unsubscribe := r.session.Store().Subscribe(256)
	defer unsubscribe()

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if r.prompt {
			fmt.Fprint(r.out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, helpText)
		case "/clear":
			r.session.Store().Clear()
			fmt.Fprintln(r.out, "Session cleared.")
		case "/models":
			r.listModels(ctx)
		case "/history":
			r.showHistory(ctx)
		case "/stream", "/pause", "/speak":
			r.toggle(line)
		default:
			if strings.HasPrefix(line, "/") {
				fmt.Fprintf(r.out, "Unknown command %s, try /help\n", line)
				continue
			}
			r.ask(ctx, line, events)
		}
	}
}

// ask runs one question and prints the answer as it streams in.
func (r *repl) ask(ctx context.Context, question string, events <-chan session.Event) {
	done := make(chan core.Exchange, 1)
	go func() {
		ex, _ := r.session.Ask(ctx, question, r.model)
		done <- ex
	}()

	var id string
	printed := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case session.EventAppended:
				if id == "" && ev.Exchange.Question == question {
					id = ev.Exchange.ID
				}
			case session.EventSnapshot:
				if id != "" && ev.Exchange.ID == id {
					printed = r.writeFrom(ev.Exchange.Answer, printed)
				}
			}
		case ex := <-done:
			printed = r.writeFrom(ex.Answer, printed)
			if printed > 0 {
				fmt.Fprintln(r.out)
			}
			return
		}
	}
}

// writeFrom prints the part of answer past offset and returns the new offset.
func (r *repl) writeFrom(answer string, offset int) int {
	if len(answer) <= offset {
		return offset
	}
	fmt.Fprint(r.out, answer[offset:])
	return len(answer)
}

func (r *repl) listModels(ctx context.Context) {
	if r.models == nil {
		fmt.Fprintln(r.out, "Model listing is not available.")
		return
	}
	list, err := r.models.List(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Could not list models: %v\n", err)
		return
	}
	for _, m := range list {
		marker := " "
		if m.ID == r.model.Name {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s\n", marker, m.ID)
	}
}

func (r *repl) showHistory(ctx context.Context) {
	if r.history == nil {
		fmt.Fprintln(r.out, "History is disabled.")
		return
	}
	list, err := r.history.List(ctx, r.historyLimit)
	if err != nil {
		fmt.Fprintf(r.out, "Could not read history: %v\n", err)
		return
	}
	if len(list) == 0 {
		fmt.Fprintln(r.out, "No stored exchanges.")
		return
	}
	for _, ex := range list {
		fmt.Fprintf(r.out, "[%s] Q: %s\n", ex.CreatedAt.Format("2006-01-02 15:04"), ex.Question)
		fmt.Fprintf(r.out, "    A: %s\n", ex.Answer)
	}
}

func (r *repl) toggle(cmd string) {
	p := r.session.Preferences()
	var name string
	var on bool
	switch cmd {
	case "/stream":
		p.Stream = !p.Stream
		name, on = "streaming", p.Stream
	case "/pause":
		p.HistoryPaused = !p.HistoryPaused
		name, on = "history recording", !p.HistoryPaused
	case "/speak":
		p.AutoSpeak = !p.AutoSpeak
		name, on = "auto speak", p.AutoSpeak
	}
	r.session.SetPreferences(p)
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(r.out, "%s %s\n", name, state)
}

// failureReporter prints only failure updates; answers are rendered by the repl.
type failureReporter struct {
	w *status.Writer
}

func (f failureReporter) Report(u status.Update) {
	if u.Style == status.Failure {
		f.w.Report(u)
	}
}
