package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/classify"
	"gochat/internal/core"
	"gochat/internal/session"
	"gochat/internal/status"
)

type mockProvider struct {
	mu       sync.Mutex
	requests []*core.ChatRequest

	chat   func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error)
	stream func(ctx context.Context, req *core.ChatRequest) (io.ReadCloser, error)
}

func (m *mockProvider) ChatCompletion(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.chat(ctx, req)
}

func (m *mockProvider) StreamChatCompletion(ctx context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.stream(ctx, req)
}

func (m *mockProvider) ListModels(context.Context) (*core.ModelsResponse, error) {
	return &core.ModelsResponse{}, nil
}

func (m *mockProvider) lastRequest() *core.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func answer(content string) func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
	return func(_ context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
		return &core.ChatResponse{Model: req.Model, Choices: []core.Choice{{Message: core.Message{Role: core.RoleAssistant, Content: content}}}}, nil
	}
}

func sseBody(fragments ...string) string {
	var sb strings.Builder
	sb.WriteString("data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n\n")
	for _, f := range fragments {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", f)
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func streamOf(body string) func(context.Context, *core.ChatRequest) (io.ReadCloser, error) {
	return func(context.Context, *core.ChatRequest) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

type recordingSink struct {
	mu    sync.Mutex
	added []core.Exchange
	err   error
}

func (r *recordingSink) Add(_ context.Context, ex core.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, ex)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added)
}

type recordingSpeaker struct {
	calls []string
}

func (s *recordingSpeaker) Stop()             { s.calls = append(s.calls, "stop") }
func (s *recordingSpeaker) Speak(text string) { s.calls = append(s.calls, "speak:"+text) }

type recordingStatus struct {
	mu      sync.Mutex
	updates []status.Update
}

func (r *recordingStatus) Report(u status.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingStatus) failures() []status.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []status.Update
	for _, u := range r.updates {
		if u.Style == status.Failure {
			out = append(out, u)
		}
	}
	return out
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	outcomes []string
}

func (o *recordingObserver) AskStarted(mode string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, mode)
}

func (o *recordingObserver) AskFinished(mode, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, mode+":"+outcome)
}

type fixture struct {
	engine   *Engine
	store    *session.Store
	provider *mockProvider
	sink     *recordingSink
	speaker  *recordingSpeaker
	status   *recordingStatus
	observer *recordingObserver
}

func newFixture(t *testing.T, prefs Preferences, provider *mockProvider, initial ...core.Exchange) *fixture {
	t.Helper()
	f := &fixture{
		store:    session.New(initial...),
		provider: provider,
		sink:     &recordingSink{},
		speaker:  &recordingSpeaker{},
		status:   &recordingStatus{},
		observer: &recordingObserver{},
	}
	e, err := New(Config{
		Provider:    provider,
		Store:       f.store,
		History:     f.sink,
		Speaker:     f.speaker,
		Status:      f.status,
		Observer:    f.observer,
		Preferences: prefs,
	})
	require.NoError(t, err)
	f.engine = e
	return f
}

var defaultModel = core.ModelSelection{Name: "gpt-3.5-turbo", Temperature: "0.7", Prompt: "You are a helpful assistant."}

func TestNew_RequiresProviderAndStore(t *testing.T) {
	_, err := New(Config{Store: session.New()})
	require.Error(t, err)
	_, err = New(Config{Provider: &mockProvider{}})
	require.Error(t, err)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	f := newFixture(t, Preferences{}, &mockProvider{chat: answer("x")})

	_, err := f.engine.Ask(context.Background(), "   ", defaultModel)
	require.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.status.updates)
}

func TestAsk_BufferedScenario(t *testing.T) {
	f := newFixture(t, Preferences{}, &mockProvider{chat: answer("4")})

	ex, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)

	assert.Equal(t, "4", ex.Answer)
	stored, ok := f.store.Exchange(ex.ID)
	require.True(t, ok)
	assert.Equal(t, "4", stored.Answer)
	assert.Equal(t, ex.ID, f.store.SelectedID())
	assert.False(t, f.store.Loading())

	require.Len(t, f.sink.added, 1)
	assert.Equal(t, ex, f.sink.added[0])

	assert.Equal(t, []status.Update{status.Pending(), status.Done()}, f.status.updates)
	assert.Equal(t, []string{"buffered:success"}, f.observer.outcomes)
}

func TestAsk_BufferedNoChoices(t *testing.T) {
	f := newFixture(t, Preferences{}, &mockProvider{chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
		return &core.ChatResponse{}, nil
	}})

	ex, err := f.engine.Ask(context.Background(), "anything?", defaultModel)
	require.NoError(t, err)
	assert.Equal(t, "", ex.Answer)
	assert.Equal(t, 1, f.sink.count())
}

func TestAsk_StreamingScenario(t *testing.T) {
	f := newFixture(t, Preferences{Stream: true}, &mockProvider{stream: streamOf(sseBody("4", ""))})

	ex, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)

	assert.Equal(t, "4", ex.Answer)
	stored, _ := f.store.Exchange(ex.ID)
	assert.Equal(t, "4", stored.Answer)
	_, streaming := f.store.StreamSnapshot()
	assert.False(t, streaming)
	assert.Empty(t, f.store.Snapshots())
	assert.False(t, f.store.Loading())
	assert.Equal(t, 1, f.sink.count())
	assert.False(t, f.provider.lastRequest().Stream)
	assert.Equal(t, []string{"stream:success"}, f.observer.outcomes)
}

func TestAsk_StreamingConcatenatesInOrder(t *testing.T) {
	fragments := []string{"The ", "answer ", "", "is ", "forty", "-two."}
	f := newFixture(t, Preferences{Stream: true}, &mockProvider{stream: streamOf(sseBody(fragments...))})

	events, cancel := f.store.Subscribe(64)
	defer cancel()

	ex, err := f.engine.Ask(context.Background(), "meaning?", defaultModel)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(fragments, ""), ex.Answer)

	var partials []string
	for len(events) > 0 {
		ev := <-events
		if ev.Type == session.EventSnapshot && ev.ID == "" {
			partials = append(partials, ev.Exchange.Answer)
		}
	}
	assert.Equal(t, []string{"The ", "The answer ", "The answer is ", "The answer is forty", "The answer is forty-two."}, partials)
}

func TestAsk_StreamEventOrder(t *testing.T) {
	f := newFixture(t, Preferences{Stream: true}, &mockProvider{stream: streamOf(sseBody("a", "b"))})
	events, cancel := f.store.Subscribe(64)
	defer cancel()

	_, err := f.engine.Ask(context.Background(), "q", defaultModel)
	require.NoError(t, err)

	var types []session.EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, []session.EventType{
		session.EventAppended,
		session.EventLoading,
		session.EventSelected,
		session.EventSnapshot,
		session.EventSnapshot,
		session.EventUpdated,
		session.EventSnapshot,
		session.EventLoading,
	}, types)
}

func TestAsk_RateLimitScenario(t *testing.T) {
	for _, stream := range []bool{false, true} {
		t.Run(fmt.Sprintf("stream=%v", stream), func(t *testing.T) {
			rateLimited := core.ParseProviderError("openai", http.StatusTooManyRequests, []byte(`{"error":{"message":"Rate limit reached"}}`), nil)
			provider := &mockProvider{
				chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) { return nil, rateLimited },
				stream: func(context.Context, *core.ChatRequest) (io.ReadCloser, error) {
					return nil, rateLimited
				},
			}
			f := newFixture(t, Preferences{Stream: stream}, provider)

			ex, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
			require.NoError(t, err)

			failures := f.status.failures()
			require.Len(t, failures, 1)
			assert.Equal(t, "You've reached your API limit", failures[0].Title)
			assert.Equal(t, "Please upgrade to pay-as-you-go", failures[0].Message)

			stored, ok := f.store.Exchange(ex.ID)
			require.True(t, ok)
			assert.Equal(t, "", stored.Answer)
			assert.Equal(t, 0, f.sink.count())
			assert.False(t, f.store.Loading())
			assert.Len(t, provider.requests, 1, "rate limits are never retried")
		})
	}
}

func TestAsk_ProviderErrorVerbatim(t *testing.T) {
	provider := &mockProvider{chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
		return nil, core.ParseProviderError("openai", http.StatusBadRequest, []byte(`{"error":{"message":"Invalid model: gpt-5"}}`), nil)
	}}
	f := newFixture(t, Preferences{}, provider)

	_, err := f.engine.Ask(context.Background(), "hi", defaultModel)
	require.NoError(t, err)

	failures := f.status.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, status.Failed("Error", "Invalid model: gpt-5"), failures[0])
	assert.Equal(t, []string{"buffered:provider_error"}, f.observer.outcomes)
}

func TestAsk_UnknownError(t *testing.T) {
	provider := &mockProvider{chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
		return nil, errors.New("dial tcp 127.0.0.1:443: connect: connection refused")
	}}
	f := newFixture(t, Preferences{}, provider)

	_, err := f.engine.Ask(context.Background(), "hi", defaultModel)
	require.NoError(t, err)

	failures := f.status.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "Error", failures[0].Title)
	assert.Contains(t, failures[0].Message, "connection refused")
}

func TestAsk_StreamFailureKeepsPartialAnswer(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: {\"error\":{\"message\":\"The server had an error while processing your request.\",\"type\":\"server_error\"}}\n\n"
	f := newFixture(t, Preferences{Stream: true}, &mockProvider{stream: streamOf(body)})

	ex, err := f.engine.Ask(context.Background(), "greet", defaultModel)
	require.NoError(t, err)

	assert.Equal(t, "Hello", ex.Answer)
	stored, _ := f.store.Exchange(ex.ID)
	assert.Equal(t, "Hello", stored.Answer)
	assert.Empty(t, f.store.Snapshots())
	assert.False(t, f.store.Loading())
	assert.Equal(t, 0, f.sink.count())

	failures := f.status.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "The server had an error while processing your request.", failures[0].Message)
}

func TestAsk_MalformedChunkIsUnknownError(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: {not json\n\n"
	f := newFixture(t, Preferences{Stream: true}, &mockProvider{stream: streamOf(body)})

	ex, err := f.engine.Ask(context.Background(), "q", defaultModel)
	require.NoError(t, err)
	assert.Equal(t, "ok", ex.Answer)
	require.Len(t, f.status.failures(), 1)
	assert.Equal(t, []string{"stream:unknown_error"}, f.observer.outcomes)
}

func TestAsk_HistoryPaused(t *testing.T) {
	for _, stream := range []bool{false, true} {
		t.Run(fmt.Sprintf("stream=%v", stream), func(t *testing.T) {
			f := newFixture(t, Preferences{Stream: stream, HistoryPaused: true}, &mockProvider{
				chat:   answer("4"),
				stream: streamOf(sseBody("4")),
			})
			for i := 0; i < 3; i++ {
				_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
				require.NoError(t, err)
			}
			assert.Equal(t, 0, f.sink.count())
			assert.Equal(t, 3, f.store.Len())
		})
	}
}

func TestAsk_HistoryErrorIsNotAFailure(t *testing.T) {
	f := newFixture(t, Preferences{}, &mockProvider{chat: answer("4")})
	f.sink.err = errors.New("disk full")

	_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)
	assert.Empty(t, f.status.failures())
}

func TestAsk_AutoSpeak(t *testing.T) {
	t.Run("buffered speaks after stopping", func(t *testing.T) {
		f := newFixture(t, Preferences{AutoSpeak: true}, &mockProvider{chat: answer("4")})
		_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
		require.NoError(t, err)
		assert.Equal(t, []string{"stop", "speak:4"}, f.speaker.calls)
	})

	t.Run("streaming never speaks", func(t *testing.T) {
		f := newFixture(t, Preferences{Stream: true, AutoSpeak: true}, &mockProvider{stream: streamOf(sseBody("4"))})
		_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
		require.NoError(t, err)
		assert.Empty(t, f.speaker.calls)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, Preferences{}, &mockProvider{chat: answer("4")})
		_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
		require.NoError(t, err)
		assert.Empty(t, f.speaker.calls)
	})

	t.Run("failure does not speak", func(t *testing.T) {
		f := newFixture(t, Preferences{AutoSpeak: true}, &mockProvider{chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
			return nil, errors.New("boom")
		}})
		_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
		require.NoError(t, err)
		assert.Empty(t, f.speaker.calls)
	})
}

func TestAsk_ComposesChronologicalHistory(t *testing.T) {
	prior := []core.Exchange{
		{ID: "1", Question: "first", Answer: "one"},
		{ID: "2", Question: "second", Answer: "two"},
	}
	provider := &mockProvider{chat: answer("three")}
	f := newFixture(t, Preferences{}, provider, prior...)

	_, err := f.engine.Ask(context.Background(), "third", defaultModel)
	require.NoError(t, err)

	req := provider.lastRequest()
	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	assert.Equal(t, []core.Message{
		{Role: core.RoleSystem, Content: "You are a helpful assistant."},
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleAssistant, Content: "one"},
		{Role: core.RoleUser, Content: "second"},
		{Role: core.RoleAssistant, Content: "two"},
		{Role: core.RoleUser, Content: "third"},
	}, req.Messages)
}

func TestAsk_InvalidTemperatureOmitted(t *testing.T) {
	provider := &mockProvider{chat: answer("ok")}
	f := newFixture(t, Preferences{}, provider)

	_, err := f.engine.Ask(context.Background(), "hi", core.ModelSelection{Name: "m", Temperature: "warm"})
	require.NoError(t, err)
	assert.Nil(t, provider.lastRequest().Temperature)
}

func TestAsk_ExchangeCountGrowsByOne(t *testing.T) {
	calls := 0
	provider := &mockProvider{chat: func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
		calls++
		if calls%2 == 0 {
			return nil, errors.New("flaky")
		}
		return answer("ok")(ctx, req)
	}}
	f := newFixture(t, Preferences{}, provider)

	for i := 1; i <= 6; i++ {
		_, err := f.engine.Ask(context.Background(), fmt.Sprintf("q%d", i), defaultModel)
		require.NoError(t, err)
		assert.Equal(t, i, f.store.Len())
		assert.False(t, f.store.Loading())
	}
}

func TestAsk_LoadingTrueWhileOutstanding(t *testing.T) {
	release := make(chan struct{})
	var loadingDuringRequest bool
	f := &fixture{}
	provider := &mockProvider{chat: func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
		loadingDuringRequest = f.store.Loading()
		<-release
		return answer("ok")(ctx, req)
	}}
	f = newFixture(t, Preferences{}, provider)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.engine.Ask(context.Background(), "q", defaultModel)
	}()
	require.Eventually(t, f.store.Loading, time.Second, time.Millisecond)
	close(release)
	<-done

	assert.True(t, loadingDuringRequest)
	assert.False(t, f.store.Loading())
}

func TestAsk_ClearDoesNotTouchHistory(t *testing.T) {
	f := newFixture(t, Preferences{}, &mockProvider{chat: answer("4")})
	_, err := f.engine.Ask(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)

	f.store.Clear()

	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 1, f.sink.count())
}

func TestAsk_ConcurrentStreams(t *testing.T) {
	provider := &mockProvider{stream: func(_ context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
		q := req.Messages[len(req.Messages)-1].Content
		return io.NopCloser(strings.NewReader(sseBody(q, "-", q))), nil
	}}
	f := newFixture(t, Preferences{Stream: true}, provider)

	const n = 20
	var wg sync.WaitGroup
	results := make([]core.Exchange, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex, err := f.engine.Ask(context.Background(), fmt.Sprintf("q%d", i), defaultModel)
			assert.NoError(t, err)
			results[i] = ex
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, f.store.Len())
	assert.False(t, f.store.Loading())
	assert.Empty(t, f.store.Snapshots())
	assert.Equal(t, n, f.sink.count())
	for i, ex := range results {
		want := fmt.Sprintf("q%d-q%d", i, i)
		assert.Equal(t, want, ex.Answer)
		stored, ok := f.store.Exchange(ex.ID)
		require.True(t, ok)
		assert.Equal(t, want, stored.Answer)
	}
}

func TestAsk_CancelledContext(t *testing.T) {
	provider := &mockProvider{chat: func(ctx context.Context, _ *core.ChatRequest) (*core.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newFixture(t, Preferences{}, provider)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.engine.Ask(ctx, "slow?", defaultModel)
	require.NoError(t, err)
	assert.False(t, f.store.Loading())
	require.Len(t, f.status.failures(), 1)
	assert.Equal(t, 1, f.store.Len())
}

func TestSetPreferences(t *testing.T) {
	provider := &mockProvider{chat: answer("buffered"), stream: streamOf(sseBody("streamed"))}
	f := newFixture(t, Preferences{}, provider)

	ex, _ := f.engine.Ask(context.Background(), "q", defaultModel)
	assert.Equal(t, "buffered", ex.Answer)

	f.engine.SetPreferences(Preferences{Stream: true})
	assert.True(t, f.engine.Preferences().Stream)
	ex, _ = f.engine.Ask(context.Background(), "q", defaultModel)
	assert.Equal(t, "streamed", ex.Answer)
}

func TestAskOutcome_ReportsOwnFailure(t *testing.T) {
	provider := &mockProvider{chat: func(context.Context, *core.ChatRequest) (*core.ChatResponse, error) {
		return nil, core.NewRateLimitError("openai", "slow down")
	}}
	f := newFixture(t, Preferences{}, provider)

	out, err := f.engine.AskOutcome(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, classify.RateLimited, out.Failure.Kind)
	assert.Equal(t, "2+2?", out.Exchange.Question)

	provider.chat = answer("4")
	out, err = f.engine.AskOutcome(context.Background(), "2+2?", defaultModel)
	require.NoError(t, err)
	assert.Nil(t, out.Failure)
	assert.Equal(t, "4", out.Exchange.Answer)
}
