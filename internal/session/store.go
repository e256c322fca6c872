// Package session holds the in-memory state of one conversation: the ordered
// exchanges, the selected exchange, the loading state and the streaming
// snapshots of in-flight answers.
package session

import (
	"log/slog"
	"sync"

	"gochat/internal/core"
)

// EventType identifies a state change.
type EventType string

const (
	EventAppended EventType = "appended"
	EventSelected EventType = "selected"
	EventUpdated  EventType = "updated"
	EventSnapshot EventType = "snapshot"
	EventLoading  EventType = "loading"
	EventCleared  EventType = "cleared"
)

// Event is delivered to subscribers after the change is applied.
type Event struct {
	Type     EventType     `json:"type"`
	Exchange core.Exchange `json:"exchange,omitzero"`
	// ID is set for selection and snapshot-clear events
	ID      string `json:"id,omitempty"`
	Loading bool   `json:"loading"`
}

// Store is safe for concurrent use. All getters return copies.
type Store struct {
	mu        sync.RWMutex
	exchanges []core.Exchange
	index     map[string]int
	selected  string
	loading   int
	snapshots map[string]core.Exchange
	latest    string

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// New creates a session seeded with prior exchanges.
func New(initial ...core.Exchange) *Store {
	s := &Store{
		index:     make(map[string]int),
		snapshots: make(map[string]core.Exchange),
		subs:      make(map[int]chan Event),
	}
	for _, ex := range initial {
		if _, dup := s.index[ex.ID]; dup {
			continue
		}
		s.index[ex.ID] = len(s.exchanges)
		s.exchanges = append(s.exchanges, ex)
	}
	return s
}

// Append adds an exchange at the end of the conversation. Appending an ID
// that already exists replaces it in place.
func (s *Store) Append(ex core.Exchange) {
	s.mu.Lock()
	if i, ok := s.index[ex.ID]; ok {
		s.exchanges[i] = ex
	} else {
		s.index[ex.ID] = len(s.exchanges)
		s.exchanges = append(s.exchanges, ex)
	}
	s.mu.Unlock()
	s.publish(Event{Type: EventAppended, Exchange: ex})
}

// Select marks id as the focused exchange.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.publish(Event{Type: EventSelected, ID: id})
}

// Replace overwrites the stored exchange with the same ID. Unknown IDs are
// ignored and reported as false.
func (s *Store) Replace(ex core.Exchange) bool {
	s.mu.Lock()
	i, ok := s.index[ex.ID]
	if ok {
		s.exchanges[i] = ex
	}
	s.mu.Unlock()
	if ok {
		s.publish(Event{Type: EventUpdated, Exchange: ex})
	}
	return ok
}

// Exchanges returns the conversation in order.
func (s *Store) Exchanges() []core.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Exchange looks up one exchange by ID.
func (s *Store) Exchange(id string) (core.Exchange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return core.Exchange{}, false
	}
	return s.exchanges[i], true
}

// Len returns the number of exchanges.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exchanges)
}

// SelectedID returns the focused exchange ID, or "" when nothing is selected.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Loading reports whether at least one request is outstanding.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// BeginLoading registers an outstanding request.
func (s *Store) BeginLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	s.publish(Event{Type: EventLoading, Loading: true})
}

// EndLoading releases one outstanding request. Extra calls are ignored.
func (s *Store) EndLoading() {
	s.mu.Lock()
	if s.loading > 0 {
		s.loading--
	}
	loading := s.loading > 0
	s.mu.Unlock()
	s.publish(Event{Type: EventLoading, Loading: loading})
}

// PublishSnapshot records the partial state of an in-flight exchange.
func (s *Store) PublishSnapshot(ex core.Exchange) {
	s.mu.Lock()
	s.snapshots[ex.ID] = ex
	s.latest = ex.ID
	s.mu.Unlock()
	s.publish(Event{Type: EventSnapshot, Exchange: ex})
}

// ClearSnapshot drops the snapshot for id.
func (s *Store) ClearSnapshot(id string) {
	s.mu.Lock()
	_, ok := s.snapshots[id]
	delete(s.snapshots, id)
	if s.latest == id {
		s.latest = ""
	}
	s.mu.Unlock()
	if ok {
		s.publish(Event{Type: EventSnapshot, ID: id})
	}
}

// Snapshot returns the in-flight copy of id, if one is streaming.
func (s *Store) Snapshot(id string) (core.Exchange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.snapshots[id]
	return ex, ok
}

// Snapshots returns every in-flight snapshot keyed by exchange ID.
func (s *Store) Snapshots() map[string]core.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]core.Exchange, len(s.snapshots))
	for id, ex := range s.snapshots {
		out[id] = ex
	}
	return out
}

// StreamSnapshot returns the most recently published snapshot that is still
// in flight, for renderers that only show one partial answer.
func (s *Store) StreamSnapshot() (core.Exchange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == "" {
		return core.Exchange{}, false
	}
	ex, ok := s.snapshots[s.latest]
	return ex, ok
}

// Clear discards every exchange, the selection and all snapshots. The loading
// state is left alone since requests may still be outstanding.
func (s *Store) Clear() {
	s.mu.Lock()
	s.exchanges = nil
	s.index = make(map[string]int)
	s.selected = ""
	s.snapshots = make(map[string]core.Exchange)
	s.latest = ""
	s.mu.Unlock()
	s.publish(Event{Type: EventCleared})
}

// Subscribe returns a channel of change events and a cancel func that closes
// it. Slow subscribers lose events rather than blocking writers.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("session subscriber buffer full, dropping event", "subscriber", id, "type", ev.Type)
		}
	}
}
