package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultBufferSize is the per-subscriber channel capacity. A publisher
// blocks once a subscriber falls this far behind.
const defaultBufferSize = 256

// ErrSessionEnded is returned by Publish after EndSession has been called
// for the session.
var ErrSessionEnded = errors.New("session has ended")

// maxEndedSessions bounds how many finished sessions keep their history for
// late-joining replays. Ending a session beyond the cap drops the oldest
// finished session entirely.
const maxEndedSessions = 64

// Bus is an in-process, session-scoped event bus. Each session keeps its
// full event history so subscribers joining mid-run can replay it, and a
// set of live subscriber channels.
type Bus struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionState
	endedOrder []string // ended session ids, oldest first
	bufferSize int
}

type sessionState struct {
	// pubMu serializes Publish and EndSession so subscriber channels are
	// never written and closed concurrently.
	pubMu   sync.Mutex
	history []Event
	subs    map[string]*subscription
	ended   bool
}

type subscription struct {
	ch   chan Event
	done chan struct{}
}

// NewBus creates a bus. bufferSize <= 0 selects the default.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		sessions:   make(map[string]*sessionState),
		bufferSize: bufferSize,
	}
}

// Publish marshals the payload and delivers the event to every subscriber
// of the session, in publish order. Delivery blocks when a subscriber's
// buffer is full; ctx cancellation aborts the wait. The event is appended
// to the session history regardless of subscriber count.
func (b *Bus) Publish(ctx context.Context, sessionID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	event := Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	s := b.getOrCreate(sessionID)
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	// Append to history and snapshot subscribers under the bus lock so a
	// concurrent Subscribe sees the event either in its history snapshot
	// or on its channel, never both and never neither.
	b.mu.Lock()
	if s.ended {
		b.mu.Unlock()
		return ErrSessionEnded
	}
	s.history = append(s.history, event)
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a new subscriber for a session and returns its id,
// a live event channel, and a snapshot of the session history so far. The
// caller replays the history first, then reads the channel. The channel
// is closed when the session ends; a subscriber to an already-ended
// session gets the full history and an immediately closed channel.
func (b *Bus) Subscribe(sessionID string) (string, <-chan Event, []Event) {
	s := b.getOrCreate(sessionID)

	b.mu.Lock()
	defer b.mu.Unlock()

	history := make([]Event, len(s.history))
	copy(history, s.history)

	ch := make(chan Event, b.bufferSize)
	if s.ended {
		close(ch)
		return "", ch, history
	}

	id := uuid.New().String()
	s.subs[id] = &subscription{ch: ch, done: make(chan struct{})}
	return id, ch, history
}

// Unsubscribe detaches a subscriber. Its channel is not closed, but no
// further events are delivered and any blocked publish to it is released.
func (b *Bus) Unsubscribe(sessionID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return
	}
	if sub, ok := s.subs[subID]; ok {
		close(sub.done)
		delete(s.subs, subID)
	}
}

// EndSession marks a session finished and closes all live subscriber
// channels. The history is retained so late joiners can still replay the
// completed run, but only for the most recent maxEndedSessions finished
// sessions; further Publish calls fail with ErrSessionEnded.
func (b *Bus) EndSession(sessionID string) {
	b.mu.RLock()
	s, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	for id, sub := range s.subs {
		close(sub.done)
		close(sub.ch)
		delete(s.subs, id)
	}

	b.endedOrder = append(b.endedOrder, sessionID)
	for len(b.endedOrder) > maxEndedSessions {
		oldest := b.endedOrder[0]
		b.endedOrder = b.endedOrder[1:]
		delete(b.sessions, oldest)
	}
}

// History returns a copy of a session's event history.
func (b *Bus) History(sessionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return nil
	}
	history := make([]Event, len(s.history))
	copy(history, s.history)
	return history
}

func (b *Bus) getOrCreate(sessionID string) *sessionState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		s = &sessionState{subs: make(map[string]*subscription)}
		b.sessions[sessionID] = s
	}
	return s
}
