package replication

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// AggregateStatus summarizes all streams for the kiosk's sync indicator.
type AggregateStatus struct {
	State   State    `json:"state"`
	Remote  string   `json:"remote,omitempty"`
	Streams []Status `json:"streams,omitempty"`
}

// Manager owns the full set of replication streams. The remoteDbUrl
// setting is the single control input: set it and the streams start,
// change it and they are all cancelled and restarted against the new
// hub, clear it and they stop. Streams are never reconfigured
// individually; teardown is all five together, then a fresh start.
type Manager struct {
	store  *store.Store
	log    *zap.Logger
	client *http.Client

	// updates carries the latest remoteDbUrl from the settings feed.
	// Capacity one, latest wins: only the newest value matters.
	updates chan string

	mu      sync.Mutex
	base    string
	streams []*Stream
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager builds a manager over an open store. The HTTP client has no
// global timeout: the pull longpoll legitimately idles for the full
// heartbeat interval, and cancellation runs through the context.
func NewManager(st *store.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   st,
		log:     logger,
		client:  &http.Client{},
		updates: make(chan string, 1),
	}
}

// Run watches the settings document and keeps the stream set aligned
// with its remoteDbUrl until ctx is cancelled. The settings feed
// delivers the current value immediately, so a device that boots with a
// configured hub starts replicating without waiting for an edit.
func (m *Manager) Run(ctx context.Context) error {
	isSettings := func(doc store.Document) bool { return doc.ID == model.SettingsID }
	sub, err := m.store.Subscribe(ctx, model.CollectionSettings, isSettings, func(docs []store.Document) {
		m.offer(remoteURL(docs))
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			m.teardown()
			return ctx.Err()
		case base := <-m.updates:
			m.reconfigure(ctx, base)
		}
	}
}

// Status returns the aggregate and per-stream states.
func (m *Manager) Status() AggregateStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := AggregateStatus{State: StateDisconnected, Remote: m.base}
	anyError, anyConnecting := false, false
	for _, stream := range m.streams {
		status := stream.Status()
		agg.Streams = append(agg.Streams, status)
		switch status.State {
		case StateConnected:
			agg.State = StateConnected
		case StateError:
			anyError = true
		case StateConnecting:
			anyConnecting = true
		}
	}
	if agg.State != StateConnected {
		switch {
		case anyError:
			agg.State = StateError
		case anyConnecting:
			agg.State = StateConnecting
		}
	}
	return agg
}

// offer hands the feed callback's value to the run loop without ever
// blocking: the callback runs synchronously under the store's writer
// lock.
func (m *Manager) offer(base string) {
	for {
		select {
		case m.updates <- base:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// reconfigure tears the current stream set down and starts a new one.
func (m *Manager) reconfigure(ctx context.Context, base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")

	m.mu.Lock()
	unchanged := base == m.base && (base == "" || m.cancel != nil)
	m.mu.Unlock()
	if unchanged {
		return
	}

	m.teardown()
	if base == "" {
		m.log.Info("replication disabled")
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)
	streams := make([]*Stream, 0, len(model.Collections))
	for _, collection := range model.Collections {
		streams = append(streams, NewStream(m.store, m.client, base, collection, m.log))
	}

	m.mu.Lock()
	m.base = base
	m.streams = streams
	m.cancel = cancel
	m.mu.Unlock()

	for _, stream := range streams {
		m.wg.Add(1)
		go func(stream *Stream) {
			defer m.wg.Done()
			stream.Run(streamCtx)
		}(stream)
	}
	m.log.Info("replication started", zap.String("remote", base))
}

// teardown cancels every stream and waits for all of them to stop. No
// stream may still be writing checkpoints when a new set starts, or two
// generations would interleave against different hubs.
func (m *Manager) teardown() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.base = ""
	m.streams = nil
	m.mu.Unlock()
	m.log.Info("replication stopped")
}

// remoteURL extracts remoteDbUrl from the settings snapshot.
func remoteURL(docs []store.Document) string {
	for _, doc := range docs {
		if doc.ID != model.SettingsID {
			continue
		}
		var settings model.Settings
		if err := json.Unmarshal(doc.Body, &settings); err != nil {
			return ""
		}
		return settings.RemoteDBURL
	}
	return ""
}
