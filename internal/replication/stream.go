package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/store"
)

// State is the lifecycle of one replication stream.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const (
	// batchSize caps both push and pull batches.
	batchSize = 60
	// retryDelay is the pause after a transport failure before the next
	// attempt.
	retryDelay = 5 * time.Second
	// heartbeat keeps the pull longpoll alive through idle periods.
	heartbeat = 60 * time.Second
	// optimisticConnectDelay is how long a stream stays in Connecting
	// before assuming the link is up. The first confirmed round trip makes
	// it definite; an error cancels it.
	optimisticConnectDelay = 2500 * time.Millisecond
)

// Status is a point-in-time view of one stream.
type Status struct {
	Collection string `json:"collection"`
	State      State  `json:"state"`
	// Confirmed is true once a round trip has actually succeeded, as
	// opposed to the optimistic Connected assumed after a quiet start.
	Confirmed bool   `json:"confirmed"`
	LastError string `json:"lastError,omitempty"`
}

// Stream replicates one collection against {base}/{collection}/. Both
// directions run until the context is cancelled; errors degrade to the
// Error state and a retry, never a dead stream.
type Stream struct {
	store      *store.Store
	client     *http.Client
	base       string
	collection string
	log        *zap.Logger

	mu        sync.Mutex
	state     State
	confirmed bool
	lastErr   string
}

// NewStream builds a stream for one collection. base is the hub root URL
// without a trailing slash.
func NewStream(st *store.Store, client *http.Client, base, collection string, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		store:      st,
		client:     client,
		base:       base,
		collection: collection,
		log:        logger.With(zap.String("collection", collection)),
		state:      StateDisconnected,
	}
}

// Status returns the stream's current state.
func (st *Stream) Status() Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	return Status{
		Collection: st.collection,
		State:      st.state,
		Confirmed:  st.confirmed,
		LastError:  st.lastErr,
	}
}

// Run drives both directions until ctx is cancelled. It always returns
// ctx.Err(); transport failures are absorbed into the status.
func (st *Stream) Run(ctx context.Context) error {
	st.setState(StateConnecting, nil)

	// Assume the link is up if nothing fails quickly. The kiosk shows
	// "connected" for the common case of a healthy but idle hub, and the
	// first real round trip or error corrects the guess.
	optimistic := time.AfterFunc(optimisticConnectDelay, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.state == StateConnecting {
			st.state = StateConnected
		}
	})
	defer optimistic.Stop()

	// The push loop wakes on local commits; the buffered channel folds a
	// burst of commits into one pass.
	wake := make(chan struct{}, 1)
	sub, err := st.store.Subscribe(ctx, st.collection, nil, func([]store.Document) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.pushLoop(ctx, wake)
	}()
	go func() {
		defer wg.Done()
		st.pullLoop(ctx)
	}()
	wg.Wait()

	st.setState(StateDisconnected, nil)
	return ctx.Err()
}

// pushLoop drains local changes to the hub, batch by batch, then sleeps
// until the next local commit.
func (st *Stream) pushLoop(ctx context.Context, wake <-chan struct{}) {
	for {
		drained, err := st.pushOnce(ctx)
		if err != nil {
			st.setState(StateError, err)
			st.log.Warn("push failed", zap.Error(err))
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}
		if !drained {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-wake:
		}
	}
}

// pushOnce sends one batch. Returns drained=true when the local change
// stream is exhausted.
func (st *Stream) pushOnce(ctx context.Context) (bool, error) {
	since, err := st.store.Checkpoint(ctx, st.collection, "push", st.base)
	if err != nil {
		return false, err
	}
	docs, last, err := st.store.ChangesSince(ctx, st.collection, since, batchSize)
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return true, nil
	}

	payload, err := json.Marshal(bulkDocsRequest{Docs: docs})
	if err != nil {
		return false, fmt.Errorf("encode push batch: %w", err)
	}
	pushURL := fmt.Sprintf("%s/%s/bulk_docs", st.base, st.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pushURL, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := st.client.Do(req)
	if err != nil {
		return false, &TransportError{Op: "push", URL: pushURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, &TransportError{Op: "push", URL: pushURL, Status: resp.StatusCode}
	}
	var ack bulkDocsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return false, &TransportError{Op: "push", URL: pushURL, Err: err}
	}

	// The checkpoint only advances after the hub acknowledged the batch,
	// so a crash between send and ack re-sends rather than skips.
	if err := st.store.SetCheckpoint(ctx, st.collection, "push", st.base, last); err != nil {
		return false, err
	}
	st.setState(StateConnected, nil)
	st.log.Debug("pushed batch",
		zap.Int("docs", len(docs)),
		zap.Int("applied", ack.Applied),
		zap.Int64("checkpoint", last))
	return len(docs) < batchSize, nil
}

// pullLoop longpolls the hub's change stream and applies what arrives.
func (st *Stream) pullLoop(ctx context.Context) {
	for {
		if err := st.pullOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			st.setState(StateError, err)
			st.log.Warn("pull failed", zap.Error(err))
			if !sleep(ctx, retryDelay) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (st *Stream) pullOnce(ctx context.Context) error {
	since, err := st.store.Checkpoint(ctx, st.collection, "pull", st.base)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	q.Set("limit", strconv.Itoa(batchSize))
	q.Set("feed", "longpoll")
	q.Set("heartbeat", strconv.FormatInt(heartbeat.Milliseconds(), 10))
	pullURL := fmt.Sprintf("%s/%s/changes?%s", st.base, st.collection, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pullURL, nil)
	if err != nil {
		return err
	}
	resp, err := st.client.Do(req)
	if err != nil {
		return &TransportError{Op: "pull", URL: pullURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: "pull", URL: pullURL, Status: resp.StatusCode}
	}
	var changes changesResponse
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return &TransportError{Op: "pull", URL: pullURL, Err: err}
	}

	if len(changes.Results) > 0 {
		applied, err := st.store.ApplyRemote(ctx, st.collection, changes.Results)
		if err != nil {
			return err
		}
		st.log.Debug("pulled batch",
			zap.Int("docs", len(changes.Results)),
			zap.Int("applied", applied),
			zap.Int64("checkpoint", changes.LastSeq))
	}
	if err := st.store.SetCheckpoint(ctx, st.collection, "pull", st.base, changes.LastSeq); err != nil {
		return err
	}
	st.setState(StateConnected, nil)
	return nil
}

func (st *Stream) setState(state State, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = state
	switch {
	case err != nil:
		st.lastErr = err.Error()
	case state == StateConnected:
		st.confirmed = true
		st.lastErr = ""
	}
}

// sleep waits for d or cancellation, reporting false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
