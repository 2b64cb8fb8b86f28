package store

// The change feed delivers every committed mutation to all current
// subscribers in commit order. Delivery is synchronous-after-commit:
// the writer holds the store lock while notifying, so no subscriber can
// observe snapshots out of order. A late subscriber receives the current
// snapshot first, then only subsequent changes.

import "sync"

// Predicate filters documents in a live query. A nil predicate matches
// every live document.
type Predicate func(Document) bool

// SnapshotFunc receives the collection's full matching result set after
// every committed write. The slice is owned by the subscriber.
type SnapshotFunc func(docs []Document)

// Subscription is a handle on a live query. Cancel detaches it; the feed
// never calls the subscriber again after Cancel returns.
type Subscription struct {
	id         int
	collection string
	pred       Predicate
	fn         SnapshotFunc
	feed       *feed
}

// Cancel removes the subscription. Idempotent.
func (sub *Subscription) Cancel() {
	sub.feed.remove(sub.collection, sub.id)
}

type feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]*Subscription
	closed bool
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[int]*Subscription)}
}

func (f *feed) add(collection string, pred Predicate, fn SnapshotFunc) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{id: f.nextID, collection: collection, pred: pred, fn: fn, feed: f}
	if f.closed {
		return sub // inert handle; store is shutting down
	}
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[int]*Subscription)
	}
	f.subs[collection][sub.id] = sub
	return sub
}

func (f *feed) remove(collection string, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[collection], id)
}

// notify fans a committed snapshot out to the collection's subscribers,
// applying each subscriber's predicate.
func (f *feed) notify(collection string, docs []Document) {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs[collection]))
	for _, sub := range f.subs[collection] {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.fn(filterDocs(docs, sub.pred))
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[string]map[int]*Subscription)
}

func filterDocs(docs []Document, pred Predicate) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if pred == nil || pred(d) {
			out = append(out, d)
		}
	}
	return out
}
