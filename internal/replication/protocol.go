// Package replication keeps a device store converged with a hub. Each of
// the five collections gets its own stream with independent push and pull
// checkpoints; the manager starts and cancels the streams as a unit,
// driven by the remoteDbUrl setting.
//
// Replication never blocks kiosk operation. Transport failures degrade to
// a status flag and a retry; they are not surfaced to the mutating
// caller.
package replication

import (
	"errors"
	"fmt"

	"github.com/timekiosk/timekiosk/internal/store"
)

// Wire format, shared with the hub. A document travels as the store's
// envelope: id, rev, deleted flag, and the plain JSON body.

// changesResponse is the hub's answer to GET {collection}/changes.
type changesResponse struct {
	Results []store.Document `json:"results"`
	LastSeq int64            `json:"last_seq"`
}

// bulkDocsRequest is the push payload for POST {collection}/bulk_docs.
type bulkDocsRequest struct {
	Docs []store.Document `json:"docs"`
}

// bulkDocsResponse acknowledges a push. Applied counts revision winners;
// losers were dropped by the hub's last-write-wins arbitration, which is
// an acknowledgement too, not a failure.
type bulkDocsResponse struct {
	Applied int `json:"applied"`
}

// TransportError wraps a network or protocol failure against the hub.
type TransportError struct {
	Op     string // "push" or "pull"
	URL    string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("replication %s %s: HTTP %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("replication %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a replication transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
