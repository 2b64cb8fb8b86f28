// Package store provides SQLite-backed durable storage for the five kiosk
// collections, with schema validation and encryption at rest.
//
// The store holds whole JSON documents keyed by (collection, id). Every
// write runs through an explicit codec pipeline:
//
//	validate (CUE schema) -> encrypt (AES-256-GCM) -> physical write
//
// and the reverse on read, so every document round-trips byte-for-byte.
//
// # Critical patterns
//
//   - Logical commit order: every committed write is stamped with a seq
//     from a monotonic clock seeded at MAX(seq) on open. ChangesSince and
//     replication checkpoints order by seq, never by wall time.
//   - Deterministic query results: list and change queries order by
//     seq ASC, id ASC so replays and re-subscribes observe the same order.
//   - Durable before notify: change feed subscribers run strictly after
//     the SQLite commit, holding the store's writer lock, so a subscriber
//     never observes a snapshot older than one it has already seen.
//   - Single writer: one connection, one mutex. Writes to the same
//     document are serialized; replication applies remote writes through
//     the same path.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
