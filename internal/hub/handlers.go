package hub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/store"
)

// changesQuery mirrors the stream's pull parameters.
type changesQuery struct {
	Since     int64  `form:"since"`
	Limit     int    `form:"limit"`
	Feed      string `form:"feed"`
	Heartbeat int64  `form:"heartbeat"` // milliseconds
}

// handleChanges serves GET /:collection/changes. With feed=longpoll and
// nothing new, the request parks until a commit lands in the collection
// or the heartbeat elapses, then answers (possibly empty). A normal feed
// answers immediately.
func (s *Server) handleChanges(c *gin.Context) {
	collection, ok := s.collection(c)
	if !ok {
		return
	}
	var q changesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, last, err := s.store.ChangesSince(c.Request.Context(), collection, q.Since, q.Limit)
	if err != nil {
		s.log.Error("changes query failed", zap.String("collection", collection), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "changes query failed"})
		return
	}

	if len(docs) == 0 && q.Feed == "longpoll" {
		wake, sub, err := s.subscribeWake(c, collection)
		if err == nil {
			defer sub.Cancel()
			// Re-query after registering: a commit that raced the first
			// query is either in this result or will fire the wake.
			docs, last, err = s.store.ChangesSince(c.Request.Context(), collection, q.Since, q.Limit)
			if err != nil {
				s.log.Error("changes query failed", zap.String("collection", collection), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "changes query failed"})
				return
			}
			if len(docs) == 0 {
				if !s.waitForChange(c, wake, q.Heartbeat) {
					return // client gone
				}
				docs, last, err = s.store.ChangesSince(c.Request.Context(), collection, q.Since, q.Limit)
				if err != nil {
					s.log.Error("changes query failed", zap.String("collection", collection), zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "changes query failed"})
					return
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":  docs,
		"last_seq": last,
	})
}

// subscribeWake registers a commit signal for the collection. The
// subscription's initial snapshot is skipped: the caller re-queries
// explicitly and only wants subsequent commits.
func (s *Server) subscribeWake(c *gin.Context, collection string) (chan struct{}, *store.Subscription, error) {
	wake := make(chan struct{}, 1)
	initial := true
	sub, err := s.store.Subscribe(c.Request.Context(), collection, nil, func([]store.Document) {
		if initial {
			initial = false
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	return wake, sub, err
}

// waitForChange parks until the collection commits, the heartbeat
// elapses, or the client disconnects. Reports whether the client is
// still there.
func (s *Server) waitForChange(c *gin.Context, wake <-chan struct{}, heartbeatMS int64) bool {
	wait := maxHeartbeat
	if heartbeatMS > 0 && time.Duration(heartbeatMS)*time.Millisecond < wait {
		wait = time.Duration(heartbeatMS) * time.Millisecond
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-wake:
		return true
	case <-timer.C:
		return true
	case <-c.Request.Context().Done():
		return false
	}
}

// handleBulkDocs serves POST /:collection/bulk_docs: the push target.
// The store's ApplyRemote does the last-write-wins arbitration; its
// single-writer lock serializes concurrent pushes from different
// devices.
func (s *Server) handleBulkDocs(c *gin.Context) {
	collection, ok := s.collection(c)
	if !ok {
		return
	}
	var req struct {
		Docs []store.Document `json:"docs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := s.store.ApplyRemote(c.Request.Context(), collection, req.Docs)
	if err != nil {
		if store.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("bulk_docs failed", zap.String("collection", collection), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":  applied,
		"received": len(req.Docs),
		"last_seq": s.store.LastSeq(),
	})
}
