// Package hub is the replication server the devices converge through. It
// speaks the same per-collection changes/bulk_docs protocol the streams
// do, arbitrates concurrent pushes last-write-wins by revision, and
// persists into its own store.
package hub

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// DefaultAddr is the conventional hub listen address.
const DefaultAddr = ":5984"

// maxHeartbeat caps how long a longpoll may idle before the hub answers
// with an empty batch.
const maxHeartbeat = 60 * time.Second

// Server serves the replication protocol over one hub store.
type Server struct {
	store  *store.Store
	log    *zap.Logger
	engine *gin.Engine
}

// NewServer wires routes over an open store. The CORS policy is fully
// permissive: the hub sits on a trusted shop-floor network and browser
// admin tools talk to it directly.
func NewServer(st *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{store: st, log: logger}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	engine.GET("/", s.handleInfo)
	engine.GET("/:collection/changes", s.handleChanges)
	engine.POST("/:collection/bulk_docs", s.handleBulkDocs)
	s.engine = engine
	return s
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Longpolls observe the shutdown through their own timeouts.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.Info("hub listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timekiosk":   "hub",
		"collections": model.Collections,
		"last_seq":    s.store.LastSeq(),
	})
}

// collection resolves and checks the path parameter.
func (s *Server) collection(c *gin.Context) (string, bool) {
	name := c.Param("collection")
	for _, known := range model.Collections {
		if name == known {
			return name, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
	return "", false
}
