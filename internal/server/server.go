// Package server exposes the query engine over HTTP: a JSON query
// endpoint, liveness and stats endpoints, and a websocket stats stream.
package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/domain"
	"github.com/fillbot/gofill/internal/processor"
)

var srvLog = logrus.WithField("component", "server")

// Server serves queries over HTTP. The engine underneath handles one
// query at a time, so Resolve calls are serialized behind a mutex.
type Server struct {
	proc    *processor.Processor
	mu      sync.Mutex
	started time.Time
}

func New(proc *processor.Processor) *Server {
	return &Server{
		proc:    proc,
		started: time.Now(),
	}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api/v1")
	api.POST("/query", s.handleQueryPost)
	api.GET("/query", s.handleQueryGet)
	api.GET("/stats", s.handleStats)
	api.GET("/stream", s.handleStream)

	return r
}

type queryRequest struct {
	Kind  string `json:"kind"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

func (s *Server) handleQueryPost(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	s.answer(c, domain.Query{Kind: domain.QueryKind(req.Kind), Start: req.Start, End: req.End})
}

func (s *Server) handleQueryGet(c *gin.Context) {
	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be an integer"})
		return
	}
	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be an integer"})
		return
	}
	s.answer(c, domain.Query{Kind: domain.QueryKind(c.Query("kind")), Start: start, End: end})
}

// answer validates, resolves and renders a single query.
func (s *Server) answer(c *gin.Context, q domain.Query) {
	q, err := s.proc.ValidateQuery(q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	begin := time.Now()

	s.mu.Lock()
	res, err := s.proc.Resolve(c.Request.Context(), q)
	s.mu.Unlock()

	if err != nil {
		srvLog.WithFields(logrus.Fields{
			"id":    id,
			"kind":  q.Kind,
			"start": q.Start,
			"end":   q.End,
		}).Errorf("query failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"id": id, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"kind":       q.Kind,
		"start":      q.Start,
		"end":        q.End,
		"answer":     res.String(),
		"elapsed_ms": time.Since(begin).Milliseconds(),
	})
}
