package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/fillbot/gofill/internal/metrics"
)

// statsInterval is the push cadence of the websocket stream.
const statsInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream carries no client input and only public counters, so
	// cross-origin dashboards may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stats is the payload served by /api/v1/stats and pushed on the stream.
type Stats struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	CacheLen      int              `json:"cache_len"`
	CacheCap      int              `json:"cache_cap"`
	Counters      map[string]int64 `json:"counters"`
}

func (s *Server) snapshot() Stats {
	cache := s.proc.Cache()
	return Stats{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		CacheLen:      cache.Len(),
		CacheCap:      cache.Cap(),
		Counters: map[string]int64{
			"queries_total":    metrics.QueriesTotal.Value(),
			"query_errors":     metrics.QueryErrors.Value(),
			"cache_hits":       metrics.CacheHits.Value(),
			"cache_misses":     metrics.CacheMisses.Value(),
			"prefetch_buckets": metrics.PrefetchBuckets.Value(),
			"adapter_calls":    metrics.AdapterCalls.Value(),
			"adapter_errors":   metrics.AdapterErrors.Value(),
			"fills_fetched":    metrics.FillsFetched.Value(),
			"buckets_stored":   metrics.BucketsStored.Value(),
			"buckets_evicted":  metrics.BucketsEvicted.Value(),
		},
	}
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

// handleStream upgrades to a websocket and pushes a stats snapshot
// every second until the client goes away.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		srvLog.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	srvLog.Debugf("stats stream opened for %s", conn.RemoteAddr())

	if err := s.push(conn); err != nil {
		return
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if err := s.push(conn); err != nil {
				srvLog.Debugf("stats stream closed: %v", err)
				return
			}
		}
	}
}

func (s *Server) push(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(s.snapshot())
}
