package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// cacheItem stores one rendered payload and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// DashboardServer serves the dashboard snapshot as JSON and the anniversary
// feed as an iCalendar file.
type DashboardServer struct {
	// Both caches use atomic.Pointer for lock-free reads. Content is read
	// frequently by clients but republished only on the refresh tickers, so
	// this beats a RWMutex by eliminating contention on the hot path.
	snapshot atomic.Pointer[cacheItem]
	feed     atomic.Pointer[cacheItem]
	Port     string
}

// NewDashboardServer creates a new instance of the server.
func NewDashboardServer(port string) *DashboardServer {
	return &DashboardServer{
		Port: port,
	}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *DashboardServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return fmt.Errorf(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleSnapshotRequest)
	mux.HandleFunc(config.RouteDashboard, s.handleSnapshotRequest)
	mux.HandleFunc(config.RouteCalendar, s.handleFeedRequest)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// PublishSnapshot atomically replaces the served dashboard JSON.
func (s *DashboardServer) PublishSnapshot(data []byte) {
	s.publish(&s.snapshot, data)
}

// PublishFeed atomically replaces the served iCalendar feed.
func (s *DashboardServer) PublishFeed(data []byte) {
	s.publish(&s.feed, data)
}

func (s *DashboardServer) publish(cache *atomic.Pointer[cacheItem], data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}

	// Atomic store ensures that any concurrent reader sees either the old or
	// the new complete item, never a partial state.
	cache.Store(item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

func (s *DashboardServer) handleSnapshotRequest(w http.ResponseWriter, r *http.Request) {
	// The root pattern matches everything; anything but the two snapshot
	// routes is a miss.
	if r.URL.Path != config.RouteRoot && r.URL.Path != config.RouteDashboard {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
	s.serveCached(w, r, s.snapshot.Load(), config.MimeApplicationJSON)
}

func (s *DashboardServer) handleFeedRequest(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.feed.Load(), config.MimeTextCalendar)
}

// serveCached writes a cached payload with conditional-request support.
func (s *DashboardServer) serveCached(w http.ResponseWriter, r *http.Request, item *cacheItem, mimeType string) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Readiness Check
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	// 3. Set Response Headers
	w.Header().Set(config.HeaderContentType, mimeType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 4. Check Conditional Headers (Browser Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// Content not newer than the client cache means 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 5. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
