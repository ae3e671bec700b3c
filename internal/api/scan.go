package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/domain"
	"github.com/gwas-risk-engine/internal/service"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// scanRun tracks one bulk scan from start through completion, holding its
// cancel handle and the latest progress snapshot for status polling.
type scanRun struct {
	scanID    string
	sessionID string
	cancel    context.CancelFunc
	hub       *progressHub
	done      chan struct{}

	mu     sync.Mutex
	result *service.ScanResult
	err    error
}

func (r *scanRun) finish(result *service.ScanResult, err error) {
	r.mu.Lock()
	r.result = result
	r.err = err
	r.mu.Unlock()
	close(r.done)
}

func (r *scanRun) outcome() (*service.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

// scanManager serializes bulk scans per genotype session and routes progress
// events to websocket subscribers.
type scanManager struct {
	log *logrus.Logger

	mu        sync.Mutex
	runs      map[string]*scanRun
	bySession map[string]string
}

func newScanManager(logger *logrus.Logger) *scanManager {
	return &scanManager{
		log:       logger,
		runs:      make(map[string]*scanRun),
		bySession: make(map[string]string),
	}
}

// begin registers a run for the session. Only one scan per session may be
// active at a time.
func (m *scanManager) begin(sessionID string) (*scanRun, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if scanID, ok := m.bySession[sessionID]; ok {
		if run := m.runs[scanID]; run != nil {
			select {
			case <-run.done:
			default:
				return nil, nil, domain.ErrScanActive
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &scanRun{
		scanID:    uuid.NewString(),
		sessionID: sessionID,
		cancel:    cancel,
		hub:       newProgressHub(),
		done:      make(chan struct{}),
	}
	m.runs[run.scanID] = run
	m.bySession[sessionID] = run.scanID
	return run, ctx, nil
}

func (m *scanManager) get(scanID string) (*scanRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[scanID]
	return run, ok
}

// cancelAll stops every in-flight scan. Used during server shutdown.
func (m *scanManager) cancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		run.cancel()
	}
}

// progressHub fans one scan's progress stream out to subscribers. It also
// retains the latest event so status polls never race the stream.
type progressHub struct {
	mu     sync.Mutex
	latest domain.ScanProgress
	subs   map[chan domain.ScanProgress]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[chan domain.ScanProgress]struct{})}
}

// Publish implements domain.ProgressSink. Slow subscribers miss intermediate
// events rather than blocking the scan.
func (h *progressHub) Publish(p domain.ScanProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = p
	for ch := range h.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (h *progressHub) subscribe() chan domain.ScanProgress {
	ch := make(chan domain.ScanProgress, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *progressHub) unsubscribe(ch chan domain.ScanProgress) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *progressHub) snapshot() domain.ScanProgress {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// scanRequest is the POST /scan body
type scanRequest struct {
	SessionID string              `json:"session_id" binding:"required"`
	Filters   domain.StudyFilters `json:"filters"`
}

// handleStartScan launches an asynchronous bulk scan for a session
func (s *Server) handleStartScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, domain.ErrInvalidInput, "session_id is required", err)
		return
	}

	genotypes, err := s.genotypes.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.fail(c, http.StatusNotFound, domain.ErrSessionMissing, "no genotype uploaded for session", err)
			return
		}
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, "could not load genotype", err)
		return
	}

	run, ctx, err := s.scans.begin(req.SessionID)
	if err != nil {
		s.fail(c, http.StatusConflict, domain.ErrScanFailed, "a scan is already running for this session", err)
		return
	}

	go func() {
		result, runErr := s.scanner.Run(ctx, run.scanID, genotypes, req.Filters, run.hub)
		run.finish(result, runErr)
		if runErr != nil {
			s.log.WithFields(logrus.Fields{
				"scan_id":    run.scanID,
				"session_id": run.sessionID,
				"error":      runErr,
			}).Error("Bulk scan failed")
			run.hub.Publish(domain.ScanProgress{
				ScanID: run.scanID,
				State:  domain.ScanError,
				Error:  runErr.Error(),
			})
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"scan_id":    run.scanID,
		"session_id": req.SessionID,
		"state":      domain.ScanFetching,
	})
}

// handleScanStatus reports the latest progress for a scan, plus the final
// result summary once the run has finished.
func (s *Server) handleScanStatus(c *gin.Context) {
	run, ok := s.scans.get(c.Param("id"))
	if !ok {
		s.fail(c, http.StatusNotFound, domain.ErrInvalidInput, "unknown scan id", domain.ErrNotFound)
		return
	}

	progress := run.hub.snapshot()
	if progress.ScanID == "" {
		progress.ScanID = run.scanID
		progress.State = domain.ScanFetching
	}

	resp := gin.H{
		"scan_id":  run.scanID,
		"progress": progress,
	}

	select {
	case <-run.done:
		result, err := run.outcome()
		if err != nil {
			resp["state"] = domain.ScanError
			resp["error"] = err.Error()
		} else {
			resp["state"] = domain.ScanComplete
			resp["studies_processed"] = result.StudiesProcessed
			resp["studies_matched"] = result.StudiesMatched
			resp["batches_fetched"] = result.BatchesFetched
			resp["elapsed_ms"] = result.Elapsed.Milliseconds()
			resp["cancelled"] = result.Cancelled
		}
	default:
		resp["state"] = progress.State
	}

	c.JSON(http.StatusOK, resp)
}

// handleCancelScan requests cooperative cancellation of a running scan.
// The scan stops at the next batch boundary and keeps its partial results.
func (s *Server) handleCancelScan(c *gin.Context) {
	run, ok := s.scans.get(c.Param("id"))
	if !ok {
		s.fail(c, http.StatusNotFound, domain.ErrInvalidInput, "unknown scan id", domain.ErrNotFound)
		return
	}

	run.cancel()
	c.JSON(http.StatusAccepted, gin.H{
		"scan_id": run.scanID,
		"state":   domain.ScanAnalyzing,
	})
}

// handleScanProgress streams progress events for a scan over a websocket
func (s *Server) handleScanProgress(c *gin.Context) {
	run, ok := s.scans.get(c.Param("id"))
	if !ok {
		s.fail(c, http.StatusNotFound, domain.ErrInvalidInput, "unknown scan id", domain.ErrNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithField("error", err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := run.hub.subscribe()
	defer run.hub.unsubscribe(events)

	// Send the latest snapshot so late subscribers see state immediately.
	if latest := run.hub.snapshot(); latest.ScanID != "" {
		if err := conn.WriteJSON(latest); err != nil {
			return
		}
	}

	for {
		select {
		case p := <-events:
			if err := conn.WriteJSON(p); err != nil {
				return
			}
			if p.State == domain.ScanComplete || p.State == domain.ScanError {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(p.State)))
				return
			}
		case <-run.done:
			// Drain any buffered final event before closing.
			select {
			case p := <-events:
				conn.WriteJSON(p)
			case <-time.After(100 * time.Millisecond):
			}
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished"))
			return
		}
	}
}
