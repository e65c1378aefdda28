// Package server exposes the bot's state over HTTP and a websocket feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/crumbot/internal/bot"
	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/journal"
	"github.com/GriffinCanCode/crumbot/internal/strategy"
	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Bot is the running manager as seen by the server.
type Bot interface {
	Snapshot() *game.Snapshot
	Stats() bot.Stats
	LastDecision() (strategy.Decision, bool)
	Feed() *bot.Feed
	Stale() bool
}

// Ranker renders purchase rankings and accepts multiplier corrections.
type Ranker interface {
	Ranked(snap *game.Snapshot) []strategy.Decision
	Report(snap *game.Snapshot) string
	SetMultiplier(name string, m float64) error
}

// History lists recorded purchases.
type History interface {
	Recent(n int) ([]journal.Record, error)
}

// ClientMessage is anything a websocket client sends.
type ClientMessage struct {
	Type string `json:"type"`
}

type PongMessage struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/snapshot.
type StatusResponse struct {
	Snapshot     *game.Snapshot     `json:"snapshot"`
	AgeSeconds   float64            `json:"age_seconds"`
	Stale        bool               `json:"stale"`
	Stats        bot.Stats          `json:"stats"`
	LastDecision *strategy.Decision `json:"last_decision,omitempty"`
}

type multiplierRequest struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and websocket connections.
type Server struct {
	bot     Bot
	ranker  Ranker
	history History
	metrics http.Handler
	now     func() time.Time

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a server. history and metrics may be nil.
func New(b Bot, ranker Ranker, history History, metrics http.Handler) *Server {
	return &Server{
		bot:     b,
		ranker:  ranker,
		history: history,
		metrics: metrics,
		now:     time.Now,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/journal", s.handleJournal)
	mux.HandleFunc("POST /api/multiplier", s.handleMultiplier)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

// Serve listens on addr and broadcasts feed events until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go s.Broadcast(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	trace.Logger(ctx).Info("status server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return apperrors.Wrapf(err, apperrors.Unavailable, "listen on %s", addr)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Broadcast forwards every feed event to connected websocket clients.
func (s *Server) Broadcast(ctx context.Context) {
	events := s.bot.Feed().Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			s.mu.RLock()
			for conn := range s.conns {
				go s.write(ctx, conn, evt)
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg any) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for _, evt := range s.bot.Feed().Recent("", BacklogEvents) {
		s.write(ctx, conn, evt)
	}

	limiter := &rateLimiter{}
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}
		if !limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}
		switch msg.Type {
		case "ping":
			s.write(ctx, conn, PongMessage{Type: "pong", At: s.now()})
		case "status":
			s.write(ctx, conn, s.status())
		default:
			s.write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + strconv.Quote(msg.Type)})
		}
	}
}

func (s *Server) status() StatusResponse {
	snap := s.bot.Snapshot()
	resp := StatusResponse{
		Snapshot:   snap,
		AgeSeconds: snap.Age(s.now()).Seconds(),
		Stale:      s.bot.Stale(),
		Stats:      s.bot.Stats(),
	}
	if dec, ok := s.bot.LastDecision(); ok {
		resp.LastDecision = &dec
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.bot.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"seq":    snap.Seq,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.ranker.Report(s.bot.Snapshot())))
}

func (s *Server) handleRanking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ranker.Ranked(s.bot.Snapshot()))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := DefaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxJournalLimit)
	}
	recs, err := s.history.Recent(limit)
	if err != nil {
		trace.Logger(r.Context()).Error("journal read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleMultiplier(w http.ResponseWriter, r *http.Request) {
	var req multiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.ranker.SetMultiplier(req.Name, req.Multiplier); err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.NotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	trace.Logger(r.Context()).Info("multiplier updated", "name", req.Name, "multiplier", req.Multiplier)
	writeJSON(w, http.StatusOK, req)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorMessage{Type: "error", Message: msg})
}
