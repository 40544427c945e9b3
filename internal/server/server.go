// Package server exposes evaluation and search over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/engine"
	"github.com/hailam/reversi/internal/eval"
)

const (
	maxBodyBytes = 1 << 20
	maxBatchSize = 4096
	maxMoveTime  = time.Minute
)

// Server holds the handlers' dependencies.
type Server struct {
	eval     *eval.Cached
	engine   *engine.Engine
	model    uint64
	workers  int
	defaults engine.SearchLimits
	log      *zap.SugaredLogger
}

// New creates a server. model is reported by /healthz; workers bounds
// batch evaluation concurrency.
func New(ev *eval.Cached, eng *engine.Engine, model uint64, workers int, defaults engine.SearchLimits, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		eval:     ev,
		engine:   eng,
		model:    model,
		workers:  workers,
		defaults: defaults,
		log:      log,
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.HandleHealth)
	r.Post("/evaluate", s.HandleEvaluate)
	r.Post("/evaluate/batch", s.HandleEvaluateBatch)
	r.Post("/search", s.HandleSearch)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server is running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type PositionRequest struct {
	Position string   `json:"position"`
	Moves    []string `json:"moves,omitempty"`
}

type EvaluateResponse struct {
	Score    int     `json:"score"`
	Terminal bool    `json:"terminal"`
	Raw      float64 `json:"raw"`
}

type BatchRequest struct {
	Positions []PositionRequest `json:"positions"`
}

type BatchResponse struct {
	Results []EvaluateResponse `json:"results"`
}

type SearchRequest struct {
	PositionRequest
	Depth      int `json:"depth,omitempty"`
	MoveTimeMS int `json:"movetime_ms,omitempty"`
}

type SearchResponse struct {
	Move  string   `json:"move"`
	Score int      `json:"score"`
	Depth int      `json:"depth"`
	Nodes uint64   `json:"nodes"`
	PV    []string `json:"pv"`
	Book  bool     `json:"book,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.log, w, http.StatusOK, HealthResponse{
		Status: "ok",
		Model:  fmt.Sprintf("%016x", s.model),
	})
}

func (s *Server) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !s.decode(w, r, &req) {
		return
	}

	pos, err := req.parse()
	if err != nil {
		writeJSONError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.eval.Evaluate(r.Context(), pos)
	if err != nil {
		s.writeEvalError(w, err)
		return
	}
	writeJSON(s.log, w, http.StatusOK, toResponse(res))
}

func (s *Server) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Positions) > maxBatchSize {
		writeJSONError(s.log, w, http.StatusBadRequest,
			fmt.Sprintf("batch of %d positions exceeds limit %d", len(req.Positions), maxBatchSize))
		return
	}

	positions := make([]*board.Position, len(req.Positions))
	for i, pr := range req.Positions {
		pos, err := pr.parse()
		if err != nil {
			writeJSONError(s.log, w, http.StatusBadRequest, "positions["+strconv.Itoa(i)+"]: "+err.Error())
			return
		}
		positions[i] = pos
	}

	results, err := s.eval.EvaluateAll(r.Context(), positions, s.workers)
	if err != nil {
		s.writeEvalError(w, err)
		return
	}

	resp := BatchResponse{Results: make([]EvaluateResponse, len(results))}
	for i, res := range results {
		resp.Results[i] = toResponse(res)
	}
	writeJSON(s.log, w, http.StatusOK, resp)
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Depth < 0 || req.Depth >= engine.MaxPly || req.MoveTimeMS < 0 ||
		time.Duration(req.MoveTimeMS)*time.Millisecond > maxMoveTime {
		writeJSONError(s.log, w, http.StatusBadRequest, "invalid search limits")
		return
	}

	pos, err := req.parse()
	if err != nil {
		writeJSONError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}

	limits := s.defaults
	if req.Depth > 0 || req.MoveTimeMS > 0 {
		limits = engine.SearchLimits{
			Depth:    req.Depth,
			MoveTime: time.Duration(req.MoveTimeMS) * time.Millisecond,
		}
	}

	res, err := s.engine.SearchWithLimits(r.Context(), pos, limits)
	if err != nil {
		s.writeEvalError(w, err)
		return
	}

	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.String()
	}
	writeJSON(s.log, w, http.StatusOK, SearchResponse{
		Move:  res.Move.String(),
		Score: res.Score,
		Depth: res.Depth,
		Nodes: res.Nodes,
		PV:    pv,
		Book:  res.Book,
	})
}

// parse builds the position, applying any moves.
func (req PositionRequest) parse() (*board.Position, error) {
	pos := board.NewPosition()
	if req.Position != "" && req.Position != "startpos" {
		var err error
		if pos, err = board.ParseText(req.Position); err != nil {
			return nil, err
		}
	}
	for _, s := range req.Moves {
		m, err := board.ParseMove(s)
		if err != nil {
			return nil, err
		}
		if err := pos.Play(m); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

func toResponse(res eval.Result) EvaluateResponse {
	return EvaluateResponse{Score: res.Score, Terminal: res.Terminal, Raw: res.Raw}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(s.log, w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeEvalError maps evaluation errors to status codes.
func (s *Server) writeEvalError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, eval.ErrInvalidBoardState):
		status = http.StatusBadRequest
	case errors.Is(err, eval.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("evaluation failed: %v", err)
	}
	writeJSONError(s.log, w, status, err.Error())
}

func writeJSON(log *zap.SugaredLogger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("writeJSON encode error: %v", err)
	}
}

func writeJSONError(log *zap.SugaredLogger, w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	log.Debugf("writeJSONError: %s", msg)
}
