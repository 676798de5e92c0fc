package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/adapter/excel"
	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/couchcryptid/meteorite-playback/internal/region"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Playback is the controller surface exposed over HTTP.
type Playback interface {
	sharedobs.ReadinessChecker
	Dispatch(in playback.Intent) error
	Status() playback.Status
	Records() []domain.LandingRecord
}

// Server exposes health, readiness, metrics, the playback control API and
// the WebSocket stream.
type Server struct {
	httpServer *http.Server
	playback   Playback
	logger     *slog.Logger
}

// NewServer creates an HTTP server. stream serves /ws and may be nil.
func NewServer(addr string, pb Playback, stream http.Handler, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     router,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: it would cut long-lived WebSocket connections.
			IdleTimeout: 60 * time.Second,
		},
		playback: pb,
		logger:   logger,
	}

	router.Get("/healthz", sharedobs.LivenessHandler())
	router.Get("/readyz", sharedobs.ReadinessHandler(pb))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/playback", s.handleStatus)
		r.Post("/playback/{intent}", s.handleIntent)
		r.Delete("/playback/focus", s.handleClearFocus)
		r.Get("/breakdown", s.handleBreakdown)
	})
	if stream != nil {
		router.Handle("/ws", stream)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.playback.Status())
}

var postIntents = map[string]playback.IntentType{
	"start":   playback.IntentStart,
	"pause":   playback.IntentPause,
	"resume":  playback.IntentResume,
	"toggle":  playback.IntentToggle,
	"seek":    playback.IntentSeek,
	"release": playback.IntentRelease,
	"focus":   playback.IntentFocus,
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	typ, ok := postIntents[chi.URLParam(r, "intent")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown playback intent")
		return
	}

	in := playback.Intent{Type: typ, Region: regionParam(r)}
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		in.Year = &year
	}
	s.dispatch(w, r, in)
}

func (s *Server) handleClearFocus(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, playback.Intent{Type: playback.IntentClearFocus})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, in playback.Intent) {
	if err := s.playback.Dispatch(in); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, playback.ErrUnknownIntent) {
			status = http.StatusNotFound
		}
		s.logger.Debug("intent rejected", "type", in.Type, "error", err,
			"request_id", chimw.GetReqID(r.Context()))
		writeError(w, status, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.playback.Status())
}

type breakdownResponse struct {
	Region string                   `json:"region,omitempty"`
	Total  int                      `json:"total"`
	Shares []domain.SuperclassShare `json:"shares"`
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	reg := regionParam(r)
	if r.URL.Query().Get("format") == "xlsx" {
		s.writeWorkbook(w, r, reg)
		return
	}
	shares := domain.Breakdown(s.playback.Records(), reg)
	total := 0
	for _, sh := range shares {
		total += sh.Count
	}
	sharedobs.WriteJSON(w, http.StatusOK, breakdownResponse{Region: reg, Total: total, Shares: shares})
}

func (s *Server) writeWorkbook(w http.ResponseWriter, r *http.Request, reg string) {
	var buf bytes.Buffer
	if err := excel.WriteReport(&buf, s.playback.Records(), reg); err != nil {
		s.logger.Error("export breakdown workbook", "error", err, "request_id", chimw.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="breakdown.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func regionParam(r *http.Request) string {
	return region.Canonical(r.URL.Query().Get("region"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
