package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ajitpratap0/fundcrm/internal/dnd"
	"github.com/ajitpratap0/fundcrm/internal/equity"
	"github.com/ajitpratap0/fundcrm/internal/importer"
	"github.com/ajitpratap0/fundcrm/internal/insight"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/persist"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

const (
	maxActionBody = 1 << 20  // 1 MB
	maxImportBody = 10 << 20 // 10 MB
)

// Saver is the part of the persistence orchestrator the API exposes.
type Saver interface {
	Status() persist.Status
	Retry(ctx context.Context) error
}

// Server is an HTTP API server that exposes CRM operations.
type Server struct {
	dispatcher *state.Dispatcher
	saver      Saver
	importer   *importer.Importer
	briefer    insight.Briefer
	equityOpts equity.Options
	logger     *slog.Logger
	authToken  string // empty = no auth required
}

// NewServer creates a new Server. saver may be nil when nothing is
// persisted; a nil briefer falls back to insight.DigestBriefer.
func NewServer(d *state.Dispatcher, saver Saver, briefer insight.Briefer, equityOpts equity.Options, logger *slog.Logger, authToken string) *Server {
	if briefer == nil {
		briefer = insight.DigestBriefer{}
	}
	return &Server{
		dispatcher: d,
		saver:      saver,
		importer:   importer.New(d, logger),
		briefer:    briefer,
		equityOpts: equityOpts,
		logger:     logger,
		authToken:  authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check needs no auth.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /v1/state", s.auth(s.handleState))
	mux.HandleFunc("POST /v1/actions", s.auth(s.handleAction))
	mux.HandleFunc("POST /v1/drag", s.auth(s.handleDrag))
	mux.HandleFunc("GET /v1/equity", s.auth(s.handleEquity))
	mux.HandleFunc("GET /v1/save-status", s.auth(s.handleSaveStatus))
	mux.HandleFunc("POST /v1/save/retry", s.auth(s.handleSaveRetry))
	mux.HandleFunc("POST /v1/import", s.auth(s.handleImport))
	mux.HandleFunc("GET /v1/vcs/{id}/brief", s.auth(s.handleBrief))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stateResponse is returned by GET /v1/state.
type stateResponse struct {
	State models.State `json:"state"`
	Stats models.Stats `json:"stats"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st := s.dispatcher.State()
	s.writeJSON(w, http.StatusOK, stateResponse{State: st, Stats: st.Summarize()})
}

// actionResponse is returned by POST /v1/actions and POST /v1/drag.
type actionResponse struct {
	Applied bool         `json:"applied"`
	Kind    state.Kind   `json:"kind,omitempty"`
	Event   *state.Event `json:"event,omitempty"`
}

func (s *Server) dispatch(w http.ResponseWriter, a state.Action) {
	_, ev := s.dispatcher.Dispatch(a)
	resp := actionResponse{Kind: a.Kind()}
	if !ev.IsZero() {
		resp.Event = &ev
	}
	if ev.Level == state.LevelError {
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Applied = !ev.IsZero()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := state.DecodeAction(body)
	if err != nil {
		if errors.Is(err, state.ErrUnknownAction) {
			s.writeError(w, http.StatusBadRequest, "unknown action type")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid action")
		return
	}
	s.dispatch(w, a)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxActionBody)
	var g dnd.Gesture
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, ok := dnd.Resolve(s.dispatcher.State(), g)
	if !ok {
		s.writeJSON(w, http.StatusOK, actionResponse{})
		return
	}
	s.dispatch(w, a)
}

// equityResponse is returned by GET /v1/equity.
type equityResponse struct {
	Actual        []models.EquityPoint `json:"actual"`
	Target        []models.EquityPoint `json:"target"`
	FounderEquity float64              `json:"founder_equity"`
	FounderSeries []float64            `json:"founder_series"`
}

func (s *Server) handleEquity(w http.ResponseWriter, _ *http.Request) {
	series := equity.Compute(s.dispatcher.State(), s.equityOpts)
	s.writeJSON(w, http.StatusOK, equityResponse{
		Actual:        series.Actual,
		Target:        series.Target,
		FounderEquity: equity.FounderEquity(series.Actual),
		FounderSeries: equity.FounderSeries(series.Actual),
	})
}

func (s *Server) handleSaveStatus(w http.ResponseWriter, _ *http.Request) {
	if s.saver == nil {
		s.writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	s.writeJSON(w, http.StatusOK, s.saver.Status())
}

func (s *Server) handleSaveRetry(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		s.writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	if err := s.saver.Retry(r.Context()); err != nil {
		s.logger.Warn("manual save retry failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, s.saver.Status())
		return
	}
	s.writeJSON(w, http.StatusOK, s.saver.Status())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.importer.Import(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrSheetNotFound),
			errors.Is(err, importer.ErrHeaderNotFound),
			errors.Is(err, importer.ErrMissingColumns),
			errors.Is(err, importer.ErrNoValidRows):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Warn("import failed", "error", err)
			s.writeError(w, http.StatusBadRequest, "could not read workbook")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st := s.dispatcher.State()
	vc, ok := st.VCs[id]
	if !ok {
		s.writeError(w, http.StatusNotFound, "vc not found")
		return
	}
	var round *models.Round
	if roundID, placed := st.ContainerOf(id); placed && roundID != "" {
		round = &st.Rounds[st.RoundByID(roundID)]
	}

	brief, err := s.briefer.Brief(r.Context(), vc, round)
	if err != nil {
		if errors.Is(err, insight.ErrNoNotes) {
			s.writeError(w, http.StatusUnprocessableEntity, "vc has no meeting notes")
			return
		}
		s.logger.Error("failed to brief vc", "id", id, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to generate brief")
		return
	}
	s.writeJSON(w, http.StatusOK, brief)
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
