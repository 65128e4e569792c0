// Package feed exposes a Sighter over HTTP: orientation readings stream in
// over a WebSocket and sightings are taken with a POST.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thurmanmarka/skyfix"
	"github.com/thurmanmarka/skyfix/internal/logging"
)

// Routes.
const (
	PathReadings = "/readings"
	PathSighting = "/sighting"
	PathLatest   = "/latest"
)

// maxMessage bounds one WebSocket reading and one sighting request body.
const maxMessage = 16 * 1024

// Options configures a Server.
type Options struct {
	Logger logging.Logger

	// Metrics is mounted at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	// Now supplies the sighting time when a request does not carry one.
	Now func() time.Time
}

// Server routes feed requests to a Sighter.
type Server struct {
	sighter  *skyfix.Sighter
	log      logging.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// SightingRequest is the body of POST /sighting.
type SightingRequest struct {
	// Body is required.
	Body *skyfix.Body `json:"body"`
	// Time defaults to the server's clock.
	Time *time.Time `json:"time,omitempty"`
}

// LatestResponse is the body of GET /latest.
type LatestResponse struct {
	AltAz skyfix.AltAz `json:"altaz"`
	Time  time.Time    `json:"time"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// New builds a Server around s.
func New(s *skyfix.Sighter, opts Options) *Server {
	srv := &Server{
		sighter: s,
		log:     opts.Logger,
		now:     opts.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// Readings come from a phone page served elsewhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	if srv.log == nil {
		srv.log = logging.Noop()
	}
	if srv.now == nil {
		srv.now = time.Now
	}

	srv.mux.HandleFunc("GET "+PathReadings, srv.handleReadings)
	srv.mux.HandleFunc("POST "+PathSighting, srv.handleSighting)
	srv.mux.HandleFunc("GET "+PathLatest, srv.handleLatest)
	if opts.Metrics != nil && opts.MetricsPath != "" {
		srv.mux.Handle("GET "+opts.MetricsPath, opts.Metrics)
	}
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is done or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.log.Info(ctx, "feed listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// handleReadings upgrades to a WebSocket and feeds every JSON reading it
// receives into the Sighter. Rejected readings get an ErrorResponse back;
// accepted ones are not acknowledged.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	log := s.log.With(logging.String("remote", r.RemoteAddr))
	log.Debug(r.Context(), "orientation feed connected")

	for {
		var rd skyfix.Reading
		if err := conn.ReadJSON(&rd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn(r.Context(), "orientation feed closed", logging.Err(err))
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				_ = conn.WriteJSON(ErrorResponse{Error: err.Error(), Kind: "bad_reading"})
				continue
			}
			return
		}
		if err := s.sighter.Observe(rd); err != nil {
			if werr := conn.WriteJSON(ErrorResponse{Error: err.Error(), Kind: "rejected_reading"}); werr != nil {
				return
			}
		}
	}
}

func (s *Server) handleSighting(w http.ResponseWriter, r *http.Request) {
	var req SightingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessage))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	if req.Body == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "sighting request names no body", Kind: "unknown_body"})
		return
	}
	t := s.now()
	if req.Time != nil {
		t = *req.Time
	}

	est, err := s.sighter.TakeSighting(r.Context(), *req.Body, t)
	if err != nil {
		status, kind := classify(err)
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	aa, at, ok := s.sighter.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: skyfix.ErrMissingReading.Error(), Kind: "missing_reading"})
		return
	}
	writeJSON(w, http.StatusOK, LatestResponse{AltAz: aa, Time: at})
}

// classify maps sighting errors to an HTTP status and a stable kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, skyfix.ErrStaleReading):
		return http.StatusConflict, "stale_reading"
	case errors.Is(err, skyfix.ErrMissingReading):
		return http.StatusConflict, "missing_reading"
	case errors.Is(err, skyfix.ErrNoSolution):
		return http.StatusUnprocessableEntity, "no_solution"
	case errors.Is(err, skyfix.ErrUnknownBody):
		return http.StatusBadRequest, "unknown_body"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
