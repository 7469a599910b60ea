package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alevsk/bicep-deployer/internal/lock"
	"github.com/alevsk/bicep-deployer/internal/logger"
	"github.com/alevsk/bicep-deployer/internal/reporter"
	"github.com/alevsk/bicep-deployer/internal/types"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// Trigger starts one deployment run and reports its outcome
type Trigger interface {
	Deploy(ctx context.Context) *types.Outcome
}

// Server represents the API server
type Server struct {
	router   *mux.Router
	trigger  Trigger
	gatherer prometheus.Gatherer
}

// NewServer creates a new API server instance. A nil gatherer disables /metrics.
func NewServer(trigger Trigger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		trigger:  trigger,
		gatherer: gatherer,
	}
	s.routes()
	return s
}

// routes sets up the API routes
func (s *Server) routes() {
	s.router.HandleFunc("/", s.index).Methods("GET")
	s.router.HandleFunc("/deploy-lab", s.deployLab).Methods("POST")
	s.router.HandleFunc("/api/v1/deployments", s.createDeployment).Methods("POST")
	s.router.HandleFunc("/api/v1/health", s.healthCheck).Methods("GET")
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// Handler exposes the router, mostly for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
// timeout bounds request reads and the shutdown; zero leaves them unbounded.
// Writes are never bounded since a response waits for the whole deployment.
func (s *Server) Start(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// index renders the page with the deploy button
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, nil); err != nil {
		logger.Error().Err(err).Msg("failed to render index page")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// deployLab runs a deployment and answers with a colored HTML fragment.
// A run keeps going when the client goes away.
func (s *Server) deployLab(w http.ResponseWriter, r *http.Request) {
	outcome := s.trigger.Deploy(context.WithoutCancel(r.Context()))
	body, err := reporter.HTML{}.Format(outcome)
	if err != nil {
		logger.Error().Err(err).Msg("failed to format deployment outcome")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusFor(outcome, false))
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Error().Err(err).Msg("failed to write deployment response")
	}
}

// createDeployment runs a deployment and answers with the JSON report
func (s *Server) createDeployment(w http.ResponseWriter, r *http.Request) {
	outcome := s.trigger.Deploy(context.WithoutCancel(r.Context()))
	body, err := json.Marshal(map[string]interface{}{
		"message": reporter.Message(outcome),
		"outcome": outcome,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode deployment outcome")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(outcome, true))
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.Error().Err(err).Msg("failed to write deployment response")
	}
}

// statusFor maps an outcome to a status code. The HTML endpoint keeps the
// plain 200/500 contract; the JSON API reports a held lock as a conflict.
func statusFor(o *types.Outcome, detailed bool) int {
	if o != nil && o.Success {
		return http.StatusOK
	}
	if detailed && o != nil && o.Failure != nil && errors.Is(o.Failure.Err, lock.ErrLocked) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error().Err(err).Msg("failed to encode health check response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}
