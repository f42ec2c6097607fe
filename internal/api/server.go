package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Alimustoofaa/Stream-Log/internal/classify"
	"github.com/Alimustoofaa/Stream-Log/internal/config"
	"github.com/Alimustoofaa/Stream-Log/internal/logging"
	"github.com/Alimustoofaa/Stream-Log/internal/logtree"
	"github.com/Alimustoofaa/Stream-Log/internal/metrics"
	"github.com/Alimustoofaa/Stream-Log/internal/stream"
	"github.com/Alimustoofaa/Stream-Log/internal/web"
)

const shutdownTimeout = 5 * time.Second

// Server wires the resolver, classifier and streamer behind the HTTP routes.
type Server struct {
	cfg      *config.Config
	resolver *logtree.Resolver
	pages    *web.Renderer
	streamer *stream.Streamer
	metrics  *metrics.Metrics
	log      *logrus.Entry
	router   *mux.Router
}

// New builds a Server. Streaming sessions end when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics) (*Server, error) {
	resolver, err := logtree.New(cfg.LogRoot, cfg.ImageRoot, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	pages, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		pages:    pages,
		metrics:  m,
		log:      logging.Component(logger, "api"),
		streamer: stream.NewStreamer(ctx, stream.Options{
			PollInterval: cfg.PollInterval,
			LineCount:    cfg.TailLines,
			Classifier:   classify.New(resolver.ImageRoot()),
			Recorder:     m,
			Logger:       logging.Component(logger, "stream"),
		}),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover(s.log), Instrument(s.metrics), RequestLogger(s.log))

	// Fixed routes first: /{year}/{month}/{day} would otherwise swallow them.
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", web.Static(s.cfg.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws/log", s.streamHandler()).Methods(http.MethodGet)

	r.HandleFunc("/", s.indexHandler()).Methods(http.MethodGet)
	r.HandleFunc("/{year}/{month}/{day}", s.dayHandler()).Methods(http.MethodGet)
	r.HandleFunc("/{year}/{month}/{day}/{name}", s.viewerHandler()).Methods(http.MethodGet)
	r.HandleFunc("/{year}/{month}/{day}/{path}/{name}", s.imageHandler()).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down and waits for streaming sessions to finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	// hijacked websocket connections are not tracked by Shutdown
	s.streamer.Wait()
	return nil
}
