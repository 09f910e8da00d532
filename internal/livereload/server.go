package livereload

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/htmlc/internal/logging"
)

// Path is where clients open the reload websocket.
const Path = "/__htmlc/livereload"

const shutdownTimeout = 5 * time.Second

// Server serves a directory and the reload websocket. HTML pages are served
// with a small client script that connects to the websocket.
type Server struct {
	addr    string
	hub     *Hub
	handler http.Handler
	logger  logging.Logger
}

// NewServer creates a server for the directory root of fsys, listening on
// addr.
func NewServer(addr string, fsys afero.Fs, root string, logger logging.Logger) *Server {
	hub := NewHub(logger)

	dist := afero.NewBasePathFs(fsys, root)
	mux := http.NewServeMux()
	mux.Handle(Path, hub)
	mux.Handle("/", &injectHandler{
		fs:   dist,
		next: http.FileServer(afero.NewHttpFs(dist).Dir("/")),
	})

	return &Server{
		addr:    addr,
		hub:     hub,
		handler: mux,
		logger:  logger.WithComponent("livereload"),
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the server's websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Reload forwards to the hub, so a Server can be handed to the watch loop
// as its notifier.
func (s *Server) Reload(label, path string) {
	s.hub.Reload(label, path)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Serving on http://"+s.addr, "addr", s.addr, "reload", Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
