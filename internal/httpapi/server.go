// Package httpapi serves an open deck over a local JSON API, for browser
// front-ends and scripts running on the same machine.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kokistudios/cardbox/internal/session"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	sess     *session.Session
	logger   *log.Logger
	validate *validator.Validate
	router   chi.Router
}

// New builds the router over sess. A nil logger falls back to the default
// charmbracelet logger.
func New(sess *session.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		sess:     sess,
		logger:   logger,
		validate: newValidator(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/deck", s.getDeck)
		r.Get("/cards/visible", s.getVisible)
		r.Get("/tags", s.getTags)

		r.Post("/cards", s.addCard)
		r.Patch("/cards/{id}", s.updateCard)
		r.Post("/cards/{id}/edit", s.toggleEdit)
		r.Delete("/cards/{id}", s.deleteCard)

		r.Post("/undo/{notificationID}", s.undo)
		r.Delete("/notifications/{notificationID}", s.dismiss)

		r.Put("/selection", s.setSelection)
		r.Post("/selection/all", s.selectAll)
		r.Put("/title", s.setTitle)
		r.Post("/save", s.save)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Error("Failed to write health check response", "err", err)
		}
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving deck", "addr", addr, "path", s.sess.Path())
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
		s.logger.Info("Server stopped")
		return nil
	}
}
