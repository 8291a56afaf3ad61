// Package server exposes a form store over the forms persistence API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/formsapi"
	"github.com/goliatone/go-formwizard/pkg/optionlists"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOptionLists also serves lists under /api/options so forms can point
// their external sources at this server.
func WithOptionLists(lists optionlists.Lists, fns ...optionlists.OptionFn) Option {
	return func(s *Server) {
		s.lists = lists
		s.listOpts = fns
	}
}

// Server serves /api/forms backed by a store.
type Server struct {
	store    store.Store
	logger   logrus.FieldLogger
	router   chi.Router
	lists    optionlists.Lists
	listOpts []optionlists.OptionFn
}

// New builds the router.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{store: st, logger: logging.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/forms", func(r chi.Router) {
		r.Post("/", s.createForm)
		r.Get("/", s.listForms)
		r.Get("/{id}", s.getForm)
		r.Put("/{id}", s.updateForm)
	})
	if s.lists != nil {
		pattern := optionlists.Mount(r, "/", s.lists, s.listOpts...)
		s.logger.WithFields(logrus.Fields{"path": pattern, "lists": len(s.lists)}).Debug("server: option lists mounted")
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves handler on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, handler http.Handler, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("server: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed":    time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("server: request")
	})
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	record, err := s.store.Create(r.Context(), payload)
	if err != nil {
		storeErrorToHTTP(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, formsapi.Envelope[formsapi.FormRecord]{Data: record})
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	record, err := s.store.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		storeErrorToHTTP(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, formsapi.Envelope[formsapi.FormRecord]{Data: record})
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, formsapi.Envelope[formsapi.FormRecord]{Data: record})
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		storeErrorToHTTP(w, s.logger, err)
		return
	}
	if records == nil {
		records = []formsapi.FormRecord{}
	}
	writeJSON(w, s.logger, http.StatusOK, formsapi.Envelope[[]formsapi.FormRecord]{Data: records})
}

// readPayload decodes the envelope and checks that json_schema converts and
// agrees with isMultiStep.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (formsapi.FormPayload, bool) {
	var body formsapi.Envelope[formsapi.FormPayload]
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_JSON", "request body must be {\"data\": {...}}: "+err.Error())
		return formsapi.FormPayload{}, false
	}
	payload := body.Data
	if len(payload.JSONSchema) == 0 {
		writeError(w, s.logger, http.StatusBadRequest, "VALIDATION_ERROR", "json_schema is required")
		return formsapi.FormPayload{}, false
	}
	form, err := convert.ParseDocument(payload.JSONSchema)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return formsapi.FormPayload{}, false
	}
	if form.IsMultiStep != payload.IsMultiStep {
		writeError(w, s.logger, http.StatusBadRequest, "VALIDATION_ERROR", "isMultiStep does not match json_schema")
		return formsapi.FormPayload{}, false
	}
	return payload, true
}
