package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"semkb/internal/domain"
	"semkb/internal/port"
	"semkb/internal/usecase"
)

// Server exposes the knowledge base over HTTP.
type Server struct {
	store       port.CollectionStore
	ingestor    *usecase.Ingestor
	searcher    *usecase.Searcher
	defaultTopK int
	logger      *slog.Logger

	httpSrv *http.Server
}

// Options configures a Server.
type Options struct {
	Addr        string
	Store       port.CollectionStore
	Ingestor    *usecase.Ingestor
	Searcher    *usecase.Searcher
	DefaultTopK int
	Logger      *slog.Logger
}

func New(opts Options) *Server {
	if opts.DefaultTopK < 1 {
		opts.DefaultTopK = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		store:       opts.Store,
		ingestor:    opts.Ingestor,
		searcher:    opts.Searcher,
		defaultTopK: opts.DefaultTopK,
		logger:      opts.Logger,
	}
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can
// drive the mux without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /create", s.handleCreate)
	mux.HandleFunc("GET /indexes", s.handleListIndexes)
	mux.HandleFunc("GET /indexes/{name}/count", s.handleRecordCount)
	mux.HandleFunc("DELETE /indexes/{name}", s.handleDeleteIndex)
	mux.HandleFunc("POST /encode_doc", s.handleEncodeDoc)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /encode_batch", s.handleEncodeBatch)
	mux.HandleFunc("POST /encode_llms_txt", s.handleEncodeLlmsTxt)
	mux.HandleFunc("POST /query", s.handleQuery)
	return s.logRequests(mux)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// writeError maps domain errors onto HTTP statuses with the standard
// error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCollectionName),
		errors.Is(err, domain.ErrInvalidTopK),
		errors.Is(err, domain.ErrManifestParse):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrDirectoryNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrCollectionExists):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrManifestFetch):
		code = http.StatusBadGateway
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	msg := err.Error()
	var detail string
	if u := errors.Unwrap(err); u != nil {
		msg = u.Error()
		detail = err.Error()
	}
	writeJSON(w, code, errorResponse{
		Status:  "error",
		Message: msg,
		Detail:  detail,
	})
}

func (s *Server) badRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:  "error",
		Message: fmt.Sprintf(format, args...),
	})
}
