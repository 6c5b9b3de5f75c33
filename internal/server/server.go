// Package server exposes dashboard sessions over a JSON HTTP API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/KaramelBytes/csvdash/internal/dataset"
)

// MaxUploadBytes bounds an uploaded dataset.
const MaxUploadBytes = 100 << 20

// Options configures a Server.
type Options struct {
	Addr        string
	CORSOrigins []string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

type Server struct {
	mgr *dashboard.Manager
	opt Options
	log *zap.Logger
}

func New(mgr *dashboard.Manager, opt Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = 10 * time.Second
	}
	return &Server{mgr: mgr, opt: opt, log: log.Named("http")}
}

// Handler returns the router with every API route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.opt.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opt.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/datasets", s.upload)
		r.Post("/datasets/sample", s.sample)
		r.Get("/sessions", s.listSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.describe)
			r.Delete("/", s.deleteSession)
			r.Get("/suggestions", s.suggestions)
			r.Post("/query", s.query)
			r.Get("/export", s.export)
			r.Get("/history", s.history)
		})
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.opt.Addr))
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
	sctx, cancel := context.WithTimeout(context.Background(), s.opt.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(sctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loadResponse struct {
	SessionID string              `json:"session_id"`
	Report    dataset.CleanReport `json:"report"`
	Overview  *dashboard.Overview `json:"overview"`
}

// upload accepts a multipart form with a "file" field or a raw CSV body. A
// raw body is named by the "name" query parameter.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	var (
		body io.Reader
		name string
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
			return
		}
		defer f.Close()
		body, name = f, filepath.Base(hdr.Filename)
	} else {
		body, name = r.Body, r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
	}

	sess := s.mgr.Create()
	rep, err := sess.Load(body, name)
	if err != nil {
		_ = s.mgr.Delete(sess.ID)
		s.fail(w, statusFor(err), err)
		return
	}
	s.loaded(w, r, sess, rep)
}

func (s *Server) sample(w http.ResponseWriter, r *http.Request) {
	sess := s.mgr.Create()
	s.loaded(w, r, sess, sess.LoadSample())
}

func (s *Server) loaded(w http.ResponseWriter, r *http.Request, sess *dashboard.Session, rep dataset.CleanReport) {
	ov, err := sess.Describe(r.Context(), false)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, loadResponse{SessionID: sess.ID, Report: rep, Overview: ov})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	sess, err := s.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.mgr.List()})
}

func (s *Server) describe(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ov, err := sess.Describe(r.Context(), r.URL.Query().Get("analysis") == "true")
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(chi.URLParam(r, "id")); err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Suggestions(r.Context())
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type queryRequest struct {
	Query     string `json:"query"`
	NoSummary bool   `json:"no_summary"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	ans, err := sess.Ask(r.Context(), req.Query, dashboard.AskOptions{NoSummary: req.NoSummary})
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := dashboard.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	view := dashboard.ViewDataset
	if r.URL.Query().Get("view") == string(dashboard.ViewResult) {
		view = dashboard.ViewResult
	}
	// Buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := sess.Export(&buf, format, view); err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	ctype := "text/csv; charset=utf-8"
	if format == dashboard.XLSX {
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s.%s", view, format)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": sess.Recent()})
}

func statusFor(err error) int {
	var inErr *dataset.InputError
	switch {
	case errors.As(err, &inErr), errors.Is(err, dashboard.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNoDataset), errors.Is(err, dashboard.ErrNoResult):
		return http.StatusConflict
	}
	var mbErr *http.MaxBytesError
	if errors.As(err, &mbErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
