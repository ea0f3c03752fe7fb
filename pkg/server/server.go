// Package server exposes edit sessions over a local HTTP API so a browser
// frontend can drive them with pointer events.
//
// Routes (all bodies are JSON unless noted):
//
//	POST   /sessions                       multipart "file" upload, or form "imageId"
//	GET    /sessions/{id}                  session snapshot
//	PUT    /sessions/{id}/brush            {"tool","radius","strength"}
//	PUT    /sessions/{id}/tab              {"tab"}
//	PUT    /sessions/{id}/display          {"left","top","width","height"} or {"containerWidth","containerHeight"}
//	POST   /sessions/{id}/stroke/begin     {"x","y","invert"}
//	POST   /sessions/{id}/stroke/move      {"x","y","invert"}
//	POST   /sessions/{id}/stroke/end
//	POST   /sessions/{id}/reset
//	POST   /sessions/{id}/reconstruct
//	GET    /sessions/{id}/frame/{tab}.png  composite of a channel tab
//	GET    /sessions/{id}/layer/{ch}.png   raw edit layer
//	DELETE /sessions/{id}
//
// Errors are returned as {"error":{"code","message"}} with a status derived
// from the error code. Sessions live in memory only.
package server

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/session"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// Config configures a Server.
type Config struct {
	Logger *log.Logger

	// Session is the template every new session is created with.
	Session session.Config

	// SessionTTL is the idle lifetime of a session; 0 uses DefaultTTL.
	SessionTTL time.Duration

	// MaxUploadBytes bounds the multipart body; 0 allows lab.MaxUploadBytes
	// plus form overhead.
	MaxUploadBytes int64
}

// Server routes HTTP requests to in-memory edit sessions.
type Server struct {
	svc       session.Service
	cfg       Config
	logger    *log.Logger
	store     *Store
	maxUpload int64
}

// New returns a server whose sessions talk to svc.
func New(svc session.Service, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = lab.MaxUploadBytes + 1<<20
	}
	return &Server{
		svc:       svc,
		cfg:       cfg,
		logger:    cfg.Logger,
		store:     NewStore(cfg.SessionTTL),
		maxUpload: maxUpload,
	}
}

// Store returns the session store.
func (s *Server) Store() *Store { return s.store }

// Handler returns a router with request IDs and panic recovery installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the session routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/sessions", s.handleCreate)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.withSession(s.handleGet))
		r.Delete("/", s.handleDelete)
		r.Put("/brush", s.withSession(s.handleBrush))
		r.Put("/tab", s.withSession(s.handleTab))
		r.Put("/display", s.withSession(s.handleDisplay))
		r.Post("/stroke/{phase}", s.withSession(s.handleStroke))
		r.Post("/reset", s.withSession(s.handleReset))
		r.Post("/reconstruct", s.withSession(s.handleReconstruct))
		r.Get("/frame/{tab}.png", s.withSession(s.handleFrame))
		r.Get("/layer/{channel}.png", s.withSession(s.handleLayer))
	})
}

// Janitor drops expired sessions every interval until ctx is done.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.store.Cleanup(); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.Janitor(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, sess)
	}
}

type created struct {
	ID      string           `json:"id"`
	Session session.Snapshot `json:"session"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse upload form"))
		return
	}

	sess := session.New(s.svc, s.cfg.Session)
	if id := r.FormValue("imageId"); id != "" {
		if err := sess.LoadImage(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "missing file or imageId"))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload"))
			return
		}
		if _, err := sess.Upload(r.Context(), hdr.Filename, data); err != nil {
			s.writeError(w, err)
			return
		}
	}

	id := s.store.Add(sess)
	s.logger.Info("session created", "id", id, "image", sess.Snapshot().ImageID)
	writeJSON(w, http.StatusCreated, created{ID: id, Session: sess.Snapshot()})
}

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		s.writeError(w, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type brushRequest struct {
	Tool     *string  `json:"tool"`
	Radius   *int     `json:"radius"`
	Strength *float64 `json:"strength"`
}

func (s *Server) handleBrush(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req brushRequest
	if !s.decode(w, r, &req) {
		return
	}
	// Validate everything before touching the session.
	var tool brush.Tool
	if req.Tool != nil {
		t, err := brush.ParseTool(*req.Tool)
		if err != nil {
			s.writeError(w, err)
			return
		}
		tool = t
	}
	if req.Radius != nil {
		if err := brush.ValidateRadius(*req.Radius); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.Strength != nil {
		if err := brush.ValidateStrength(*req.Strength); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var err error
	if req.Tool != nil {
		err = sess.SetEditMode(tool)
	}
	if err == nil && req.Radius != nil {
		err = sess.SetBrushSize(*req.Radius)
	}
	if err == nil && req.Strength != nil {
		err = sess.SetBrushStrength(*req.Strength)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type tabRequest struct {
	Tab string `json:"tab"`
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req tabRequest
	if !s.decode(w, r, &req) {
		return
	}
	tab, err := layer.ParseChannel(req.Tab)
	if err == nil {
		err = sess.ActivateTab(tab)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type displayRequest struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req displayRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ContainerWidth > 0 && req.ContainerHeight > 0 {
		if _, err := sess.FitDisplay(req.ContainerWidth, req.ContainerHeight); err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		sess.SetDisplayRect(viewport.Rect{Left: req.Left, Top: req.Top, Width: req.Width, Height: req.Height})
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type pointerRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Invert bool    `json:"invert"`
}

func (s *Server) handleStroke(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	phase := chi.URLParam(r, "phase")
	var err error
	switch phase {
	case "begin", "move":
		var req pointerRequest
		if !s.decode(w, r, &req) {
			return
		}
		p := viewport.Point{X: req.X, Y: req.Y}
		mod := brush.Modifier{Invert: req.Invert}
		if phase == "begin" {
			err = sess.BeginStroke(p, mod)
		} else {
			err = sess.ContinueStroke(p, mod)
		}
	case "end":
		err = sess.EndStroke(r.Context())
	default:
		err = errors.New(errors.ErrCodeNotFound, "unknown stroke phase %q", phase)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	if err := sess.ResetEdits(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	res, err := sess.Reconstruct(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	tab, err := layer.ParseChannel(chi.URLParam(r, "tab"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	img, ok := sess.Frame(tab)
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no %s frame", tab))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		s.logger.Warn("frame encode failed", "tab", tab, "error", err)
	}
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ch, err := layer.ParseChannel(chi.URLParam(r, "channel"))
	if err == nil && !ch.Editable() {
		err = errors.New(errors.ErrCodeInvalidInput, "%s has no edit layer", ch)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, ok := sess.Layer(ch)
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no %s layer", ch))
		return
	}
	data, err := layer.Encode(l)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
