// Package labtest provides an in-process fake of the lab service for tests.
//
// The fake speaks the same HTTP contract as the real service: uploads return
// an image ID, gradient descriptors point at relative raster URLs served by
// the fake itself, reconstructions are recorded for inspection, and errors use
// the FastAPI {"detail":{code,message}} envelope.
package labtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gradlab/pkg/integrations/lab"
)

// Raster values served for each channel of every image.
const (
	DxValue        = 100
	DyValue        = 150
	MagnitudeValue = 30
	ResultValue    = 200
)

// Server is a fake lab service.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	nextID         int
	images         map[string]image.Point
	scores         map[string]lab.Scores
	fail           map[string][]int
	reconstructs   []lab.ReconstructRequest
	counts         map[string]int
	hold           chan struct{}
	started        chan struct{}
	gradientsDelay chan struct{}
}

// New starts a fake service. Callers must Close it.
func New() *Server {
	s := &Server{
		images: make(map[string]image.Point),
		scores: make(map[string]lab.Scores),
		fail:   make(map[string][]int),
		counts: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.countAndFail)
	r.Post("/api/images", s.handleUpload)
	r.Get("/api/gradients", s.handleGradients)
	r.Post("/api/reconstruct", s.handleReconstruct)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/static/{kind}/{file}", s.handleStatic)

	s.Server = httptest.NewServer(r)
	return s
}

// AddImage registers an image without uploading and returns its ID.
func (s *Server) AddImage(w, h int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(w, h)
}

func (s *Server) addLocked(w, h int) string {
	s.nextID++
	id := fmt.Sprintf("img-%d", s.nextID)
	s.images[id] = image.Pt(w, h)
	return id
}

// SetScores sets the analyzer scores returned for id.
func (s *Server) SetScores(id string, sc lab.Scores) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[id] = sc
}

// Fail makes the next len(statuses) requests to path answer with the given
// status codes, in order.
func (s *Server) Fail(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[path] = append(s.fail[path], statuses...)
}

// Count returns how many requests reached path.
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[path]
}

// Reconstructs returns every reconstruction request received so far.
func (s *Server) Reconstructs() []lab.ReconstructRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]lab.ReconstructRequest(nil), s.reconstructs...)
}

// HoldReconstruct makes reconstruction requests block until release is
// called. started receives once per request that reaches the handler.
func (s *Server) HoldReconstruct() (started <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	s.started = make(chan struct{}, 16)
	hold := s.hold
	var once sync.Once
	return s.started, func() { once.Do(func() { close(hold) }) }
}

// HoldGradients makes gradient requests block until release is called.
func (s *Server) HoldGradients() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradientsDelay = make(chan struct{})
	ch := s.gradientsDelay
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counts[r.URL.Path]++
		var status int
		if q := s.fail[r.URL.Path]; len(q) > 0 {
			status, s.fail[r.URL.Path] = q[0], q[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "INJECTED", fmt.Sprintf("injected %d", status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "cannot decode image")
		return
	}
	s.mu.Lock()
	id := s.addLocked(cfg.Width, cfg.Height)
	s.mu.Unlock()
	writeJSON(w, lab.Upload{ImageID: id, Width: cfg.Width, Height: cfg.Height})
}

func (s *Server) lookup(w http.ResponseWriter, id string) (image.Point, bool) {
	s.mu.Lock()
	size, ok := s.images[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "IMAGE_NOT_FOUND", "No image "+id)
	}
	return size, ok
}

func (s *Server) handleGradients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.gradientsDelay
	s.mu.Unlock()
	if delay != nil {
		select {
		case <-delay:
		case <-r.Context().Done():
			return
		}
	}

	id := r.URL.Query().Get("imageId")
	size, ok := s.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, lab.Gradients{
		ImageID:      id,
		Width:        size.X,
		Height:       size.Y,
		DxURL:        "/static/gradients/" + id + "_dx.png",
		DyURL:        "/static/gradients/" + id + "_dy.png",
		MagnitudeURL: "static/gradients/" + id + "_mag.png",
	})
}

func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	var req lab.ReconstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.mu.Lock()
	hold, started := s.hold, s.started
	s.reconstructs = append(s.reconstructs, req)
	s.mu.Unlock()

	if hold != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	if _, ok := s.lookup(w, req.ImageID); !ok {
		return
	}
	if strings.HasPrefix(req.EditedDx, "data:") || strings.HasPrefix(req.EditedDy, "data:") {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "payload still carries a data URL envelope")
		return
	}
	writeJSON(w, lab.Reconstruction{
		ImageID:          req.ImageID,
		ReconstructedURL: "/static/reconstructions/" + req.ImageID + "_recon.png",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageID string `json:"imageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if _, ok := s.lookup(w, req.ImageID); !ok {
		return
	}
	s.mu.Lock()
	sc, ok := s.scores[req.ImageID]
	s.mu.Unlock()
	if !ok {
		sc = lab.Scores{EdgeConsistency: 0.5, SmoothnessScore: 0.25, TextureWeirdness: 0.75}
	}
	writeJSON(w, lab.Analysis{
		ImageID:    req.ImageID,
		Scores:     sc,
		HeatmapURL: "/static/analysis/" + req.ImageID + "_heatmap.png",
	})
}

// handleStatic serves uniform gray PNGs named <id>_<suffix>.png.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimSuffix(chi.URLParam(r, "file"), ".png")
	i := strings.LastIndexByte(file, '_')
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	id, suffix := file[:i], file[i+1:]
	size, ok := s.lookup(w, id)
	if !ok {
		return
	}

	var v uint8
	switch suffix {
	case "dx":
		v = DxValue
	case "dy":
		v = DyValue
	case "mag", "heatmap":
		v = MagnitudeValue
	case "recon":
		v = ResultValue
	default:
		http.NotFound(w, r)
		return
	}

	img := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"detail": map[string]string{"code": code, "message": msg},
	})
}

// PNG returns an encoded w×h uniform gray PNG, handy as upload payload.
func PNG(w, h int, v uint8) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
