package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intentdeck/config"
	"intentdeck/decode"
	"intentdeck/intent"
)

const PredictRoute = "/predict-intent/"

// Server is a stand-in for the hosted intent model. It speaks the same
// multipart contract and answers with a label chosen deterministically
// from the uploaded bytes.
type Server struct {
	cfg     *config.Server
	log     zerolog.Logger
	metrics *Metrics
}

func New(cfg *config.Server, logger zerolog.Logger) *Server {
	return &Server{cfg: cfg, log: logger, metrics: NewMetrics()}
}

func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post(PredictRoute, s.handlePredict)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.Duration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type predictResponse struct {
	Intent string `json:"intent"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("upload exceeds %d MB", s.cfg.MaxUploadMB)})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "form field \"file\" is required"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "empty upload"})
		return
	}
	s.metrics.UploadBytes.Observe(float64(len(data)))

	id := uuid.NewString()
	if err := s.save(id, data); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("saving upload")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if pcm, err := decode.PCM16(hdr.Filename, data); err == nil {
		s.metrics.AudioLength.Observe(float64(len(pcm)) / 16000)
	} else {
		s.log.Debug().Err(err).Str("id", id).Msg("upload not decodable")
	}

	label := Classify(data)
	s.metrics.Predictions.WithLabelValues(label).Inc()
	s.log.Info().Str("id", id).Str("filename", hdr.Filename).Int("bytes", len(data)).Str("intent", label).Msg("prediction")
	writeJSON(w, http.StatusOK, predictResponse{Intent: label})
}

func (s *Server) save(id string, data []byte) error {
	if s.cfg.UploadDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.cfg.UploadDir, id+".wav"), data, 0644)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "labels": len(intent.Labels)})
}

// Classify maps audio bytes onto the label set. Identical uploads always
// get the same label.
func Classify(data []byte) string {
	h := fnv.New32a()
	h.Write(data)
	return intent.Labels[h.Sum32()%uint32(len(intent.Labels))]
}
