package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/neurolytics/neuroscan/internal/application/analysis"
	appchat "github.com/neurolytics/neuroscan/internal/application/chat"
	domai "github.com/neurolytics/neuroscan/internal/domain/ai"
	domain "github.com/neurolytics/neuroscan/internal/domain/analysis"
	"github.com/neurolytics/neuroscan/internal/infra/viewer"
	"github.com/neurolytics/neuroscan/internal/middleware"
)

// errInputMissing covers requests without the expected file or field.
var errInputMissing = errors.New("no scan image in request")

var errUploadTooLarge = errors.New("scan image exceeds the upload limit")

const maxUploadBytes = 32 << 20

type Router struct {
	analysisSvc *appanalysis.Service
	chatSvc     *appchat.Service
	launcher    *viewer.Launcher
}

func NewRouter(analysisSvc *appanalysis.Service, chatSvc *appchat.Service, launcher *viewer.Launcher, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{analysisSvc: analysisSvc, chatSvc: chatSvc, launcher: launcher}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/analyze_mri", r.wrap(r.handleAnalyze))
	mux.Post("/chat", r.wrap(r.handleChat))
	mux.Get("/get_history", r.wrap(r.handleHistory))
	mux.Post("/open_scans", r.wrap(r.handleOpenScans))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts domain failures to JSON error bodies. Nothing propagates
// far enough to crash the process.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, errInputMissing),
			errors.Is(err, errUploadTooLarge):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrNoContext),
			errors.Is(err, viewer.ErrScanDirNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, domai.ErrProcessingFailed):
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

// POST /analyze_mri
// Multipart body with the scan image under field "file".
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	file, header, err := req.FormFile("file")
	if err != nil {
		return errInputMissing
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads are rejected
	// instead of silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxUploadBytes {
		return errUploadTooLarge
	}

	middleware.IncrementAnalyses()
	res, err := r.analysisSvc.Analyze(req.Context(), appanalysis.ScanSubmission{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /chat
// Body: {"prompt": "...", "timestamp": "..."}. Answers are grounded in the
// most recent stored analysis; the timestamp field is accepted for frontend
// compatibility.
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Prompt    string `json:"prompt"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Prompt == "" {
		return errInputMissing
	}

	middleware.IncrementChat()
	answer, err := r.chatSvc.Answer(req.Context(), body.Prompt)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

// GET /get_history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	entries, err := r.analysisSvc.History(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// POST /open_scans
// Body: {"scan_dir": "..."}. Launches the external viewer detached.
func (r *Router) handleOpenScans(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ScanDir string `json:"scan_dir"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ScanDir == "" {
		return errInputMissing
	}

	if err := r.launcher.Open(body.ScanDir); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"scan_dir": body.ScanDir,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
