package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"mediadlapi/internal/config"
	"mediadlapi/internal/format"
	"mediadlapi/internal/gateway"
	"mediadlapi/internal/metrics"
	"mediadlapi/internal/middleware"
	"mediadlapi/internal/models"
	"mediadlapi/internal/platform"
	"mediadlapi/internal/session"
	"mediadlapi/internal/store"
)

// Extractor is the gateway surface the handlers depend on.
type Extractor interface {
	Probe(ctx context.Context, mediaURL string) (*models.MediaInfo, error)
	Fetch(ctx context.Context, mediaURL, selector, outputTemplate string) error
	Version(ctx context.Context) (string, error)
}

type API struct {
	cfg      *config.Config
	ext      Extractor
	sessions *session.Manager
	metrics  *metrics.Registry
}

func NewAPI(cfg *config.Config) (*API, error) {
	var st store.SessionStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(context.Background()).Err(); err == nil {
			st = store.NewRedisStore(rdb)
		} else {
			log.Printf("redis unreachable at %s, using in-memory session store: %v", cfg.RedisAddr, err)
		}
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	m := metrics.NewRegistry()
	mgr, err := session.NewManager(cfg.DownloadsDir, st, m)
	if err != nil {
		return nil, err
	}
	gw := gateway.New(gateway.Config{
		ProbeTimeout: cfg.ProbeTimeout,
		FetchTimeout: cfg.FetchTimeout,
	}, cfg.MaxConcurrentFetches)

	return &API{cfg: cfg, ext: gw, sessions: mgr, metrics: m}, nil
}

// Close stops pending cleanup timers and removes leftover artifacts.
func (a *API) Close() {
	a.sessions.Close()
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	corsMw := cors.New(cors.Options{
		AllowedOrigins: a.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
	})
	r.Use(corsMw.Handler)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.GlobalRateLimiter(a.cfg.RequestsPerSecond, a.cfg.BurstSize))
	r.Use(middleware.PerIPRateLimiter(a.cfg.PerIPRPS, a.cfg.PerIPBurst))
	keys := map[string]struct{}{}
	for _, k := range a.cfg.APIKeys {
		keys[k] = struct{}{}
	}
	r.Use(middleware.APIKey(a.cfg.RequireAPIKey, keys))

	r.Route("/api", func(r chi.Router) {
		r.Post("/video-info", a.handleVideoInfo)
		r.Post("/download", a.handleDownload)
		r.Post("/quick-download", a.handleQuickDownload)
		r.Get("/health", a.handleHealth)
		r.Get("/metrics", a.handleMetrics)
		r.Get("/sessions", a.handleSessions)
		r.Get("/selftest", a.handleSelfTest)
	})
	return r
}

func (a *API) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	var req models.VideoInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeErr(w, http.StatusBadRequest, "URL requerida")
		return
	}
	p, canonical := platform.Normalize(req.URL)
	log.Printf("probe %s (%s)", canonical, p)

	a.metrics.Probes.Add(1)
	info, err := a.ext.Probe(r.Context(), canonical)
	if err != nil {
		a.metrics.ProbeFailures.Add(1)
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.VideoInfoResponse{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Author:    info.Author,
		Platform:  string(p),
		Formats:   format.FilterAndRank(info.Formats, p),
	})
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeErr(w, http.StatusBadRequest, "URL requerida")
		return
	}
	a.fetchAndStream(w, r, req.URL, req.FormatID)
}

// handleQuickDownload always resolves the default fallback chain; no
// format id accepted.
func (a *API) handleQuickDownload(w http.ResponseWriter, r *http.Request) {
	var req models.VideoInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeErr(w, http.StatusBadRequest, "URL requerida")
		return
	}
	a.fetchAndStream(w, r, req.URL, "")
}

// fetchAndStream runs one full session cycle: normalize, negotiate,
// fetch, locate, stream, then schedule cleanup. Cleanup is scheduled even
// when streaming fails partway.
func (a *API) fetchAndStream(w http.ResponseWriter, r *http.Request, rawURL, formatID string) {
	p, canonical := platform.Normalize(rawURL)
	selector := format.Selector(p, formatID)

	s, err := a.sessions.Begin(r.Context(), canonical, p, selector)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("session %s: fetch %s selector=%q", s.ID, canonical, selector)

	a.metrics.FetchesStarted.Add(1)
	if err := a.ext.Fetch(r.Context(), canonical, selector, s.OutputTemplate); err != nil {
		a.metrics.FetchesFailed.Add(1)
		a.sessions.Fail(r.Context(), s, err)
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	path, err := a.sessions.LocateArtifact(r.Context(), s)
	if err != nil {
		a.metrics.FetchesFailed.Add(1)
		a.sessions.Fail(r.Context(), s, err)
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.streamArtifact(w, path, s.DisplayName)
	a.metrics.FetchesCompleted.Add(1)
	a.sessions.ScheduleCleanup(s, a.cfg.CleanupDelay)
}

// streamArtifact delivers the file as an attachment. A mid-transfer error
// is recorded but does not affect the caller's cleanup scheduling.
func (a *API) streamArtifact(w http.ResponseWriter, path, filename string) {
	f, err := os.Open(path)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "artifact unreadable")
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "artifact unreadable")
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+safeFilename(filename)+"\"")

	n, err := io.Copy(w, f)
	a.metrics.BytesStreamed.Add(n)
	if err != nil {
		a.metrics.StreamErrors.Add(1)
		log.Printf("stream %s: %v", filepath.Base(path), err)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"probes":            a.metrics.Probes.Load(),
		"probe_failures":    a.metrics.ProbeFailures.Load(),
		"fetches_started":   a.metrics.FetchesStarted.Load(),
		"fetches_completed": a.metrics.FetchesCompleted.Load(),
		"fetches_failed":    a.metrics.FetchesFailed.Load(),
		"sessions_active":   a.metrics.SessionsActive.Load(),
		"artifacts_cleaned": a.metrics.ArtifactsCleaned.Load(),
		"cleanup_failures":  a.metrics.CleanupFailures.Load(),
		"stream_errors":     a.metrics.StreamErrors.Load(),
		"bytes_streamed":    a.metrics.BytesStreamed.Load(),
		"success_rate":      a.metrics.SuccessRate(),
		"uptime_seconds":    a.metrics.UptimeSeconds(),
	})
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.sessions.Active(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	v, err := a.ext.Version(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"yt-dlp": map[string]string{"error": err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"yt-dlp": map[string]string{"version": v}})
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func safeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "\"", "'")
	if s == "" {
		return "download"
	}
	return s
}
