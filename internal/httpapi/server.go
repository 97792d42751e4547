package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"predictd/internal/lifecycle"
	"predictd/internal/predict"
	"predictd/internal/ratelimit"
	"predictd/internal/sanitize"
	"predictd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error)
	Snapshot() lifecycle.Snapshot
	TriggerLoad(ctx context.Context) lifecycle.LoadOutcome
}

// Admitter gates requests per client key. Nil disables the gate.
type Admitter interface {
	Admit(key string) ratelimit.Decision
}

// NewMux builds the router for the prediction service.
func NewMux(svc Service, lim Admitter) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Log-Level"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health", healthHandler(svc))
	r.Get("/api/health", healthHandler(svc))

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: "next-token prediction API is running"})
	})

	r.Get("/api/model/status", func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Snapshot()
		SetModelLoadedMetric(snap.Loaded())
		resp := types.ModelStatusResponse{
			Status:          string(snap.Status),
			ModelName:       snap.ModelName,
			Profile:         string(snap.Profile),
			ModelLoaded:     snap.Loaded(),
			TokenizerLoaded: snap.Loaded(),
			Error:           snap.Err,
			UptimeSeconds:   int64(time.Since(snap.StartedAt).Seconds()),
		}
		if !snap.LoadedAt.IsZero() {
			resp.LoadedAtUnix = snap.LoadedAt.Unix()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/api/model/load", func(w http.ResponseWriter, r *http.Request) {
		// Load failures never surface as HTTP errors here; the outcome
		// payload carries them.
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		out := svc.TriggerLoad(joined)
		SetModelLoadedMetric(svc.Snapshot().Loaded())
		writeJSON(w, http.StatusOK, types.LoadResponse{Status: out.Status, Message: out.Message})
	})

	r.Post("/api/predict", predictHandler(svc, lim))

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	// Static frontend with SPA fallback for everything non-API.
	r.NotFound(staticHandler())

	return r
}

func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Snapshot()
		writeJSON(w, http.StatusOK, types.HealthResponse{
			Status:             "healthy",
			ModelLoaded:        snap.Loaded(),
			TokenizerLoaded:    snap.Loaded(),
			ModelLoadingStatus: string(snap.Status),
			ModelName:          snap.ModelName,
			Timestamp:          time.Now().Unix(),
			Version:            version,
		})
	}
}

func predictHandler(svc Service, lim Admitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The gate runs before any body processing so malformed-request
		// floods still spend budget.
		if lim != nil {
			if d := lim.Admit(clientKey(r)); !d.Allowed {
				IncrementRateLimited("client_budget")
				retry := int64(d.RetryAfter/time.Second) + 1
				w.Header().Set("Retry-After", itoa(int(retry)))
				writeJSON(w, http.StatusTooManyRequests, types.ErrorResponse{
					Error:             "rate limit exceeded",
					Detail:            "too many requests from this client, slow down",
					Code:              http.StatusTooManyRequests,
					RetryAfterSeconds: retry,
				})
				return
			}
		}

		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		// Join server base context with request context so shutdown cancels
		// in-flight work too.
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		resp, err := svc.Predict(joined, req)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := mapPredictError(err)
			if status == http.StatusTooManyRequests {
				IncrementRateLimited("inference_queue")
			}
			msg := err.Error()
			if status == http.StatusInternalServerError && !predict.IsInference(err) && !predict.IsNoValidPredictions(err) {
				// Unexpected failure: log the detail, keep the client message generic.
				if zlog != nil {
					zlog.Error().Err(err).Str("path", r.URL.Path).Msg("predict failed")
				}
				msg = "internal server error"
			}
			writeJSONError(w, status, msg)
			logPredict(r, lvl, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		logPredict(r, lvl, http.StatusOK, start, nil)
	}
}

// mapPredictError translates the engine's error taxonomy to HTTP statuses.
func mapPredictError(err error) int {
	switch {
	case sanitize.IsValidation(err):
		return http.StatusBadRequest
	case predict.IsInputProcessing(err):
		return http.StatusBadRequest
	case lifecycle.IsTooBusy(err):
		return http.StatusTooManyRequests
	case lifecycle.IsModelUnavailable(err):
		return http.StatusServiceUnavailable
	case predict.IsInference(err), predict.IsNoValidPredictions(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func logPredict(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Int("status", status).Dur("dur", time.Since(start)).Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("predict end")
}

// clientKey identifies a client for rate limiting: the network address with
// the port stripped, after RealIP normalization.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
