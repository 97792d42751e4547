package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"predictd/internal/config"
	"predictd/internal/lifecycle"
	"predictd/internal/ratelimit"
	"predictd/internal/sanitize"
	"predictd/pkg/types"
)

type mockService struct {
	predictResp types.PredictResponse
	predictErr  error
	snap        lifecycle.Snapshot
	loadOutcome lifecycle.LoadOutcome
	loadCalls   int
}

func (m *mockService) Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	if m.predictErr != nil {
		return types.PredictResponse{}, m.predictErr
	}
	return m.predictResp, nil
}

func (m *mockService) Snapshot() lifecycle.Snapshot { return m.snap }

func (m *mockService) TriggerLoad(ctx context.Context) lifecycle.LoadOutcome {
	m.loadCalls++
	return m.loadOutcome
}

type fakeAdmitter struct {
	decision ratelimit.Decision
	keys     []string
}

func (f *fakeAdmitter) Admit(key string) ratelimit.Decision {
	f.keys = append(f.keys, key)
	return f.decision
}

func allowAll() *fakeAdmitter {
	return &fakeAdmitter{decision: ratelimit.Decision{Allowed: true, Limit: 30}}
}

func loadedSnapshot() lifecycle.Snapshot {
	return lifecycle.Snapshot{
		Status:    lifecycle.StatusLoaded,
		ModelName: "smollm2-360m.gguf",
		Profile:   config.ProfileConstrained,
		LoadedAt:  time.Now().Add(-time.Minute),
		StartedAt: time.Now().Add(-time.Hour),
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v (raw: %s)", err, rec.Body.String())
	}
	return v
}

func TestHealth_AlwaysOK(t *testing.T) {
	svc := &mockService{snap: lifecycle.Snapshot{Status: lifecycle.StatusNotLoaded, StartedAt: time.Now()}}
	h := NewMux(svc, allowAll())

	for _, path := range []string{"/health", "/api/health"} {
		rec := doRequest(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
		resp := decodeBody[types.HealthResponse](t, rec)
		if resp.Status != "healthy" {
			t.Fatalf("%s: health status = %q", path, resp.Status)
		}
		if resp.ModelLoaded {
			t.Fatalf("%s: model_loaded = true before any load", path)
		}
		if resp.ModelLoadingStatus != string(lifecycle.StatusNotLoaded) {
			t.Fatalf("%s: loading status = %q", path, resp.ModelLoadingStatus)
		}
	}
}

func TestHealth_ReportsLoadedModel(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	h := NewMux(svc, allowAll())

	rec := doRequest(t, h, http.MethodGet, "/api/health", "")
	resp := decodeBody[types.HealthResponse](t, rec)
	if !resp.ModelLoaded || !resp.TokenizerLoaded {
		t.Fatalf("loaded flags = %v/%v, want true/true", resp.ModelLoaded, resp.TokenizerLoaded)
	}
	if resp.ModelName != "smollm2-360m.gguf" {
		t.Fatalf("model name = %q", resp.ModelName)
	}
}

func TestAPIRoot(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodGet, "/api", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[types.MessageResponse](t, rec)
	if resp.Message == "" {
		t.Fatalf("empty message")
	}
}

func TestModelStatus(t *testing.T) {
	snap := loadedSnapshot()
	svc := &mockService{snap: snap}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodGet, "/api/model/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[types.ModelStatusResponse](t, rec)
	if resp.Status != string(lifecycle.StatusLoaded) {
		t.Fatalf("status field = %q", resp.Status)
	}
	if resp.Profile != string(config.ProfileConstrained) {
		t.Fatalf("profile = %q", resp.Profile)
	}
	if resp.UptimeSeconds <= 0 {
		t.Fatalf("uptime = %d, want > 0", resp.UptimeSeconds)
	}
	if resp.LoadedAtUnix == 0 {
		t.Fatalf("loaded_at_unix not set")
	}
}

func TestModelLoad_AlwaysHTTP200(t *testing.T) {
	cases := []struct {
		name    string
		outcome lifecycle.LoadOutcome
	}{
		{"success", lifecycle.LoadOutcome{Status: lifecycle.OutcomeSuccess}},
		{"already_loaded", lifecycle.LoadOutcome{Status: lifecycle.OutcomeAlreadyLoaded}},
		{"error", lifecycle.LoadOutcome{Status: lifecycle.OutcomeError, Message: "model file missing"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{snap: loadedSnapshot(), loadOutcome: tc.outcome}
			rec := doRequest(t, NewMux(svc, allowAll()), http.MethodPost, "/api/model/load", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			resp := decodeBody[types.LoadResponse](t, rec)
			if resp.Status != tc.outcome.Status {
				t.Fatalf("outcome status = %q, want %q", resp.Status, tc.outcome.Status)
			}
			if resp.Message != tc.outcome.Message {
				t.Fatalf("outcome message = %q, want %q", resp.Message, tc.outcome.Message)
			}
			if svc.loadCalls != 1 {
				t.Fatalf("TriggerLoad called %d times", svc.loadCalls)
			}
		})
	}
}

func TestPredict_Success(t *testing.T) {
	svc := &mockService{
		snap: loadedSnapshot(),
		predictResp: types.PredictResponse{
			Predictions: []types.Prediction{
				{Word: "Paris", Probability: 0.62, TokenID: 3681},
				{Word: "Lyon", Probability: 0.11, TokenID: 912},
			},
			InputPhrase:      "The capital of France is",
			CompleteSentence: "The capital of France is Paris",
		},
	}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodPost, "/api/predict",
		`{"input_phrase":"The capital of France is"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[types.PredictResponse](t, rec)
	if len(resp.Predictions) != 2 {
		t.Fatalf("got %d predictions", len(resp.Predictions))
	}
	if resp.Predictions[0].Word != "Paris" {
		t.Fatalf("top word = %q", resp.Predictions[0].Word)
	}
	if resp.CompleteSentence != "The capital of France is Paris" {
		t.Fatalf("complete sentence = %q", resp.CompleteSentence)
	}
}

func TestPredict_RequiresJSONContentType(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"input_phrase":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	NewMux(svc, allowAll()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestPredict_MalformedJSON(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodPost, "/api/predict", `{"input_phrase":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[types.ErrorResponse](t, rec)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("payload code = %d", resp.Code)
	}
}

func TestPredict_ErrorMapping(t *testing.T) {
	_, validationErr := sanitize.Clean("")

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", validationErr, http.StatusBadRequest},
		{"model_unavailable", lifecycle.ErrModelUnavailable("load failed: file missing"), http.StatusServiceUnavailable},
		{"too_busy", lifecycle.ErrTooBusy(), http.StatusTooManyRequests},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{snap: loadedSnapshot(), predictErr: tc.err}
			rec := doRequest(t, NewMux(svc, allowAll()), http.MethodPost, "/api/predict",
				`{"input_phrase":"hello"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			resp := decodeBody[types.ErrorResponse](t, rec)
			if resp.Error == "" {
				t.Fatalf("empty error payload")
			}
		})
	}
}

func TestPredict_UnexpectedErrorNotLeaked(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot(), predictErr: context.DeadlineExceeded}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodPost, "/api/predict",
		`{"input_phrase":"hello"}`)
	resp := decodeBody[types.ErrorResponse](t, rec)
	if strings.Contains(resp.Error, "deadline") {
		t.Fatalf("internal detail leaked: %q", resp.Error)
	}
}

func TestPredict_RateLimited(t *testing.T) {
	adm := &fakeAdmitter{decision: ratelimit.Decision{
		Allowed:    false,
		Limit:      30,
		RetryAfter: 3 * time.Second,
	}}
	svc := &mockService{snap: loadedSnapshot()}
	rec := doRequest(t, NewMux(svc, adm), http.MethodPost, "/api/predict",
		`{"input_phrase":"hello"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got == "" {
		t.Fatalf("missing Retry-After header")
	}
	resp := decodeBody[types.ErrorResponse](t, rec)
	if resp.RetryAfterSeconds <= 0 {
		t.Fatalf("retry_after_seconds = %d", resp.RetryAfterSeconds)
	}
	if len(adm.keys) != 1 {
		t.Fatalf("admitter called %d times", len(adm.keys))
	}
}

func TestPredict_RateGateRunsBeforeBodyProcessing(t *testing.T) {
	// An exhausted client gets 429 even when the request itself is broken:
	// malformed floods must still spend budget.
	adm := &fakeAdmitter{decision: ratelimit.Decision{Allowed: false, RetryAfter: time.Second}}
	svc := &mockService{snap: loadedSnapshot()}
	h := NewMux(svc, adm)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 before the Content-Type check", rec.Code)
	}

	// The gate is consulted for malformed bodies too.
	adm = allowAll()
	rec = doRequest(t, NewMux(svc, adm), http.MethodPost, "/api/predict", `{"input_phrase":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(adm.keys) != 1 {
		t.Fatalf("admitter called %d times for malformed body, want 1", len(adm.keys))
	}
}

func TestPredict_NilAdmitterSkipsGate(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot(), predictResp: types.PredictResponse{
		Predictions: []types.Prediction{{Word: "day", Probability: 1}},
		InputPhrase: "good", CompleteSentence: "good day",
	}}
	rec := doRequest(t, NewMux(svc, nil), http.MethodPost, "/api/predict",
		`{"input_phrase":"good"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q, want JSON", ct)
	}
}

func TestStaticFallbackWithoutDir(t *testing.T) {
	SetStaticDir("")
	svc := &mockService{snap: loadedSnapshot()}
	h := NewMux(svc, allowAll())

	rec := doRequest(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("root status = %d, want 200", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/anything", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestStaticServesFilesAndSPAFallback(t *testing.T) {
	dir := t.TempDir()
	writeStatic(t, dir, "index.html", "<html>app</html>")
	writeStatic(t, dir, "app.js", "console.log(1)")
	SetStaticDir(dir)
	t.Cleanup(func() { SetStaticDir("") })

	svc := &mockService{snap: loadedSnapshot()}
	h := NewMux(svc, allowAll())

	rec := doRequest(t, h, http.MethodGet, "/app.js", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Fatalf("asset: status = %d, body = %q", rec.Code, rec.Body.String())
	}
	// Client-side route falls back to index.html.
	rec = doRequest(t, h, http.MethodGet, "/some/client/route", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "app") {
		t.Fatalf("spa fallback: status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func writeStatic(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &mockService{snap: loadedSnapshot()}
	rec := doRequest(t, NewMux(svc, allowAll()), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
