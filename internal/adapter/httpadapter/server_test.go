package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/crop-advisor-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockAdvisor struct {
	mu     sync.Mutex
	advice domain.Advice
	got    []domain.AdviceRequest
}

func (m *mockAdvisor) Advise(_ context.Context, req domain.AdviceRequest) domain.Advice {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, req)
	return m.advice
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(e domain.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return true
}

type testEnv struct {
	srv     *httpadapter.Server
	advisor *mockAdvisor
	events  *mockPublisher
	metrics *observability.Metrics
}

func newTestEnv(readyErr error, origins ...string) *testEnv {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	env := &testEnv{
		advisor: &mockAdvisor{advice: domain.UnconfiguredAdvice()},
		events:  &mockPublisher{},
		metrics: observability.NewMetricsForTesting(),
	}
	env.srv = httpadapter.NewServer(":0", httpadapter.Dependencies{
		Advisor: env.advisor,
		// Midpoint draws cancel both the fluctuation and the jitter.
		Prices:         domain.NewPriceSimulator(func() float64 { return 0.5 }),
		Events:         env.events,
		Ready:          &mockReadiness{err: readyErr},
		Metrics:        env.metrics,
		AllowedOrigins: origins,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

func (e *testEnv) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestEnv(nil).srv
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestEnv(nil).srv
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestEnv(fmt.Errorf("event dispatcher is not running")).srv
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "event dispatcher is not running", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestEnv(nil).srv
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- probability ---

func TestProbability_ReferenceScenarios(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{
			name: "compatible rice",
			body: `{"crop":"rice","soil":"alluvial","params":{"ph":6.5,"soilHealth":0.7,"groundwater":0.6,"weather":"normal"},"practices":[]}`,
			want: 0.92,
		},
		{
			name: "incompatible tea with excess fertilizer",
			body: `{"crop":"tea","soil":"alluvial","params":{"ph":6.5,"soilHealth":0.7,"groundwater":0.6,"weather":"normal"},"practices":["excess-chemical-fertilizer"]}`,
			want: 0.42,
		},
		{
			name: "defaults applied",
			body: `{"crop":"rice"}`,
			want: 0.92,
		},
		{
			name: "mis-cased soil key leaves soil defaulted",
			body: `{"crop":"rice","SOIL":"desert"}`,
			want: 0.92,
		},
		{
			name: "capitalized soil key does not select mountain",
			body: `{"crop":"rice","Soil":"mountain"}`,
			want: 0.92,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			rec := env.post(t, "/api/probability", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.InDelta(t, tt.want, decode(t, rec)["probability"], 1e-9)
		})
	}
}

func TestProbability_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		outcome string
	}{
		{"missing crop", `{"soil":"alluvial"}`, "Invalid crop parameter", "invalid_crop"},
		{"empty crop", `{"crop":""}`, "Invalid crop parameter", "invalid_crop"},
		{"numeric crop", `{"crop":7}`, "Invalid crop parameter", "invalid_crop"},
		{"empty body", ``, "Invalid crop parameter", "invalid_crop"},
		{"malformed body", `{"crop":`, "Invalid crop parameter", "invalid_crop"},
		{"unknown soil", `{"crop":"rice","soil":"clay"}`, "Invalid soil parameter", "invalid_soil"},
		{"numeric soil", `{"crop":"rice","soil":1}`, "Invalid soil parameter", "invalid_soil"},
		{"capitalized crop key", `{"Crop":"rice"}`, "Invalid crop parameter", "invalid_crop"},
		{"upper-case crop key", `{"CROP":"rice"}`, "Invalid crop parameter", "invalid_crop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			rec := env.post(t, "/api/probability", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": tt.message}, decode(t, rec))
			assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.ProbabilityRequests.WithLabelValues(tt.outcome)), 0)
			assert.Empty(t, env.events.events, "rejected requests publish nothing")
		})
	}
}

func TestProbability_PublishesAssessment(t *testing.T) {
	env := newTestEnv(nil)
	rec := env.post(t, "/api/probability", `{"crop":"maize","soil":"mountain"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, env.events.events, 1)
	event := env.events.events[0]
	assert.Equal(t, domain.EventSuitabilityAssessed, event.Type)
	assert.Contains(t, event.ID, "suitability-")

	assessment, ok := event.Payload.(domain.Assessment)
	require.True(t, ok)
	assert.Equal(t, "maize", assessment.Crop)
	assert.Equal(t, domain.SoilMountain, assessment.Conditions.Soil)
}

// --- mentor ---

func TestMentor_AnswersFromAdvisor(t *testing.T) {
	env := newTestEnv(nil)
	env.advisor.advice = domain.Advice{Answer: "Plant cover crops.", Source: domain.AdviceRemote}

	rec := env.post(t, "/api/mentor", `{"question":"How do I fix compacted soil?","context":{"soil":"mountain"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"answer": "Plant cover crops."}, decode(t, rec))
	require.Len(t, env.advisor.got, 1)
	assert.Equal(t, "How do I fix compacted soil?", env.advisor.got[0].Question)
	assert.Equal(t, "mountain", env.advisor.got[0].Context["soil"])
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.AdviceRequests.WithLabelValues("remote")), 0)
}

func TestMentor_DefaultsQuestionAndFallsBack(t *testing.T) {
	env := newTestEnv(nil)

	rec := env.post(t, "/api/mentor", `not json`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.FallbackUnconfigured, decode(t, rec)["answer"])
	require.Len(t, env.advisor.got, 1)
	assert.Equal(t, domain.DefaultQuestion, env.advisor.got[0].Question)
	assert.Empty(t, env.advisor.got[0].Context)
}

// --- prices ---

func TestPrices_DefaultCrops(t *testing.T) {
	env := newTestEnv(nil)
	rec := env.post(t, "/api/prices", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	prices, ok := decode(t, rec)["prices"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, prices, len(domain.DefaultPriceCrops()))
	assert.InDelta(t, 35, prices["rice"], 1e-9)
	assert.InDelta(t, 250, prices["tea"], 1e-9)

	require.Len(t, env.events.events, 1)
	assert.Equal(t, domain.EventPricesQuoted, env.events.events[0].Type)
	assert.InDelta(t, 6, testutil.ToFloat64(env.metrics.PricesQuoted), 0)
}

func TestPrices_RequestedCrops(t *testing.T) {
	env := newTestEnv(nil)
	rec := env.post(t, "/api/prices", `{"crops":["wheat","quinoa"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"prices": map[string]any{"wheat": 25.0, "quinoa": 20.0}}, decode(t, rec))
}

func TestPrices_EmptyList(t *testing.T) {
	env := newTestEnv(nil)
	rec := env.post(t, "/api/prices", `{"crops":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"prices": map[string]any{}}, decode(t, rec))
}

// --- middleware ---

func TestCORS_Preflight(t *testing.T) {
	srv := newTestEnv(nil).srv
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/probability", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	env := newTestEnv(nil, "https://farm.example")

	for origin, want := range map[string]string{
		"https://farm.example": "https://farm.example",
		"https://evil.example": "",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/prices", strings.NewReader(`{}`))
		req.Header.Set("Origin", origin)
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestServer_NilEventsAndReadiness(t *testing.T) {
	srv := httpadapter.NewServer(":0", httpadapter.Dependencies{
		Advisor:        &mockAdvisor{advice: domain.FailedAdvice()},
		Prices:         domain.NewPriceSimulator(nil),
		Metrics:        observability.NewMetricsForTesting(),
		AllowedOrigins: []string{"*"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/prices", strings.NewReader(`{"crops":["rice"]}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
