package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/labdesc/pkg/catalog"
	"github.com/ethpandaops/labdesc/pkg/middleware"
	"github.com/ethpandaops/labdesc/pkg/types"
)

type fakeCatalog struct {
	entries map[string]catalog.Entry
}

func (f *fakeCatalog) Summaries() []types.ScenarioSummary {
	out := make([]types.ScenarioSummary, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Summary())
	}

	return out
}

func (f *fakeCatalog) Get(name string) (catalog.Entry, bool) {
	e, ok := f.entries[name]

	return e, ok
}

func (f *fakeCatalog) Count() int { return len(f.entries) }

func newTestServer(metrics bool) *Server {
	return newTestServerWithOptions(Options{MetricsEnabled: metrics})
}

func newTestServerWithOptions(opts Options) *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := &fakeCatalog{entries: map[string]catalog.Entry{
		"cka-scheduling": {
			Name: "cka-scheduling",
			Path: "scenarios/cka-scheduling/index.json",
			Descriptor: &types.LabDescriptor{
				Title:       "CKA: Fix Pod Scheduling Issue",
				Description: "Debug and fix a Pending Pod by correctly.",
				Details: types.Details{
					Steps: []types.Step{{
						Title:  "Fix MCP Postman Deployment Scheduling Issue",
						Text:   "step1.md",
						Verify: "verify.sh",
					}},
					Intro: &types.Section{Text: "intro.md", CourseData: "setup.sh"},
				},
				Backend: types.Backend{ImageID: "kubernetes-kubeadm-2nodes"},
			},
		},
	}}

	return New(log, c, opts)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Scenarios)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestListScenarios(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios/", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []types.ScenarioSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, types.ScenarioSummary{
		Name:        "cka-scheduling",
		Title:       "CKA: Fix Pod Scheduling Issue",
		Description: "Debug and fix a Pending Pod by correctly.",
		ImageID:     "kubernetes-kubeadm-2nodes",
		Steps:       1,
	}, resp[0])
}

func TestGetScenario(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios/cka-scheduling", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var d types.LabDescriptor
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, "kubernetes-kubeadm-2nodes", d.Backend.ImageID)
	require.NotNil(t, d.Details.Intro)
	assert.Equal(t, "setup.sh", d.Details.Intro.CourseData)
	assert.Nil(t, d.Details.Finish)
}

func TestGetScenarioNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "missing")
}

func TestMetricsRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(true).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "labdesc_catalog_scenarios")

	rr = httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScenarioAPIRateLimited(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	limiter := middleware.NewRateLimiter(log, middleware.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         1,
	})
	defer limiter.Close()

	handler := newTestServerWithOptions(Options{RateLimiter: limiter}).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios/cka-scheduling", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios/cka-scheduling", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Health checks are not limited.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- newTestServer(false).Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
