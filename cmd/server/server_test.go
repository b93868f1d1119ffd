package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/config"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/database"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `Pregnancies,Glucose,BloodPressure,SkinThickness,Insulin,BMI,DiabetesPedigreeFunction,Age,Outcome
6,148,72,35,0,33.6,0.627,50,1
1,85,66,29,0,26.6,0.351,31,0
8,183,64,0,0,23.3,0.672,32,1
1,89,66,23,94,28.1,0.167,21,0
0,137,40,35,168,43.1,2.288,33,1
`

type testEnv struct {
	server *Server
	router *gin.Engine
	cfg    *config.Config
}

func setupRouter(t *testing.T, csv string, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Dataset.Path = filepath.Join(dir, "diabetes.csv")
	cfg.RateLimit.RequestsPerMinute = 1000
	cfg.RateLimit.Burst = 1000
	if csv != "" {
		require.NoError(t, os.WriteFile(cfg.Dataset.Path, []byte(csv), 0644))
	}
	if mutate != nil {
		mutate(cfg)
	}

	deps := Deps{Logger: monitoring.NewLoggerWithWriter(&bytes.Buffer{}, slog.LevelError)}
	if cfg.Storage.Enabled {
		db, err := database.NewDB(cfg.Storage.DataDir)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		deps.Repository = database.NewRepository(db)
	}

	srv := NewServer(cfg, deps)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, router: srv.Router(), cfg: cfg}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		csv            string
		expectedStatus string
		available      bool
	}{
		{"model available", testCSV, "ok", true},
		{"no dataset", "", "degraded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t, tt.csv, nil)
			w := env.do(http.MethodGet, "/health", "")
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedStatus, body["status"])
			assert.Equal(t, tt.available, body["model_available"])
			assert.Contains(t, body, "metrics")
			assert.Equal(t, "disabled", body["redis"])
		})
	}
}

func TestPredictEndpoint(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "valid sample",
			body:           `{"features":[6,148,72,35,0,33.6,0.627,50]}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "too few features",
			body:           `{"features":[1,2,3]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "too many features",
			body:           `{"features":[1,2,3,4,5,6,7,8,9]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "missing features",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "malformed json",
			body:           `{"features":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, predictPath, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedCode != "" {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedCode, body["code"])
			}
		})
	}
}

func TestPredictEndpoint_MatchesCore(t *testing.T) {
	env := setupRouter(t, testCSV, nil)
	sample := analysis.FeatureVector{1, 89, 66, 23, 94, 28.1, 0.167, 21}

	w := env.do(http.MethodPost, predictPath, `{"features":[1,89,66,23,94,28.1,0.167,21]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	model, ok, err := env.server.Model()
	require.NoError(t, err)
	require.True(t, ok)

	expected, err := analysis.ClassifyWithLikelihood(model.Params, sample)
	require.NoError(t, err)

	assert.Equal(t, expected.Label, resp.Label)
	assert.InDelta(t, *expected.LikelihoodPercent, resp.LikelihoodPercent, 1e-9)
	assert.Equal(t, analysis.DefaultThreshold, resp.Threshold)
	assert.Len(t, resp.Contributions, analysis.FeatureCount)
	assert.Equal(t, resp.Label == 1, resp.LikelihoodPercent >= 50)
}

func TestPredictEndpoint_NoModel(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing dataset", ""},
		{"header only", "Pregnancies,Glucose\n"},
		{"constant features", "1,1,1,1,1,1,1,1\n1,1,1,1,1,1,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t, tt.csv, nil)
			w := env.do(http.MethodPost, predictPath, `{"features":[1,2,3,4,5,6,7,8]}`)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Contains(t, w.Body.String(), "MODEL_UNAVAILABLE")
		})
	}
}

func TestModelEndpoint(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	w := env.do(http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ModelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Stats.Count)
	assert.Equal(t, analysis.FeatureLabels, resp.Features)

	sum := 0.0
	for _, w := range resp.Params.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRebuildEndpoint_PicksUpNewData(t *testing.T) {
	env := setupRouter(t, "", nil)

	w := env.do(http.MethodGet, "/api/v1/model", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, os.WriteFile(env.cfg.Dataset.Path, []byte(testCSV), 0644))

	w = env.do(http.MethodPost, "/api/v1/model/rebuild", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/model", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRebuildEndpoint_ServesStoredSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	env := setupRouter(t, testCSV, func(c *config.Config) {
		c.Storage.Enabled = true
		c.Storage.DataDir = dataDir
	})

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/model", "").Code)
	require.NoError(t, os.Remove(env.cfg.Dataset.Path))

	w := env.do(http.MethodPost, "/api/v1/model/rebuild", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ModelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Stats.Count)
	assert.Equal(t, 1, env.server.models.Size())

	w = env.do(http.MethodPost, predictPath, `{"features":[6,148,72,35,0,33.6,0.627,50]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// the fallback is not recorded as a new snapshot
	w = env.do(http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRebuildEndpoint_NoSnapshotNoModel(t *testing.T) {
	dataDir := t.TempDir()
	env := setupRouter(t, "", func(c *config.Config) {
		c.Storage.Enabled = true
		c.Storage.DataDir = dataDir
	})

	w := env.do(http.MethodPost, "/api/v1/model/rebuild", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 0, env.server.models.Size())
}

func TestModelsEndpoint(t *testing.T) {
	t.Run("storage disabled", func(t *testing.T) {
		env := setupRouter(t, testCSV, nil)
		w := env.do(http.MethodGet, "/api/v1/models", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage enabled records builds", func(t *testing.T) {
		dataDir := t.TempDir()
		env := setupRouter(t, testCSV, func(c *config.Config) {
			c.Storage.Enabled = true
			c.Storage.DataDir = dataDir
		})

		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/model", "").Code)
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/model/rebuild", "").Code)

		w := env.do(http.MethodGet, "/api/v1/models?limit=10", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Models []database.ModelSnapshot `json:"models"`
			Count  int                      `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
		assert.Equal(t, 5, body.Models[0].RowCount)
	})
}

func TestIndexPage(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	w := env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Glucose")
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRateLimit(t *testing.T) {
	env := setupRouter(t, testCSV, func(c *config.Config) {
		c.RateLimit.RequestsPerMinute = 2
		c.RateLimit.Burst = 2
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(http.MethodGet, "/api/v1/model", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is outside the limited group
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
}

func TestUnsupportedContentType(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	req := httptest.NewRequest(http.MethodPost, predictPath, strings.NewReader("1 2 3 4 5 6 7 8"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestPredictFailuresAreCounted(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, predictPath, `{"features":[1,2,3,4,5,6,7,8]}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, predictPath, `{"features":[1,2,3]}`).Code)

	stats := env.server.metrics.GetStats()
	assert.Equal(t, int64(1), stats["predictions"])
	assert.Equal(t, int64(1), stats["prediction_failures"])
	assert.Equal(t, map[string]int64{predictPath: 2}, stats["route_distribution"])
}

func TestModelIsCached(t *testing.T) {
	env := setupRouter(t, testCSV, nil)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/model", "").Code)
	}

	stats := env.server.metrics.GetStats()
	assert.Equal(t, int64(1), stats["model_builds"])
	assert.Equal(t, int64(2), stats["cache_hits"])
}

func BenchmarkPredictEndpoint(b *testing.B) {
	gin.SetMode(gin.TestMode)

	dir := b.TempDir()
	cfg := config.Default()
	cfg.Dataset.Path = filepath.Join(dir, "diabetes.csv")
	cfg.RateLimit.RequestsPerMinute = 1 << 30
	cfg.RateLimit.Burst = 1 << 30
	require.NoError(b, os.WriteFile(cfg.Dataset.Path, []byte(testCSV), 0644))

	srv := NewServer(cfg, Deps{Logger: monitoring.NewLoggerWithWriter(&bytes.Buffer{}, slog.LevelError)})
	defer srv.Close()
	router := srv.Router()

	body := `{"features":[6,148,72,35,0,33.6,0.627,50]}`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, predictPath, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
