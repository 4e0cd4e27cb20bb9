package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learninghouse/internal/auth"
	"learninghouse/internal/brain"
	"learninghouse/internal/fault"
	"learninghouse/internal/metrics"
	"learninghouse/internal/sensors"
)

const (
	initialPassword = "learninghouse"
	adminPassword   = "a-better-password"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()
	authService, err := auth.NewService(dir, auth.NewTokenIssuer("test-secret", time.Minute), initialPassword, log)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	store := brain.NewStore(dir)
	sensorStore := sensors.NewStore(dir, log)
	service := brain.NewService(store, sensorStore, log, brain.WithMetrics(metrics.New(registry)))
	configs := brain.NewConfigurationService(store, log)
	configs.OnDelete(service.Forget)

	handler := NewHandler(service, configs, sensorStore, authService, registry, log)
	return &testServer{t: t, router: handler.Router()}
}

type call struct {
	method, path string
	body         any
	token        string
	apiKey       string
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()

	var body io.Reader
	if raw, ok := c.body.(string); ok {
		body = bytes.NewBufferString(raw)
	} else if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(s.t, err)
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(password string) string {
	s.t.Helper()
	w := s.do(call{method: http.MethodPost, path: "/api/auth/token", body: LoginRequest{Password: password}})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var token auth.Token
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &token))
	return token.AccessToken
}

// admin changes the initial password and returns an admin token.
func (s *testServer) admin() string {
	s.t.Helper()
	token := s.login(initialPassword)
	w := s.do(call{
		method: http.MethodPut, path: "/api/auth/password", token: token,
		body: PasswordRequest{OldPassword: initialPassword, NewPassword: adminPassword},
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return s.login(adminPassword)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestInitialPasswordMustBeChanged(t *testing.T) {
	s := newTestServer(t)

	w := s.do(call{method: http.MethodGet, path: "/api/brains/info"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, fault.Unauthorized, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodGet, path: "/api/versions"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Process-Time"))

	token := s.login(initialPassword)
	w = s.do(call{method: http.MethodGet, path: "/api/brains/info", token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(call{method: http.MethodPost, path: "/api/auth/token", body: LoginRequest{Password: "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(call{method: http.MethodPost, path: "/api/auth/token", body: `{"password":`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fault.BadRequest, decodeError(t, w).Error)

	token := s.admin()
	w = s.do(call{method: http.MethodGet, path: "/api/brains/info", token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	w = s.do(call{method: http.MethodGet, path: "/api/brains/info", token: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func darknessObservation(i int) map[string]any {
	elevation := float64(i*4 - 18)
	return map[string]any{
		"darkness":  elevation < 0,
		"azimuth":   float64(90 + i*15),
		"elevation": elevation,
	}
}

func TestBrainLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.admin()

	for _, name := range []string{"azimuth", "elevation"} {
		w := s.do(call{method: http.MethodPost, path: "/api/sensor/" + name, token: token, body: SensorRequest{Typed: sensors.Numerical}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	cfg := brain.Configuration{
		Name:            "darkness",
		Estimator:       brain.EstimatorConfiguration{Typed: "classifier"},
		DependentEncode: true,
	}
	w := s.do(call{method: http.MethodPost, path: "/api/brain/configuration", token: token, body: cfg})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(call{method: http.MethodPost, path: "/api/brain/configuration", token: token, body: cfg})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, fault.ConfigurationExists, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodPost, path: "/api/brain/darkness/prediction", token: token,
		body: PredictionRequest{Data: map[string]any{"azimuth": 100.0, "elevation": 10.0}}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fault.NotTrained, decodeError(t, w).Error)

	for i := 0; i < 9; i++ {
		w = s.do(call{method: http.MethodPut, path: "/api/brain/darkness/training", token: token,
			body: TrainingRequest{Data: darknessObservation(i)}})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.Equal(t, fault.NotEnoughData, decodeError(t, w).Error)
	}

	w = s.do(call{method: http.MethodPut, path: "/api/brain/darkness/training", token: token,
		body: TrainingRequest{Data: darknessObservation(9)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var info brain.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 10, info.TrainingDataSize)
	assert.True(t, info.ActualVersions)

	w = s.do(call{method: http.MethodPost, path: "/api/brain/darkness/training", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(call{method: http.MethodPost, path: "/api/brain/darkness/prediction", token: token,
		body: PredictionRequest{Data: map[string]any{"azimuth": 100.0, "elevation": 10.0}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Prediction any `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.IsType(t, true, result.Prediction)

	w = s.do(call{method: http.MethodGet, path: "/api/brain/darkness/history?limit=5", token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(call{method: http.MethodGet, path: "/api/brain/darkness/history?limit=zero", token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `learninghouse_trainings_total{brain="darkness",result="ok"} 2`)

	w = s.do(call{method: http.MethodDelete, path: "/api/brain/darkness/configuration", token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/api/brain/darkness/info", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fault.NoConfiguration, decodeError(t, w).Error)
}

func TestConfigurationValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.admin()

	w := s.do(call{method: http.MethodPost, path: "/api/brain/configuration", token: token,
		body: brain.Configuration{Name: "heating", Estimator: brain.EstimatorConfiguration{Typed: "svm"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fault.BadRequest, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodPut, path: "/api/brain/heating/configuration", token: token,
		body: brain.Configuration{Estimator: brain.EstimatorConfiguration{Typed: "regressor"}}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/api/brain/heating/configuration", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSensorEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.admin()

	w := s.do(call{method: http.MethodPost, path: "/api/sensor/window_open", token: token, body: SensorRequest{Typed: sensors.Categorical}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(call{method: http.MethodPost, path: "/api/sensor/window_open", token: token, body: SensorRequest{Typed: sensors.Categorical}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, fault.SensorExists, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodPut, path: "/api/sensor/window_open", token: token, body: SensorRequest{Typed: sensors.Numerical}})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/api/sensor/window_open", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"window_open","typed":"numerical"}`, w.Body.String())

	w = s.do(call{method: http.MethodPut, path: "/api/sensor/window_open", token: token, body: SensorRequest{Typed: "boolean"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(call{method: http.MethodDelete, path: "/api/sensor/window_open", token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/api/sensor/window_open", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fault.NoSensor, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodGet, path: "/api/sensors", token: token})
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAPIKeyRoles(t *testing.T) {
	s := newTestServer(t)
	token := s.admin()

	w := s.do(call{method: http.MethodPost, path: "/api/auth/apikeys", token: token,
		body: APIKeyRequest{Description: "dashboard", Role: auth.RoleUser}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var key auth.NewAPIKey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))
	require.NotEmpty(t, key.Key)

	w = s.do(call{method: http.MethodGet, path: "/api/sensors", apiKey: key.Key})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(call{method: http.MethodPost, path: "/api/brain/darkness/training", apiKey: key.Key})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, fault.Forbidden, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodGet, path: "/api/sensors", apiKey: "bogus.key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(call{method: http.MethodGet, path: "/api/auth/apikeys", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dashboard")

	w = s.do(call{method: http.MethodDelete, path: "/api/auth/apikey/" + key.ID, token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(call{method: http.MethodDelete, path: "/api/auth/apikey/" + key.ID, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fault.NoAPIKey, decodeError(t, w).Error)

	w = s.do(call{method: http.MethodGet, path: "/api/sensors", apiKey: key.Key})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusOf(t *testing.T) {
	tests := map[fault.Kind]int{
		fault.NoConfiguration:     http.StatusNotFound,
		fault.ConfigurationExists: http.StatusConflict,
		fault.NotEnoughData:       http.StatusAccepted,
		fault.NotActual:           428,
		fault.Security:            http.StatusForbidden,
		fault.Unknown:             http.StatusInternalServerError,
		fault.Kind("SOMETHING"):   http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusOf(kind), kind)
	}
}
