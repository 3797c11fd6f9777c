package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/clinicbooking/api"
	"github.com/Domenick1991/clinicbooking/config"
	"github.com/Domenick1991/clinicbooking/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_ServesMetricsAndDocs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openapi.json"), []byte(`{"openapi":"3.0.3"}`), 0o644))

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	m.ObserveTransition("PENDING", "CONFIRMED")

	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0", SwaggerDir: dir}}
	handlers := api.Handlers{
		Bookings: api.NewBookingHandler(nil),
		Doctors:  api.NewDoctorHandler(nil),
	}
	engine := NewEngine(cfg, handlers, api.NewTokenVerifier("secret", ""), reg, zerolog.Nop())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinic_booking_transitions_total")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3.0.3")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
