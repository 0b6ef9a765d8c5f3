package config

import (
	"FaceLens/internal/api/analysis"
	"FaceLens/internal/entity"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVision struct {
	closed bool
}

func (v *staticVision) DetectFaces(context.Context, string) ([]entity.FaceAnnotation, error) {
	return nil, nil
}

func (v *staticVision) Name() string { return "static" }

func (v *staticVision) Close() { v.closed = true }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testEnv(t *testing.T) *Env {
	t.Helper()
	clearEnv(t)
	env, err := LoadEnv()
	require.NoError(t, err)
	env.CapturesDir = t.TempDir()
	env.PublicDir = t.TempDir()
	return env
}

func TestServerHealth(t *testing.T) {
	provider := &staticVision{}
	srv, err := NewServer(
		WithFiber(fiber.New()),
		WithLogger(quietLogger()),
		WithEnv(testEnv(t)),
		WithVision(provider),
	)
	require.NoError(t, err)

	srv.RegisterHandler()
	app := srv.Routes()

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var body analysis.HealthResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "static", body.Provider)

	_ = srv.Shutdown(time.Second)
	assert.True(t, provider.closed)
}

func TestNewServerRequiresVision(t *testing.T) {
	_, err := NewServer(
		WithFiber(fiber.New()),
		WithLogger(quietLogger()),
		WithEnv(testEnv(t)),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face detection provider")
}
