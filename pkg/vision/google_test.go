package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
)

const annotateReply = `{
  "responses": [{
    "faceAnnotations": [{
      "boundingPoly": {"vertices": [{"x": 10, "y": 20}, {"x": 50, "y": 20}, {"x": 50, "y": 80}, {"x": 10, "y": 80}]},
      "fdBoundingPoly": {"vertices": [{"x": 12, "y": 30}, {"x": 48}, {"x": 48, "y": 78}, {"y": 78}]},
      "landmarks": [{"type": "LEFT_EYE", "position": {"x": 20.5, "y": 40.25, "z": -1}}],
      "joyLikelihood": "VERY_LIKELY",
      "angerLikelihood": "VERY_UNLIKELY",
      "sorrowLikelihood": "UNLIKELY",
      "surpriseLikelihood": "POSSIBLE",
      "detectionConfidence": 0.93
    }, {
      "joyLikelihood": "UNKNOWN",
      "detectionConfidence": 0.4
    }]
  }]
}`

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "capture-x.jpg")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func newTestGoogleClient(t *testing.T, handler http.HandlerFunc) IVision {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGoogleClient(context.Background(), GoogleConfig{MaxResults: 5},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestGoogleDetectFaces(t *testing.T) {
	image := []byte("\xff\xd8\xff\xe0fake jpeg")

	var got visionapi.BatchAnnotateImagesRequest
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/images:annotate"), r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, annotateReply)
	})

	faces, err := client.DetectFaces(context.Background(), writeImage(t, image))
	require.NoError(t, err)

	require.Len(t, got.Requests, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), got.Requests[0].Image.Content)
	require.Len(t, got.Requests[0].Features, 1)
	assert.Equal(t, "FACE_DETECTION", got.Requests[0].Features[0].Type)
	assert.Equal(t, int64(5), got.Requests[0].Features[0].MaxResults)

	require.Len(t, faces, 2)

	first := faces[0]
	require.NotNil(t, first.BoundingPoly)
	assert.Len(t, first.BoundingPoly.Vertices, 4)
	assert.Equal(t, int64(50), first.BoundingPoly.Vertices[2].X)
	assert.Equal(t, int64(80), first.BoundingPoly.Vertices[2].Y)

	require.NotNil(t, first.FdBoundingPoly)
	assert.Equal(t, int64(0), first.FdBoundingPoly.Vertices[1].Y)
	assert.Equal(t, int64(0), first.FdBoundingPoly.Vertices[3].X)

	require.Len(t, first.Landmarks, 1)
	assert.Equal(t, "LEFT_EYE", first.Landmarks[0].Type)
	require.NotNil(t, first.Landmarks[0].Position)
	assert.Equal(t, 40.25, first.Landmarks[0].Position.Y)

	assert.Equal(t, "VERY_LIKELY", first.JoyLikelihood)
	assert.Equal(t, "VERY_UNLIKELY", first.AngerLikelihood)
	assert.Equal(t, "UNLIKELY", first.SorrowLikelihood)
	assert.Equal(t, "POSSIBLE", first.SurpriseLikelihood)
	assert.Equal(t, 0.93, first.DetectionConfidence)

	assert.Nil(t, faces[1].BoundingPoly)
	assert.Nil(t, faces[1].FdBoundingPoly)
	assert.Empty(t, faces[1].Landmarks)
}

func TestGoogleDetectFacesNoFaces(t *testing.T) {
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses": [{}]}`)
	})

	faces, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	require.NoError(t, err)
	assert.NotNil(t, faces)
	assert.Empty(t, faces)
}

func TestGoogleDetectFacesPerImageError(t *testing.T) {
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses": [{"error": {"code": 7, "message": "Cloud Vision API has not been used in project"}}]}`)
	})

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cloud Vision API has not been used")
}

func TestGoogleDetectFacesHTTPError(t *testing.T) {
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error": {"code": 403, "message": "billing disabled", "status": "PERMISSION_DENIED"}}`)
	})

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing disabled")
}

func TestGoogleDetectFacesEmptyFile(t *testing.T) {
	calls := 0
	client := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := client.DetectFaces(context.Background(), writeImage(t, nil))
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = client.DetectFaces(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestNewGoogleClientBadCredentialsFile(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), GoogleConfig{
		CredentialsFile: filepath.Join(t.TempDir(), "nope.json"),
	})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = NewGoogleClient(context.Background(), GoogleConfig{CredentialsFile: bad})
	assert.Error(t, err)
}

func TestGoogleClientName(t *testing.T) {
	client := newTestGoogleClient(t, func(http.ResponseWriter, *http.Request) {})
	assert.Equal(t, ProviderGoogle, client.Name())
}
