package vision

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// detectionServer answers every text frame with reply(frame).
func detectionServer(t *testing.T, reply func(frame string) string) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply(string(msg)))); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRemoteDetectFaces(t *testing.T) {
	image := []byte("jpeg bytes")
	frames := make(chan string, 4)

	url := detectionServer(t, func(frame string) string {
		frames <- frame
		return `{"faceAnnotations": [{"boundingPoly": {"vertices": [{"x": 1, "y": 2}, {"x": 30, "y": 2}, {"x": 30, "y": 40}]}, "joyLikelihood": "LIKELY", "detectionConfidence": 0.8}]}`
	})

	client := NewRemoteClient(url, 2*time.Second, quietLogger())
	defer client.Close()

	for i := 0; i < 2; i++ {
		faces, err := client.DetectFaces(context.Background(), writeImage(t, image))
		require.NoError(t, err)
		require.Len(t, faces, 1)
		assert.Equal(t, "LIKELY", faces[0].JoyLikelihood)
		assert.Equal(t, 0.8, faces[0].DetectionConfidence)
		require.NotNil(t, faces[0].BoundingPoly)
		assert.Len(t, faces[0].BoundingPoly.Vertices, 3)

		assert.Equal(t, base64.StdEncoding.EncodeToString(image), <-frames)
	}

	assert.Equal(t, ProviderRemote, client.Name())
}

func TestRemoteDetectFacesErrorReply(t *testing.T) {
	url := detectionServer(t, func(string) string {
		return `{"error": "model not loaded"}`
	})

	client := NewRemoteClient(url, 2*time.Second, quietLogger())
	defer client.Close()

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRemoteDetectFacesGarbageReply(t *testing.T) {
	url := detectionServer(t, func(string) string {
		return `not json`
	})

	client := NewRemoteClient(url, 2*time.Second, quietLogger())
	defer client.Close()

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	assert.Error(t, err)
}

func TestRemoteDetectFacesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	client := NewRemoteClient(url, time.Second, quietLogger())
	defer client.Close()

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot connect")
}

func TestRemoteDetectFacesCanceledContext(t *testing.T) {
	url := detectionServer(t, func(string) string { return `{"faceAnnotations": []}` })

	client := NewRemoteClient(url, time.Second, quietLogger())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.DetectFaces(ctx, writeImage(t, []byte("img")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteDetectFacesWaitRespectsDeadline(t *testing.T) {
	received := make(chan struct{}, 1)
	release := make(chan struct{})

	url := detectionServer(t, func(string) string {
		received <- struct{}{}
		<-release
		return `{"faceAnnotations": []}`
	})

	client := NewRemoteClient(url, 5*time.Second, quietLogger())
	defer client.Close()

	slow := writeImage(t, []byte("slow frame"))
	first := make(chan error, 1)
	go func() {
		_, err := client.DetectFaces(context.Background(), slow)
		first <- err
	}()

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		close(release)
		t.Fatal("first frame never reached the detection service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.DetectFaces(ctx, writeImage(t, []byte("queued frame")))
	elapsed := time.Since(start)

	close(release)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
	assert.NoError(t, <-first)
}

func TestRemoteDetectFacesNotConfigured(t *testing.T) {
	client := NewRemoteClient("", time.Second, quietLogger())
	defer client.Close()

	_, err := client.DetectFaces(context.Background(), writeImage(t, []byte("img")))
	assert.Error(t, err)
}
