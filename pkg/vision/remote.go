package vision

import (
	"FaceLens/internal/entity"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type remoteReply struct {
	FaceAnnotations []entity.FaceAnnotation `json:"faceAnnotations"`
	Error           string                  `json:"error,omitempty"`
}

// remoteClient talks to a detection service over a single WebSocket
// connection. One frame is in flight at a time; sem is held from write until
// the reply has been read.
type remoteClient struct {
	url          string
	conn         *websocket.Conn
	sem          *semaphore.Weighted
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewRemoteClient(url string, readTimeout time.Duration, log *logrus.Logger) IVision {
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	client := &remoteClient{
		url:          url,
		sem:          semaphore.NewWeighted(1),
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  readTimeout,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *remoteClient) Name() string {
	return ProviderRemote
}

// lock serialises use of the single connection.
func (c *remoteClient) lock() { _ = c.sem.Acquire(context.Background(), 1) }

func (c *remoteClient) unlock() { c.sem.Release(1) }

func (c *remoteClient) connectInBackground() {
	c.lock()
	defer c.unlock()

	if err := c.connectLocked(); err != nil {
		c.log.Warnf("Initial connection to face detection service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Infof("Connected to face detection service at %s", c.url)
}

func (c *remoteClient) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	if c.url == "" {
		return errors.New("face detection service URL not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Debugf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *remoteClient) dropLocked(conn *websocket.Conn) {
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *remoteClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.lock()
		if c.conn != conn {
			c.unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping to face detection service failed, marking connection as dead: %v", err)
			c.dropLocked(conn)
			c.unlock()
			return
		}
		c.unlock()
	}
}

func (c *remoteClient) DetectFaces(ctx context.Context, imagePath string) ([]entity.FaceAnnotation, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	frame := base64.StdEncoding.EncodeToString(data)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.connectLocked(); err != nil {
		return nil, fmt.Errorf("cannot connect to face detection service: %w", err)
	}
	conn := c.conn

	conn.SetWriteDeadline(c.deadline(ctx, c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error sending face frame: %w", err)
	}

	conn.SetReadDeadline(c.deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error reading face detection reply: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var reply remoteReply
	if err := jsoniter.Unmarshal(message, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling face detection reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("face detection service: %s", reply.Error)
	}

	c.log.Debugf("Face detection service returned %d faces", len(reply.FaceAnnotations))

	return reply.FaceAnnotations, nil
}

func (c *remoteClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *remoteClient) Close() {
	c.lock()
	defer c.unlock()

	if c.conn != nil {
		c.dropLocked(c.conn)
	}
}
