// Package storage decides where annotated images live and how clients reach
// them.
package storage

import (
	"FaceLens/pkg/s3"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	StoreLocal = "local"
	StoreS3    = "s3"

	CapturesRoute = "/captures"
)

type IAnnotationStore interface {
	// Publish makes the annotated file at localPath reachable and returns the
	// reference handed to clients.
	Publish(localPath string) (string, error)
	Name() string
}

type localStore struct {
	route string
}

// NewLocal keeps annotated files where they were written; the captures
// directory is served under route.
func NewLocal(route string) IAnnotationStore {
	if route == "" {
		route = CapturesRoute
	}
	return &localStore{route: route}
}

func (l *localStore) Name() string {
	return StoreLocal
}

func (l *localStore) Publish(localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("annotated image missing: %w", err)
	}
	return path.Join(l.route, filepath.Base(localPath)), nil
}

type s3Store struct {
	client s3.ItfS3
	prefix string
	expiry time.Duration
	log    *logrus.Logger
}

// NewS3 uploads annotated files under prefix and returns presigned URLs valid
// for expiry. The local copy is removed after a successful upload; an object
// that cannot be presigned is deleted again.
func NewS3(client s3.ItfS3, prefix string, expiry time.Duration, log *logrus.Logger) IAnnotationStore {
	return &s3Store{
		client: client,
		prefix: prefix,
		expiry: expiry,
		log:    log,
	}
}

func (s *s3Store) Name() string {
	return StoreS3
}

func (s *s3Store) Publish(localPath string) (string, error) {
	key := path.Join(s.prefix, filepath.Base(localPath))

	if _, err := s.client.UploadFile(localPath, key); err != nil {
		return "", err
	}

	url, err := s.client.PresignUrl(key, s.expiry)
	if err != nil {
		if derr := s.client.DeleteFile(key); derr != nil {
			s.log.WithFields(logrus.Fields{
				"key":   key,
				"error": derr.Error(),
			}).Warn("Failed to delete unreachable annotated image")
		}
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	if err := os.Remove(localPath); err != nil {
		s.log.WithFields(logrus.Fields{
			"path":  localPath,
			"error": err.Error(),
		}).Warn("Failed to remove local annotated image after upload")
	}

	return url, nil
}
