// Package vision holds the face detection providers. Every provider returns
// faces in the order it reported them, shaped like Cloud Vision annotations.
package vision

import (
	"FaceLens/internal/entity"
	"context"
	"errors"
)

type IVision interface {
	DetectFaces(ctx context.Context, imagePath string) ([]entity.FaceAnnotation, error)
	Name() string
	Close()
}

const (
	ProviderGoogle = "google"
	ProviderRemote = "remote"
)

var ErrEmptyImage = errors.New("image file is empty")
