package vision

import (
	"FaceLens/internal/entity"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
)

const faceDetectionFeature = "FACE_DETECTION"

type GoogleConfig struct {
	CredentialsFile string
	APIKey          string
	MaxResults      int64
}

type googleClient struct {
	service    *visionapi.Service
	maxResults int64
}

// NewGoogleClient builds a Cloud Vision client. Credentials come from the
// service account file, then the API key, then Application Default
// Credentials. Extra options are appended last.
func NewGoogleClient(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (IVision, error) {
	var clientOpts []option.ClientOption

	switch {
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read vision credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, visionapi.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("parse vision credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := visionapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	return &googleClient{
		service:    service,
		maxResults: maxResults,
	}, nil
}

func (g *googleClient) Name() string {
	return ProviderGoogle
}

func (g *googleClient) Close() {}

func (g *googleClient) DetectFaces(ctx context.Context, imagePath string) ([]entity.FaceAnnotation, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{
			{
				Image: &visionapi.Image{Content: base64.StdEncoding.EncodeToString(data)},
				Features: []*visionapi.Feature{
					{Type: faceDetectionFeature, MaxResults: g.maxResults},
				},
			},
		},
	}

	res, err := g.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotate image: %w", err)
	}
	if len(res.Responses) == 0 {
		return nil, errors.New("annotate image: empty response")
	}

	imageRes := res.Responses[0]
	if imageRes.Error != nil && imageRes.Error.Code != 0 {
		return nil, fmt.Errorf("annotate image: %s (code %d)", imageRes.Error.Message, imageRes.Error.Code)
	}

	faces := make([]entity.FaceAnnotation, 0, len(imageRes.FaceAnnotations))
	for _, fa := range imageRes.FaceAnnotations {
		if fa == nil {
			continue
		}
		faces = append(faces, fromGoogleFace(fa))
	}

	return faces, nil
}

func fromGoogleFace(fa *visionapi.FaceAnnotation) entity.FaceAnnotation {
	face := entity.FaceAnnotation{
		BoundingPoly:           fromGooglePoly(fa.BoundingPoly),
		FdBoundingPoly:         fromGooglePoly(fa.FdBoundingPoly),
		JoyLikelihood:          fa.JoyLikelihood,
		AngerLikelihood:        fa.AngerLikelihood,
		SorrowLikelihood:       fa.SorrowLikelihood,
		SurpriseLikelihood:     fa.SurpriseLikelihood,
		DetectionConfidence:    fa.DetectionConfidence,
		LandmarkingConfidence:  fa.LandmarkingConfidence,
		UnderExposedLikelihood: fa.UnderExposedLikelihood,
		BlurredLikelihood:      fa.BlurredLikelihood,
		HeadwearLikelihood:     fa.HeadwearLikelihood,
	}

	for _, lm := range fa.Landmarks {
		if lm == nil {
			continue
		}
		landmark := entity.Landmark{Type: lm.Type}
		if lm.Position != nil {
			landmark.Position = &entity.Position{X: lm.Position.X, Y: lm.Position.Y, Z: lm.Position.Z}
		}
		face.Landmarks = append(face.Landmarks, landmark)
	}

	return face
}

func fromGooglePoly(poly *visionapi.BoundingPoly) *entity.BoundingPoly {
	if poly == nil {
		return nil
	}
	out := &entity.BoundingPoly{Vertices: make([]entity.Vertex, 0, len(poly.Vertices))}
	for _, v := range poly.Vertices {
		if v == nil {
			out.Vertices = append(out.Vertices, entity.Vertex{})
			continue
		}
		out.Vertices = append(out.Vertices, entity.Vertex{X: v.X, Y: v.Y})
	}
	return out
}
