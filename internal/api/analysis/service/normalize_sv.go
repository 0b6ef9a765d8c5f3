package analysisService

import (
	"FaceLens/internal/entity"
	"math"
)

var likelihoodScores = map[string]float64{
	"UNKNOWN":       0,
	"VERY_UNLIKELY": 0.1,
	"UNLIKELY":      0.3,
	"POSSIBLE":      0.5,
	"LIKELY":        0.7,
	"VERY_LIKELY":   0.9,
}

// LikelihoodScore maps a provider likelihood label to a score. Labels are
// matched case-sensitively; anything unrecognised scores 0.
func LikelihoodScore(label string) float64 {
	return likelihoodScores[label]
}

// ResolveBoundingPoly prefers the general bounding polygon over the tighter
// face-detection one. It returns nil when the face carries neither.
func ResolveBoundingPoly(face *entity.FaceAnnotation) *entity.BoundingPoly {
	if face == nil {
		return nil
	}
	if face.BoundingPoly != nil {
		return face.BoundingPoly
	}
	return face.FdBoundingPoly
}

type GenderEstimator interface {
	Estimate(face *entity.FaceAnnotation, box *entity.BoundingPoly) entity.Gender
}

const DefaultAspectRatioThreshold = 0.85

// AspectRatioEstimator labels a face male when its box is wider than
// Threshold times its height. It is a placeholder, not a gender classifier.
type AspectRatioEstimator struct {
	Threshold float64
}

func (e AspectRatioEstimator) Estimate(face *entity.FaceAnnotation, box *entity.BoundingPoly) entity.Gender {
	if face == nil || len(face.Landmarks) == 0 {
		return entity.GenderUnknown
	}
	if box == nil || len(box.Vertices) < 3 {
		return entity.GenderUnknown
	}

	v := box.Vertices
	faceWidth := math.Abs(float64(v[1].X - v[0].X))
	faceHeight := math.Abs(float64(v[2].Y - v[0].Y))
	aspectRatio := faceWidth / faceHeight

	threshold := e.Threshold
	if threshold == 0 {
		threshold = DefaultAspectRatioThreshold
	}

	if aspectRatio > threshold {
		return entity.GenderMale
	}
	return entity.GenderFemale
}

// NormalizeFaces converts provider annotations into NormalizedFace records,
// numbering them from 1 in provider order.
func NormalizeFaces(faces []entity.FaceAnnotation, estimator GenderEstimator) []entity.NormalizedFace {
	if estimator == nil {
		estimator = AspectRatioEstimator{Threshold: DefaultAspectRatioThreshold}
	}

	normalized := make([]entity.NormalizedFace, 0, len(faces))
	for i := range faces {
		face := &faces[i]
		box := ResolveBoundingPoly(face)

		normalized = append(normalized, entity.NormalizedFace{
			FaceID:      i + 1,
			Gender:      estimator.Estimate(face, box),
			BoundingBox: box,
			Landmarks:   face.Landmarks,
			Emotions: entity.Emotions{
				Joy:      LikelihoodScore(face.JoyLikelihood),
				Anger:    LikelihoodScore(face.AngerLikelihood),
				Sorrow:   LikelihoodScore(face.SorrowLikelihood),
				Surprise: LikelihoodScore(face.SurpriseLikelihood),
			},
			Confidence: face.DetectionConfidence,
		})
	}

	return normalized
}
