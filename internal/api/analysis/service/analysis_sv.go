package analysisService

import (
	"FaceLens/internal/api/analysis"
	"FaceLens/internal/entity"
	contextPkg "FaceLens/pkg/context"
	"FaceLens/pkg/log"
	"FaceLens/pkg/response"
	"context"
	"errors"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func (s *analysisService) logger(ctx context.Context) *logrus.Entry {
	return s.log.WithField(log.RequestIDKey, contextPkg.GetRequestID(ctx))
}

func (s *analysisService) AnalyzeFile(ctx context.Context, imagePath string) (*entity.AnalysisResult, error) {
	logger := s.logger(ctx).WithField("image", filepath.Base(imagePath))

	annotations, err := s.provider.DetectFaces(ctx, imagePath)
	if err != nil {
		logger.WithField("provider", s.provider.Name()).Errorf("Face detection failed: %v", err)
		return nil, response.Wrap(analysis.ErrProvider, err)
	}

	faces := NormalizeFaces(annotations, s.gender)
	result := &entity.AnalysisResult{
		TotalFaces: len(faces),
		Faces:      faces,
	}

	if len(faces) > 0 {
		result.AnnotatedImage = s.annotate(ctx, imagePath, faces)
	}

	logger.WithFields(log.Fields{
		"faces":     result.TotalFaces,
		"annotated": result.AnnotatedImage != nil,
	}).Info("Face analysis completed")

	return result, nil
}

// annotate is best effort: any failure is logged and reported as no image.
func (s *analysisService) annotate(ctx context.Context, imagePath string, faces []entity.NormalizedFace) *string {
	logger := s.logger(ctx).WithField("image", filepath.Base(imagePath))

	annotatedPath, err := s.annotator.Annotate(imagePath, faces)
	if err != nil {
		logger.Warnf("Annotating image failed: %v", err)
		return nil
	}

	ref, err := s.store.Publish(annotatedPath)
	if err != nil {
		logger.WithField("store", s.store.Name()).Warnf("Publishing annotated image failed: %v", err)
		return nil
	}

	return &ref
}

func (s *analysisService) AnalyzeUpload(ctx context.Context, data []byte, ext string) (*entity.AnalysisResult, error) {
	if ext == "" {
		ext = analysis.FrameExt
	}
	return s.analyzeBytes(ctx, data, analysis.CapturePrefix, ext)
}

func (s *analysisService) AnalyzeFrame(ctx context.Context, payload string) (*entity.AnalysisResult, error) {
	data, err := s.utils.DecodeDataURL(payload)
	if err != nil {
		return nil, err
	}
	return s.analyzeBytes(ctx, data, analysis.FramePrefix, analysis.FrameExt)
}

func (s *analysisService) analyzeBytes(ctx context.Context, data []byte, prefix, ext string) (*entity.AnalysisResult, error) {
	if len(data) == 0 {
		return nil, response.Wrap(analysis.ErrInvalidPayload, errors.New("empty image data"))
	}

	imageHash := s.utils.HashImage(data)
	if cached := s.cachedResult(ctx, imageHash); cached != nil {
		return cached, nil
	}

	var result *entity.AnalysisResult
	err := s.utils.WithCapture(s.capturesDir, prefix, strings.ToLower(ext), data, func(path string) error {
		var err error
		result, err = s.AnalyzeFile(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.storeResult(ctx, imageHash, result)

	return result, nil
}

func (s *analysisService) cachedResult(ctx context.Context, imageHash string) *entity.AnalysisResult {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.GetResult(ctx, imageHash)
	if err != nil {
		return nil
	}

	var result entity.AnalysisResult
	if err := jsoniter.Unmarshal(payload, &result); err != nil {
		s.logger(ctx).Warnf("Discarding unreadable cached result: %v", err)
		return nil
	}
	if result.Faces == nil {
		result.Faces = []entity.NormalizedFace{}
	}

	s.logger(ctx).WithField("faces", result.TotalFaces).Debug("Serving cached face analysis")
	return &result
}

func (s *analysisService) storeResult(ctx context.Context, imageHash string, result *entity.AnalysisResult) {
	if s.cache == nil || result == nil {
		return
	}
	// results with faces but no annotated image are not cached
	if len(result.Faces) > 0 && result.AnnotatedImage == nil {
		return
	}

	payload, err := jsoniter.Marshal(result)
	if err != nil {
		s.logger(ctx).Warnf("Encoding result for cache failed: %v", err)
		return
	}

	if err := s.cache.SetResult(ctx, imageHash, payload, s.cacheTTL); err != nil {
		s.logger(ctx).Warnf("Caching result failed: %v", err)
	}
}
