package analysisService

import (
	"FaceLens/internal/entity"
	"FaceLens/pkg/annotate"
	"FaceLens/pkg/redis"
	"FaceLens/pkg/storage"
	"FaceLens/pkg/utils"
	"FaceLens/pkg/vision"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type IAnalysisService interface {
	AnalyzeFile(ctx context.Context, imagePath string) (*entity.AnalysisResult, error)
	AnalyzeUpload(ctx context.Context, data []byte, ext string) (*entity.AnalysisResult, error)
	AnalyzeFrame(ctx context.Context, payload string) (*entity.AnalysisResult, error)
	ProviderName() string
}

type Config struct {
	CapturesDir     string
	CacheTTL        time.Duration
	GenderEstimator GenderEstimator
}

type analysisService struct {
	log         *logrus.Logger
	provider    vision.IVision
	annotator   annotate.IAnnotator
	store       storage.IAnnotationStore
	cache       redis.IRedis
	utils       utils.IUtils
	gender      GenderEstimator
	capturesDir string
	cacheTTL    time.Duration
}

// NewAnalysisService wires the analysis pipeline. cache may be nil, in which
// case every image goes to the provider.
func NewAnalysisService(
	log *logrus.Logger,
	provider vision.IVision,
	annotator annotate.IAnnotator,
	store storage.IAnnotationStore,
	cache redis.IRedis,
	utils utils.IUtils,
	cfg Config,
) IAnalysisService {
	gender := cfg.GenderEstimator
	if gender == nil {
		gender = AspectRatioEstimator{Threshold: DefaultAspectRatioThreshold}
	}

	capturesDir := cfg.CapturesDir
	if capturesDir == "" {
		capturesDir = "./captures"
	}

	return &analysisService{
		log:         log,
		provider:    provider,
		annotator:   annotator,
		store:       store,
		cache:       cache,
		utils:       utils,
		gender:      gender,
		capturesDir: capturesDir,
		cacheTTL:    cfg.CacheTTL,
	}
}

func (s *analysisService) ProviderName() string {
	return s.provider.Name()
}
