package config

import (
	"FaceLens/internal/api/analysis"
	analysisHandler "FaceLens/internal/api/analysis/handler"
	analysisService "FaceLens/internal/api/analysis/service"
	"FaceLens/internal/middleware"
	"FaceLens/pkg/annotate"
	"FaceLens/pkg/redis"
	"FaceLens/pkg/s3"
	"FaceLens/pkg/storage"
	"FaceLens/pkg/utils"
	"FaceLens/pkg/vision"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	env        *Env
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	vision     vision.IVision
	annotator  annotate.IAnnotator
	store      storage.IAnnotationStore
	cache      redis.IRedis
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if server.vision == nil {
		return nil, fmt.Errorf("face detection provider is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil || s.env == nil {
			return fmt.Errorf("logger and environment must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.env.RateLimitRPS, s.env.RateLimitBurst)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be initialized before utils")
		}
		s.utils = utils.New(s.env.MaxUploadSize)
		return nil
	}
}

// WithVisionProvider selects the face detection backend named by
// VISION_PROVIDER.
func WithVisionProvider() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be initialized before the vision provider")
		}

		switch s.env.VisionProvider {
		case vision.ProviderRemote:
			s.vision = vision.NewRemoteClient(s.env.RemoteDetectionURL, s.env.ProviderTimeout, s.log)
		default:
			client, err := vision.NewGoogleClient(context.Background(), vision.GoogleConfig{
				CredentialsFile: s.env.VisionCredentialsFile,
				APIKey:          s.env.VisionAPIKey,
				MaxResults:      s.env.VisionMaxResults,
			})
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to create Cloud Vision client: %v", err)
				}
				return fmt.Errorf("failed to create vision client: %w", err)
			}
			s.vision = client
		}
		return nil
	}
}

// WithVision injects an already built provider.
func WithVision(provider vision.IVision) ServerOption {
	return func(s *Server) error {
		s.vision = provider
		return nil
	}
}

func WithAnnotator() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be initialized before the annotator")
		}
		s.annotator = annotate.New(s.env.JPEGQuality)
		return nil
	}
}

func WithAnnotationStore() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be initialized before the annotation store")
		}

		if s.env.AnnotationStore != storage.StoreS3 {
			s.store = storage.NewLocal(storage.CapturesRoute)
			return nil
		}

		client, err := s3.New(s3.Config{
			Region:          s.env.AWSRegion,
			BucketName:      s.env.AWSBucketName,
			AccessKeyID:     s.env.AWSAccessKeyID,
			SecretAccessKey: s.env.AWSSecretAccessKey,
			Endpoint:        s.env.S3Endpoint,
		})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.store = storage.NewS3(client, s.env.S3Prefix, s.env.S3PresignExpiry, s.log)
		return nil
	}
}

// WithResultCache enables the Redis result cache when REDIS_ADDRESS is set.
func WithResultCache() ServerOption {
	return func(s *Server) error {
		if s.env == nil || s.env.RedisAddress == "" {
			return nil
		}
		s.cache = redis.New(redis.Config{
			Address:  s.env.RedisAddress,
			Password: s.env.RedisPassword,
			DB:       s.env.RedisDB,
		}, s.log)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.validator == nil {
		s.validator = NewValidator()
	}
	if s.utils == nil {
		s.utils = utils.New(s.env.MaxUploadSize)
	}
	if s.middleware == nil {
		s.middleware = middleware.New(s.log, s.env.RateLimitRPS, s.env.RateLimitBurst)
	}
	if s.annotator == nil {
		s.annotator = annotate.New(s.env.JPEGQuality)
	}
	if s.store == nil {
		s.store = storage.NewLocal(storage.CapturesRoute)
	}

	// Analysis
	analysisServices := analysisService.NewAnalysisService(
		s.log,
		s.vision,
		s.annotator,
		s.store,
		s.cache,
		s.utils,
		analysisService.Config{
			CapturesDir: s.env.CapturesDir,
			CacheTTL:    s.env.ResultCacheTTL,
		},
	)
	analysisHandlers := analysisHandler.New(s.log, s.validator, s.middleware, analysisServices, s.utils, analysisHandler.Config{
		RequestTimeout: s.env.ProviderTimeout,
		WSIdleTimeout:  s.env.WSIdleTimeout,
		WSReadLimit:    s.env.MaxUploadSize * 2,
	})

	s.handlers = append(s.handlers, analysisHandlers)
}

// Routes installs middleware, handlers and static routes. It is separate from
// Run so tests can exercise the app without listening.
func (s *Server) Routes() *fiber.App {
	s.engine.Use(recover.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	s.setupStatic()

	return s.engine
}

func (s *Server) Run() error {
	s.Routes()

	if err := s.engine.Listen(fmt.Sprintf(":%s", s.env.Port)); err != nil {
		return err
	}

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if s.vision != nil {
		s.vision.Close()
	}
	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil {
			s.log.Warnf("Error closing Redis client: %v", cerr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(analysis.HealthResponse{
			Message:  "Server is Healthy!",
			Provider: s.vision.Name(),
		})
	})
}

func (s *Server) setupStatic() {
	if s.store.Name() == storage.StoreLocal {
		if err := os.MkdirAll(s.env.CapturesDir, 0o755); err != nil {
			s.log.Warnf("Cannot create captures dir %s: %v", s.env.CapturesDir, err)
		}
		s.engine.Static(storage.CapturesRoute, s.env.CapturesDir)
	}

	if info, err := os.Stat(s.env.PublicDir); err == nil && info.IsDir() {
		s.engine.Static("/", s.env.PublicDir)
	}
}
