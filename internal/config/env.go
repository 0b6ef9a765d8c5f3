package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Env is the service configuration read from the environment (and .env when
// present).
type Env struct {
	AppEnv   string
	Port     string `validate:"required,numeric"`
	LogLevel string

	CapturesDir string `validate:"required"`
	PublicDir   string

	VisionProvider        string `validate:"oneof=google remote"`
	VisionCredentialsFile string
	VisionAPIKey          string
	VisionMaxResults      int64         `validate:"gte=1,lte=100"`
	RemoteDetectionURL    string        `validate:"required_if=VisionProvider remote"`
	ProviderTimeout       time.Duration `validate:"gt=0"`

	JPEGQuality   int   `validate:"gte=1,lte=100"`
	MaxUploadSize int64 `validate:"gt=0"`

	WSIdleTimeout  time.Duration `validate:"gt=0"`
	RateLimitRPS   float64       `validate:"gt=0"`
	RateLimitBurst int           `validate:"gte=1"`

	AnnotationStore    string `validate:"oneof=local s3"`
	AWSRegion          string `validate:"required_if=AnnotationStore s3"`
	AWSBucketName      string `validate:"required_if=AnnotationStore s3"`
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Endpoint         string
	S3Prefix           string
	S3PresignExpiry    time.Duration `validate:"gt=0"`

	RedisAddress   string
	RedisPassword  string
	RedisDB        int           `validate:"gte=0"`
	ResultCacheTTL time.Duration `validate:"gte=0"`
}

func LoadEnv() (*Env, error) {
	var errs []error
	env := &Env{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("APP_PORT", getEnv("PORT", "3000")),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CapturesDir: getEnv("CAPTURES_DIR", "./captures"),
		PublicDir:   getEnv("PUBLIC_DIR", "./public"),

		VisionProvider:        getEnv("VISION_PROVIDER", "google"),
		VisionCredentialsFile: getEnv("VISION_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		VisionAPIKey:          os.Getenv("VISION_API_KEY"),
		VisionMaxResults:      int64(getInt("VISION_MAX_RESULTS", 10, &errs)),
		RemoteDetectionURL:    os.Getenv("AI_FACE_DETECTION_URL"),
		ProviderTimeout:       getDuration("PROVIDER_TIMEOUT", 30*time.Second, &errs),

		JPEGQuality:   getInt("JPEG_QUALITY", 90, &errs),
		MaxUploadSize: int64(getInt("MAX_UPLOAD_SIZE_MB", 10, &errs)) * 1024 * 1024,

		WSIdleTimeout:  getDuration("WS_IDLE_TIMEOUT", 60*time.Second, &errs),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 10, &errs),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20, &errs),

		AnnotationStore:    getEnv("ANNOTATION_STORE", "local"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSBucketName:      os.Getenv("AWS_BUCKET_NAME"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3Prefix:           getEnv("S3_PREFIX", "annotated"),
		S3PresignExpiry:    getDuration("S3_PRESIGN_EXPIRY", 15*time.Minute, &errs),

		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0, &errs),
		ResultCacheTTL: getDuration("RESULT_CACHE_TTL", 10*time.Minute, &errs),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %w", errs[0])
	}

	return env, nil
}

func (e *Env) Validate(v *validator.Validate) error {
	if err := v.Struct(e); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if e.AnnotationStore == "s3" && e.RedisAddress != "" && e.ResultCacheTTL > e.S3PresignExpiry {
		return fmt.Errorf("invalid configuration: RESULT_CACHE_TTL (%s) must not exceed S3_PRESIGN_EXPIRY (%s)", e.ResultCacheTTL, e.S3PresignExpiry)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
