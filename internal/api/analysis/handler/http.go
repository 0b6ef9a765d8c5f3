package analysisHandler

import (
	analysisService "FaceLens/internal/api/analysis/service"
	"FaceLens/internal/middleware"
	"FaceLens/pkg/utils"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type Config struct {
	RequestTimeout time.Duration
	WSIdleTimeout  time.Duration
	WSReadLimit    int64
}

type AnalysisHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	analysisService analysisService.IAnalysisService
	utils           utils.IUtils
	cfg             Config
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	as analysisService.IAnalysisService,
	utils utils.IUtils,
	cfg Config,
) *AnalysisHandler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.WSIdleTimeout <= 0 {
		cfg.WSIdleTimeout = 60 * time.Second
	}

	return &AnalysisHandler{
		analysisService: as,
		log:             log,
		validator:       validator,
		middleware:      middleware,
		utils:           utils,
		cfg:             cfg,
	}
}

func (h *AnalysisHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/analyze", h.middleware.NewRateLimiter, h.Analyze)

	srv.Use("/ws", wsMiddleware)
	srv.Get("/ws", websocket.New(h.handleWebSocket))
}
