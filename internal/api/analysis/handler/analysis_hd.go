package analysisHandler

import (
	"FaceLens/internal/api/analysis"
	contextPkg "FaceLens/pkg/context"
	"FaceLens/pkg/handlerUtil"
	"FaceLens/pkg/log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

func (h *AnalysisHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(contextPkg.RequestIDHeader).(string)
	logger := h.log.WithField("request_id", requestID)

	logger.Info("WebSocket client connected")
	defer logger.Info("WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	if h.cfg.WSReadLimit > 0 {
		c.SetReadLimit(h.cfg.WSReadLimit)
	}

	for {
		if err := c.SetReadDeadline(time.Now().Add(h.cfg.WSIdleTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			} else {
				logger.Info("WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			logger.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		reply := h.analyzeFrame(requestID, string(message))

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			logger.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteMessage(websocket.TextMessage, reply); err != nil {
			logger.Errorf("Error writing response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			logger.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}

// analyzeFrame runs one frame through the pipeline and returns the JSON reply,
// which is either an analysis result or {"error": "..."}.
func (h *AnalysisHandler) analyzeFrame(requestID string, payload string) []byte {
	ctx, cancel := context.WithTimeout(contextPkg.FromRequestID(requestID), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.analysisService.AnalyzeFrame(ctx, payload)
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Error processing WebSocket frame")
		return h.marshal(analysis.ErrorResponse{Error: handlerUtil.Message(err)})
	}

	return h.marshal(result)
}

func (h *AnalysisHandler) marshal(v interface{}) []byte {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		h.log.Errorf("Error encoding WebSocket reply: %v", err)
		data, _ = jsoniter.Marshal(analysis.ErrorResponse{Error: "An unexpected error occurred"})
	}
	return data
}

func (h *AnalysisHandler) Analyze(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.cfg.RequestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing face analysis request")

	var (
		imageData []byte
		ext       string
	)

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		imageData, err = h.utils.ReadImageFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image_file")
		}
		ext = filepath.Ext(file.Filename)
	} else {
		if len(ctx.Body()) == 0 {
			return errHandler.Handle(ctx, requestID, analysis.ErrNoImage, ctx.Path(), "parse_request_body")
		}

		var req analysis.AnalyzeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, analysis.ErrBadRequest, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		payload := req.ImageBase64
		if !strings.Contains(payload, ",") {
			payload = "," + payload
		}
		imageData, err = h.utils.DecodeDataURL(payload)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_image")
		}
	}

	result, err := h.analysisService.AnalyzeUpload(c, imageData, ext)
	if err != nil {
		select {
		case <-c.Done():
			return errHandler.HandleRequestTimeout(ctx)
		default:
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_image")
		}
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"faces":      result.TotalFaces,
	}).Info("Face analysis successful")
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}
