package analysis

type AnalyzeRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

const (
	CapturePrefix = "capture"
	FramePrefix   = "temp"
	FrameExt      = ".jpg"
)
