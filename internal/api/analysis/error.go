package analysis

import (
	"FaceLens/pkg/response"
	"net/http"
)

var (
	ErrBadRequest      = response.NewError(http.StatusBadRequest, "bad request")
	ErrProvider        = response.NewError(http.StatusBadGateway, "face detection failed")
	ErrInvalidPayload  = response.NewError(http.StatusBadRequest, "invalid image payload")
	ErrNoImage         = response.NewError(http.StatusBadRequest, "no image uploaded")
	ErrFileTooLarge    = response.NewError(http.StatusBadRequest, "file size exceeds limit")
	ErrInvalidFileType = response.NewError(http.StatusBadRequest, "uploaded file is not an image")
)
