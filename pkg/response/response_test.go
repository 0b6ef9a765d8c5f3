package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	kind := NewError(http.StatusBadGateway, "face detection failed")
	cause := errors.New("quota exceeded")

	err := Wrap(kind, cause)

	assert.Equal(t, "face detection failed: quota exceeded", err.Error())
	assert.True(t, errors.Is(err, kind))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusBadGateway, StatusCode(err, http.StatusInternalServerError))

	var respErr *Error
	assert.True(t, errors.As(fmt.Errorf("handler: %w", err), &respErr))
	assert.Equal(t, http.StatusBadGateway, respErr.Code)
}

func TestWrapPlainKind(t *testing.T) {
	kind := errors.New("plain")
	err := Wrap(kind, errors.New("cause"))

	assert.True(t, errors.Is(err, kind))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err, http.StatusInternalServerError))
}

func TestErrorIs(t *testing.T) {
	a := NewError(http.StatusBadRequest, "invalid image payload")
	b := NewError(http.StatusBadRequest, "invalid image payload")
	c := NewError(http.StatusBadRequest, "no image uploaded")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
	assert.False(t, errors.Is(a, errors.New("invalid image payload")))
}
