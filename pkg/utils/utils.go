package utils

import (
	"FaceLens/internal/api/analysis"
	"FaceLens/pkg/response"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	CaptureName(prefix, ext string) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, error)
	DecodeDataURL(payload string) ([]byte, error)
	HashImage(data []byte) string
	WithCapture(dir, prefix, ext string, data []byte, fn func(path string) error) error
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// CaptureName builds "<prefix>-<ULID><ext>". The ULID carries 80 random bits,
// so names generated in the same millisecond do not collide.
func (u *utils) CaptureName(prefix, ext string) (string, error) {
	id, err := u.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", fmt.Errorf("generate capture id: %w", err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s-%s%s", prefix, strings.ToLower(id), strings.ToLower(ext)), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return analysis.ErrNoImage
	}

	if file.Size > u.maxFileSize {
		return analysis.ErrFileTooLarge
	}

	if strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return nil
	}

	// generic or missing Content-Type, check the leading bytes
	contentType, err := sniffContentType(file)
	if err != nil || !strings.HasPrefix(contentType, "image/") {
		return analysis.ErrInvalidFileType
	}

	return nil
}

func sniffContentType(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil {
		return "", err
	}
	return mime.String(), nil
}

func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, analysis.ErrFileTooLarge
	}

	return data, nil
}

// DecodeDataURL decodes the base64 part of a "data:image/jpeg;base64,<data>"
// string. Everything up to and including the first comma is discarded.
func (u *utils) DecodeDataURL(payload string) ([]byte, error) {
	_, encoded, found := strings.Cut(payload, ",")
	if !found {
		return nil, invalidPayload("missing ',' separator")
	}

	encoded = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, encoded)
	if encoded == "" {
		return nil, invalidPayload("empty image data")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, invalidPayload("invalid base64 data")
		}
	}

	return data, nil
}

func (u *utils) HashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WithCapture writes data to a uniquely named file under dir, hands its path
// to fn and removes the file afterwards, whether fn succeeds, fails or panics.
func (u *utils) WithCapture(dir, prefix, ext string, data []byte, fn func(path string) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create captures dir: %w", err)
	}

	name, err := u.CaptureName(prefix, ext)
	if err != nil {
		return err
	}
	capturePath := filepath.Join(dir, name)

	f, err := os.OpenFile(capturePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	defer os.Remove(capturePath)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close capture: %w", err)
	}

	return fn(capturePath)
}

func invalidPayload(reason string) error {
	return response.Wrap(analysis.ErrInvalidPayload, errors.New(reason))
}
