// Package annotate draws detected face boxes and gender labels onto a copy of
// the analysed image.
package annotate

import (
	"FaceLens/internal/entity"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	AnnotatedSuffix = "-annotated"
	annotatedExt    = ".jpg"

	strokeWidth = 2
	labelHeight = 20
	labelPadX   = 5
	labelPadY   = 5
	fontSize    = 14
)

var (
	strokeColor = color.NRGBA{R: 255, A: 204}
	labelColor  = color.NRGBA{R: 255, A: 178}
	textColor   = color.White
)

type IAnnotator interface {
	Annotate(imagePath string, faces []entity.NormalizedFace) (string, error)
}

type annotator struct {
	quality int
}

var (
	fontOnce sync.Once
	goFont   *truetype.Font
)

// New returns an annotator writing JPEGs at the given quality (1-100).
func New(quality int) IAnnotator {
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	return &annotator{
		quality: quality,
	}
}

// labelFace returns a fresh face per call; truetype faces cache glyphs and are
// not safe for concurrent use.
func labelFace() font.Face {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err == nil {
			goFont = f
		}
	})
	if goFont == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(goFont, &truetype.Options{Size: fontSize, Hinting: font.HintingFull})
}

// AnnotatedPath replaces the extension of imagePath with "-annotated.jpg".
// Annotated copies are always JPEG, whatever the source format.
func AnnotatedPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + AnnotatedSuffix + annotatedExt
}

// Annotate renders every face with a usable polygon onto a copy of the image
// and saves it as JPEG next to the source. Faces whose polygon is missing or
// has fewer than three vertices are skipped.
func (a *annotator) Annotate(imagePath string, faces []entity.NormalizedFace) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("annotate %s: %v", filepath.Base(imagePath), r)
		}
	}()

	img, err := gg.LoadImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return "", errors.New("load image: empty image")
	}

	dc := gg.NewContext(width, height)
	dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
	dc.SetFontFace(labelFace())

	for _, face := range faces {
		rect, ok := FaceRect(face.BoundingBox, width, height)
		if !ok {
			continue
		}
		drawFace(dc, rect, string(face.Gender))
	}

	out = AnnotatedPath(imagePath)
	if err := gg.SaveJPG(out, dc.Image(), a.quality); err != nil {
		return "", fmt.Errorf("save annotated image: %w", err)
	}

	return out, nil
}

type Rect struct {
	X, Y, Width, Height float64
}

// FaceRect derives the drawing rectangle from vertices 0 (top-left),
// 1 (top-right) and 2 (bottom-right). The provider drops zero coordinates, so
// a zero right edge or bottom edge falls back to the image extent.
func FaceRect(poly *entity.BoundingPoly, imageWidth, imageHeight int) (Rect, bool) {
	if poly == nil || len(poly.Vertices) < 3 {
		return Rect{}, false
	}

	v0, v1, v2 := poly.Vertices[0], poly.Vertices[1], poly.Vertices[2]

	x := float64(v0.X)
	y := float64(v0.Y)

	right := float64(v1.X)
	if v1.X == 0 {
		right = float64(imageWidth)
	}
	bottom := float64(v2.Y)
	if v2.Y == 0 {
		bottom = float64(imageHeight)
	}

	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}, true
}

func drawFace(dc *gg.Context, r Rect, label string) {
	dc.SetColor(strokeColor)
	dc.SetLineWidth(strokeWidth)
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	dc.Stroke()

	dc.SetColor(labelColor)
	dc.DrawRectangle(r.X, r.Y-labelHeight, r.Width, labelHeight)
	dc.Fill()

	dc.SetColor(textColor)
	dc.DrawString(label, r.X+labelPadX, r.Y-labelPadY)
}
