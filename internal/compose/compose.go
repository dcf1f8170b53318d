// Package compose loads the watermark asset and pastes it onto pages.
package compose

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Watermark is the decoded asset shared read-only by every file in a run.
type Watermark struct {
	Path  string
	Image *image.NRGBA
}

// Size returns the watermark's pixel dimensions.
func (w *Watermark) Size() image.Point {
	return w.Image.Rect.Size()
}

var watermarkExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// SupportedWatermark reports whether path has an accepted watermark extension.
func SupportedWatermark(path string) bool {
	return watermarkExts[strings.ToLower(filepath.Ext(path))]
}

// LoadWatermark decodes the asset at path into an alpha-capable raster.
func LoadWatermark(path string) (*Watermark, error) {
	if !SupportedWatermark(path) {
		return nil, fmt.Errorf("watermark format %q is not supported", filepath.Ext(path))
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watermark: %w", err)
	}
	nrgba := imaging.Clone(img)
	if nrgba.Rect.Empty() {
		return nil, errors.New("watermark has no pixels")
	}
	return &Watermark{Path: path, Image: nrgba}, nil
}

// Composite alpha-blends wm onto dst with its top-left corner at at.
func Composite(dst draw.Image, wm image.Image, at image.Point) error {
	wb := wm.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(wb.Size())}
	if !r.In(dst.Bounds()) {
		return fmt.Errorf("watermark at %v does not fit inside %v", r, dst.Bounds())
	}
	draw.Draw(dst, r, wm, wb.Min, draw.Over)
	return nil
}

// Host decodes the canonical raster at path for compositing.
func Host(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode canonical raster: %w", err)
	}
	return imaging.Clone(img), nil
}

// SavePNG encodes img to path, removing the file if encoding fails.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
