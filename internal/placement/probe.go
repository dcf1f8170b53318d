package placement

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// IsUniform reports whether the luminance spread (max - min) of region r in
// img is at most threshold. Luminance uses the ITU-R 601 weights and ignores
// alpha. Empty regions and regions that leave the image bounds are errors.
func IsUniform(img image.Image, r image.Rectangle, threshold int) (bool, error) {
	if r.Empty() {
		return false, fmt.Errorf("empty probe region %v", r)
	}
	if !r.In(img.Bounds()) {
		return false, fmt.Errorf("probe region %v outside image bounds %v", r, img.Bounds())
	}

	gray := imaging.Grayscale(imaging.Crop(img, r))
	if gray.Rect.Empty() {
		return false, fmt.Errorf("probe region %v produced no pixels", r)
	}

	lo, hi := uint8(255), uint8(0)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			v := row[x]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	return int(hi)-int(lo) <= threshold, nil
}
