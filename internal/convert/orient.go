package convert

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

const orientationTagID = 0x0112

// exifOrientation returns the EXIF Orientation value stored in rs, or 1 when
// the file carries no usable orientation.
func exifOrientation(rs io.ReadSeeker) int {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 1
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		return 1
	}

	for _, tag := range tags {
		if tag.TagId != orientationTagID || tag.IfdPath != "IFD" {
			continue
		}
		switch v := tag.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				return int(v[0])
			}
		case uint16:
			return int(v)
		}
	}
	return 1
}

// applyOrientation undoes the transform described by an EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
