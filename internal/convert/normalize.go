// Package convert turns source pages into canonical PNG rasters.
package convert

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"mangamark/pkg/imgutil"
)

// CanonicalExt is the extension of every canonical raster.
const CanonicalExt = ".png"

// Normalizer converts source files into canonical rasters inside a work dir.
type Normalizer struct {
	converter  string
	autoOrient bool
	log        zerolog.Logger
}

type Option func(*Normalizer)

// WithAutoOrient rotates JPEG pages upright using their EXIF orientation.
func WithAutoOrient(enabled bool) Option {
	return func(n *Normalizer) { n.autoOrient = enabled }
}

func New(converter string, log zerolog.Logger, opts ...Option) *Normalizer {
	if strings.TrimSpace(converter) == "" {
		converter = DefaultConverter
	}
	n := &Normalizer{converter: converter, log: log}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OutputPath returns where Normalize writes the canonical raster for src.
func OutputPath(src, workDir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(workDir, base+"_temp"+CanonicalExt)
}

// Normalize writes a canonical raster for src into workDir and returns its
// path. The returned file is non-empty. On failure nothing is left behind and
// the error is a *Error.
func (n *Normalizer) Normalize(ctx context.Context, src, workDir string) (string, error) {
	out := OutputPath(src, workDir)

	var err error
	switch imgutil.KindFromExt(src) {
	case imgutil.KindPNG:
		err = n.fromPNG(src, out)
	case imgutil.KindJPEG, imgutil.KindWEBP:
		err = n.reencode(src, out)
	case imgutil.KindPSD:
		err = n.fromLayered(ctx, src, out)
	default:
		return "", &Error{Path: src, Reason: ReasonUnsupported}
	}

	if err == nil {
		err = checkOutput(src, out)
	}
	if err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			n.log.Warn().Err(rmErr).Str("path", out).Msg("could not remove partial raster")
		}
		return "", err
	}
	return out, nil
}

// fromPNG copies a real PNG verbatim. Misnamed files are re-encoded.
func (n *Normalizer) fromPNG(src, out string) error {
	kind, err := imgutil.SniffFile(src)
	if err != nil {
		return &Error{Path: src, Reason: ReasonIO, Err: err}
	}
	if kind != imgutil.KindPNG {
		n.log.Debug().Str("path", src).Stringer("kind", kind).Msg("png extension with foreign content, re-encoding")
		return n.reencode(src, out)
	}
	if err := copyFile(src, out); err != nil {
		return &Error{Path: src, Reason: ReasonIO, Err: err}
	}
	return nil
}

// reencode decodes src, forces an alpha channel and saves it as PNG.
func (n *Normalizer) reencode(src, out string) error {
	f, err := os.Open(src)
	if err != nil {
		return &Error{Path: src, Reason: ReasonIO, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return &Error{Path: src, Reason: ReasonDecode, Err: err}
	}

	if n.autoOrient {
		if o := exifOrientation(f); o != 1 {
			n.log.Debug().Str("path", src).Int("orientation", o).Msg("applying exif orientation")
			img = applyOrientation(img, o)
		}
	}

	if err := imaging.Save(imaging.Clone(img), out); err != nil {
		return &Error{Path: src, Reason: ReasonIO, Err: err}
	}
	return nil
}

func (n *Normalizer) fromLayered(ctx context.Context, src, out string) error {
	output, reason, err := runConverter(ctx, n.converter, src, out)
	if err != nil {
		n.log.Error().
			Err(err).
			Str("path", src).
			Str("converter", n.converter).
			Str("output", string(output)).
			Msg("converter failed")
		return &Error{Path: src, Reason: reason, Err: err, Output: output}
	}
	if len(output) > 0 {
		n.log.Debug().Str("path", src).Str("output", string(output)).Msg("converter output")
	}
	return nil
}

func checkOutput(src, out string) error {
	info, err := os.Stat(out)
	if err != nil {
		return &Error{Path: src, Reason: ReasonEmptyOutput, Err: err}
	}
	if info.Size() == 0 {
		return &Error{Path: src, Reason: ReasonEmptyOutput, Err: fmt.Errorf("%s is empty", filepath.Base(out))}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
