package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

func TestNormalizePNGCopiesVerbatim(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "001.png")
	writePNG(t, src, gradient(6, 4))

	out, err := New("", zerolog.Nop()).Normalize(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if filepath.Base(out) != "001_temp.png" {
		t.Fatalf("output name = %s", filepath.Base(out))
	}

	want, _ := os.ReadFile(src)
	got, _ := os.ReadFile(out)
	if !bytes.Equal(want, got) {
		t.Fatal("png source was not copied byte for byte")
	}
}

func TestNormalizeMisnamedPNGIsReencoded(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "002.png")
	writeJPEG(t, src, gradient(8, 8), nil)

	out, err := New("", zerolog.Nop()).Normalize(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertPNGSize(t, out, 8, 8)
}

func TestNormalizeJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "003.jpeg")
	writeJPEG(t, src, gradient(10, 7), nil)

	out, err := New("", zerolog.Nop()).Normalize(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertPNGSize(t, out, 10, 7)
}

func TestNormalizeJPEGAutoOrient(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "004.jpg")
	writeJPEG(t, src, gradient(10, 4), buildOrientationExif(6))

	work := t.TempDir()
	out, err := New("", zerolog.Nop(), WithAutoOrient(true)).Normalize(context.Background(), src, work)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertPNGSize(t, out, 4, 10)

	_ = os.Remove(out)
	out, err = New("", zerolog.Nop()).Normalize(context.Background(), src, work)
	if err != nil {
		t.Fatalf("normalize without orientation: %v", err)
	}
	assertPNGSize(t, out, 10, 4)
}

func TestNormalizeUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "005.gif")
	if err := os.WriteFile(src, []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	work := t.TempDir()
	_, err := New("/nonexistent/converter", zerolog.Nop()).Normalize(context.Background(), src, work)
	if reason, ok := ReasonOf(err); !ok || reason != ReasonUnsupported {
		t.Fatalf("err = %v, want unsupported", err)
	}
	assertEmptyDir(t, work)
}

func TestNormalizeCorruptJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "006.jpg")
	if err := os.WriteFile(src, []byte{0xff, 0xd8, 0xff, 0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	work := t.TempDir()
	_, err := New("", zerolog.Nop()).Normalize(context.Background(), src, work)
	if reason, ok := ReasonOf(err); !ok || reason != ReasonDecode {
		t.Fatalf("err = %v, want decode failure", err)
	}
	assertEmptyDir(t, work)
}

func TestNormalizeLayeredMissingConverter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "007.psd")
	if err := os.WriteFile(src, []byte("8BPS fake layered data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	work := t.TempDir()
	_, err := New(filepath.Join(dir, "no-such-magick"), zerolog.Nop()).Normalize(context.Background(), src, work)
	if reason, ok := ReasonOf(err); !ok || reason != ReasonConverterMissing {
		t.Fatalf("err = %v, want converter missing", err)
	}
	assertEmptyDir(t, work)
}

func TestNormalizeLayeredConverter(t *testing.T) {
	skipWithoutShell(t)

	cases := []struct {
		name   string
		script string
		reason Reason
		ok     bool
	}{
		{
			name:   "success",
			script: "#!/bin/sh\ncase \"$1\" in *\\[0\\]) ;; *) exit 3 ;; esac\nprintf 'raster' > \"$2\"\n",
			ok:     true,
		},
		{
			name:   "non-zero exit leaves no output",
			script: "#!/bin/sh\nprintf 'partial' > \"$2\"\necho 'boom' >&2\nexit 1\n",
			reason: ReasonConverterFailed,
		},
		{
			name:   "empty output",
			script: "#!/bin/sh\n: > \"$2\"\n",
			reason: ReasonEmptyOutput,
		},
		{
			name:   "no output",
			script: "#!/bin/sh\nexit 0\n",
			reason: ReasonEmptyOutput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			converter := writeScript(t, dir, tc.script)
			src := filepath.Join(dir, "008.psb")
			if err := os.WriteFile(src, []byte("8BPS"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}

			work := t.TempDir()
			out, err := New(converter, zerolog.Nop()).Normalize(context.Background(), src, work)
			if tc.ok {
				if err != nil {
					t.Fatalf("normalize: %v", err)
				}
				if filepath.Base(out) != "008_temp.png" {
					t.Fatalf("output = %s", out)
				}
				return
			}
			if reason, ok := ReasonOf(err); !ok || reason != tc.reason {
				t.Fatalf("err = %v, want %v", err, tc.reason)
			}
			assertEmptyDir(t, work)
		})
	}
}

func TestProbe(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	good := writeScript(t, dir, "#!/bin/sh\n[ \"$1\" = \"-version\" ] || exit 2\necho 'Version: ImageMagick 7.1.1-21 Q16-HDRI'\necho 'Copyright: (C)'\n")
	line, err := Probe(context.Background(), good)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if line != "Version: ImageMagick 7.1.1-21 Q16-HDRI" {
		t.Fatalf("line = %q", line)
	}

	bad := filepath.Join(dir, "bad")
	if err := os.WriteFile(bad, []byte("#!/bin/sh\nexit 4\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Probe(context.Background(), bad); err == nil {
		t.Fatal("expected error for failing converter")
	}

	if _, err := Probe(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing converter")
	}
	if _, err := Probe(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converters need a POSIX shell")
	}
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "magick")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 90, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

// writeJPEG encodes img and splices an optional APP1 EXIF payload after SOI.
func writeJPEG(t *testing.T, path string, img image.Image, exifPayload []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	data := buf.Bytes()
	if exifPayload != nil {
		segment := append([]byte("Exif\x00\x00"), exifPayload...)
		var app1 bytes.Buffer
		app1.Write([]byte{0xff, 0xe1})
		_ = binary.Write(&app1, binary.BigEndian, uint16(len(segment)+2))
		app1.Write(segment)

		spliced := append([]byte{}, data[:2]...)
		spliced = append(spliced, app1.Bytes()...)
		data = append(spliced, data[2:]...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
}

// buildOrientationExif returns a little-endian TIFF block with a single
// Orientation entry in IFD0.
func buildOrientationExif(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(orientationTagID))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	return tiff.Bytes()
}

func assertPNGSize(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode png config: %v", err)
	}
	if cfg.Width != w || cfg.Height != h {
		t.Fatalf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, w, h)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not empty: %v", entries)
	}
}
