package imgutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies a supported image type.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindWEBP
	KindPSD
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindWEBP:
		return "webp"
	case KindPSD:
		return "psd"
	default:
		return "unknown"
	}
}

// HeaderSize is the number of leading bytes DetectHeader needs.
const HeaderSize = 12

var (
	pngSig  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig = []byte{0xff, 0xd8, 0xff}
	psdSig  = []byte("8BPS")
	riffSig = []byte("RIFF")
	webpSig = []byte("WEBP")
)

// DetectHeader inspects the first 12 bytes of a file for known signatures.
// PSB files share the PSD signature and differ only in the version field.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < HeaderSize {
		return KindUnknown, errors.New("header too short")
	}

	if hasPrefix(header, jpegSig) {
		return KindJPEG, nil
	}
	if hasPrefix(header, pngSig) {
		return KindPNG, nil
	}
	if hasPrefix(header, riffSig) && hasPrefix(header[8:], webpSig) {
		return KindWEBP, nil
	}
	if hasPrefix(header, psdSig) {
		return KindPSD, nil
	}

	return KindUnknown, nil
}

// SniffFile reads the first bytes of a file to determine its type.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	return SniffReader(f)
}

// SniffReader reads the first bytes from r and determines its type.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}

	return DetectHeader(header)
}

// KindFromExt maps a file name's extension to the kind it claims to be.
func KindFromExt(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return KindJPEG
	case ".png":
		return KindPNG
	case ".webp":
		return KindWEBP
	case ".psd", ".psb":
		return KindPSD
	default:
		return KindUnknown
	}
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
