package convert

import (
	"errors"
	"fmt"
)

// Reason classifies a conversion failure.
type Reason int

const (
	ReasonUnsupported Reason = iota
	ReasonConverterMissing
	ReasonConverterFailed
	ReasonEmptyOutput
	ReasonDecode
	ReasonIO
)

func (r Reason) String() string {
	switch r {
	case ReasonUnsupported:
		return "unsupported format"
	case ReasonConverterMissing:
		return "converter not found"
	case ReasonConverterFailed:
		return "converter failed"
	case ReasonEmptyOutput:
		return "empty output"
	case ReasonDecode:
		return "decode failed"
	default:
		return "i/o error"
	}
}

// Error is returned by Normalize for every failure path.
type Error struct {
	Path   string
	Reason Reason
	Err    error
	// Output holds the converter's combined stdout/stderr, if it ran.
	Output []byte
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("convert %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("convert %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, if it is a conversion error.
func ReasonOf(err error) (Reason, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return 0, false
}
