package processor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by the scope they affect.
type ErrorKind int

const (
	KindConversion ErrorKind = iota
	KindCompose
	KindArchive
	KindChapterScan
	KindRunFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindConversion:
		return "conversion"
	case KindCompose:
		return "composite"
	case KindArchive:
		return "archive"
	case KindChapterScan:
		return "chapter scan"
	default:
		return "fatal"
	}
}

// Error ties a failure to the file or folder it happened on.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error on %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a pipeline error.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err aborted the whole run.
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRunFatal
}
