package processor

import (
	"strings"

	"mangamark/internal/placement"
)

// OutputSuffix is appended to the input root to form the output root.
const OutputSuffix = "_Processed"

type OutputMode int

const (
	OutputDirectory OutputMode = iota
	OutputArchive
)

func (m OutputMode) String() string {
	if m == OutputArchive {
		return "archive"
	}
	return "directory"
}

// SourceKind selects which family of files a run picks up.
type SourceKind int

const (
	SourceRaster SourceKind = iota
	SourceLayered
)

func (k SourceKind) String() string {
	if k == SourceLayered {
		return "layered"
	}
	return "raster"
}

// Extensions lists the lower-case file extensions a source kind matches.
func (k SourceKind) Extensions() []string {
	if k == SourceLayered {
		return []string{".psd", ".psb"}
	}
	return []string{".png", ".jpg", ".jpeg", ".webp"}
}

func (k SourceKind) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range k.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Options is the immutable snapshot a run works from.
type Options struct {
	Root       string
	Watermark  string
	Converter  string
	Source     SourceKind
	Output     OutputMode
	ArchiveExt string
	AutoOrient bool
	Placement  placement.Config
}

// Chapter is one unit of batch work: a folder and its candidate files.
type Chapter struct {
	Name  string
	Dir   string
	Files []string
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Chapters   int
	Skipped    int
	Succeeded  int
	Errors     int
	Watermarks int
	Canceled   bool
}

type chapterTally struct {
	succeeded  int
	errors     int
	watermarks int
}

// StatusSink receives human-readable, ordered status lines.
type StatusSink interface {
	Emit(line string)
}

// ProgressSink receives a non-decreasing completion fraction in [0, 1].
type ProgressSink interface {
	Report(fraction float64)
}

// Sinks bundles the collaborators notified during a run. Either may be nil.
type Sinks struct {
	Status   StatusSink
	Progress ProgressSink
}

// ProgressUpdate is a single notification carried over a channel.
type ProgressUpdate struct {
	Line        string
	Fraction    float64
	HasFraction bool
}

// ChanSink forwards notifications to a channel, for UIs that drain it on
// their own goroutine.
type ChanSink chan<- ProgressUpdate

func (c ChanSink) Emit(line string) {
	c <- ProgressUpdate{Line: line}
}

func (c ChanSink) Report(fraction float64) {
	c <- ProgressUpdate{Fraction: fraction, HasFraction: true}
}
