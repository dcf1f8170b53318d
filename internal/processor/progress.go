package processor

// progressTracker turns chapter/file positions into a clamped,
// non-decreasing fraction.
type progressTracker struct {
	sink     ProgressSink
	total    int
	last     float64
	reported bool
}

func newProgressTracker(sink ProgressSink, chapters int) *progressTracker {
	return &progressTracker{sink: sink, total: chapters}
}

// file reports that done of n files in the given chapter are finished.
func (p *progressTracker) file(chapter, done, n int) {
	if p.total == 0 || n == 0 {
		return
	}
	p.report((float64(chapter) + float64(done)/float64(n)) / float64(p.total))
}

// chapterDone reports that every file of the given chapter is accounted for.
func (p *progressTracker) chapterDone(chapter int) {
	if p.total == 0 {
		return
	}
	p.report(float64(chapter+1) / float64(p.total))
}

func (p *progressTracker) report(f float64) {
	if f > 1 {
		f = 1
	}
	if f < p.last {
		f = p.last
	}
	if p.reported && f == p.last {
		return
	}
	p.last = f
	p.reported = true
	if p.sink != nil {
		p.sink.Report(f)
	}
}
