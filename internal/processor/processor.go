package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mangamark/internal/compose"
	"mangamark/internal/convert"
	"mangamark/internal/placement"
)

type runner struct {
	opts       Options
	outputRoot string
	status     StatusSink
	progress   *progressTracker
	log        zerolog.Logger

	watermark  *compose.Watermark
	normalizer *convert.Normalizer
	searcher   *placement.Searcher

	summary Summary
}

// Run stamps every chapter under opts.Root. Chapters and files are processed
// one at a time, in listing order. Only a *Error of KindRunFatal is returned
// as an error; everything else is counted in the Summary. Cancelling ctx
// stops the run between files and finalizes the current chapter.
func Run(ctx context.Context, opts Options, sinks Sinks, log zerolog.Logger) (Summary, error) {
	// A relative root such as "." must still name its chapter and output root.
	if abs, err := filepath.Abs(opts.Root); err == nil {
		opts.Root = abs
	}
	r := &runner{
		opts:       opts,
		outputRoot: OutputRoot(opts.Root),
		status:     sinks.Status,
		progress:   newProgressTracker(sinks.Progress, 0),
		log:        log.With().Str("run_id", uuid.NewString()).Logger(),
	}

	if err := opts.Placement.Validate(); err != nil {
		return r.summary, r.fatal(opts.Root, fmt.Errorf("placement config: %w", err))
	}

	wm, err := compose.LoadWatermark(opts.Watermark)
	if err != nil {
		r.emitf("! Cannot load watermark '%s': %v", filepath.Base(opts.Watermark), err)
		return r.summary, r.fatal(opts.Watermark, err)
	}
	r.watermark = wm
	r.normalizer = convert.New(opts.Converter, r.log, convert.WithAutoOrient(opts.AutoOrient))
	r.searcher = placement.NewSearcher(opts.Placement, r.log)

	if err := os.MkdirAll(r.outputRoot, 0o755); err != nil {
		r.emitf("! Critical error creating folder '%s': %v", r.outputRoot, err)
		return r.summary, r.fatal(r.outputRoot, err)
	}

	r.emitf("Folder: %s", opts.Root)
	r.emitf("Watermark: %s (%dx%d)", filepath.Base(opts.Watermark), wm.Size().X, wm.Size().Y)
	r.emitf("File Type: %s", strings.ToUpper(opts.Source.String()))
	r.emitf("ZIP Mode: %s", onOff(opts.Output == OutputArchive))
	r.emitf("--- Start ---")

	chapters, err := discoverChapters(opts.Root, r.outputRoot)
	if err != nil {
		r.emitf("! Error reading folder '%s': %v", opts.Root, err)
		r.log.Error().Err(err).Str("root", opts.Root).Msg("chapter discovery failed")
		r.summary.Errors++
		r.done()
		return r.summary, nil
	}
	r.summary.Chapters = len(chapters)
	r.progress.total = len(chapters)
	r.emitf("Found %d chapter(s) to process.", len(chapters))

	for i := range chapters {
		if ctx.Err() != nil {
			r.summary.Canceled = true
			break
		}
		r.runChapter(ctx, i, &chapters[i])
	}

	r.done()
	return r.summary, nil
}

func (r *runner) runChapter(ctx context.Context, index int, ch *Chapter) {
	log := r.log.With().Str("chapter", ch.Name).Logger()
	r.emitf("")
	r.emitf("[%d/%d] Folder: %s", index+1, r.summary.Chapters, ch.Name)
	defer r.progress.chapterDone(index)

	if err := scanChapter(ch, r.opts.Source, r.opts.Watermark); err != nil {
		r.emitf(" ! Error reading files from '%s': %v", ch.Dir, err)
		log.Error().Err(&Error{Kind: KindChapterScan, Path: ch.Dir, Err: err}).Msg("chapter scan failed")
		r.summary.Errors++
		return
	}
	if len(ch.Files) == 0 {
		r.emitf(" - No %s files found, skipped.", strings.ToUpper(r.opts.Source.String()))
		r.summary.Skipped++
		return
	}

	tgt, err := openTarget(r.opts.Output, r.outputRoot, ch.Name, r.opts.ArchiveExt)
	if err != nil {
		kind := KindChapterScan
		if r.opts.Output == OutputArchive {
			kind = KindArchive
		}
		r.chapterFailed(log, ch, &Error{Kind: kind, Path: ch.Name, Err: fmt.Errorf("create output: %w", err)})
		return
	}

	workDir, err := os.MkdirTemp(r.outputRoot, "awm_")
	if err != nil {
		tgt.Discard()
		r.chapterFailed(log, ch, &Error{Kind: KindChapterScan, Path: ch.Name, Err: fmt.Errorf("create workspace: %w", err)})
		return
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("could not remove workspace")
		}
	}()

	var tally chapterTally
	for i, name := range ch.Files {
		if ctx.Err() != nil {
			r.summary.Canceled = true
			r.emitf(" - Canceled, finishing chapter.")
			break
		}

		r.emitf(" >> %s", name)
		placed, err := r.processFile(ctx, ch, workDir, name, tgt)
		if err != nil {
			r.fileFailed(log, name, err)
			if kind, _ := KindOf(err); kind == KindArchive {
				tgt.Discard()
				r.chapterFailed(log, ch, err)
				return
			}
			tally.errors++
		} else {
			tally.succeeded++
			tally.watermarks += placed
		}
		r.progress.file(index, i+1, len(ch.Files))
	}

	discarded, err := tgt.Finish(tally.succeeded)
	switch {
	case err != nil:
		r.chapterFailed(log, ch, err)
		return
	case discarded:
		r.emitf(" - Removed empty archive: %s", filepath.Base(tgt.Path()))
	}

	line := fmt.Sprintf("   Success: %d", tally.succeeded)
	if tally.errors > 0 {
		line += fmt.Sprintf(", Errors: %d", tally.errors)
	}
	r.emitf("%s", line)

	r.summary.Succeeded += tally.succeeded
	r.summary.Errors += tally.errors
	r.summary.Watermarks += tally.watermarks
}

// processFile runs one file through normalize, search, composite and output.
// It returns the number of watermarks placed.
func (r *runner) processFile(ctx context.Context, ch *Chapter, workDir, name string, tgt target) (int, error) {
	src := filepath.Join(ch.Dir, name)

	// Conversions always run to completion; cancellation is honoured between files.
	canonical, err := r.normalizer.Normalize(context.WithoutCancel(ctx), src, workDir)
	if err != nil {
		return 0, &Error{Kind: KindConversion, Path: src, Err: err}
	}
	defer r.remove(canonical)

	host, err := compose.Host(canonical)
	if err != nil {
		return 0, &Error{Kind: KindConversion, Path: src, Err: err}
	}

	plan := r.searcher.Search(host, r.watermark.Size())
	applied := 0
	for _, p := range plan.Placements {
		if err := compose.Composite(host, r.watermark.Image, p.Point()); err != nil {
			r.emitf("  ! Error applying watermark (Y=%d)", p.Y)
			r.log.Error().Err(err).Str("file", src).Int("y", p.Y).Msg("composite failed")
			continue
		}
		applied++
		r.emitf("  + Watermark (Y=%d)", p.Y)
	}
	if applied == 0 {
		r.reportMiss(plan)
	}

	out := entryName(name)
	result := canonical
	if applied > 0 {
		result = filepath.Join(workDir, "_marked_"+out)
		if err := compose.SavePNG(host, result); err != nil {
			return 0, &Error{Kind: KindCompose, Path: src, Err: err}
		}
		defer r.remove(result)
	}

	if err := tgt.Put(out, result); err != nil {
		return 0, err
	}
	return applied, nil
}

func (r *runner) reportMiss(plan placement.Plan) {
	switch plan.Strategy {
	case placement.StrategyIneligible:
		r.emitf("  - Watermark larger than image.")
	case placement.StrategyShort:
		r.emitf("  - Spot not found (short image).")
	default:
		r.emitf("  - Spot not found in %d band(s).", plan.Bands)
	}
}

func (r *runner) fileFailed(log zerolog.Logger, name string, err error) {
	kind, _ := KindOf(err)
	log.Error().Err(err).Str("file", name).Stringer("kind", kind).Msg("file failed")

	var ce *convert.Error
	switch {
	case errors.As(err, &ce):
		r.emitf("  ! Conversion failed for %s: %s", name, ce.Reason)
	case kind == KindArchive:
		r.emitf("  ! Error adding %s to archive", name)
	case kind == KindConversion:
		r.emitf("  ! Could not read converted %s", name)
	default:
		r.emitf("  ! Error saving result for %s", name)
	}
}

// chapterFailed counts every candidate file of ch as an error.
func (r *runner) chapterFailed(log zerolog.Logger, ch *Chapter, err error) {
	log.Error().Err(err).Int("files", len(ch.Files)).Msg("chapter failed")
	r.emitf(" ! Chapter %s failed, %d file(s) counted as errors", ch.Name, len(ch.Files))
	r.summary.Errors += len(ch.Files)
}

func (r *runner) fatal(path string, err error) error {
	fatal := &Error{Kind: KindRunFatal, Path: path, Err: err}
	r.log.Error().Err(fatal).Msg("run aborted")
	return fatal
}

func (r *runner) done() {
	if r.summary.Canceled {
		r.emitf("")
		r.emitf("--- Canceled. Success: %d, Errors: %d ---", r.summary.Succeeded, r.summary.Errors)
		return
	}
	r.emitf("")
	r.emitf("--- Done. Success: %d, Errors: %d ---", r.summary.Succeeded, r.summary.Errors)
	r.progress.report(1)
}

func (r *runner) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.log.Warn().Err(err).Str("path", path).Msg("could not remove temporary raster")
	}
}

func (r *runner) emitf(format string, args ...any) {
	if r.status != nil {
		r.status.Emit(fmt.Sprintf(format, args...))
	}
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}
