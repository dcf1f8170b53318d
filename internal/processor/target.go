package processor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// target is where a chapter's finished rasters go.
type target interface {
	// Put moves the finished raster at src into the target as name.
	Put(name, src string) error
	// Finish closes the target. An archive with no entries is removed and
	// reported as discarded.
	Finish(entries int) (discarded bool, err error)
	// Discard closes the target and removes anything it wrote.
	Discard()
	// Path is the on-disk location of the target.
	Path() string
}

// openTarget is swapped out in tests.
var openTarget = newTarget

func newTarget(mode OutputMode, outputRoot, chapter, archiveExt string) (target, error) {
	if mode == OutputArchive {
		return newArchiveTarget(filepath.Join(outputRoot, chapter+"."+strings.TrimPrefix(archiveExt, ".")))
	}
	return newDirTarget(filepath.Join(outputRoot, chapter))
}

type dirTarget struct {
	dir string
}

func newDirTarget(dir string) (*dirTarget, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &dirTarget{dir: dir}, nil
}

func (t *dirTarget) Put(name, src string) error {
	if err := replaceFile(src, filepath.Join(t.dir, name)); err != nil {
		return &Error{Kind: KindCompose, Path: name, Err: err}
	}
	return nil
}

func (t *dirTarget) Finish(int) (bool, error) { return false, nil }

// Discard removes the chapter folder only if nothing was written to it.
func (t *dirTarget) Discard() {
	_ = os.Remove(t.dir)
}

func (t *dirTarget) Path() string { return t.dir }

type archiveTarget struct {
	path string
	file *os.File
	zw   *zip.Writer
}

func newArchiveTarget(path string) (*archiveTarget, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &archiveTarget{path: path, file: f, zw: zip.NewWriter(f)}, nil
}

// Put streams src into a new deflated entry. Failures after the entry header
// is written leave the archive unusable and are reported as KindArchive.
func (t *archiveTarget) Put(name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return &Error{Kind: KindCompose, Path: name, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &Error{Kind: KindCompose, Path: name, Err: err}
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	w, err := t.zw.CreateHeader(header)
	if err != nil {
		return &Error{Kind: KindArchive, Path: t.path, Err: fmt.Errorf("add %s: %w", name, err)}
	}
	if _, err := io.Copy(w, in); err != nil {
		return &Error{Kind: KindArchive, Path: t.path, Err: fmt.Errorf("write %s: %w", name, err)}
	}
	return nil
}

func (t *archiveTarget) Finish(entries int) (bool, error) {
	zipErr := t.zw.Close()
	fileErr := t.file.Close()
	if zipErr != nil || fileErr != nil {
		_ = os.Remove(t.path)
		err := zipErr
		if err == nil {
			err = fileErr
		}
		return true, &Error{Kind: KindArchive, Path: t.path, Err: fmt.Errorf("close: %w", err)}
	}
	if entries == 0 {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			return true, &Error{Kind: KindArchive, Path: t.path, Err: err}
		}
		return true, nil
	}
	return false, nil
}

func (t *archiveTarget) Discard() {
	_ = t.zw.Close()
	_ = t.file.Close()
	_ = os.Remove(t.path)
}

func (t *archiveTarget) Path() string { return t.path }

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	return copyFile(tmpPath, destPath)
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
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
