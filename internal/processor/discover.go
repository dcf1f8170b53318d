package processor

import (
	"os"
	"path/filepath"
	"strings"
)

// OutputRoot returns the output root for an input root.
func OutputRoot(root string) string {
	return strings.TrimRight(filepath.Clean(root), `/\`) + OutputSuffix
}

// discoverChapters lists the chapters under root. Every subfolder is a
// chapter; a root without subfolders is a single chapter of its own.
// Chapter files are filled in later by scanChapter.
func discoverChapters(root, outputRoot string) ([]Chapter, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var chapters []Chapter
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if samePath(dir, outputRoot) {
			continue
		}
		chapters = append(chapters, Chapter{Name: entry.Name(), Dir: dir})
	}

	if len(chapters) == 0 {
		chapters = append(chapters, Chapter{Name: filepath.Base(filepath.Clean(root)), Dir: root})
	}
	return chapters, nil
}

// scanChapter fills ch.Files with matching files in directory-listing order,
// never including the watermark asset itself.
func scanChapter(ch *Chapter, source SourceKind, watermark string) error {
	entries, err := os.ReadDir(ch.Dir)
	if err != nil {
		return err
	}

	ch.Files = ch.Files[:0]
	for _, entry := range entries {
		if entry.IsDir() || !source.matches(entry.Name()) {
			continue
		}
		if samePath(filepath.Join(ch.Dir, entry.Name()), watermark) {
			continue
		}
		ch.Files = append(ch.Files, entry.Name())
	}
	return nil
}

// entryName is the output name for a source file: same base, canonical ext.
func entryName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".png"
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
