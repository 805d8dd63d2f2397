// Package artifact renders normalized transcription results into the txt
// and SRT files a run leaves behind.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snarg/scribe-engine/internal/transcribe"
)

// Paths are the artifacts written for one run.
type Paths struct {
	Txt string
	Srt string
}

// Writer renders a result into a plain-text file and a sequential-subtitle
// file. Filenames are {baseName}.txt and {baseName}.srt under dir.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string { return w.dir }

// Write renders both artifacts. Either both files land or neither does: the
// txt file is removed again if the srt write fails, so a partially written
// run never looks like valid output.
func (w *Writer) Write(res *transcribe.Result, baseName string) (Paths, error) {
	paths := Paths{
		Txt: filepath.Join(w.dir, baseName+".txt"),
		Srt: filepath.Join(w.dir, baseName+".srt"),
	}

	var srt bytes.Buffer
	FormatSRT(&srt, res)

	if err := writeFileAtomic(paths.Txt, []byte(res.Text)); err != nil {
		return Paths{}, fmt.Errorf("write txt: %w", err)
	}
	if err := writeFileAtomic(paths.Srt, srt.Bytes()); err != nil {
		os.Remove(paths.Txt)
		return Paths{}, fmt.Errorf("write srt: %w", err)
	}
	return paths, nil
}

// writeFileAtomic writes via temp file + rename so a crashed run never
// leaves a half-written artifact under its final name.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// SanitizeName reduces a client-supplied filename to a safe flat name for
// resolution inside the artifact directory. Path separators and parent
// references are stripped; an empty result is rejected by the caller.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.TrimLeft(name, ".")
	return name
}
