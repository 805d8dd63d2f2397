package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CLIBackend runs the external whisper executable as a subprocess and parses
// the subtitle file it writes. The binary is resolved exactly once, from an
// explicit configured path, so a stray `whisper` earlier in PATH can never
// be picked up by accident.
type CLIBackend struct {
	bin        string // configured executable path or name
	pathPrefix string // prepended to PATH for the child (ffmpeg et al.)

	resolveOnce sync.Once
	resolved    string
	resolveErr  error
}

// NewCLIBackend creates a process backend for the given whisper executable.
// pathPrefix is an optional directory prepended to the child's PATH.
func NewCLIBackend(bin, pathPrefix string) *CLIBackend {
	return &CLIBackend{bin: bin, pathPrefix: pathPrefix}
}

func (b *CLIBackend) Name() string { return "whisper-cli" }

// LoadModel resolves the executable and probes the device. The whisper CLI
// downloads weights on first use, so there is nothing further to warm here.
func (b *CLIBackend) LoadModel(ctx context.Context, model string) (*ModelHandle, error) {
	if _, err := b.binPath(); err != nil {
		return nil, err
	}
	return &ModelHandle{Model: model, Device: probeDevice(), LoadedAt: time.Now()}, nil
}

func (b *CLIBackend) Transcribe(ctx context.Context, audioPath string, handle *ModelHandle, language string, onSegment SegmentFunc) (*Summary, error) {
	bin, err := b.binPath()
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "scribe-cli-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	// Request a single output format. Repeating --output_format is a trap:
	// whisper's argument parser keeps only the last value, so asking for srt
	// and txt in one invocation yields just the txt file. The plain text is
	// assembled from the parsed segments instead.
	args := []string{
		audioPath,
		"--model", handle.Model,
		"--output_format", "srt",
		"--verbose", "False",
		"-o", scratch,
	}
	if language != "" && language != "auto" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = b.childEnv()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &BackendExecutionError{
			Backend: b.Name(),
			Detail:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	srtFile, err := os.Open(filepath.Join(scratch, stem+".srt"))
	if err != nil {
		return nil, &BackendExecutionError{
			Backend: b.Name(),
			Detail:  strings.TrimSpace(stderr.String()),
			Err:     fmt.Errorf("whisper produced no subtitle output: %w", err),
		}
	}
	segments, parseErr := ParseSRT(srtFile)
	srtFile.Close()
	if parseErr != nil {
		return nil, &BackendExecutionError{Backend: b.Name(), Err: parseErr}
	}

	var duration float64
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if err := onSegment(seg); err != nil {
			return nil, err
		}
		if seg.End > duration {
			duration = seg.End
		}
	}

	lang := language
	if lang == "auto" {
		lang = "" // the CLI detects but doesn't report it machine-readably
	}
	// Text is left empty; callers join the segment texts themselves.
	return &Summary{Language: lang, Duration: duration}, nil
}

// binPath resolves the configured executable to an absolute path, once.
func (b *CLIBackend) binPath() (string, error) {
	b.resolveOnce.Do(func() {
		if b.bin == "" {
			b.resolveErr = fmt.Errorf("whisper executable not configured")
			return
		}
		if filepath.IsAbs(b.bin) {
			if _, err := os.Stat(b.bin); err != nil {
				b.resolveErr = fmt.Errorf("whisper executable: %w", err)
				return
			}
			b.resolved = b.bin
			return
		}
		p, err := exec.LookPath(b.bin)
		if err != nil {
			b.resolveErr = fmt.Errorf("whisper executable %q: %w", b.bin, err)
			return
		}
		b.resolved, b.resolveErr = filepath.Abs(p)
	})
	return b.resolved, b.resolveErr
}

// childEnv builds the subprocess environment with the configured PATH prefix.
func (b *CLIBackend) childEnv() []string {
	env := os.Environ()
	if b.pathPrefix == "" {
		return env
	}
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + b.pathPrefix + string(os.PathListSeparator) + kv[len("PATH="):]
			return env
		}
	}
	return append(env, "PATH="+b.pathPrefix)
}
