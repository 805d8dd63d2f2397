package transcribe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

//go:embed assets/mlx_whisper.py
var mlxScript []byte

// MLXBackend decodes on the Apple Silicon GPU through lightning-whisper-mlx.
// The engine's result shape varies across versions, so the raw JSON it
// returns is normalized defensively rather than decoded into a fixed struct.
type MLXBackend struct {
	python    string
	batchSize int

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

// NewMLXBackend creates an accelerated backend. batchSize <= 0 uses the
// engine default of 12.
func NewMLXBackend(python string, batchSize int) *MLXBackend {
	if python == "" {
		python = "python3"
	}
	if batchSize <= 0 {
		batchSize = 12
	}
	return &MLXBackend{python: python, batchSize: batchSize}
}

func (b *MLXBackend) Name() string { return "mlx-whisper" }

// LoadModel warms the MLX model on the GPU. MLX only exists on Apple
// Silicon, so anything else fails the load up front.
func (b *MLXBackend) LoadModel(ctx context.Context, model string) (*ModelHandle, error) {
	if runtime.GOOS != "darwin" || runtime.GOARCH != "arm64" {
		return nil, fmt.Errorf("mlx backend requires Apple Silicon (have %s/%s)", runtime.GOOS, runtime.GOARCH)
	}
	script, err := b.script()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.python, script,
		"--model", model,
		"--batch-size", fmt.Sprint(b.batchSize),
		"--warm",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("warm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &ModelHandle{
		Model:    model,
		Device:   Device{Name: "mlx", Compute: "float16"},
		LoadedAt: time.Now(),
	}, nil
}

func (b *MLXBackend) Transcribe(ctx context.Context, audioPath string, handle *ModelHandle, language string, onSegment SegmentFunc) (*Summary, error) {
	script, err := b.script()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.python, script,
		"--model", handle.Model,
		"--batch-size", fmt.Sprint(b.batchSize),
		"--audio", audioPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
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

	var v any
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &v); err != nil {
		// Not even JSON: degrade to whole-text output.
		v = strings.TrimSpace(stdout.String())
	}
	raw := normalizeRaw(v)

	segments := raw.Segments
	if len(segments) == 0 && raw.Text != "" && raw.Duration > 0 {
		// No per-segment timing but a known span: synthesize one segment
		// covering the whole audio so subtitles stay well-formed.
		segments = []Segment{{Start: 0, End: raw.Duration, Text: strings.TrimSpace(raw.Text)}}
	}
	for _, seg := range segments {
		if err := onSegment(seg); err != nil {
			return nil, err
		}
	}

	lang := raw.Language
	if lang == "" && language != "auto" {
		lang = language
	}
	return &Summary{Text: raw.Text, Language: lang, Duration: raw.Duration}, nil
}

func (b *MLXBackend) script() (string, error) {
	b.scriptOnce.Do(func() {
		dir, err := os.MkdirTemp("", "scribe-bridge-*")
		if err != nil {
			b.scriptErr = fmt.Errorf("bridge dir: %w", err)
			return
		}
		path := filepath.Join(dir, "mlx_whisper.py")
		if err := os.WriteFile(path, mlxScript, 0o755); err != nil {
			b.scriptErr = fmt.Errorf("write bridge script: %w", err)
			return
		}
		b.scriptPath = path
	})
	return b.scriptPath, b.scriptErr
}
