package transcribe

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

// FastBackend decodes with faster-whisper through an embedded Python bridge
// that streams segments as NDJSON, so progress accounting sees each segment
// as it is decoded. Decoding is configured for deterministic low-variance
// output: greedy sampling, beam width 1, VAD gating with a 1s silence
// threshold, no cross-segment conditioning.
type FastBackend struct {
	python       string // python interpreter, e.g. "python3"
	downloadRoot string // model weight cache directory

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

// NewFastBackend creates a faster-whisper backend. downloadRoot may be empty
// to use the library default.
func NewFastBackend(python, downloadRoot string) *FastBackend {
	if python == "" {
		python = "python3"
	}
	return &FastBackend{python: python, downloadRoot: downloadRoot}
}

func (b *FastBackend) Name() string { return "faster-whisper" }

// LoadModel probes the device and warms the model: the bridge constructs the
// WhisperModel once, which downloads and verifies the weights. Subsequent
// decodes with the same tier skip the download entirely, which is the
// expensive part of the load.
func (b *FastBackend) LoadModel(ctx context.Context, model string) (*ModelHandle, error) {
	script, err := b.script()
	if err != nil {
		return nil, err
	}
	dev := probeDevice()

	args := b.commonArgs(model, dev)
	args = append(args, "--warm")
	cmd := exec.CommandContext(ctx, b.python, append([]string{script}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("warm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &ModelHandle{Model: model, Device: dev, LoadedAt: time.Now()}, nil
}

func (b *FastBackend) Transcribe(ctx context.Context, audioPath string, handle *ModelHandle, language string, onSegment SegmentFunc) (*Summary, error) {
	script, err := b.script()
	if err != nil {
		return nil, err
	}

	args := b.commonArgs(handle.Model, handle.Device)
	args = append(args, "--audio", audioPath)
	if language != "" && language != "auto" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, b.python, append([]string{script}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &BackendExecutionError{Backend: b.Name(), Err: err}
	}

	var summary *Summary
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var streamErr error
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg struct {
			Type     string  `json:"type"`
			Start    float64 `json:"start"`
			End      float64 `json:"end"`
			Text     string  `json:"text"`
			Language string  `json:"language"`
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			streamErr = fmt.Errorf("bad bridge output %q: %w", line, err)
			break
		}
		switch msg.Type {
		case "segment":
			if err := onSegment(Segment{Start: msg.Start, End: msg.End, Text: msg.Text}); err != nil {
				streamErr = err
				break
			}
		case "summary":
			summary = &Summary{Language: msg.Language, Duration: msg.Duration}
		}
		if streamErr != nil {
			break
		}
	}
	if streamErr == nil {
		streamErr = sc.Err()
	}
	if streamErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, streamErr
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &BackendExecutionError{
			Backend: b.Name(),
			Detail:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	if summary == nil {
		return nil, &BackendExecutionError{
			Backend: b.Name(),
			Detail:  strings.TrimSpace(stderr.String()),
			Err:     fmt.Errorf("bridge exited without a summary line"),
		}
	}
	return summary, nil
}

func (b *FastBackend) commonArgs(model string, dev Device) []string {
	args := []string{
		"--model", model,
		"--device", dev.Name,
		"--compute-type", dev.Compute,
	}
	if b.downloadRoot != "" {
		args = append(args, "--download-root", b.downloadRoot)
	}
	return args
}

// script materializes the embedded bridge once per process.
func (b *FastBackend) script() (string, error) {
	b.scriptOnce.Do(func() {
		dir, err := os.MkdirTemp("", "scribe-bridge-*")
		if err != nil {
			b.scriptErr = fmt.Errorf("bridge dir: %w", err)
			return
		}
		path := filepath.Join(dir, "faster_whisper.py")
		if err := os.WriteFile(path, fasterWhisperScript, 0o755); err != nil {
			b.scriptErr = fmt.Errorf("write bridge script: %w", err)
			return
		}
		b.scriptPath = path
	})
	return b.scriptPath, b.scriptErr
}
