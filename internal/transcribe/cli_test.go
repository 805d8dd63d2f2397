package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeStub writes an executable shell script and returns its path.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "whisper-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIBackendTranscribe(t *testing.T) {
	t.Run("parses_srt_output", func(t *testing.T) {
		// The stub mimics whisper's argument parser: --output_format is
		// last-wins, and only the file for the winning format is written.
		// A backend that repeats the flag hoping for several formats gets
		// just the last one and must fail here.
		stub := writeStub(t, `
audio="$1"
out=""
fmt=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  if [ "$1" = "--output_format" ]; then fmt="$2"; fi
  shift
done
stem=$(basename "$audio")
stem="${stem%.*}"
if [ "$fmt" = "srt" ] || [ "$fmt" = "all" ]; then
cat > "$out/$stem.srt" <<'SRT'
1
00:00:00,000 --> 00:00:01,500
hello there

2
00:00:01,500 --> 00:00:03,000
general kenobi

SRT
fi
if [ "$fmt" = "txt" ] || [ "$fmt" = "all" ]; then
printf 'hello there general kenobi' > "$out/$stem.txt"
fi
`)
		backend := NewCLIBackend(stub, "")
		handle, err := backend.LoadModel(context.Background(), "small")
		if err != nil {
			t.Fatalf("LoadModel: %v", err)
		}

		audio := filepath.Join(t.TempDir(), "meeting.wav")
		if err := os.WriteFile(audio, []byte("fake"), 0o644); err != nil {
			t.Fatal(err)
		}

		var segs []Segment
		summary, err := backend.Transcribe(context.Background(), audio, handle, "en", func(s Segment) error {
			segs = append(segs, s)
			return nil
		})
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		if segs[0].Text != "hello there" || segs[1].Text != "general kenobi" {
			t.Errorf("segments = %+v", segs)
		}
		if summary.Text != "" {
			t.Errorf("summary text = %q, want empty (joined from segments downstream)", summary.Text)
		}
		if got := FullText(segs); got != "hello there general kenobi" {
			t.Errorf("joined text = %q", got)
		}
		if summary.Duration != 3.0 {
			t.Errorf("summary duration = %v, want 3.0", summary.Duration)
		}
		if summary.Language != "en" {
			t.Errorf("summary language = %q, want en", summary.Language)
		}
	})

	t.Run("failure_carries_stderr", func(t *testing.T) {
		stub := writeStub(t, `
echo "RuntimeError: out of memory" >&2
exit 1
`)
		backend := NewCLIBackend(stub, "")
		handle, err := backend.LoadModel(context.Background(), "small")
		if err != nil {
			t.Fatalf("LoadModel: %v", err)
		}

		audio := filepath.Join(t.TempDir(), "big.mp4")
		if err := os.WriteFile(audio, []byte("fake"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err = backend.Transcribe(context.Background(), audio, handle, "auto", func(Segment) error { return nil })
		if err == nil {
			t.Fatal("expected execution error")
		}
		var bee *BackendExecutionError
		if !errors.As(err, &bee) {
			t.Fatalf("expected BackendExecutionError, got %T", err)
		}
		if !strings.Contains(bee.Detail, "out of memory") {
			t.Errorf("detail = %q, want it to contain the stderr text", bee.Detail)
		}
		if !strings.Contains(err.Error(), "out of memory") {
			t.Errorf("error message = %q, want it to surface the stderr text", err.Error())
		}
	})

	t.Run("missing_subtitle_output_is_an_error", func(t *testing.T) {
		stub := writeStub(t, `exit 0`)
		backend := NewCLIBackend(stub, "")
		handle, _ := backend.LoadModel(context.Background(), "tiny")

		audio := filepath.Join(t.TempDir(), "silent.mp3")
		if err := os.WriteFile(audio, []byte("fake"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := backend.Transcribe(context.Background(), audio, handle, "auto", func(Segment) error { return nil })
		var bee *BackendExecutionError
		if !errors.As(err, &bee) {
			t.Fatalf("expected BackendExecutionError, got %v", err)
		}
	})
}

func TestCLIBackendBinPath(t *testing.T) {
	t.Run("missing_absolute_path", func(t *testing.T) {
		backend := NewCLIBackend(filepath.Join(t.TempDir(), "does-not-exist"), "")
		if _, err := backend.LoadModel(context.Background(), "small"); err == nil {
			t.Error("expected error for missing executable")
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		backend := NewCLIBackend("", "")
		if _, err := backend.LoadModel(context.Background(), "small"); err == nil {
			t.Error("expected error for empty executable")
		}
	})
}

func TestCLIBackendChildEnv(t *testing.T) {
	backend := NewCLIBackend("whisper", "/opt/ffmpeg/bin")
	env := backend.childEnv()
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			found = true
			if !strings.HasPrefix(kv, "PATH=/opt/ffmpeg/bin"+string(os.PathListSeparator)) &&
				kv != "PATH=/opt/ffmpeg/bin" {
				t.Errorf("PATH not prefixed: %q", kv)
			}
		}
	}
	if !found {
		t.Error("no PATH in child environment")
	}
}
