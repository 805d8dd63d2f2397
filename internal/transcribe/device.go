package transcribe

import (
	"os/exec"
	"runtime"
)

// Device describes where a model was loaded and with what precision.
type Device struct {
	Name    string // "cuda", "cpu", "mlx"
	Compute string // "float16", "int8", ...
}

// probeDevice picks the best available device in priority order: dedicated
// GPU (CUDA), then Apple Silicon, then generic CPU. Constrained devices get
// int8 compute for throughput.
func probeDevice() Device {
	if hasCUDA() {
		return Device{Name: "cuda", Compute: "float16"}
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		// faster-whisper has no Metal path; int8 CPU is the fast fallback
		// on unified-memory machines.
		return Device{Name: "cpu", Compute: "int8"}
	}
	return Device{Name: "cpu", Compute: "int8"}
}

// hasCUDA reports whether an NVIDIA GPU is visible. nvidia-smi in PATH is
// the cheapest reliable signal without linking CUDA.
var hasCUDA = func() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
