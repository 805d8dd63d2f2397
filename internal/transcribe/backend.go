package transcribe

import (
	"context"
	"time"
)

// ModelHandle is a loaded, ready-to-use model reference. Handles are shared
// by every concurrent run using the same identifier and live for the rest of
// the process (unless cache eviction is enabled).
type ModelHandle struct {
	Model    string // tier the handle was loaded for
	Device   Device // device/precision it was loaded with
	LoadedAt time.Time
}

// SegmentFunc receives segments as the backend decodes them. Returning an
// error aborts the decode.
type SegmentFunc func(Segment) error

// Summary is the backend's final report after the segment stream ends.
type Summary struct {
	Text     string  // full text; empty means "concatenate the segments"
	Language string  // detected or declared language code
	Duration float64 // audio duration in seconds, 0 if the backend can't tell
}

// Backend executes transcription against one concrete engine. All
// implementations honor the same contract: segments arrive through onSegment
// in non-decreasing start order, the stream is finite, and every end time is
// >= its start time. A backend with no per-segment timing synthesizes a
// single full-span segment when it knows the audio duration, and otherwise
// emits none and lets the subtitle writer fall back to its sentinel block.
type Backend interface {
	Name() string

	// LoadModel prepares a model for this backend: device probing plus
	// whatever resolution or warm-up the engine needs. Called through the
	// ModelCache, never directly by the orchestrator.
	LoadModel(ctx context.Context, model string) (*ModelHandle, error)

	// Transcribe decodes audioPath using a handle previously produced by
	// LoadModel. language is an ISO-639 code or "auto".
	Transcribe(ctx context.Context, audioPath string, handle *ModelHandle, language string, onSegment SegmentFunc) (*Summary, error)
}
