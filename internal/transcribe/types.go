package transcribe

import "strings"

// Segment is a contiguous timed span of decoded speech.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// Result is the normalized outcome of one transcription run, identical in
// shape regardless of which backend produced it.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"` // audio duration in seconds, 0 if unknown
}

// Request describes one transcription run. Immutable once created; owned by
// exactly one orchestration run.
type Request struct {
	InputPath string // uploaded media file, deleted when the run ends
	Model     string // model tier: tiny, base, small, ...
	Language  string // ISO-639 code or "auto"
	OutputDir string // where txt/srt artifacts are written
	BaseName  string // artifact base name, already unique per run
	Title     string // optional display title for the persisted record
}

// ModelTiers is the closed set of accepted model identifiers.
var ModelTiers = []string{"tiny", "base", "small", "medium", "large-v3", "distil-large-v3"}

// ValidTier reports whether name is a known model tier.
func ValidTier(name string) bool {
	for _, t := range ModelTiers {
		if t == name {
			return true
		}
	}
	return false
}

// AllowedExtensions is the audio/video container allow-list, lowercase
// without the leading dot.
var AllowedExtensions = []string{"mp4", "mp3", "wav", "m4a", "avi", "mov", "mkv", "webm"}

// AllowedExtension reports whether the filename carries an accepted
// audio/video extension.
func AllowedExtension(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	ext := strings.ToLower(filename[i+1:])
	for _, e := range AllowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// FullText concatenates segment texts with no separator. Segments carry
// their own leading/trailing context, matching whisper output.
func FullText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
