package artifact

import (
	"fmt"
	"io"
	"strings"

	"github.com/snarg/scribe-engine/internal/transcribe"
)

// SentinelTimestamp is the placeholder end time used when a result has no
// timed segments at all, keeping the subtitle file well-formed.
const SentinelTimestamp = "99:99:99,999"

// FormatSRT writes the result as sequential subtitle blocks:
//
//	{1-based index}
//	{start} --> {end}
//	{text}
//	{blank line}
//
// Segments whose trimmed text is empty are dropped and the surviving blocks
// are renumbered 1..N. A result with no writable segments produces a single
// block spanning the sentinel maximal duration.
func FormatSRT(w io.Writer, res *transcribe.Result) {
	index := 0
	for _, seg := range res.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		index++
		fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			index, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), text)
	}
	if index == 0 {
		fmt.Fprintf(w, "1\n%s --> %s\n%s\n\n",
			FormatTimestamp(0), SentinelTimestamp, res.Text)
	}
}

// FormatTimestamp renders seconds as "HH:MM:SS,mmm", flooring the whole
// parts and taking milliseconds from the fractional remainder.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
