package transcribe

import (
	"fmt"
	"sort"
	"strings"
)

// rawResult is the outcome of shape-sniffing an accelerated-engine result.
type rawResult struct {
	Text     string
	Segments []Segment
	Language string
	Duration float64
}

// normalizeRaw converts a decoded JSON document of unknown shape into the
// common result form. Fallback order: object read by key, segment entries as
// objects or positional [start, end, text] triples, bare string treated as
// text with zero segments. Anything unrecognized degrades to "whole text,
// no segments" instead of failing the run.
func normalizeRaw(v any) rawResult {
	switch r := v.(type) {
	case map[string]any:
		out := rawResult{
			Text:     asString(r["text"]),
			Language: asString(r["language"]),
			Duration: asFloat(r["duration"]),
		}
		if entries, ok := r["segments"].([]any); ok {
			out.Segments = normalizeSegments(entries)
		}
		if out.Text == "" && len(out.Segments) > 0 {
			out.Text = FullText(out.Segments)
		}
		return out
	case []any:
		segs := normalizeSegments(r)
		return rawResult{Text: FullText(segs), Segments: segs}
	case string:
		return rawResult{Text: r}
	case nil:
		return rawResult{}
	default:
		return rawResult{Text: fmt.Sprint(r)}
	}
}

// normalizeSegments reads segment entries by key or by position, dropping
// entries of any other shape. Output is sorted by start time.
func normalizeSegments(entries []any) []Segment {
	var segs []Segment
	for _, e := range entries {
		switch entry := e.(type) {
		case map[string]any:
			segs = append(segs, Segment{
				Start: asFloat(entry["start"]),
				End:   asFloat(entry["end"]),
				Text:  strings.TrimSpace(asString(entry["text"])),
			})
		case []any:
			if len(entry) < 3 {
				continue
			}
			segs = append(segs, Segment{
				Start: asFloat(entry[0]),
				End:   asFloat(entry[1]),
				Text:  strings.TrimSpace(asString(entry[2])),
			})
		}
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return segs
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
