package transcribe

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return v
}

func TestNormalizeRaw(t *testing.T) {
	t.Run("object_with_keyed_segments", func(t *testing.T) {
		v := decode(t, `{"text":"hello world","language":"en","duration":2.5,
			"segments":[{"start":0,"end":1.2,"text":"hello"},{"start":1.2,"end":2.5,"text":" world "}]}`)
		got := normalizeRaw(v)
		if got.Text != "hello world" || got.Language != "en" || got.Duration != 2.5 {
			t.Errorf("header fields = %q/%q/%v", got.Text, got.Language, got.Duration)
		}
		want := []Segment{{Start: 0, End: 1.2, Text: "hello"}, {Start: 1.2, End: 2.5, Text: "world"}}
		if !reflect.DeepEqual(got.Segments, want) {
			t.Errorf("segments = %+v, want %+v", got.Segments, want)
		}
	})

	t.Run("positional_segment_triples", func(t *testing.T) {
		v := decode(t, `{"segments":[[0,1.5,"first"],[1.5,3,"second"]]}`)
		got := normalizeRaw(v)
		want := []Segment{{Start: 0, End: 1.5, Text: "first"}, {Start: 1.5, End: 3, Text: "second"}}
		if !reflect.DeepEqual(got.Segments, want) {
			t.Errorf("segments = %+v, want %+v", got.Segments, want)
		}
		// No top-level text: concatenated from segments.
		if got.Text != "firstsecond" {
			t.Errorf("text = %q, want %q", got.Text, "firstsecond")
		}
	})

	t.Run("bare_string_is_text_only", func(t *testing.T) {
		got := normalizeRaw("hello world")
		if got.Text != "hello world" {
			t.Errorf("text = %q, want %q", got.Text, "hello world")
		}
		if len(got.Segments) != 0 {
			t.Errorf("expected no segments, got %+v", got.Segments)
		}
	})

	t.Run("top_level_array_of_segments", func(t *testing.T) {
		v := decode(t, `[{"start":0,"end":1,"text":"a"},{"start":1,"end":2,"text":"b"}]`)
		got := normalizeRaw(v)
		if len(got.Segments) != 2 || got.Text != "ab" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("segments_sorted_by_start", func(t *testing.T) {
		v := decode(t, `{"segments":[{"start":5,"end":6,"text":"late"},{"start":0,"end":1,"text":"early"}]}`)
		got := normalizeRaw(v)
		if got.Segments[0].Text != "early" || got.Segments[1].Text != "late" {
			t.Errorf("segments not sorted: %+v", got.Segments)
		}
	})

	t.Run("short_positional_entries_dropped", func(t *testing.T) {
		v := decode(t, `{"segments":[[0,1],["only"],[0,1,"kept"]]}`)
		got := normalizeRaw(v)
		if len(got.Segments) != 1 || got.Segments[0].Text != "kept" {
			t.Errorf("segments = %+v", got.Segments)
		}
	})

	t.Run("nil_is_empty", func(t *testing.T) {
		got := normalizeRaw(nil)
		if got.Text != "" || got.Segments != nil {
			t.Errorf("got %+v, want zero value", got)
		}
	})

	t.Run("unknown_scalar_degrades_to_text", func(t *testing.T) {
		got := normalizeRaw(decode(t, `42`))
		if got.Text != "42" {
			t.Errorf("text = %q, want %q", got.Text, "42")
		}
		if len(got.Segments) != 0 {
			t.Errorf("expected no segments, got %+v", got.Segments)
		}
	})
}

func TestFullText(t *testing.T) {
	segs := []Segment{{Text: "Hello"}, {Text: " world"}, {Text: "."}}
	if got := FullText(segs); got != "Hello world." {
		t.Errorf("FullText = %q, want %q", got, "Hello world.")
	}
	if got := FullText(nil); got != "" {
		t.Errorf("FullText(nil) = %q, want empty", got)
	}
}

func TestAllowedExtension(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"audio.mp3", true},
		{"video.MP4", true},
		{"clip.webm", true},
		{"malware.exe", false},
		{"noextension", false},
		{"archive.tar.gz", false},
		{"movie.mkv", true},
	}
	for _, tc := range cases {
		if got := AllowedExtension(tc.name); got != tc.want {
			t.Errorf("AllowedExtension(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range ModelTiers {
		if !ValidTier(tier) {
			t.Errorf("ValidTier(%q) = false", tier)
		}
	}
	for _, bad := range []string{"", "huge", "large-v2", "Small"} {
		if ValidTier(bad) {
			t.Errorf("ValidTier(%q) = true", bad)
		}
	}
}
