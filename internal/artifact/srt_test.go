package artifact

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/snarg/scribe-engine/internal/transcribe"
)

func TestFormatSRT(t *testing.T) {
	t.Run("single_block", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSRT(&buf, &transcribe.Result{
			Segments: []transcribe.Segment{{Start: 0, End: 1.5, Text: "こんにちは"}},
		})
		want := "1\n00:00:00,000 --> 00:00:01,500\nこんにちは\n\n"
		if got := buf.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("empty_segments_dropped_and_renumbered", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSRT(&buf, &transcribe.Result{
			Segments: []transcribe.Segment{
				{Start: 0, End: 1, Text: "first"},
				{Start: 1, End: 2, Text: "   "},
				{Start: 2, End: 3, Text: "third"},
			},
		})
		out := buf.String()
		if strings.Count(out, "-->") != 2 {
			t.Fatalf("expected 2 blocks, got:\n%s", out)
		}
		if !strings.Contains(out, "1\n00:00:00,000") || !strings.Contains(out, "2\n00:00:02,000") {
			t.Errorf("blocks not renumbered 1..N:\n%s", out)
		}
	})

	t.Run("no_segments_writes_sentinel_block", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSRT(&buf, &transcribe.Result{Text: "hello world"})
		want := "1\n00:00:00,000 --> 99:99:99,999\nhello world\n\n"
		if got := buf.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("all_empty_segments_fall_back_to_sentinel", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSRT(&buf, &transcribe.Result{
			Text:     "whole text",
			Segments: []transcribe.Segment{{Start: 0, End: 1, Text: " "}},
		})
		if !strings.Contains(buf.String(), SentinelTimestamp) {
			t.Errorf("expected sentinel block, got %q", buf.String())
		}
	})
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.25, "00:01:01,250"},
		{3723.5, "01:02:03,500"},
		{-5, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSRTRoundTrip(t *testing.T) {
	in := []transcribe.Segment{
		{Start: 0, End: 2.125, Text: "one"},
		{Start: 2.125, End: 7.5, Text: "two"},
		{Start: 7.5, End: 3601.5, Text: "three"},
	}
	var buf bytes.Buffer
	FormatSRT(&buf, &transcribe.Result{Segments: in})

	out, err := transcribe.ParseSRT(&buf)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d segments, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Text != in[i].Text {
			t.Errorf("segment %d text = %q, want %q", i, out[i].Text, in[i].Text)
		}
		// The format carries millisecond precision.
		if math.Abs(out[i].Start-in[i].Start) >= 0.001 {
			t.Errorf("segment %d start = %v, want %v within 1ms", i, out[i].Start, in[i].Start)
		}
		if math.Abs(out[i].End-in[i].End) >= 0.001 {
			t.Errorf("segment %d end = %v, want %v within 1ms", i, out[i].End, in[i].End)
		}
	}
}
