package transcribe

import (
	"strings"
	"testing"
)

func TestParseSRT(t *testing.T) {
	t.Run("sequential_blocks", func(t *testing.T) {
		input := "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n2\n00:00:01,500 --> 00:00:03,250\nworld\n\n"
		segs, err := ParseSRT(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSRT: %v", err)
		}
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		if segs[0].Start != 0 || segs[0].End != 1.5 || segs[0].Text != "hello" {
			t.Errorf("segment 0 = %+v", segs[0])
		}
		if segs[1].Start != 1.5 || segs[1].End != 3.25 || segs[1].Text != "world" {
			t.Errorf("segment 1 = %+v", segs[1])
		}
	})

	t.Run("multiline_text_preserved", func(t *testing.T) {
		input := "1\n00:00:00,000 --> 00:00:02,000\nline one\nline two\n\n"
		segs, err := ParseSRT(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSRT: %v", err)
		}
		if segs[0].Text != "line one\nline two" {
			t.Errorf("text = %q", segs[0].Text)
		}
	})

	t.Run("hour_offsets", func(t *testing.T) {
		input := "1\n01:02:03,456 --> 01:02:04,000\nlate\n\n"
		segs, err := ParseSRT(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSRT: %v", err)
		}
		want := float64(1)*3600 + float64(2)*60 + float64(3) + float64(456)/1000
		if segs[0].Start != want {
			t.Errorf("start = %v, want %v", segs[0].Start, want)
		}
	})

	t.Run("empty_input", func(t *testing.T) {
		segs, err := ParseSRT(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ParseSRT: %v", err)
		}
		if len(segs) != 0 {
			t.Errorf("got %d segments, want 0", len(segs))
		}
	})

	t.Run("bad_index_line", func(t *testing.T) {
		if _, err := ParseSRT(strings.NewReader("not-a-number\n")); err == nil {
			t.Error("expected error for non-numeric index")
		}
	})

	t.Run("bad_timing_line", func(t *testing.T) {
		if _, err := ParseSRT(strings.NewReader("1\ngarbage\ntext\n\n")); err == nil {
			t.Error("expected error for malformed timing line")
		}
	})
}
