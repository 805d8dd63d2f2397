package transcribe

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseSRT reads sequential subtitle blocks into segments. Used to ingest
// the subtitle file the whisper CLI writes, and by round-trip tests against
// the artifact writer. Index lines are validated as integers but their
// values are not required to be contiguous.
func ParseSRT(r io.Reader) ([]Segment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var segments []Segment
	for {
		// Index line (skip blank separators)
		var indexLine string
		for sc.Scan() {
			indexLine = strings.TrimSpace(sc.Text())
			if indexLine != "" {
				break
			}
		}
		if indexLine == "" {
			break // EOF
		}
		if _, err := strconv.Atoi(indexLine); err != nil {
			return nil, fmt.Errorf("srt: bad index line %q", indexLine)
		}

		if !sc.Scan() {
			return nil, fmt.Errorf("srt: missing timing line after index %s", indexLine)
		}
		start, end, err := parseTimingLine(strings.TrimSpace(sc.Text()))
		if err != nil {
			return nil, err
		}

		var text []string
		for sc.Scan() {
			line := sc.Text()
			if strings.TrimSpace(line) == "" {
				break
			}
			text = append(text, line)
		}

		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(text, "\n"),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("srt: read: %w", err)
	}
	return segments, nil
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, " --> ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("srt: bad timing line %q", line)
	}
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp converts "HH:MM:SS,mmm" to seconds.
func parseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	var h, m, s, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("srt: bad timestamp %q", ts)
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000, nil
}
