package lyrics

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// UntimedMs marks a line that carries no real timestamp (plain-lyrics mode).
const UntimedMs int64 = -1

// Line is a single lyric line. TimestampMs is UntimedMs when the source
// carried no timing information for it.
type Line struct {
	TimestampMs int64
	Text        string
}

// Timeline is the parsed, ordered lyric timeline for one track. It is
// immutable once built; the sync engine owns it for the track's lifetime.
type Timeline struct {
	Lines             []Line
	HasRealTimestamps bool

	// Metadata tags from the LRC header, when present.
	Title  string
	Artist string
	Album  string
	// GlobalOffsetMs is the [offset:±ms] tag. It shifts every timestamp
	// during matching, on top of the user offset.
	GlobalOffsetMs int64

	// EstimatedDurationMs is the duration hint supplied by the playback
	// source. Only consulted when HasRealTimestamps is false.
	EstimatedDurationMs int64
}

var (
	timeTagRe = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:[.:](\d{1,3}))?\]`)
	metaTagRe = regexp.MustCompile(`^\[([a-zA-Z]+):([^\]]*)\]$`)
)

// Parse turns raw lyric text into a Timeline. It is a total function: any
// input, including garbage or an empty string, yields a valid Timeline.
// If at least one line carries a valid time tag the untagged lines are
// treated as metadata and dropped; otherwise the whole input is taken as a
// plain-lyrics block with untimed lines.
func Parse(raw string, estimatedDurationMs int64) *Timeline {
	t := &Timeline{EstimatedDurationMs: estimatedDurationMs}

	var plain []Line
	sawTimeTag := false
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()

		tags := timeTagRe.FindAllStringSubmatchIndex(line, -1)
		if len(tags) == 0 {
			if m := metaTagRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				t.applyMetaTag(m[1], m[2])
				continue
			}
			if text := strings.TrimSpace(line); text != "" {
				plain = append(plain, Line{TimestampMs: UntimedMs, Text: text})
			}
			continue
		}

		sawTimeTag = true

		// Text begins after the last tag. A line sung at several
		// timestamps is expanded into one entry per tag.
		text := strings.TrimSpace(line[tags[len(tags)-1][1]:])
		if text == "" {
			continue
		}
		for _, tag := range tags {
			ts := tagToMs(line, tag)
			t.Lines = append(t.Lines, Line{TimestampMs: ts, Text: text})
		}
	}

	if sawTimeTag {
		t.HasRealTimestamps = true
		sort.SliceStable(t.Lines, func(i, j int) bool {
			return t.Lines[i].TimestampMs < t.Lines[j].TimestampMs
		})
		return t
	}

	t.Lines = plain
	return t
}

// tagToMs converts one matched time tag to milliseconds. The fraction digit
// count decides its unit: .x is hundreds of ms, .xx tens, .xxx exact.
func tagToMs(line string, idx []int) int64 {
	min, _ := strconv.Atoi(line[idx[2]:idx[3]])
	sec, _ := strconv.Atoi(line[idx[4]:idx[5]])
	ms := 0
	if idx[6] >= 0 {
		frac := line[idx[6]:idx[7]]
		ms, _ = strconv.Atoi(frac)
		switch len(frac) {
		case 1:
			ms *= 100
		case 2:
			ms *= 10
		}
	}
	return int64(min*60+sec)*1000 + int64(ms)
}

func (t *Timeline) applyMetaTag(name, value string) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(name) {
	case "ti":
		t.Title = value
	case "ar":
		t.Artist = value
	case "al":
		t.Album = value
	case "offset":
		if off, err := strconv.ParseInt(strings.TrimPrefix(value, "+"), 10, 64); err == nil {
			t.GlobalOffsetMs = off
		}
	}
}

// IndexAt returns the greatest index i with Lines[i].TimestampMs <= positionMs,
// or -1 when the position precedes every line or the timeline is empty.
// Equal timestamps resolve to the later index.
func (t *Timeline) IndexAt(positionMs int64) int {
	if len(t.Lines) == 0 || positionMs < t.Lines[0].TimestampMs {
		return -1
	}

	left, right := 0, len(t.Lines)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if t.Lines[mid].TimestampMs <= positionMs {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

// ProgressAt linearly interpolates how far positionMs has advanced into the
// line at index, against the next line's timestamp. The last line is
// extrapolated against minLineDurationMs. Used for sub-line highlighting
// only, never for line selection.
func (t *Timeline) ProgressAt(index int, positionMs, minLineDurationMs int64) float64 {
	if index < 0 || index >= len(t.Lines) {
		return 0
	}
	start := t.Lines[index].TimestampMs
	var span int64
	if index+1 < len(t.Lines) {
		span = t.Lines[index+1].TimestampMs - start
	} else {
		span = minLineDurationMs
	}
	if span <= 0 {
		return 1
	}
	p := float64(positionMs-start) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// DurationMs is the last timestamp of the timeline, or 0 when empty or untimed.
func (t *Timeline) DurationMs() int64 {
	if len(t.Lines) == 0 {
		return 0
	}
	last := t.Lines[len(t.Lines)-1].TimestampMs
	if last == UntimedMs {
		return 0
	}
	return last
}

// Empty reports whether the timeline holds no lines at all.
func (t *Timeline) Empty() bool {
	return len(t.Lines) == 0
}
