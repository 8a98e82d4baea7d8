package lyrics

import "unicode/utf8"

const (
	// DefaultTotalDurationMs is assumed when a plain-lyrics track has no
	// duration hint at all.
	DefaultTotalDurationMs int64 = 180_000

	// MinLineDurationMs keeps short lines on screen long enough to read.
	MinLineDurationMs int64 = 1_500
)

// Synthesize distributes totalMs across the lines of an untimed timeline,
// proportionally by character length with a per-line minimum floor, and
// returns a new timeline carrying the synthesized timestamps. The result is
// matched exactly like a real timeline; estimation is preprocessing only.
// Timelines that already carry real timestamps are returned unchanged.
func Synthesize(t *Timeline, totalMs int64) *Timeline {
	if t.HasRealTimestamps || t.Empty() {
		return t
	}
	n := len(t.Lines)
	// A hint shorter than one millisecond per line cannot hold every line;
	// treat it the same as no hint.
	if totalMs < int64(n) {
		totalMs = DefaultTotalDurationMs
	}

	weights := make([]int64, n)
	var sum int64
	for i, line := range t.Lines {
		w := int64(utf8.RuneCountInString(line.Text))
		if w < 1 {
			w = 1
		}
		weights[i] = w
		sum += w
	}

	durations := make([]int64, n)
	var allocated int64
	for i, w := range weights {
		d := totalMs * w / sum
		if d < MinLineDurationMs {
			d = MinLineDurationMs
		}
		durations[i] = d
		allocated += d
	}

	// The floor can push the sum past the total; rescale so the last line
	// still starts strictly before the end of the track.
	if allocated > totalMs {
		var rescaled int64
		for i := range durations {
			d := durations[i] * totalMs / allocated
			if d < 1 {
				d = 1
			}
			durations[i] = d
			rescaled += d
		}
		allocated = rescaled
	}

	out := &Timeline{
		Lines:               make([]Line, n),
		HasRealTimestamps:   false,
		Title:               t.Title,
		Artist:              t.Artist,
		Album:               t.Album,
		GlobalOffsetMs:      t.GlobalOffsetMs,
		EstimatedDurationMs: totalMs,
	}
	var ts int64
	for i, line := range t.Lines {
		// Every remaining line needs at least a millisecond of room.
		if limit := totalMs - int64(n-i); ts > limit {
			ts = limit
		}
		out.Lines[i] = Line{TimestampMs: ts, Text: line.Text}
		ts += durations[i]
	}
	return out
}
