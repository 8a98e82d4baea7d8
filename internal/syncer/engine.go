// Package syncer decides which lyric line is active for the current
// playback position. All state mutations funnel through a single goroutine;
// reads are lock-free snapshots of the last published decision.
package syncer

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SebastianCl/letra-cancion/internal/lyrics"
)

var logger = log.With().Str("component", "syncer").Logger()

// Mode is the arbitration authority currently driving the active line.
type Mode string

const (
	// ModeAuto follows the live playback clock.
	ModeAuto Mode = "auto"
	// ModeManual follows a user-chosen position until the manual timeout
	// elapses without further interaction.
	ModeManual Mode = "manual"
)

// Config tunes the engine. Zero values fall back to the defaults below.
type Config struct {
	ManualTimeout     time.Duration
	TickInterval      time.Duration
	OffsetStepMs      int64
	MinOffsetMs       int64
	MaxOffsetMs       int64
	MinLineDurationMs int64
	// DefaultDurationMs is assumed for estimation when a plain-lyrics
	// track arrives without any duration hint.
	DefaultDurationMs int64
}

func (c Config) withDefaults() Config {
	if c.ManualTimeout <= 0 {
		c.ManualTimeout = 5 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 200 * time.Millisecond
	}
	if c.OffsetStepMs == 0 {
		c.OffsetStepMs = 500
	}
	if c.MinOffsetMs == 0 {
		c.MinOffsetMs = -10_000
	}
	if c.MaxOffsetMs == 0 {
		c.MaxOffsetMs = 10_000
	}
	if c.MinLineDurationMs <= 0 {
		c.MinLineDurationMs = lyrics.MinLineDurationMs
	}
	if c.DefaultDurationMs <= 0 {
		c.DefaultDurationMs = lyrics.DefaultTotalDurationMs
	}
	return c
}

// Decision is one published active-line verdict. Index is -1 when no line
// is active (position before the first line, or no timeline).
type Decision struct {
	Index      int
	Progress   float64
	Mode       Mode
	OffsetMs   int64
	PositionMs int64
	LineCount  int
	Estimated  bool
}

// Engine is the lyric synchronization state machine.
type Engine struct {
	cfg Config

	ops     chan op
	stop    chan struct{}
	stopped chan struct{}

	decision atomic.Pointer[Decision]
	updates  chan Decision

	// now is swapped out by tests to simulate the manual timeout.
	now func() time.Time

	// Everything below is owned by the run goroutine.
	timeline        *lyrics.Timeline
	estimated       bool
	offsetMs        int64
	mode            Mode
	manualPosMs     int64
	manualEnteredAt time.Time
	lastPlaybackMs  int64
	lastSampleAt    time.Time
	playing         bool
}

type op struct {
	fn   func()
	done chan struct{}
}

// New creates an engine. Call Start before feeding it samples.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:     cfg.withDefaults(),
		ops:     make(chan op, 64),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		updates: make(chan Decision, 16),
		now:     time.Now,
		mode:    ModeAuto,
	}
	e.decision.Store(&Decision{Index: -1, Mode: ModeAuto})
	return e
}

// Start launches the single-owner loop and its interior tick cadence.
func (e *Engine) Start() {
	go e.run()
}

// Stop shuts the loop down. Pending and future calls become no-ops.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.stopped
}

func (e *Engine) run() {
	defer close(e.stopped)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case o := <-e.ops:
			o.fn()
			close(o.done)
		case <-ticker.C:
			e.handleTick(e.now())
		case <-e.stop:
			return
		}
	}
}

// do serializes a mutation through the run goroutine and waits until it has
// been applied, so callers observe their own writes via ActiveLine.
func (e *Engine) do(fn func()) {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case e.ops <- o:
		select {
		case <-o.done:
		case <-e.stopped:
		}
	case <-e.stop:
	}
}

// SetTrack installs a new timeline, discarding all per-track state except
// the user offset. Untimed timelines get synthesized timestamps before any
// matching happens.
func (e *Engine) SetTrack(timeline *lyrics.Timeline, estimatedDurationMs int64) {
	e.do(func() {
		e.installTimeline(timeline, estimatedDurationMs)
		e.mode = ModeAuto
		e.manualPosMs = 0
		e.lastPlaybackMs = 0
		e.lastSampleAt = time.Time{}
		e.playing = false
		e.recompute()
	})
}

// SetDuration re-synthesizes an estimated timeline once the real track
// duration becomes known after being initially unavailable.
func (e *Engine) SetDuration(estimatedDurationMs int64) {
	e.do(func() {
		if e.timeline == nil || !e.estimated {
			return
		}
		if estimatedDurationMs == e.timeline.EstimatedDurationMs {
			return
		}
		e.installTimeline(e.timeline, estimatedDurationMs)
		e.recompute()
	})
}

func (e *Engine) installTimeline(timeline *lyrics.Timeline, estimatedDurationMs int64) {
	if timeline == nil {
		timeline = &lyrics.Timeline{}
	}
	e.estimated = false
	if !timeline.HasRealTimestamps && !timeline.Empty() {
		if estimatedDurationMs <= 0 {
			estimatedDurationMs = e.cfg.DefaultDurationMs
		}
		timeline = lyrics.Synthesize(timeline, estimatedDurationMs)
		e.estimated = true
		logger.Info().
			Int("lines", len(timeline.Lines)).
			Int64("total_ms", estimatedDurationMs).
			Msg("Synthesized timestamps for plain lyrics")
	}
	e.timeline = timeline
}

// PlaybackSample records one position report from the playback source.
// Paused samples are recorded but never trigger a recompute.
func (e *Engine) PlaybackSample(positionMs int64, playing bool) {
	e.do(func() {
		e.lastPlaybackMs = positionMs
		e.lastSampleAt = e.now()
		e.playing = playing
		if e.mode == ModeAuto && playing {
			e.recompute()
		}
	})
}

// AdjustOffset shifts the user offset, clamped to the configured range.
// It never changes the mode.
func (e *Engine) AdjustOffset(deltaMs int64) {
	e.do(func() {
		next := e.offsetMs + deltaMs
		if next < e.cfg.MinOffsetMs {
			next = e.cfg.MinOffsetMs
		}
		if next > e.cfg.MaxOffsetMs {
			next = e.cfg.MaxOffsetMs
		}
		e.offsetMs = next
		logger.Info().Int64("offset_ms", e.offsetMs).Msg("Offset adjusted")
		e.recompute()
	})
}

// ResetOffset restores the neutral offset.
func (e *Engine) ResetOffset() {
	e.do(func() {
		e.offsetMs = 0
		logger.Info().Msg("Offset reset")
		e.recompute()
	})
}

// ManualSeek pins the active line to targetMs until the manual timeout
// elapses without further interaction.
func (e *Engine) ManualSeek(targetMs int64) {
	e.do(func() {
		e.enterManual(targetMs)
		e.recompute()
	})
}

// ManualSeekLine pins the active line to the timestamp of the given line
// index (click-to-line). Out-of-range indexes are ignored.
func (e *Engine) ManualSeekLine(index int) {
	e.do(func() {
		if e.timeline == nil || index < 0 || index >= len(e.timeline.Lines) {
			return
		}
		e.enterManual(e.timeline.Lines[index].TimestampMs - e.offsetMs - e.timeline.GlobalOffsetMs)
		e.recompute()
	})
}

// ManualScrollBy moves the manual position by whole lines, entering manual
// mode from the currently active line if needed. A zero delta is a no-op.
// Every manual interaction restarts the timeout.
func (e *Engine) ManualScrollBy(deltaLines int) {
	e.do(func() {
		if deltaLines == 0 || e.timeline == nil || e.timeline.Empty() {
			return
		}
		var from int
		if e.mode == ModeManual {
			from = e.timeline.IndexAt(e.manualPosMs + e.offsetMs + e.timeline.GlobalOffsetMs)
		} else {
			from = e.decision.Load().Index
		}
		target := from + deltaLines
		if target < 0 {
			target = 0
		}
		if target >= len(e.timeline.Lines) {
			target = len(e.timeline.Lines) - 1
		}
		e.enterManual(e.timeline.Lines[target].TimestampMs - e.offsetMs - e.timeline.GlobalOffsetMs)
		e.recompute()
	})
}

func (e *Engine) enterManual(positionMs int64) {
	e.mode = ModeManual
	e.manualPosMs = positionMs
	e.manualEnteredAt = e.now()
}

// Tick evaluates the manual-mode timeout and refreshes the auto position.
// The interior ticker calls this on its own cadence; it is exported so the
// cadence can also be driven externally.
func (e *Engine) Tick() {
	e.do(func() { e.handleTick(e.now()) })
}

func (e *Engine) handleTick(now time.Time) {
	if e.mode == ModeManual {
		if now.Sub(e.manualEnteredAt) > e.cfg.ManualTimeout {
			e.mode = ModeAuto
			e.manualPosMs = 0
			logger.Info().Msg("Manual mode timed out, back to auto")
			e.recompute()
		}
		return
	}
	if e.playing {
		e.recompute()
	}
}

// playbackPositionMs interpolates the playback clock between samples, so
// the line keeps advancing even when the source polls coarsely.
func (e *Engine) playbackPositionMs() int64 {
	if !e.playing || e.lastSampleAt.IsZero() {
		return e.lastPlaybackMs
	}
	return e.lastPlaybackMs + e.now().Sub(e.lastSampleAt).Milliseconds()
}

func (e *Engine) recompute() {
	d := Decision{
		Index:     -1,
		Mode:      e.mode,
		OffsetMs:  e.offsetMs,
		Estimated: e.estimated,
	}
	if e.timeline != nil {
		d.LineCount = len(e.timeline.Lines)
	}

	var basis int64
	if e.mode == ModeManual {
		basis = e.manualPosMs
	} else {
		basis = e.playbackPositionMs()
	}
	d.PositionMs = basis

	if e.timeline != nil && !e.timeline.Empty() {
		effective := basis + e.offsetMs + e.timeline.GlobalOffsetMs
		if effective >= 0 {
			d.Index = e.timeline.IndexAt(effective)
			d.Progress = e.timeline.ProgressAt(d.Index, effective, e.cfg.MinLineDurationMs)
		}
	}

	e.publish(d)
}

func (e *Engine) publish(d Decision) {
	prev := e.decision.Load()
	e.decision.Store(&d)
	if prev != nil && prev.Index == d.Index && prev.Mode == d.Mode &&
		prev.OffsetMs == d.OffsetMs && prev.LineCount == d.LineCount &&
		prev.Progress == d.Progress {
		return
	}
	select {
	case e.updates <- d:
	default:
		// Slow consumer: drop the stale update, keep the newest.
		select {
		case <-e.updates:
		default:
		}
		select {
		case e.updates <- d:
		default:
		}
	}
}

// ActiveLine returns the last published decision without locking.
func (e *Engine) ActiveLine() Decision {
	return *e.decision.Load()
}

// Updates delivers a decision whenever it changes. Intermediate decisions
// may be coalesced under load; ActiveLine always has the newest.
func (e *Engine) Updates() <-chan Decision {
	return e.updates
}

// CurrentOffsetMs reports the user offset for status indicators.
func (e *Engine) CurrentOffsetMs() int64 {
	return e.decision.Load().OffsetMs
}

// CurrentMode reports the arbitration mode for status indicators.
func (e *Engine) CurrentMode() Mode {
	return e.decision.Load().Mode
}
