package syncer

import (
	"sync"
	"testing"
	"time"

	"github.com/SebastianCl/letra-cancion/internal/lyrics"
)

const testLRC = "[00:00.00]alpha\n[00:01.00]bravo\n[00:02.00]charlie"

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	// A long tick interval keeps the interior ticker quiet; tests drive
	// Tick explicitly.
	e := New(Config{
		ManualTimeout: 5 * time.Second,
		TickInterval:  time.Hour,
	})
	e.now = clock.Now
	e.Start()
	t.Cleanup(e.Stop)
	return e, clock
}

func setTestTrack(e *Engine) {
	e.SetTrack(lyrics.Parse(testLRC, 0), 0)
}

func TestAutoFollowsPlayback(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	e.PlaybackSample(1500, true)

	d := e.ActiveLine()
	if d.Index != 1 {
		t.Errorf("index = %d, want 1", d.Index)
	}
	if d.Progress != 0.5 {
		t.Errorf("progress = %v, want 0.5", d.Progress)
	}
	if d.Mode != ModeAuto {
		t.Errorf("mode = %s, want auto", d.Mode)
	}
	if d.PositionMs != 1500 {
		t.Errorf("position = %d, want 1500", d.PositionMs)
	}
}

func TestOffsetShiftsSelection(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(1500, true)

	e.AdjustOffset(-1000)
	if d := e.ActiveLine(); d.Index != 0 {
		t.Errorf("index after -1000ms offset = %d, want 0", d.Index)
	}

	e.ResetOffset()
	d := e.ActiveLine()
	if d.Index != 1 {
		t.Errorf("index after reset = %d, want 1", d.Index)
	}
	if d.OffsetMs != 0 {
		t.Errorf("offset after reset = %d, want 0", d.OffsetMs)
	}
}

func TestOffsetClamp(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	e.AdjustOffset(50_000)
	if got := e.CurrentOffsetMs(); got != 10_000 {
		t.Errorf("offset = %d, want clamp at 10000", got)
	}

	e.AdjustOffset(-50_000)
	if got := e.CurrentOffsetMs(); got != -10_000 {
		t.Errorf("offset = %d, want clamp at -10000", got)
	}
}

func TestAdjustOffsetZeroIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(1500, true)
	before := e.ActiveLine()

	e.AdjustOffset(0)

	after := e.ActiveLine()
	if before.Index != after.Index || before.OffsetMs != after.OffsetMs || before.Mode != after.Mode {
		t.Errorf("zero adjustment changed decision: %+v -> %+v", before, after)
	}
}

func TestBeforeFirstLine(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTrack(lyrics.Parse("[00:05.00]late start", 0), 0)

	e.PlaybackSample(1000, true)

	if d := e.ActiveLine(); d.Index != -1 {
		t.Errorf("index before first line = %d, want -1", d.Index)
	}
}

func TestNegativeEffectivePosition(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.AdjustOffset(-10_000)

	e.PlaybackSample(500, true)

	if d := e.ActiveLine(); d.Index != -1 {
		t.Errorf("index with negative effective position = %d, want -1", d.Index)
	}
}

func TestAfterLastLineSticky(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	e.PlaybackSample(99_999, true)

	d := e.ActiveLine()
	if d.Index != 2 {
		t.Errorf("index past the end = %d, want 2 (last line)", d.Index)
	}
	if d.Progress != 1 {
		t.Errorf("progress past the end = %v, want 1", d.Progress)
	}
}

func TestPausedSampleDoesNotRecompute(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	e.PlaybackSample(1500, false)
	if d := e.ActiveLine(); d.Index != -1 {
		t.Errorf("paused sample recomputed: index = %d, want -1", d.Index)
	}

	e.Tick()
	if d := e.ActiveLine(); d.Index != -1 {
		t.Errorf("tick while paused recomputed: index = %d, want -1", d.Index)
	}

	// Resuming picks up the recorded position.
	e.PlaybackSample(1500, true)
	if d := e.ActiveLine(); d.Index != 1 {
		t.Errorf("index after resume = %d, want 1", d.Index)
	}
}

func TestManualSeekSticky(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(0, true)

	e.ManualSeek(2000)

	d := e.ActiveLine()
	if d.Mode != ModeManual {
		t.Fatalf("mode = %s, want manual", d.Mode)
	}
	if d.Index != 2 {
		t.Errorf("index = %d, want 2", d.Index)
	}

	// Playback keeps reporting an earlier position; manual wins.
	e.PlaybackSample(100, true)
	if d := e.ActiveLine(); d.Index != 2 || d.Mode != ModeManual {
		t.Errorf("manual pin lost: %+v", d)
	}
}

func TestManualTimeout(t *testing.T) {
	e, clock := newTestEngine(t)
	setTestTrack(e)
	// Paused playback keeps the position frozen at 500ms during the test.
	e.PlaybackSample(500, false)

	e.ManualSeek(2000)
	if d := e.ActiveLine(); d.Mode != ModeManual {
		t.Fatalf("mode = %s, want manual", d.Mode)
	}

	clock.Advance(4 * time.Second)
	e.Tick()
	if d := e.ActiveLine(); d.Mode != ModeManual {
		t.Error("manual mode expired before the timeout")
	}

	clock.Advance(2 * time.Second)
	e.Tick()
	d := e.ActiveLine()
	if d.Mode != ModeAuto {
		t.Fatalf("mode = %s, want auto after timeout", d.Mode)
	}
	if d.Index != 0 {
		t.Errorf("index after timeout = %d, want 0 (playback at 500ms)", d.Index)
	}
}

func TestManualInteractionRefreshesTimeout(t *testing.T) {
	e, clock := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(0, true)

	e.ManualSeek(2000)
	clock.Advance(4 * time.Second)
	e.ManualScrollBy(-1)

	clock.Advance(4 * time.Second)
	e.Tick()
	if d := e.ActiveLine(); d.Mode != ModeManual {
		t.Error("interaction should have restarted the manual timeout")
	}

	clock.Advance(2 * time.Second)
	e.Tick()
	if d := e.ActiveLine(); d.Mode != ModeAuto {
		t.Error("manual mode should expire after the refreshed timeout")
	}
}

func TestManualScrollFromAuto(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(1500, true)

	e.ManualScrollBy(1)

	d := e.ActiveLine()
	if d.Mode != ModeManual {
		t.Fatalf("mode = %s, want manual", d.Mode)
	}
	if d.Index != 2 {
		t.Errorf("index = %d, want 2", d.Index)
	}
}

func TestManualScrollClampsToBounds(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(1500, true)

	e.ManualScrollBy(10)
	if d := e.ActiveLine(); d.Index != 2 {
		t.Errorf("index = %d, want clamp at 2", d.Index)
	}

	e.ManualScrollBy(-10)
	if d := e.ActiveLine(); d.Index != 0 {
		t.Errorf("index = %d, want clamp at 0", d.Index)
	}
}

func TestManualScrollZeroIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(1500, true)
	before := e.ActiveLine()

	e.ManualScrollBy(0)

	after := e.ActiveLine()
	if before != after {
		t.Errorf("zero scroll changed decision: %+v -> %+v", before, after)
	}
}

func TestManualSeekLineCompensatesOffset(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.AdjustOffset(1000)

	e.ManualSeekLine(1)

	if d := e.ActiveLine(); d.Index != 1 {
		t.Errorf("index = %d, want the clicked line 1 despite the offset", d.Index)
	}
}

func TestManualSeekLineOutOfRange(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.PlaybackSample(0, true)

	e.ManualSeekLine(99)

	if d := e.ActiveLine(); d.Mode != ModeAuto {
		t.Errorf("out-of-range line seek should be ignored, mode = %s", d.Mode)
	}
}

func TestGlobalOffsetTagApplies(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTrack(lyrics.Parse("[offset:+1000]\n[00:01.00]only", 0), 0)

	// Position 0 plus the +1000ms tag reaches the 1000ms line.
	e.PlaybackSample(0, true)

	if d := e.ActiveLine(); d.Index != 0 {
		t.Errorf("index = %d, want 0 with the global offset applied", d.Index)
	}
}

func TestEstimatedTimeline(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTrack(lyrics.Parse("line one\nline two", 0), 10_000)

	e.PlaybackSample(6000, true)

	d := e.ActiveLine()
	if !d.Estimated {
		t.Error("decision should be flagged estimated")
	}
	if d.LineCount != 2 {
		t.Errorf("line count = %d, want 2", d.LineCount)
	}
	if d.Index != 1 {
		t.Errorf("index = %d, want 1 (even split at 5000ms)", d.Index)
	}
}

func TestSetDurationResynthesizes(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTrack(lyrics.Parse("line one\nline two", 0), 0)

	// With the 180s default the second line starts at 90s.
	e.PlaybackSample(6000, true)
	if d := e.ActiveLine(); d.Index != 0 {
		t.Fatalf("index = %d, want 0 under the default duration", d.Index)
	}

	e.SetDuration(10_000)
	e.PlaybackSample(6000, true)
	if d := e.ActiveLine(); d.Index != 1 {
		t.Errorf("index = %d, want 1 after the duration hint arrived", d.Index)
	}
}

func TestSetTrackKeepsOffsetResetsMode(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)
	e.AdjustOffset(1000)
	e.ManualSeek(2000)

	setTestTrack(e)

	d := e.ActiveLine()
	if d.OffsetMs != 1000 {
		t.Errorf("offset = %d, want 1000 preserved across tracks", d.OffsetMs)
	}
	if d.Mode != ModeAuto {
		t.Errorf("mode = %s, want auto on a new track", d.Mode)
	}
}

func TestNilTimeline(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTrack(nil, 0)
	e.PlaybackSample(1500, true)

	d := e.ActiveLine()
	if d.Index != -1 {
		t.Errorf("index = %d, want -1 without a timeline", d.Index)
	}
	if d.LineCount != 0 {
		t.Errorf("line count = %d, want 0", d.LineCount)
	}
}

func TestUpdatesDeliverChanges(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	e.PlaybackSample(1500, true)

	select {
	case d := <-e.Updates():
		if d.LineCount != 3 {
			t.Errorf("line count = %d, want 3", d.LineCount)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestUpdatesDropStaleUnderLoad(t *testing.T) {
	e, _ := newTestEngine(t)
	setTestTrack(e)

	// Nobody drains the channel; far more changes than its capacity.
	for i := int64(0); i < 100; i++ {
		e.PlaybackSample(i*100, true)
	}

	// ActiveLine always reflects the newest decision even though most
	// updates were coalesced away.
	if d := e.ActiveLine(); d.PositionMs != 9900 {
		t.Errorf("position = %d, want 9900", d.PositionMs)
	}

	var last Decision
	for {
		select {
		case d := <-e.Updates():
			last = d
			continue
		default:
		}
		break
	}
	if last.Index != 2 {
		t.Errorf("newest buffered update index = %d, want 2", last.Index)
	}
}
