package camera

import (
	"errors"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pion/mediadevices/pkg/frame"

	"webcam-transfer/capture/internal/domain"
)

// frameRecorder накапливает выпущенные кадры
type frameRecorder struct {
	mu     sync.Mutex
	frames []*domain.VideoFrame
	sizes  [][2]int
	notify chan struct{}
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{notify: make(chan struct{}, 1)}
}

func (r *frameRecorder) OnFrame(f *domain.VideoFrame, width, height int) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.sizes = append(r.sizes, [2]int{width, height})
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) snapshot() []*domain.VideoFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.VideoFrame(nil), r.frames...)
}

func (r *frameRecorder) waitFrames(t *testing.T, n int) []*domain.VideoFrame {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for r.count() < n {
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, got %d", n, r.count())
		}
	}
	return r.snapshot()
}

type destroyCounter struct {
	mu    sync.Mutex
	calls []domain.Capturer
}

func (d *destroyCounter) OnCapturerDestroyed(c domain.Capturer) {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()
}

func (d *destroyCounter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type failingExecutor struct{}

func (failingExecutor) Start() error                      { return errors.New("thread start failed") }
func (failingExecutor) PostDelayed(time.Duration, func()) {}
func (failingExecutor) IsQuitting() bool                  { return true }
func (failingExecutor) Stop()                             {}

func testFormat(w, h int) domain.VideoFormat {
	return domain.NewVideoFormat(w, h, 30, frame.FormatI420)
}

func TestFakeCapturerStartStopState(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()

	if c.IsRunning() {
		t.Fatal("new capturer must not be running")
	}
	if got := c.State(); got != domain.CaptureStateNotStarted {
		t.Fatalf("State() = %v, want not-started", got)
	}

	// Stop до Start ничего не делает
	c.Stop()

	if got := c.Start(testFormat(32, 24)); got != domain.CaptureStateRunning {
		t.Fatalf("Start() = %v, want running", got)
	}
	if !c.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	// Повторный Start не меняет формат
	if got := c.Start(testFormat(640, 480)); got != domain.CaptureStateRunning {
		t.Fatalf("second Start() = %v, want running", got)
	}
	if f := c.CaptureFormat(); f == nil || f.Width != 32 || f.Height != 24 {
		t.Fatalf("CaptureFormat() = %+v, want 32x24", f)
	}

	c.Stop()
	if c.IsRunning() {
		t.Fatal("IsRunning() = true after Stop")
	}
	if got := c.State(); got != domain.CaptureStateNotStarted {
		t.Fatalf("State() = %v after Stop, want not-started", got)
	}
	c.Stop()

	if got := c.Start(testFormat(16, 16)); got != domain.CaptureStateRunning {
		t.Fatalf("restart Start() = %v, want running", got)
	}
	if !c.IsRunning() {
		t.Fatal("IsRunning() = false after restart")
	}
}

func TestFakeCapturerFramesAreBlackI420(t *testing.T) {
	const w, h = 64, 48

	c := NewFakeVideoCapturer()
	defer c.Close()
	rec := newFrameRecorder()
	c.RegisterFrameObserver(rec)

	c.Start(testFormat(w, h))
	frames := rec.waitFrames(t, 3)
	c.Stop()

	for i, f := range frames {
		if f.Width != w || f.Height != h {
			t.Errorf("frame %d: size %dx%d, want %dx%d", i, f.Width, f.Height, w, h)
		}
		if rec.sizes[i] != [2]int{w, h} {
			t.Errorf("frame %d: observer got size %v", i, rec.sizes[i])
		}
		if f.Format != frame.FormatI420 {
			t.Errorf("frame %d: format %s, want I420", i, f.Format)
		}
		if b := f.Image.Bounds(); b.Dx() != w || b.Dy() != h {
			t.Errorf("frame %d: image bounds %v", i, b)
		}
		if f.Image.SubsampleRatio != image.YCbCrSubsampleRatio420 {
			t.Errorf("frame %d: subsample ratio %v", i, f.Image.SubsampleRatio)
		}
		if len(f.Image.Y) != w*h || len(f.Image.Cb) != w*h/4 || len(f.Image.Cr) != w*h/4 {
			t.Errorf("frame %d: plane sizes %d/%d/%d", i, len(f.Image.Y), len(f.Image.Cb), len(f.Image.Cr))
		}
		for _, v := range f.Image.Y {
			if v != 0 {
				t.Fatalf("frame %d: luma %d, want 0", i, v)
			}
		}
		for j := range f.Image.Cb {
			if f.Image.Cb[j] != 128 || f.Image.Cr[j] != 128 {
				t.Fatalf("frame %d: chroma %d/%d, want 128/128", i, f.Image.Cb[j], f.Image.Cr[j])
			}
		}
	}
}

func TestFakeCapturerTimestamps(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewFakeVideoCapturer()
	defer c.Close()
	c.now = func() time.Time { return start }
	rec := newFrameRecorder()
	c.RegisterFrameObserver(rec)

	c.Start(testFormat(8, 8))
	frames := rec.waitFrames(t, 5)
	c.Stop()

	if frames[0].Timestamp != start.UnixMicro() {
		t.Fatalf("first timestamp %d, want %d", frames[0].Timestamp, start.UnixMicro())
	}
	for i := 1; i < len(frames); i++ {
		if d := frames[i].Timestamp - frames[i-1].Timestamp; d != 1_000_000/30 {
			t.Fatalf("timestamp step %d between frames %d and %d, want %d", d, i-1, i, 1_000_000/30)
		}
	}

	// После перезапуска метки продолжают расти
	last := rec.snapshot()
	prev := last[len(last)-1].Timestamp
	n := len(last)
	c.Start(testFormat(8, 8))
	frames = rec.waitFrames(t, n+1)
	c.Stop()
	if frames[n].Timestamp != prev+1_000_000/30 {
		t.Fatalf("timestamp after restart %d, want %d", frames[n].Timestamp, prev+1_000_000/30)
	}
}

func TestFakeCapturerNoFramesAfterStop(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()
	rec := newFrameRecorder()
	c.RegisterFrameObserver(rec)

	c.Start(testFormat(8, 8))
	rec.waitFrames(t, 2)
	c.Stop()

	n := rec.count()
	time.Sleep(5 * fakeFrameInterval)
	if got := rec.count(); got > n+1 {
		t.Fatalf("%d frames emitted after Stop", got-n)
	}
}

func TestFakeCapturerStartFailure(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()
	c.newExecutor = func(string) executor { return failingExecutor{} }

	if got := c.Start(testFormat(8, 8)); got != domain.CaptureStateFailed {
		t.Fatalf("Start() = %v, want failed", got)
	}
	if c.IsRunning() {
		t.Fatal("IsRunning() = true after failed Start")
	}
	if got := c.State(); got != domain.CaptureStateFailed {
		t.Fatalf("State() = %v, want failed", got)
	}
	c.Stop()
}

func TestFakeCapturerInvalidFormat(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()

	formats := []domain.VideoFormat{
		testFormat(0, 480),
		testFormat(640, -1),
		testFormat(domain.MaxFrameDimension+1, 480),
		testFormat(math.MaxInt32, math.MaxInt32),
	}
	for _, format := range formats {
		if got := c.Start(format); got != domain.CaptureStateFailed {
			t.Fatalf("Start(%dx%d) = %v, want failed", format.Width, format.Height, got)
		}
		if c.IsRunning() {
			t.Fatalf("IsRunning() = true after Start(%dx%d)", format.Width, format.Height)
		}
	}
}

func TestFakeCapturerAlwaysReportsI420(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()
	rec := newFrameRecorder()
	c.RegisterFrameObserver(rec)

	if got := c.Start(domain.NewVideoFormat(16, 16, 30, frame.FormatYUY2)); got != domain.CaptureStateRunning {
		t.Fatalf("Start() = %v, want running", got)
	}
	rec.waitFrames(t, 1)
	c.Stop()

	if f := c.CaptureFormat(); f == nil || f.FourCC != frame.FormatI420 {
		t.Fatalf("CaptureFormat() = %+v, want I420", f)
	}
}

func TestFakeCapturerUnregisterObserver(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()
	kept, removed := newFrameRecorder(), newFrameRecorder()
	c.RegisterFrameObserver(kept)
	c.RegisterFrameObserver(removed)
	c.RegisterFrameObserver(kept)
	c.UnregisterFrameObserver(removed)

	c.Start(testFormat(8, 8))
	kept.waitFrames(t, 2)
	c.Stop()

	if removed.count() != 0 {
		t.Fatalf("unregistered observer got %d frames", removed.count())
	}
	frames := kept.snapshot()
	for i := 1; i < len(frames); i++ {
		if frames[i] == frames[i-1] {
			t.Fatal("observer registered twice got the same frame twice")
		}
	}
}

func TestFakeCapturerCloseNotifiesDestroyed(t *testing.T) {
	c := NewFakeVideoCapturer()
	d := &destroyCounter{}
	other := &destroyCounter{}
	c.RegisterDestroyObserver(d)
	c.RegisterDestroyObserver(other)
	c.UnregisterDestroyObserver(other)

	c.Start(testFormat(8, 8))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if c.IsRunning() {
		t.Fatal("IsRunning() = true after Close")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	if d.count() != 1 {
		t.Fatalf("destroy notified %d times, want 1", d.count())
	}
	if d.calls[0] != domain.Capturer(c) {
		t.Fatal("destroy notification carries a different capturer")
	}
	if other.count() != 0 {
		t.Fatal("unregistered destroy observer was notified")
	}
	if got := c.Start(testFormat(8, 8)); got != domain.CaptureStateFailed {
		t.Fatalf("Start() after Close = %v, want failed", got)
	}
}

func TestFakeCapturerProperties(t *testing.T) {
	c := NewFakeVideoCapturer()
	defer c.Close()

	if c.ID() != FakeCapturerID {
		t.Errorf("ID() = %q", c.ID())
	}
	if c.IsScreencast() {
		t.Error("IsScreencast() = true")
	}
	fourccs := c.PreferredFourCCs()
	if len(fourccs) != 1 || fourccs[0] != frame.FormatI420 {
		t.Errorf("PreferredFourCCs() = %v, want [I420]", fourccs)
	}
	if c.CaptureFormat() != nil {
		t.Error("CaptureFormat() must be nil before Start")
	}
}
