package recording

import (
	"image"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pion/mediadevices/pkg/frame"

	"webcam-transfer/capture/internal/domain"
)

func i420Frame(w, h int, luma byte) *domain.VideoFrame {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = luma
	}
	return &domain.VideoFrame{Image: img, Format: frame.FormatI420, Width: w, Height: h}
}

func TestVideoWriterRotatesOnResolutionChange(t *testing.T) {
	dir := t.TempDir()
	vw, err := NewVideoWriter(dir, "session")
	if err != nil {
		t.Fatalf("NewVideoWriter() error: %v", err)
	}
	vw.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	for _, f := range []*domain.VideoFrame{i420Frame(4, 2, 1), i420Frame(4, 2, 2), i420Frame(2, 2, 3)} {
		if err := vw.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
	}
	if err := vw.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := vw.Files()
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2", files)
	}
	if !strings.HasSuffix(files[0], "webcam_2024-05-06_07-08-09_session_01_4x2.yuv") {
		t.Errorf("first file name %q", files[0])
	}
	if !strings.HasSuffix(files[1], "_02_2x2.yuv") {
		t.Errorf("second file name %q", files[1])
	}

	first, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	// 4x2: 8 байт Y + 2 + 2 байта цветности на кадр
	if len(first) != 2*12 {
		t.Fatalf("first file has %d bytes, want 24", len(first))
	}
	if first[0] != 1 || first[12] != 2 {
		t.Errorf("frames written out of order: %d, %d", first[0], first[12])
	}

	if vw.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", vw.Frames())
	}
	if err := vw.WriteFrame(i420Frame(2, 2, 0)); err == nil {
		t.Error("WriteFrame() after Close succeeded")
	}
}

func TestVideoWriterRejectsNonI420(t *testing.T) {
	vw, err := NewVideoWriter(t.TempDir(), "s")
	if err != nil {
		t.Fatal(err)
	}
	defer vw.Close()

	img := image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio444)
	if err := vw.WriteFrame(&domain.VideoFrame{Image: img}); err == nil {
		t.Fatal("4:4:4 frame accepted")
	}
	if len(vw.Files()) != 0 {
		t.Fatal("file created for rejected frame")
	}
}
