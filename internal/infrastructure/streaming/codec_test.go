package streaming

import (
	"errors"
	"image"
	"testing"

	"webcam-transfer/capture/internal/domain"
)

func TestEncodeDecodeOddSizedSubImage(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 10, 8), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = byte(i)
	}
	for i := range src.Cb {
		src.Cb[i] = byte(50 + i)
		src.Cr[i] = byte(150 + i)
	}
	// 5x5: нечетные размеры округляют плоскости цветности вверх
	sub := src.SubImage(image.Rect(2, 2, 7, 7)).(*image.YCbCr)

	data, err := EncodeFrame(&domain.VideoFrame{Image: sub, Width: 5, Height: 5, Timestamp: 1_700_000_000_123_456})
	if err != nil {
		t.Fatalf("EncodeFrame() error: %v", err)
	}
	if len(data) != frameHeaderSize+FrameSize(5, 5) {
		t.Fatalf("encoded %d bytes, want %d", len(data), frameHeaderSize+FrameSize(5, 5))
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error: %v", err)
	}
	if got.Width != 5 || got.Height != 5 || got.Timestamp != 1_700_000_000_123_456 {
		t.Fatalf("decoded header %dx%d ts=%d", got.Width, got.Height, got.Timestamp)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if a, b := got.Image.YCbCrAt(x, y), sub.YCbCrAt(x+2, y+2); a != b {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, a, b)
			}
		}
	}
}

func TestDecodeFrameRejectsMalformed(t *testing.T) {
	valid, err := EncodeFrame(&domain.VideoFrame{Image: image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)})
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string][]byte{
		"empty":     nil,
		"bad magic": append([]byte("H264"), valid[4:]...),
		"truncated": valid[:len(valid)-1],
		"zero size": append(append([]byte(frameMagic), 0, 0, 0, 4), valid[8:]...),
		"too wide":  append(append([]byte(frameMagic), 0x23, 0x28, 0, 4), valid[8:]...),
	}
	for name, data := range cases {
		if _, err := DecodeFrame(data); !errors.Is(err, ErrBadFrame) {
			t.Errorf("%s: error = %v, want ErrBadFrame", name, err)
		}
	}
}

func TestEncodeFrameRejectsNon420(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio422)
	if _, err := EncodeFrame(&domain.VideoFrame{Image: img}); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("error = %v, want ErrBadFrame", err)
	}
	if _, err := EncodeFrame(nil); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("nil frame error = %v, want ErrBadFrame", err)
	}
}
