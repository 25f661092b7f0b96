package streaming

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"github.com/pion/mediadevices/pkg/frame"

	"webcam-transfer/capture/internal/domain"
)

// Заголовок сообщения: магия, ширина, высота (uint16) и метка времени в микросекундах (int64)
const (
	frameMagic      = "YUV4"
	frameHeaderSize = len(frameMagic) + 2 + 2 + 8
)

// MaxMessageSize наибольший размер сообщения с кадром допустимого размера
const MaxMessageSize = frameHeaderSize + domain.MaxFrameDimension*domain.MaxFrameDimension*3/2

var (
	// ErrBadFrame сообщение не является кадром I420
	ErrBadFrame = errors.New("некорректный кадр")
)

// FrameSize возвращает размер плоскостей I420 для заданных размеров
func FrameSize(width, height int) int {
	cw, ch := (width+1)/2, (height+1)/2
	return width*height + 2*cw*ch
}

// EncodeFrame упаковывает кадр I420 в бинарное сообщение с плотными плоскостями
func EncodeFrame(f *domain.VideoFrame) ([]byte, error) {
	if f == nil || f.Image == nil {
		return nil, fmt.Errorf("%w: пустой кадр", ErrBadFrame)
	}
	img := f.Image
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil, fmt.Errorf("%w: субдискретизация %v", ErrBadFrame, img.SubsampleRatio)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w > domain.MaxFrameDimension || h > domain.MaxFrameDimension {
		return nil, fmt.Errorf("%w: размер %dx%d", ErrBadFrame, w, h)
	}

	buf := make([]byte, frameHeaderSize, frameHeaderSize+FrameSize(w, h))
	copy(buf, frameMagic)
	binary.BigEndian.PutUint16(buf[4:], uint16(w))
	binary.BigEndian.PutUint16(buf[6:], uint16(h))
	binary.BigEndian.PutUint64(buf[8:], uint64(f.Timestamp))

	for y := 0; y < h; y++ {
		off := img.YOffset(b.Min.X, b.Min.Y+y)
		buf = append(buf, img.Y[off:off+w]...)
	}
	cw, ch := (w+1)/2, (h+1)/2
	for _, plane := range [][]byte{img.Cb, img.Cr} {
		for y := 0; y < ch; y++ {
			off := img.COffset(b.Min.X, b.Min.Y+2*y)
			buf = append(buf, plane[off:off+cw]...)
		}
	}

	return buf, nil
}

// DecodeFrame разбирает сообщение, созданное EncodeFrame
func DecodeFrame(data []byte) (*domain.VideoFrame, error) {
	if len(data) < frameHeaderSize || string(data[:4]) != frameMagic {
		return nil, fmt.Errorf("%w: нет заголовка", ErrBadFrame)
	}

	w := int(binary.BigEndian.Uint16(data[4:]))
	h := int(binary.BigEndian.Uint16(data[6:]))
	ts := int64(binary.BigEndian.Uint64(data[8:]))
	if w == 0 || h == 0 || w > domain.MaxFrameDimension || h > domain.MaxFrameDimension {
		return nil, fmt.Errorf("%w: размер %dx%d", ErrBadFrame, w, h)
	}

	payload := data[frameHeaderSize:]
	if len(payload) != FrameSize(w, h) {
		return nil, fmt.Errorf("%w: %d байт данных для %dx%d", ErrBadFrame, len(payload), w, h)
	}

	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	n := copy(img.Y, payload)
	n += copy(img.Cb, payload[n:])
	copy(img.Cr, payload[n:])

	return &domain.VideoFrame{
		Image:     img,
		Format:    frame.FormatI420,
		Width:     w,
		Height:    h,
		Timestamp: ts,
	}, nil
}
