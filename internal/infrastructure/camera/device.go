package camera

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/domain"
)

const (
	// DeviceCapturerID идентификатор аппаратного захватчика
	DeviceCapturerID = "DeviceVideoCapturer"

	// Сколько ждем завершения чтения кадров после закрытия трека
	deviceStopTimeout = 2 * time.Second
)

var errNoVideoTrack = errors.New("видеотрек не обнаружен")

type userMediaFunc func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)

// DeviceCapturer аппаратный захватчик поверх mediadevices.GetUserMedia.
// Кадры приводятся к I420 и выпускаются из горутины чтения трека.
type DeviceCapturer struct {
	capturerBase

	deviceID     string
	logger       application.Logger
	getUserMedia userMediaFunc
	now          func() time.Time
	stopTimeout  time.Duration

	runMu   sync.Mutex
	track   mediadevices.Track
	done    chan struct{}
	closed  bool
	state   atomic.Int32 // domain.CaptureState
	started atomic.Bool

	// Изменяется только в горутине чтения
	lastTimestamp int64
}

// NewDeviceCapturer создает захватчик, привязанный к камере с идентификатором deviceID.
// Возвращает ErrCapturerConstruction, если такой камеры нет среди видеовходов.
func NewDeviceCapturer(deviceID string, logger application.Logger) (*DeviceCapturer, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: пустой идентификатор", ErrCapturerConstruction)
	}

	info, err := OpenDeviceInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapturerConstruction, err)
	}
	for i := 0; i < info.NumberOfDevices(); i++ {
		_, id, err := info.DeviceName(i)
		if err == nil && truncateDeviceField(id) == deviceID {
			return newDeviceCapturer(DeviceCapturerID, id, logger), nil
		}
	}

	return nil, fmt.Errorf("%w: устройство %q не найдено", ErrCapturerConstruction, deviceID)
}

// NewDefaultDeviceCapturer создает захватчик камеры по умолчанию без предварительной проверки.
// Ошибки проявятся при вызове Start.
func NewDefaultDeviceCapturer(id string, logger application.Logger) *DeviceCapturer {
	return newDeviceCapturer(id, "", logger)
}

func newDeviceCapturer(id, deviceID string, logger application.Logger) *DeviceCapturer {
	return &DeviceCapturer{
		capturerBase: capturerBase{id: id},
		deviceID:     deviceID,
		logger:       logger,
		getUserMedia: mediadevices.GetUserMedia,
		now:          time.Now,
		stopTimeout:  deviceStopTimeout,
	}
}

// DeviceID возвращает идентификатор камеры, к которой привязан захватчик
func (c *DeviceCapturer) DeviceID() string {
	return c.deviceID
}

// Start открывает камеру и начинает чтение кадров
func (c *DeviceCapturer) Start(format domain.VideoFormat) domain.CaptureState {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.started.Load() {
		return c.State()
	}
	if c.closed || !format.IsValid() {
		c.logger.Error("Захватчик камеры: недопустимый запуск (%dx%d, закрыт: %t)",
			format.Width, format.Height, c.closed)
		return c.fail()
	}
	if !c.readerDone() {
		c.logger.Error("Предыдущее чтение кадров еще не завершилось")
		return c.fail()
	}

	track, err := c.openTrack(format)
	if err != nil {
		c.logger.Error("Не удалось получить доступ к камере: %v", err)
		return c.fail()
	}

	videoTrack, ok := track.(*mediadevices.VideoTrack)
	if !ok {
		track.Close()
		c.logger.Error("Трек %s не является видеотреком", track.ID())
		return c.fail()
	}

	c.setCaptureFormat(format)
	c.track = track
	c.done = make(chan struct{})
	c.started.Store(true)
	c.state.Store(int32(domain.CaptureStateRunning))
	c.logger.Info("Используется камера: %s", track.ID())

	go c.readLoop(video.ToI420(videoTrack.NewReader(false)), c.done)
	return domain.CaptureStateRunning
}

// openTrack запрашивает поток сначала с форматом, затем с минимальными ограничениями
func (c *DeviceCapturer) openTrack(format domain.VideoFormat) (mediadevices.Track, error) {
	stream, err := c.getUserMedia(c.constraints(format, true))
	if err != nil {
		c.logger.Warn("Ошибка с исходными ограничениями: %v", err)
		c.logger.Info("Пробуем с минимальными ограничениями...")

		stream, err = c.getUserMedia(c.constraints(format, false))
		if err != nil {
			return nil, err
		}
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, errNoVideoTrack
	}
	return tracks[0], nil
}

func (c *DeviceCapturer) constraints(format domain.VideoFormat, strict bool) mediadevices.MediaStreamConstraints {
	return mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			if c.deviceID != "" {
				// Только эта камера: prop.String лишь задает предпочтение
				mc.DeviceID = prop.StringExact(c.deviceID)
			}
			if !strict {
				return
			}
			mc.Width = prop.Int(format.Width)
			mc.Height = prop.Int(format.Height)
			if fps := format.FrameRate(); fps > 0 {
				mc.FrameRate = prop.Float(fps)
			}
			mc.FrameFormat = prop.FrameFormatOneOf(c.PreferredFourCCs())
		},
	}
}

func (c *DeviceCapturer) fail() domain.CaptureState {
	c.state.Store(int32(domain.CaptureStateFailed))
	return domain.CaptureStateFailed
}

func (c *DeviceCapturer) readLoop(reader video.Reader, done chan struct{}) {
	defer close(done)

	skipped := false
	for {
		img, release, err := reader.Read()
		if err != nil {
			if c.started.Load() && !errors.Is(err, io.EOF) {
				c.logger.Error("Ошибка чтения кадра: %v", err)
			}
			return
		}

		if !c.started.Load() {
			if release != nil {
				release()
			}
			return
		}

		yuv := copyI420(img)
		if release != nil {
			release()
		}
		if yuv == nil {
			if !skipped {
				c.logger.Warn("Кадр %T не в формате 4:2:0, пропускаем", img)
				skipped = true
			}
			continue
		}

		ts := c.now().UnixMicro()
		if ts <= c.lastTimestamp {
			ts = c.lastTimestamp + 1
		}
		c.lastTimestamp = ts

		bounds := yuv.Bounds()
		c.emit(&domain.VideoFrame{
			Image:     yuv,
			Format:    frame.FormatI420,
			Width:     bounds.Dx(),
			Height:    bounds.Dy(),
			Timestamp: ts,
		})
	}
}

// Stop закрывает трек и ждет завершения чтения
func (c *DeviceCapturer) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.stopLocked()
}

func (c *DeviceCapturer) stopLocked() {
	if !c.started.Load() {
		return
	}

	c.started.Store(false)
	if err := c.track.Close(); err != nil {
		c.logger.Error("Ошибка закрытия трека: %v", err)
	}

	select {
	case <-c.done:
	case <-time.After(c.stopTimeout):
		// c.done сохраняется: новый Start дождется выхода старой горутины
		c.logger.Warn("Чтение кадров не завершилось за %v", c.stopTimeout)
	}

	c.track = nil
	c.state.Store(int32(domain.CaptureStateNotStarted))
}

// readerDone сообщает, что горутина чтения предыдущего запуска завершилась.
// Ждет ее не дольше stopTimeout.
func (c *DeviceCapturer) readerDone() bool {
	if c.done == nil {
		return true
	}
	select {
	case <-c.done:
		return true
	case <-time.After(c.stopTimeout):
		return false
	}
}

// State возвращает текущее состояние захвата
func (c *DeviceCapturer) State() domain.CaptureState {
	return domain.CaptureState(c.state.Load())
}

// IsRunning сообщает, запущен ли захват
func (c *DeviceCapturer) IsRunning() bool {
	return c.started.Load()
}

// IsScreencast всегда false: это камера
func (c *DeviceCapturer) IsScreencast() bool {
	return false
}

// PreferredFourCCs форматы, которые запрашиваются у драйвера
func (c *DeviceCapturer) PreferredFourCCs() []frame.Format {
	return []frame.Format{frame.FormatI420, frame.FormatYUY2}
}

// Close останавливает захват и уведомляет наблюдателей об уничтожении
func (c *DeviceCapturer) Close() error {
	c.runMu.Lock()
	c.stopLocked()
	c.closed = true
	c.runMu.Unlock()

	c.notifyDestroyed(c)
	return nil
}

// copyI420 копирует кадр 4:2:0 в собственный плотно упакованный буфер.
// Для других форматов возвращает nil.
func copyI420(img image.Image) *image.YCbCr {
	src, ok := img.(*image.YCbCr)
	if !ok || src.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)

	for y := 0; y < h; y++ {
		off := src.YOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Y[y*dst.YStride:y*dst.YStride+w], src.Y[off:off+w])
	}

	cw, ch := (w+1)/2, (h+1)/2
	for y := 0; y < ch; y++ {
		off := src.COffset(b.Min.X, b.Min.Y+2*y)
		copy(dst.Cb[y*dst.CStride:y*dst.CStride+cw], src.Cb[off:off+cw])
		copy(dst.Cr[y*dst.CStride:y*dst.CStride+cw], src.Cr[off:off+cw])
	}

	return dst
}
