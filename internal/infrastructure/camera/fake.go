package camera

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/mediadevices/pkg/frame"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/domain"
	"webcam-transfer/capture/internal/infrastructure/logger"
)

const (
	// FakeCapturerID идентификатор синтетического захватчика
	FakeCapturerID = "FakeVideoCapturer"

	fakeFrameRate     = 30
	fakeFrameInterval = time.Second / fakeFrameRate
	// Шаг метки времени между кадрами в микросекундах
	fakeFrameStepMicros = int64(time.Second/time.Microsecond) / fakeFrameRate
)

// FakeVideoCapturer генерирует черные кадры I420 с частотой 30 кадров в секунду.
// Используется, когда камера недоступна, и в тестах.
type FakeVideoCapturer struct {
	capturerBase

	logger      application.Logger
	newExecutor func(name string) executor
	now         func() time.Time

	runMu   sync.Mutex // Сериализует Start/Stop/Close
	worker  executor
	closed  bool
	state   atomic.Int32 // domain.CaptureState
	started atomic.Bool

	// Изменяется только в контексте генерации
	timestamp int64
}

// NewFakeVideoCapturer создает синтетический захватчик
func NewFakeVideoCapturer() *FakeVideoCapturer {
	return newFakeVideoCapturer(logger.Nop{})
}

func newFakeVideoCapturer(log application.Logger) *FakeVideoCapturer {
	return &FakeVideoCapturer{
		capturerBase: capturerBase{id: FakeCapturerID},
		logger:       log,
		newExecutor:  func(name string) executor { return newDispatcher(name) },
		now:          time.Now,
	}
}

// Start фиксирует формат и запускает генерацию кадров в отдельном контексте
func (c *FakeVideoCapturer) Start(format domain.VideoFormat) domain.CaptureState {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.started.Load() {
		return c.State()
	}

	if c.closed || !format.IsValid() {
		c.logger.Error("Синтетический захватчик: недопустимый запуск (%dx%d, закрыт: %t)",
			format.Width, format.Height, c.closed)
		c.state.Store(int32(domain.CaptureStateFailed))
		return domain.CaptureStateFailed
	}

	// Генерируются только кадры I420
	format.FourCC = frame.FormatI420
	c.setCaptureFormat(format)

	worker := c.newExecutor(FakeCapturerID)
	if err := worker.Start(); err != nil {
		c.logger.Error("Не удалось запустить контекст генерации кадров: %v", err)
		c.state.Store(int32(domain.CaptureStateFailed))
		return domain.CaptureStateFailed
	}

	c.worker = worker
	c.started.Store(true)
	c.state.Store(int32(domain.CaptureStateRunning))
	c.logger.Debug("Синтетический захватчик запущен: %dx%d", format.Width, format.Height)

	worker.PostDelayed(0, func() { c.generateFrame(worker) })
	return domain.CaptureStateRunning
}

// Stop останавливает генерацию; без эффекта, если захват не запущен.
// Нельзя вызывать из OnFrame: Stop ждет выхода контекста генерации.
func (c *FakeVideoCapturer) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.stopLocked()
}

func (c *FakeVideoCapturer) stopLocked() {
	if !c.started.Load() {
		return
	}

	c.started.Store(false)
	c.worker.Stop()
	c.worker = nil
	c.state.Store(int32(domain.CaptureStateNotStarted))
	c.logger.Debug("Синтетический захватчик остановлен")
}

// State возвращает текущее состояние захвата
func (c *FakeVideoCapturer) State() domain.CaptureState {
	return domain.CaptureState(c.state.Load())
}

// IsRunning сообщает, запущен ли захват
func (c *FakeVideoCapturer) IsRunning() bool {
	return c.started.Load()
}

// IsScreencast всегда false: источник имитирует камеру
func (c *FakeVideoCapturer) IsScreencast() bool {
	return false
}

// PreferredFourCCs единственный поддерживаемый формат - I420
func (c *FakeVideoCapturer) PreferredFourCCs() []frame.Format {
	return []frame.Format{frame.FormatI420}
}

// Close останавливает захват и уведомляет наблюдателей об уничтожении
func (c *FakeVideoCapturer) Close() error {
	c.runMu.Lock()
	c.stopLocked()
	c.closed = true
	c.runMu.Unlock()

	c.notifyDestroyed(c)
	return nil
}

// generateFrame выпускает один кадр и планирует следующий
func (c *FakeVideoCapturer) generateFrame(worker executor) {
	if worker.IsQuitting() || !c.started.Load() {
		return
	}

	format := c.CaptureFormat()
	if format == nil {
		return
	}

	if c.timestamp == 0 {
		c.timestamp = c.now().UnixMicro()
	} else {
		c.timestamp += fakeFrameStepMicros
	}

	c.emit(&domain.VideoFrame{
		Image:     newBlackI420(format.Width, format.Height),
		Format:    frame.FormatI420,
		Width:     format.Width,
		Height:    format.Height,
		Timestamp: c.timestamp,
	})

	worker.PostDelayed(fakeFrameInterval, func() { c.generateFrame(worker) })
}

// newBlackI420 создает кадр 4:2:0, залитый черным (Y=0, Cb=Cr=128)
func newBlackI420(width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for i := range img.Cb {
		img.Cb[i] = 128
	}
	for i := range img.Cr {
		img.Cr[i] = 128
	}
	return img
}
