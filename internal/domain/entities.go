package domain

import (
	"image"
	"time"

	"github.com/pion/mediadevices/pkg/frame"
)

// CaptureState состояние захвата для одного экземпляра захватчика
type CaptureState int

const (
	// CaptureStateNotStarted захват не запущен (или остановлен)
	CaptureStateNotStarted CaptureState = iota
	// CaptureStateRunning захват запущен и кадры генерируются
	CaptureStateRunning
	// CaptureStateFailed запуск захвата не удался
	CaptureStateFailed
)

// String возвращает имя состояния для логов
func (s CaptureState) String() string {
	switch s {
	case CaptureStateNotStarted:
		return "not-started"
	case CaptureStateRunning:
		return "running"
	case CaptureStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VideoFormat формат захвата: размеры, интервал между кадрами и формат пикселей
type VideoFormat struct {
	Width    int
	Height   int
	Interval time.Duration // Время между кадрами
	FourCC   frame.Format
}

// NewVideoFormat создает формат по размерам и частоте кадров
func NewVideoFormat(width, height, fps int, fourcc frame.Format) VideoFormat {
	var interval time.Duration
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	return VideoFormat{
		Width:    width,
		Height:   height,
		Interval: interval,
		FourCC:   fourcc,
	}
}

// FrameRate возвращает частоту кадров, соответствующую интервалу
func (f VideoFormat) FrameRate() float64 {
	if f.Interval <= 0 {
		return 0
	}
	return float64(time.Second) / float64(f.Interval)
}

// MaxFrameDimension наибольшая допустимая ширина или высота кадра (8K)
const MaxFrameDimension = 8192

// IsValid проверяет, что размеры кадра положительные и не больше MaxFrameDimension
func (f VideoFormat) IsValid() bool {
	return f.Width > 0 && f.Height > 0 &&
		f.Width <= MaxFrameDimension && f.Height <= MaxFrameDimension
}

// VideoFrame представляет несжатый кадр в формате planar YUV 4:2:0
type VideoFrame struct {
	Image     *image.YCbCr // Плоскости Y, Cb, Cr
	Format    frame.Format // Всегда I420
	Width     int
	Height    int
	Timestamp int64 // Метка времени в микросекундах
}

// VideoDevice представляет устройство захвата видео
type VideoDevice struct {
	ID    string // Уникальный идентификатор устройства
	Label string // Человекочитаемое имя устройства
	Kind  string // Тип устройства
}

// VideoConfig содержит конфигурацию видеопотока
type VideoConfig struct {
	Width        int    // Ширина видео в пикселях
	Height       int    // Высота видео в пикселях
	FrameRate    int    // Частота кадров
	DeviceID     string // ID устройства для захвата
	Fake         bool   // Использовать синтетический источник вместо камеры
	StreamingURL string // URL для стриминга
}

// Format возвращает формат захвата для конфигурации
func (c VideoConfig) Format() VideoFormat {
	return NewVideoFormat(c.Width, c.Height, c.FrameRate, frame.FormatI420)
}

// FrameObserver получает каждый кадр, выпущенный захватчиком.
// Вызывается синхронно в контексте захватчика, поэтому не должен блокироваться.
type FrameObserver interface {
	OnFrame(frame *VideoFrame, width, height int)
}

// DestroyObserver получает уведомление об уничтожении захватчика
type DestroyObserver interface {
	OnCapturerDestroyed(c Capturer)
}

// Capturer источник видеокадров: синтетический или аппаратный
type Capturer interface {
	// ID возвращает идентификатор захватчика
	ID() string

	// Start запускает захват в заданном формате
	Start(format VideoFormat) CaptureState

	// Stop останавливает захват; без эффекта, если захват не запущен
	Stop()

	// State возвращает текущее состояние захвата
	State() CaptureState

	IsRunning() bool
	IsScreencast() bool

	// CaptureFormat возвращает формат последнего запуска или nil
	CaptureFormat() *VideoFormat

	// PreferredFourCCs возвращает поддерживаемые форматы пикселей в порядке предпочтения
	PreferredFourCCs() []frame.Format

	RegisterFrameObserver(o FrameObserver)
	UnregisterFrameObserver(o FrameObserver)
	RegisterDestroyObserver(o DestroyObserver)
	UnregisterDestroyObserver(o DestroyObserver)

	// Close останавливает захват и уведомляет наблюдателей об уничтожении
	Close() error
}
