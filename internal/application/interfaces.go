package application

import (
	"context"

	"webcam-transfer/capture/internal/domain"
)

// CapturerFactory интерфейс для создания захватчиков
type CapturerFactory interface {
	// CreateVideoCapturer возвращает лучший доступный захватчик, никогда nil
	CreateVideoCapturer() domain.Capturer

	// CreateFakeVideoCapturer возвращает синтетический захватчик черных кадров
	CreateFakeVideoCapturer() domain.Capturer
}

// DeviceCapturerFactory создает захватчик для конкретной камеры
type DeviceCapturerFactory interface {
	CreateDeviceCapturer(deviceID string) (domain.Capturer, error)
}

// DeviceLister интерфейс для получения списка камер
type DeviceLister interface {
	// ListDevices возвращает список доступных устройств захвата
	ListDevices() ([]domain.VideoDevice, error)
}

// StreamManager интерфейс для управления стримингом
type StreamManager interface {
	domain.FrameObserver

	// StartStreaming начинает стриминг видео, блокируется до отмены ctx
	StartStreaming(ctx context.Context, config domain.VideoConfig) error

	// StopStreaming останавливает стриминг
	StopStreaming() error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}
