package camera

import (
	"fmt"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/domain"
	"webcam-transfer/capture/internal/infrastructure/logger"
)

// Factory выбирает лучший доступный захватчик для текущей платформы.
// Любая ошибка поиска камеры приводит к синтетическому захватчику.
type Factory struct {
	logger application.Logger

	// OpenDeviceInfo открывает перечисление видеоустройств
	OpenDeviceInfo func() (DeviceInfo, error)

	// NewDeviceCapturer создает захватчик для устройства с заданным идентификатором
	NewDeviceCapturer func(deviceID string) (domain.Capturer, error)
}

// NewFactory создает фабрику, работающую через mediadevices
func NewFactory(log application.Logger) *Factory {
	if log == nil {
		log = logger.Nop{}
	}
	f := &Factory{
		logger:         log,
		OpenDeviceInfo: OpenDeviceInfo,
	}
	f.NewDeviceCapturer = func(deviceID string) (domain.Capturer, error) {
		c, err := NewDeviceCapturer(deviceID, f.logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return f
}

// CreateFakeVideoCapturer всегда возвращает новый синтетический захватчик
func (f *Factory) CreateFakeVideoCapturer() domain.Capturer {
	return newFakeVideoCapturer(f.logger)
}

// CreateVideoCapturer возвращает захватчик камеры или синтетический захватчик, никогда nil
func (f *Factory) CreateVideoCapturer() domain.Capturer {
	return f.createVideoCapturer()
}

// CreateDeviceCapturer создает захватчик для явно выбранной камеры
func (f *Factory) CreateDeviceCapturer(deviceID string) (domain.Capturer, error) {
	capturer, err := f.NewDeviceCapturer(truncateDeviceField(deviceID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapturerConstruction, err)
	}
	if capturer == nil {
		return nil, ErrCapturerConstruction
	}
	return capturer, nil
}

var defaultFactory = NewFactory(nil)

// CreateFakeVideoCapturer создает синтетический захватчик фабрикой по умолчанию
func CreateFakeVideoCapturer() domain.Capturer {
	return defaultFactory.CreateFakeVideoCapturer()
}

// CreateVideoCapturer создает захватчик фабрикой по умолчанию
func CreateVideoCapturer() domain.Capturer {
	return defaultFactory.CreateVideoCapturer()
}

var (
	_ application.CapturerFactory       = (*Factory)(nil)
	_ application.DeviceCapturerFactory = (*Factory)(nil)
	_ domain.Capturer                   = (*FakeVideoCapturer)(nil)
	_ domain.Capturer                   = (*DeviceCapturer)(nil)
)
