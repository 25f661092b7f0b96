//go:build !darwin

package camera

import (
	"fmt"

	"webcam-transfer/capture/internal/domain"
)

// createVideoCapturer ищет первую камеру и при любой ошибке возвращает синтетический захватчик
func (f *Factory) createVideoCapturer() domain.Capturer {
	capturer, err := f.probe()
	if err != nil {
		f.logger.Warn("Камера недоступна, используем синтетический источник: %v", err)
		return f.CreateFakeVideoCapturer()
	}
	return capturer
}

// probe последовательно проверяет подсистему устройств, наличие камеры,
// ее данные и создание захватчика
func (f *Factory) probe() (domain.Capturer, error) {
	info, err := f.OpenDeviceInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceInfoUnavailable, err)
	}
	if info == nil {
		return nil, ErrDeviceInfoUnavailable
	}

	if info.NumberOfDevices() == 0 {
		return nil, ErrNoDevices
	}

	name, id, err := info.DeviceName(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceInfoRead, err)
	}
	name, id = truncateDeviceField(name), truncateDeviceField(id)
	f.logger.Debug("Найдена камера %q (%s)", name, id)

	// Привязываемся к идентификатору: имена камер не уникальны
	capturer, err := f.NewDeviceCapturer(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapturerConstruction, err)
	}
	if capturer == nil {
		return nil, ErrCapturerConstruction
	}

	return capturer, nil
}
