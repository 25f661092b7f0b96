package camera

import (
	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/domain"
)

// videoInputKind тип устройства в выводе списка камер
const videoInputKind = "videoinput"

// MediaDevicesManager реализация DeviceLister с использованием библиотеки mediadevices
type MediaDevicesManager struct {
	logger application.Logger
}

// NewMediaDevicesManager создает новый менеджер медиаустройств
func NewMediaDevicesManager(logger application.Logger) *MediaDevicesManager {
	return &MediaDevicesManager{
		logger: logger,
	}
}

// ListDevices возвращает список доступных устройств захвата
func (m *MediaDevicesManager) ListDevices() ([]domain.VideoDevice, error) {
	info, err := OpenDeviceInfo()
	if err != nil {
		m.logger.Error("Ошибка перечисления устройств: %v", err)
		return nil, err
	}

	result := make([]domain.VideoDevice, 0, info.NumberOfDevices())
	for i := 0; i < info.NumberOfDevices(); i++ {
		name, id, err := info.DeviceName(i)
		if err != nil {
			m.logger.Warn("Пропускаем устройство %d: %v", i, err)
			continue
		}
		result = append(result, domain.VideoDevice{
			ID:    id,
			Label: name,
			Kind:  videoInputKind,
		})
	}

	return result, nil
}
