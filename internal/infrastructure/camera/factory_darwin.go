//go:build darwin

package camera

import (
	"webcam-transfer/capture/internal/domain"
)

// AVFoundationCapturerID идентификатор захватчика камеры на Apple платформах
const AVFoundationCapturerID = "AVFoundationVideoCapturer"

// createVideoCapturer на darwin сразу создает захватчик AVFoundation для камеры по умолчанию.
// Запасного пути здесь нет: ошибка проявится при Start.
func (f *Factory) createVideoCapturer() domain.Capturer {
	return NewDefaultDeviceCapturer(AVFoundationCapturerID, f.logger)
}
