package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"webcam-transfer/capture/internal/domain"
)

var (
	// ErrNoActiveCapture захват не запущен
	ErrNoActiveCapture = errors.New("нет активного захвата")
	// ErrCaptureStartFailed захватчик не смог запуститься
	ErrCaptureStartFailed = errors.New("не удалось запустить захват")
)

// WebcamService сервис для работы с веб-камерой и стримингом
type WebcamService struct {
	factory       CapturerFactory
	deviceLister  DeviceLister
	streamManager StreamManager
	logger        Logger

	activeCapturer domain.Capturer
	cancelFunc     context.CancelFunc
	streamDone     chan struct{}
	mutex          sync.Mutex
}

// NewWebcamService создает новый сервис для работы с веб-камерой
func NewWebcamService(factory CapturerFactory, deviceLister DeviceLister, streamManager StreamManager, logger Logger) *WebcamService {
	return &WebcamService{
		factory:       factory,
		deviceLister:  deviceLister,
		streamManager: streamManager,
		logger:        logger,
	}
}

// ListDevices возвращает список доступных устройств захвата
func (s *WebcamService) ListDevices() ([]domain.VideoDevice, error) {
	devices, err := s.deviceLister.ListDevices()
	if err != nil {
		s.logger.Error("Ошибка получения списка устройств: %v", err)
		return nil, err
	}
	return devices, nil
}

// StartCapture начинает захват и стриминг с указанной конфигурацией
func (s *WebcamService) StartCapture(config domain.VideoConfig) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Если есть активный захват, останавливаем его
	if s.activeCapturer != nil {
		s.stopLocked()
	}

	capturer := s.createCapturer(config)

	s.logger.Info("Запуск захвата %s: %dx%d, %d fps",
		capturer.ID(), config.Width, config.Height, config.FrameRate)

	if s.streamManager != nil {
		capturer.RegisterFrameObserver(s.streamManager)
	}

	state := capturer.Start(config.Format())
	if state != domain.CaptureStateRunning {
		capturer.Close()
		s.logger.Error("Захватчик %s перешел в состояние %s", capturer.ID(), state)
		return fmt.Errorf("%w: %s", ErrCaptureStartFailed, state)
	}
	s.activeCapturer = capturer

	if s.streamManager == nil {
		return nil
	}

	// Начинаем стриминг
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancelFunc = cancel
	s.streamDone = done

	go func() {
		defer close(done)
		err := s.streamManager.StartStreaming(ctx, config)
		if err != nil {
			s.logger.Error("Ошибка стриминга: %v", err)
		}
	}()

	return nil
}

// createCapturer выбирает захватчик по конфигурации
func (s *WebcamService) createCapturer(config domain.VideoConfig) domain.Capturer {
	if config.Fake {
		return s.factory.CreateFakeVideoCapturer()
	}

	if config.DeviceID != "" {
		if df, ok := s.factory.(DeviceCapturerFactory); ok {
			capturer, err := df.CreateDeviceCapturer(config.DeviceID)
			if err == nil {
				return capturer
			}
			s.logger.Warn("Камера %s недоступна: %v", config.DeviceID, err)
		}
	}

	return s.factory.CreateVideoCapturer()
}

// StopCapture останавливает захват и стриминг
func (s *WebcamService) StopCapture() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.activeCapturer == nil {
		return ErrNoActiveCapture
	}
	s.stopLocked()
	return nil
}

// IsCapturing сообщает, есть ли активный захват
func (s *WebcamService) IsCapturing() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.activeCapturer != nil && s.activeCapturer.IsRunning()
}

func (s *WebcamService) stopLocked() {
	capturer := s.activeCapturer
	if s.streamManager != nil {
		capturer.UnregisterFrameObserver(s.streamManager)
	}

	if err := capturer.Close(); err != nil {
		s.logger.Error("Ошибка закрытия захватчика: %v", err)
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.streamManager != nil {
		if err := s.streamManager.StopStreaming(); err != nil {
			s.logger.Error("Ошибка остановки стриминга: %v", err)
		}
	}
	if s.streamDone != nil {
		<-s.streamDone
	}

	s.activeCapturer = nil
	s.cancelFunc = nil
	s.streamDone = nil
}
