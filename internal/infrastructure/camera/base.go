package camera

import (
	"sync"

	"webcam-transfer/capture/internal/domain"
)

// capturerBase общая часть захватчиков: формат, наблюдатели и уведомление об уничтожении
type capturerBase struct {
	id string

	mu               sync.Mutex
	format           *domain.VideoFormat
	frameObservers   []domain.FrameObserver
	destroyObservers []domain.DestroyObserver
	destroyOnce      sync.Once
}

// ID возвращает идентификатор захватчика
func (b *capturerBase) ID() string {
	return b.id
}

// CaptureFormat возвращает копию текущего формата захвата
func (b *capturerBase) CaptureFormat() *domain.VideoFormat {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.format == nil {
		return nil
	}
	f := *b.format
	return &f
}

func (b *capturerBase) setCaptureFormat(f domain.VideoFormat) {
	b.mu.Lock()
	b.format = &f
	b.mu.Unlock()
}

// RegisterFrameObserver добавляет получателя кадров; повторная регистрация игнорируется
func (b *capturerBase) RegisterFrameObserver(o domain.FrameObserver) {
	if o == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.frameObservers {
		if existing == o {
			return
		}
	}
	b.frameObservers = append(b.frameObservers, o)
}

// UnregisterFrameObserver удаляет получателя кадров
func (b *capturerBase) UnregisterFrameObserver(o domain.FrameObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.frameObservers {
		if existing == o {
			b.frameObservers = append(b.frameObservers[:i:i], b.frameObservers[i+1:]...)
			return
		}
	}
}

// RegisterDestroyObserver добавляет получателя уведомления об уничтожении
func (b *capturerBase) RegisterDestroyObserver(o domain.DestroyObserver) {
	if o == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.destroyObservers {
		if existing == o {
			return
		}
	}
	b.destroyObservers = append(b.destroyObservers, o)
}

// UnregisterDestroyObserver удаляет получателя уведомления об уничтожении
func (b *capturerBase) UnregisterDestroyObserver(o domain.DestroyObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.destroyObservers {
		if existing == o {
			b.destroyObservers = append(b.destroyObservers[:i:i], b.destroyObservers[i+1:]...)
			return
		}
	}
}

// emit передает кадр всем наблюдателям в текущем контексте.
// Список копируется, чтобы наблюдатель мог отписаться прямо из OnFrame.
func (b *capturerBase) emit(frame *domain.VideoFrame) {
	b.mu.Lock()
	observers := make([]domain.FrameObserver, len(b.frameObservers))
	copy(observers, b.frameObservers)
	b.mu.Unlock()

	for _, o := range observers {
		o.OnFrame(frame, frame.Width, frame.Height)
	}
}

// notifyDestroyed уведомляет наблюдателей ровно один раз за время жизни захватчика
func (b *capturerBase) notifyDestroyed(c domain.Capturer) {
	b.destroyOnce.Do(func() {
		b.mu.Lock()
		observers := b.destroyObservers
		b.destroyObservers = nil
		b.frameObservers = nil
		b.mu.Unlock()

		for _, o := range observers {
			o.OnCapturerDestroyed(c)
		}
	})
}
