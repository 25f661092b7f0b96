package streaming

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/domain"
)

// Размер очереди кадров между захватчиком и отправкой
const frameQueueSize = 8

var errNotConnected = errors.New("нет подключения к серверу")

// WebSocketStreamer реализует стриминг видео через WebSocket.
// Получает кадры как наблюдатель захватчика и отправляет их из своей горутины.
type WebSocketStreamer struct {
	conn         *websocket.Conn
	dialer       *websocket.Dialer
	logger       application.Logger
	connected    bool
	mutex        sync.Mutex
	frames       chan *domain.VideoFrame
	frameCounter int
	dropped      atomic.Int64
	startTime    time.Time
	debugMode    bool
	sessionID    string
}

// NewWebSocketStreamer создает новый WebSocket стример
func NewWebSocketStreamer(logger application.Logger, debugMode bool) *WebSocketStreamer {
	return &WebSocketStreamer{
		dialer:    websocket.DefaultDialer,
		logger:    logger,
		frames:    make(chan *domain.VideoFrame, frameQueueSize),
		debugMode: debugMode,
	}
}

// OnFrame ставит кадр в очередь на отправку, не блокируя захватчик.
// При переполненной очереди кадр отбрасывается.
func (s *WebSocketStreamer) OnFrame(frame *domain.VideoFrame, width, height int) {
	select {
	case s.frames <- frame:
	default:
		if n := s.dropped.Add(1); s.debugMode && n%30 == 1 {
			s.logger.Debug("Очередь отправки переполнена, отброшено кадров: %d", n)
		}
	}
}

// Dropped возвращает число отброшенных кадров
func (s *WebSocketStreamer) Dropped() int64 {
	return s.dropped.Load()
}

// SessionID возвращает идентификатор текущей сессии стриминга
func (s *WebSocketStreamer) SessionID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sessionID
}

// StartStreaming подключается к серверу и отправляет кадры до отмены ctx
func (s *WebSocketStreamer) StartStreaming(ctx context.Context, config domain.VideoConfig) error {
	s.drainFrames()

	s.mutex.Lock()

	// Если уже подключены, отключаемся сначала
	if s.connected {
		s.mutex.Unlock()
		s.StopStreaming()
		s.mutex.Lock()
	}

	// Подключаемся к серверу
	u, err := url.Parse(config.StreamingURL)
	if err != nil {
		s.logger.Error("Некорректный URL стриминга: %v", err)
		s.mutex.Unlock()
		return err
	}

	sessionID := uuid.NewString()
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()

	s.logger.Info("Подключение к %s", u.String())
	conn, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		s.logger.Error("Ошибка подключения к серверу: %v", err)
		s.mutex.Unlock()
		return err
	}

	s.conn = conn
	s.connected = true
	s.sessionID = sessionID
	s.frameCounter = 0
	s.startTime = time.Now()
	s.mutex.Unlock()

	s.logger.Info("Подключено к серверу, сессия %s", sessionID)

	// Стриминг кадров
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Стриминг остановлен")
			return nil
		case frame := <-s.frames:
			err := s.SendFrame(frame)
			if errors.Is(err, errNotConnected) {
				s.logger.Info("Стриминг остановлен")
				return nil
			}
			if errors.Is(err, ErrBadFrame) {
				s.logger.Warn("Пропускаем кадр: %v", err)
				continue
			}
			if err != nil {
				s.logger.Error("Ошибка отправки кадра: %v", err)
				s.StopStreaming()
				return err
			}
		}
	}
}

// drainFrames отбрасывает кадры, оставшиеся в очереди от прошлой сессии
func (s *WebSocketStreamer) drainFrames() {
	for {
		select {
		case <-s.frames:
		default:
			return
		}
	}
}

// StopStreaming останавливает стриминг
func (s *WebSocketStreamer) StopStreaming() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.connected || s.conn == nil {
		return nil
	}

	// Отправляем сообщение о закрытии
	err := s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)

	if err != nil {
		s.logger.Error("Ошибка закрытия WebSocket: %v", err)
	}

	s.conn.Close()
	s.conn = nil
	s.connected = false

	return nil
}

// IsConnected возвращает статус подключения
func (s *WebSocketStreamer) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.connected
}

// SendFrame кодирует кадр и отправляет его через WebSocket
func (s *WebSocketStreamer) SendFrame(frame *domain.VideoFrame) error {
	data, err := EncodeFrame(frame)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.connected || s.conn == nil {
		return errNotConnected
	}

	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}

	s.frameCounter++

	// Отладочная информация
	if s.debugMode && s.frameCounter%30 == 0 {
		elapsed := time.Since(s.startTime).Seconds()
		fps := float64(s.frameCounter) / elapsed
		s.logger.Debug("Отправлено кадров: %d, FPS: %.2f, размер последнего кадра: %d байт",
			s.frameCounter, fps, len(data))
	}

	return nil
}
