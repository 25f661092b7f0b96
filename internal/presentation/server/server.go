package server

import (
	"html/template"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/infrastructure/recording"
	"webcam-transfer/capture/internal/infrastructure/streaming"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем все подключения
	},
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Сервер приема кадров веб-камеры</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		.status { padding: 20px; background-color: #e0f7fa; border-radius: 5px; }
	</style>
</head>
<body>
	<h1>Сервер приема кадров веб-камеры</h1>
	<div class="status">
		<p>✅ Сервер запущен и принимает соединения</p>
		<p>Активных клиентов: {{.Clients}}</p>
		<p>Директория для записей: <code>{{.OutputDir}}</code></p>
	</div>
</body>
</html>
`))

// Server принимает кадры I420 по WebSocket и сохраняет их в .yuv файлы
type Server struct {
	outputDir string
	logger    application.Logger
	clients   atomic.Int64
	mux       *http.ServeMux
	readLimit int64 // Наибольший размер входящего сообщения
}

// New создает сервер, сохраняющий записи в outputDir
func New(outputDir string, logger application.Logger) *Server {
	s := &Server{
		outputDir: outputDir,
		logger:    logger,
		mux:       http.NewServeMux(),
		readLimit: int64(streaming.MaxMessageSize),
	}
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/", s.handleStatus)
	return s
}

// Handler возвращает HTTP обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleWebSocket обрабатывает WebSocket подключения
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Ошибка при апгрейде до WebSocket: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.readLimit)

	sessionID := r.URL.Query().Get("session")
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}

	// Создаем запись для сессии
	videoWriter, err := recording.NewVideoWriter(s.outputDir, sessionID)
	if err != nil {
		s.logger.Error("Не удалось создать запись: %v", err)
		return
	}
	defer videoWriter.Close()

	s.clients.Add(1)
	defer s.clients.Add(-1)

	clientAddr := conn.RemoteAddr().String()
	s.logger.Info("Клиент подключен: %s, сессия %s", clientAddr, sessionID)

	// Обработка входящих сообщений
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("Ошибка чтения: %v", err)
			}
			break
		}

		// Обрабатываем только бинарные сообщения (кадры I420)
		if messageType != websocket.BinaryMessage {
			continue
		}

		frame, err := streaming.DecodeFrame(message)
		if err != nil {
			s.logger.Warn("Пропускаем сообщение: %v", err)
			continue
		}
		if err := videoWriter.WriteFrame(frame); err != nil {
			s.logger.Error("Ошибка записи данных: %v", err)
			break
		}
	}

	s.logger.Info("Клиент отключен: %s, записано кадров: %d", clientAddr, videoWriter.Frames())
}

// handleStatus отдает простую страницу-статус
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := statusPage.Execute(w, struct {
		Clients   int64
		OutputDir string
	}{
		Clients:   s.clients.Load(),
		OutputDir: s.outputDir,
	})
	if err != nil {
		s.logger.Error("Ошибка отображения статуса: %v", err)
	}
}
