package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"webcam-transfer/capture/internal/infrastructure/logger"
	"webcam-transfer/capture/internal/presentation/server"
)

func main() {
	app := &cli.App{
		Name:  "webcam-server",
		Usage: "принимает кадры веб-камеры по WebSocket и сохраняет их в .yuv файлы",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "порт для запуска сервера"},
			&cli.StringFlag{Name: "output", Value: "recordings", Usage: "директория для сохранения записей"},
			&cli.BoolFlag{Name: "debug", Usage: "включить отладочные сообщения"},
		},
		Action: func(c *cli.Context) error {
			stdLogger := logger.NewStdLogger(c.Bool("debug"))
			srv := server.New(c.String("output"), stdLogger)

			// Запускаем HTTP-сервер
			addr := fmt.Sprintf(":%d", c.Int("port"))
			stdLogger.Info("Запуск сервера на порту %d...", c.Int("port"))
			stdLogger.Info("Статус сервера доступен по адресу http://localhost%s", addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Ошибка: %v", err)
	}
}
