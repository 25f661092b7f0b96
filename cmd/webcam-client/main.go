package main

import (
	"log"
	"os"

	"webcam-transfer/capture/internal/application"
	"webcam-transfer/capture/internal/infrastructure/camera"
	"webcam-transfer/capture/internal/infrastructure/logger"
	"webcam-transfer/capture/internal/infrastructure/streaming"
	"webcam-transfer/capture/internal/presentation/cli"
)

func main() {
	cliApp := cli.NewCLI(func(config *cli.Config) (*application.WebcamService, application.Logger) {
		// Инициализируем логгер
		stdLogger := logger.NewStdLogger(config.Debug)

		// Инициализируем инфраструктурные компоненты
		factory := camera.NewFactory(stdLogger)
		deviceLister := camera.NewMediaDevicesManager(stdLogger)
		streamManager := streaming.NewWebSocketStreamer(stdLogger, config.Debug)

		return application.NewWebcamService(factory, deviceLister, streamManager, stdLogger), stdLogger
	})

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("Ошибка: %v", err)
	}
}
