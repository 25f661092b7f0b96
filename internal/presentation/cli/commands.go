package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"webcam-transfer/capture/internal/application"
)

// ServiceBuilder создает сервис и логгер по готовой конфигурации
type ServiceBuilder func(config *Config) (*application.WebcamService, application.Logger)

// CLI представляет CLI интерфейс приложения
type CLI struct {
	build  ServiceBuilder
	config *Config

	// waitForInterrupt блокируется до сигнала завершения
	waitForInterrupt func()
}

// NewCLI создает новый CLI интерфейс
func NewCLI(build ServiceBuilder) *CLI {
	return &CLI{
		build:            build,
		waitForInterrupt: waitForSignal,
	}
}

func waitForSignal() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	<-interrupt
}

// Config возвращает конфигурацию после разбора аргументов
func (c *CLI) Config() *Config {
	return c.config
}

// App создает приложение urfave/cli
func (c *CLI) App() *cli.App {
	return &cli.App{
		Name:  "webcam-client",
		Usage: "захват кадров с камеры (или синтетического источника) и отправка на сервер",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "путь к YAML файлу конфигурации"},
			&cli.StringFlag{Name: "addr", Value: "localhost:8080", Usage: "адрес сервера"},
			&cli.IntFlag{Name: "width", Value: 640, Usage: "ширина видео"},
			&cli.IntFlag{Name: "height", Value: 480, Usage: "высота видео"},
			&cli.IntFlag{Name: "fps", Value: 30, Usage: "частота кадров"},
			&cli.BoolFlag{Name: "debug", Usage: "включить отладочные сообщения"},
			&cli.StringFlag{Name: "device", Usage: "ID устройства камеры для использования"},
			&cli.BoolFlag{Name: "fake", Usage: "использовать синтетический источник черных кадров"},
		},
		Before: c.parseConfig,
		Commands: []*cli.Command{
			{
				Name:   "devices",
				Usage:  "показать список доступных камер",
				Action: c.listDevices,
			},
			{
				Name:   "capture",
				Usage:  "запустить захват и стриминг",
				Action: c.capture,
			},
		},
		Action: c.capture,
	}
}

// Run запускает CLI
func (c *CLI) Run(args []string) error {
	return c.App().Run(args)
}

// parseConfig собирает конфигурацию: значения по умолчанию, YAML файл, затем явно заданные флаги
func (c *CLI) parseConfig(ctx *cli.Context) error {
	config := DefaultConfig()
	if path := ctx.String("config"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return err
		}
		config = loaded
	}

	if ctx.IsSet("addr") {
		config.Address = ctx.String("addr")
	}
	if ctx.IsSet("width") {
		config.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		config.Height = ctx.Int("height")
	}
	if ctx.IsSet("fps") {
		config.FPS = ctx.Int("fps")
	}
	if ctx.IsSet("debug") {
		config.Debug = ctx.Bool("debug")
	}
	if ctx.IsSet("device") {
		config.DeviceID = ctx.String("device")
	}
	if ctx.IsSet("fake") {
		config.Fake = ctx.Bool("fake")
	}

	if err := config.Validate(); err != nil {
		return err
	}
	c.config = config
	return nil
}

// capture запускает захват и ждет сигнала завершения
func (c *CLI) capture(ctx *cli.Context) error {
	service, logger := c.build(c.config)

	// Запускаем захват видео
	if err := service.StartCapture(c.config.VideoConfig()); err != nil {
		return err
	}

	c.waitForInterrupt()
	logger.Info("Прерывание получено, закрытие...")

	// Останавливаем захват
	return service.StopCapture()
}

// listDevices выводит список доступных устройств
func (c *CLI) listDevices(ctx *cli.Context) error {
	service, _ := c.build(c.config)

	devices, err := service.ListDevices()
	if err != nil {
		return err
	}

	out := ctx.App.Writer
	fmt.Fprintln(out, "Доступные устройства:")
	for i, device := range devices {
		fmt.Fprintf(out, "[%d] %s (%s) id=%s\n", i, device.Label, device.Kind, device.ID)
	}

	return nil
}
