package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"webcam-transfer/capture/internal/domain"
)

// Config представляет конфигурацию CLI
type Config struct {
	Address  string `yaml:"addr"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FPS      int    `yaml:"fps"`
	Debug    bool   `yaml:"debug"`
	DeviceID string `yaml:"device"`
	Fake     bool   `yaml:"fake"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Address: "localhost:8080",
		Width:   640,
		Height:  480,
		FPS:     30,
	}
}

// LoadConfig читает YAML файл поверх значений по умолчанию
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфигурацию: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация %s: %w", path, err)
	}

	return config, nil
}

// Validate проверяет параметры видео
func (c *Config) Validate() error {
	var errs []error
	if !domain.NewVideoFormat(c.Width, c.Height, c.FPS, "").IsValid() {
		errs = append(errs, fmt.Errorf("некорректный размер кадра %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 || c.FPS > 120 {
		errs = append(errs, fmt.Errorf("некорректная частота кадров %d", c.FPS))
	}
	if c.Address == "" {
		errs = append(errs, errors.New("не задан адрес сервера"))
	}
	return errors.Join(errs...)
}

// VideoConfig создает конфигурацию видеопотока
func (c *Config) VideoConfig() domain.VideoConfig {
	return domain.VideoConfig{
		Width:        c.Width,
		Height:       c.Height,
		FrameRate:    c.FPS,
		DeviceID:     c.DeviceID,
		Fake:         c.Fake,
		StreamingURL: fmt.Sprintf("ws://%s/ws", c.Address),
	}
}
