package camera

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // Регистрируем драйвер камеры
)

// Ошибки этапов поиска камеры. Наружу из CreateVideoCapturer не выходят,
// только попадают в лог при переходе на синтетический захватчик.
var (
	ErrDeviceInfoUnavailable = errors.New("подсистема перечисления устройств недоступна")
	ErrNoDevices             = errors.New("камеры не найдены")
	ErrDeviceInfoRead        = errors.New("не удалось прочитать данные устройства")
	ErrCapturerConstruction  = errors.New("не удалось создать захватчик для устройства")
)

// deviceFieldSize размер буфера имени и идентификатора устройства, включая завершающий ноль
const deviceFieldSize = 256

// DeviceInfo перечисление видеоустройств
type DeviceInfo interface {
	NumberOfDevices() int
	DeviceName(index int) (name, id string, err error)
}

// enumerateDevices заменяется в тестах
var enumerateDevices = mediadevices.EnumerateDevices

// mediaDevicesInfo снимок списка камер mediadevices
type mediaDevicesInfo struct {
	devices []mediadevices.MediaDeviceInfo
}

// OpenDeviceInfo перечисляет видеовходы через mediadevices.
// Паника драйвера при перечислении считается недоступностью подсистемы.
func OpenDeviceInfo() (info DeviceInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = fmt.Errorf("%w: %v", ErrDeviceInfoUnavailable, r)
		}
	}()

	all := enumerateDevices()
	videos := make([]mediadevices.MediaDeviceInfo, 0, len(all))
	for _, d := range all {
		if d.Kind == mediadevices.VideoInput {
			videos = append(videos, d)
		}
	}
	return &mediaDevicesInfo{devices: videos}, nil
}

func (i *mediaDevicesInfo) NumberOfDevices() int {
	return len(i.devices)
}

func (i *mediaDevicesInfo) DeviceName(index int) (string, string, error) {
	if index < 0 || index >= len(i.devices) {
		return "", "", fmt.Errorf("%w: индекс %d вне диапазона [0, %d)", ErrDeviceInfoRead, index, len(i.devices))
	}
	d := i.devices[index]
	return d.Label, d.DeviceID, nil
}

// truncateDeviceField обрезает значение до размера буфера устройства без разрыва UTF-8 символа
func truncateDeviceField(s string) string {
	limit := deviceFieldSize - 1
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
