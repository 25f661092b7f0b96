package recording

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webcam-transfer/capture/internal/domain"
)

var (
	errWriterClosed = errors.New("запись уже закрыта")
	errNotI420      = errors.New("ожидается кадр I420")
)

// VideoWriter сохраняет кадры I420 в сырые .yuv файлы.
// При смене разрешения начинается новый файл.
type VideoWriter struct {
	mutex     sync.Mutex
	outputDir string
	sessionID string
	now       func() time.Time

	outputFile *os.File
	buffered   *bufio.Writer
	filePath   string
	width      int
	height     int
	part       int
	frames     int
	files      []string
	closed     bool
}

// NewVideoWriter создает новый экземпляр VideoWriter
func NewVideoWriter(outputDir, sessionID string) (*VideoWriter, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию: %w", err)
	}

	return &VideoWriter{
		outputDir: outputDir,
		sessionID: sessionID,
		now:       time.Now,
	}, nil
}

// WriteFrame записывает плоскости Y, Cb, Cr кадра в текущий файл
func (vw *VideoWriter) WriteFrame(f *domain.VideoFrame) error {
	if f == nil || f.Image == nil || f.Image.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return errNotI420
	}

	vw.mutex.Lock()
	defer vw.mutex.Unlock()

	if vw.closed {
		return errWriterClosed
	}

	b := f.Image.Bounds()
	if vw.outputFile == nil || b.Dx() != vw.width || b.Dy() != vw.height {
		if err := vw.rotateLocked(b.Dx(), b.Dy()); err != nil {
			return err
		}
	}

	if err := writePlanes(vw.buffered, f.Image); err != nil {
		return err
	}
	vw.frames++
	return nil
}

// rotateLocked закрывает текущий файл и открывает новый для нового разрешения
func (vw *VideoWriter) rotateLocked(width, height int) error {
	if err := vw.closeFileLocked(); err != nil {
		return err
	}

	// Генерируем имя файла на основе текущего времени
	timestamp := vw.now().Format("2006-01-02_15-04-05")
	vw.part++
	name := fmt.Sprintf("webcam_%s_%s_%02d_%dx%d.yuv", timestamp, vw.sessionID, vw.part, width, height)
	filePath := filepath.Join(vw.outputDir, name)

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("не удалось создать файл: %w", err)
	}

	vw.outputFile = file
	vw.buffered = bufio.NewWriter(file)
	vw.filePath = filePath
	vw.width, vw.height = width, height
	vw.files = append(vw.files, filePath)
	return nil
}

func writePlanes(w *bufio.Writer, img *image.YCbCr) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	for y := 0; y < height; y++ {
		off := img.YOffset(b.Min.X, b.Min.Y+y)
		if _, err := w.Write(img.Y[off : off+width]); err != nil {
			return err
		}
	}

	cw, ch := (width+1)/2, (height+1)/2
	for _, plane := range [][]byte{img.Cb, img.Cr} {
		for y := 0; y < ch; y++ {
			off := img.COffset(b.Min.X, b.Min.Y+2*y)
			if _, err := w.Write(plane[off : off+cw]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Files возвращает пути всех созданных файлов
func (vw *VideoWriter) Files() []string {
	vw.mutex.Lock()
	defer vw.mutex.Unlock()
	return append([]string(nil), vw.files...)
}

// Frames возвращает число записанных кадров
func (vw *VideoWriter) Frames() int {
	vw.mutex.Lock()
	defer vw.mutex.Unlock()
	return vw.frames
}

// Close закрывает файл
func (vw *VideoWriter) Close() error {
	vw.mutex.Lock()
	defer vw.mutex.Unlock()

	vw.closed = true
	return vw.closeFileLocked()
}

func (vw *VideoWriter) closeFileLocked() error {
	if vw.outputFile == nil {
		return nil
	}

	flushErr := vw.buffered.Flush()
	closeErr := vw.outputFile.Close()
	vw.outputFile = nil
	vw.buffered = nil
	return errors.Join(flushErr, closeErr)
}
