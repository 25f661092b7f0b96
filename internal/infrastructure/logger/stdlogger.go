package logger

import (
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI цвета для уровней
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// StdLogger простой логгер на основе стандартного log пакета
type StdLogger struct {
	out          *log.Logger
	debugEnabled bool
	color        bool
}

// NewStdLogger создает новый логгер, пишущий в stderr.
// Цвет включается автоматически, если stderr является терминалом.
func NewStdLogger(debugEnabled bool) *StdLogger {
	fd := os.Stderr.Fd()
	return &StdLogger{
		out:          log.New(os.Stderr, "", log.LstdFlags),
		debugEnabled: debugEnabled,
		color:        isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// NewWriterLogger создает логгер без цвета, пишущий в w
func NewWriterLogger(w io.Writer, debugEnabled bool) *StdLogger {
	return &StdLogger{
		out:          log.New(w, "", log.LstdFlags),
		debugEnabled: debugEnabled,
	}
}

// Info логирует информационное сообщение
func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.out.Printf(msg, args...)
}

// Warn логирует предупреждение
func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.printf(colorYellow, "ВНИМАНИЕ: ", msg, args...)
}

// Error логирует сообщение об ошибке
func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.printf(colorRed, "ОШИБКА: ", msg, args...)
}

// Debug логирует отладочное сообщение
func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if l.debugEnabled {
		l.printf(colorGray, "DEBUG: ", msg, args...)
	}
}

func (l *StdLogger) printf(color, prefix, msg string, args ...interface{}) {
	if l.color {
		l.out.Printf(color+prefix+msg+colorReset, args...)
		return
	}
	l.out.Printf(prefix+msg, args...)
}

// Nop логгер, который ничего не пишет
type Nop struct{}

func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
func (Nop) Debug(string, ...interface{}) {}
