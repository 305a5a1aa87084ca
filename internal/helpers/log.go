package helpers

import (
	"fmt"
	"log"
	"strings"
)

type Logger interface {
	Println(v ...any)
	Printf(format string, v ...any)
	Print(v ...any)
}

type _defaultLogger struct {
}

func (l *_defaultLogger) Println(v ...any) {
	log.Println(v...)
}
func (l *_defaultLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}
func (l *_defaultLogger) Print(v ...any) {
	log.Print(v...)
}

var DefaultLogger = _defaultLogger{}

type _silentLogger struct {
}

func (l *_silentLogger) Println(v ...any) {
}
func (l *_silentLogger) Printf(format string, v ...any) {
}
func (l *_silentLogger) Print(v ...any) {
}

var SilentLogger = _silentLogger{}

type _funcLogger struct {
	write func(string)
}

// FuncLogger forwards every formatted message to write.
func FuncLogger(write func(string)) Logger {
	return &_funcLogger{write}
}

func (l *_funcLogger) Println(v ...any) {
	l.write(fmt.Sprintln(v...))
}
func (l *_funcLogger) Printf(format string, v ...any) {
	l.write(fmt.Sprintf(format, v...))
}
func (l *_funcLogger) Print(v ...any) {
	l.write(fmt.Sprint(v...))
}

type _prefixLogger struct {
	logger Logger
	prefix string
}

func PrefixLogger(logger Logger, prefix string) Logger {
	return &_prefixLogger{logger, prefix}
}

func (l *_prefixLogger) Println(v ...any) {
	l.logger.Print(l.prefix + fmt.Sprintln(v...))
}
func (l *_prefixLogger) Printf(format string, v ...any) {
	l.logger.Print(l.prefix + strings.TrimSuffix(fmt.Sprintf(format, v...), "\n") + "\n")
}
func (l *_prefixLogger) Print(v ...any) {
	l.logger.Print(l.prefix + fmt.Sprint(v...))
}
