package main

import "log"

// Logger is a tiny colored console logger. Each simulated driver carries its
// own tag so interleaved output stays readable.
type Logger struct {
	tag string
}

func NewLogger(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	log.Printf(Green+"[INFO] "+Reset+l.tag+" "+msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	log.Printf(Yellow+"[WARN] "+Reset+l.tag+" "+msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	log.Printf(Red+"[ERROR] "+Reset+l.tag+" "+msg, args...)
}

func (l *Logger) WebSocket(msg string, args ...interface{}) {
	log.Printf(Cyan+"[WS] "+Reset+l.tag+" "+msg, args...)
}

func (l *Logger) HTTP(msg string, args ...interface{}) {
	log.Printf(Gray+"[HTTP] "+Reset+l.tag+" "+msg, args...)
}
