// Package logger provides leveled logging for the appraisal service.
// All logging goes through the package-level functions; before Init is
// called they are no-ops, which keeps library tests quiet.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG]",
	InfoLevel:  "[INFO]",
	WarnLevel:  "[WARN]",
	ErrorLevel: "[ERROR]",
}

type leveledLogger struct {
	min Level
	out *log.Logger
}

var std *leveledLogger

// Init configures the package logger. Unknown levels fall back to info.
// The "text" format adds caller locations for local debugging.
func Init(level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}

	std = &leveledLogger{
		min: parseLevel(level),
		out: log.New(os.Stderr, "", flags),
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func emit(level Level, format string, args ...interface{}) {
	if std == nil || std.min > level {
		return
	}
	msg := fmt.Sprintf(levelTags[level]+" "+format, args...)
	_ = std.out.Output(3, msg)
}

func Debug(format string, args ...interface{}) {
	emit(DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	emit(InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	emit(WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	emit(ErrorLevel, format, args...)
}

func Fatal(format string, args ...interface{}) {
	if std != nil {
		_ = std.out.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	}
	os.Exit(1)
}
