package sandwich

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConsoleLogger builds a human-readable console logger, matching the
// teacher's root main.go default logger.
func NewConsoleLogger(level zerolog.Level) *zerolog.Logger {
	l := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.Stamp,
	}).With().Timestamp().Logger().Level(level)

	return &l
}

// NewFileLogger builds a logger that writes newline-delimited JSON to a
// rotating file, for deployments that want structured logs without the
// teacher's bare os.Stdout console writer. Rotation is handled by
// lumberjack, the library the retrieval pack's sibling daemon project
// uses for this exact purpose.
func NewFileLogger(path string, level zerolog.Level) *zerolog.Logger {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	l := zerolog.New(writer).With().Timestamp().Logger().Level(level)

	return &l
}
