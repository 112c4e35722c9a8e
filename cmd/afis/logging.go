package main

import (
	"fmt"
	"io"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"

	"github.com/high-horse/sourceafis/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger writes to stderr and, when LogFile is set, to a daily rotated file.
func newLogger(p config.ServerParameters) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(p.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", p.LogLevel, err)
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	var closer io.Closer = nopCloser{}
	if p.LogFile != "" {
		rl, err := rotatelogs.New(
			p.LogFile+".%Y%m%d",
			rotatelogs.WithLinkName(p.LogFile),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(p.LogMaxAge),
		)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file %s: %w", p.LogFile, err)
		}
		writers = append(writers, rl)
		closer = rl
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return log, closer, nil
}
