/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

const bytesInMegabyte = 1024 * 1024

func openOutput(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputFile:
		return &lumberjack.Logger{
			Filename:   resolvePlaceholders(cfg.File.Path, time.Now()),
			MaxSize:    int(cfg.File.Rotation.MaxSize / bytesInMegabyte),
			MaxBackups: cfg.File.Rotation.MaxBackups,
			MaxAge:     cfg.File.Rotation.MaxAgeDays,
			Compress:   cfg.File.Rotation.Compress,
			LocalTime:  cfg.File.Rotation.LocalTimeInNames,
		}
	case OutputStderr:
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	errorEncoder := newErrorEncoder(cfg.Error)
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:     &noColor,
			EncodeTime:  logf.RFC3339NanoTimeEncoder,
			EncodeError: errorEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		EncodeError:  errorEncoder,
		FieldKeyTime: "time",
	}))
}

// newErrorEncoder returns nil (logf's default encoder) unless the error fields are customized.
func newErrorEncoder(cfg ErrorConfig) logf.ErrorEncoder {
	if cfg.VerboseSuffix == "" && !cfg.NoVerbose {
		return nil
	}
	return logf.NewErrorEncoder(logf.ErrorEncoderConfig{
		NoVerboseField:     cfg.NoVerbose,
		VerboseFieldSuffix: cfg.VerboseSuffix,
	})
}

// resolvePlaceholders substitutes {{starttime}} and {{pid}} in the log file path,
// so several instances of the service may write to the same directory.
func resolvePlaceholders(filePath string, startTime time.Time) string {
	return strings.NewReplacer(
		"{{starttime}}", startTime.Format("200601021504"),
		"{{pid}}", strconv.Itoa(os.Getpid()),
	).Replace(filePath)
}
