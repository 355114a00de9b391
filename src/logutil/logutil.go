package logutil

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName  = "screen_qr_debug.log"
	maxSizeMB    = 10
	maxArchives  = 3
	maxLogLength = 100
)

// logFilePath is where Setup writes when file logging is on.
var logFilePath = logFileName

// Setup enables file logging with size-based rotation (10MB, max 3 archives).
// When disabled, logs are discarded to keep stdout clean.
func Setup(enableFileLogging bool, level string) {
	log.SetLevel(parseLevel(level))
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(newFileSink(logFilePath))
}

func newFileSink(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxArchives,
	}
}

// SetupStderr routes logs to stderr, used by the CLI in verbose mode.
func SetupStderr(level string) {
	log.SetLevel(parseLevel(level))
	log.SetOutput(os.Stderr)
}

func parseLevel(level string) log.Level {
	if strings.TrimSpace(level) == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// SanitizeForLog truncates decoded payloads and escapes control characters
// so scanned content cannot forge log lines.
func SanitizeForLog(text string) string {
	if len(text) > maxLogLength {
		cut := maxLogLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
