package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/config"
)

// InitLogger applies the configured level and format. Quiet runs only
// report warnings and errors so stdout stays free for references.
func InitLogger(cfg *config.Config) {
	SetLogLevel(cfg.LogLevel)
	if cfg.Quiet && log.GetLevel() > log.WarnLevel {
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

// InitFromEnv initializes logging from environment variables
func InitFromEnv() {
	SetLogLevel(os.Getenv("LOG_LEVEL"))
}

// SetLogLevel sets the log level based on string input
func SetLogLevel(logLevel string) {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func init() {
	InitFromEnv()
}
