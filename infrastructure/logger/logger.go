package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	env := os.Getenv("ENV")

	// LOG_TO_FILE=true forces file logging (legacy deployments); everything
	// else goes to stdout which plays nicer with systemd/docker.
	if os.Getenv("LOG_TO_FILE") == "true" {
		cwd, err := os.Getwd()
		if err == nil {
			logsDir := filepath.Join(cwd, "logs")
			if mkErr := os.MkdirAll(logsDir, 0o755); mkErr == nil {
				day := time.Now().Format("2006-01-02")
				filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", day, env))
				if f, openErr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); openErr == nil {
					logger.Out = f
				} else {
					log.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, openErr)
				}
			}
		}
	}

	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	if env == "prod" || env == "stage" {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(log.DebugLevel)
	}
}

// GetLogger returns an entry pre-populated with the calling function, file
// and line so handlers and repositories don't have to repeat themselves.
func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)
	functionObject := runtime.FuncForPC(function)
	return logger.WithFields(log.Fields{
		"function": functionObject.Name(),
		"file":     file,
		"line":     line,
	})
}
