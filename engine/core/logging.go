package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "framecore 🎞️ ",
				// the wrappers below add one frame
				CallerOffset: 1,
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// SetLogLevel changes the level of the engine logger. Unknown levels are reported and
// leave the current level untouched.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		getLogger().Warnf("unknown log level `%s`, keeping `%s`", level, getLogger().GetLevel())
		return err
	}
	getLogger().SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the engine logger, mostly useful in tests.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
