// Package telemetry provides the process-wide structured logger, carried
// over from the teacher's common package: logrus with an OutputSplitter
// that routes error-level records to stderr and everything else to
// stdout, so container log collectors can treat the two streams
// differently.
package telemetry

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes a formatted logrus record to stderr when it is
// an error-level entry, stdout otherwise.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logger every package in this repository
// logs through.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(OutputSplitter{})
}

// New returns a child logger tagged with flow/profile/app fields, so log
// lines from a concurrent CmdExecution can be told apart.
func New(appName, profile, flowID string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"app":     appName,
		"profile": profile,
		"flow":    flowID,
	})
}

// SetFormat switches between logrus's text and JSON formatters, matching
// the teacher's ServiceConfig.LogFormat convention ("text" or "json").
func SetFormat(format string) {
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel parses level ("debug", "info", "warn", "error", ...) and
// applies it, falling back to Info on an unrecognized value.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}
