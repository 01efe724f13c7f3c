// Package logging builds the application's logrus logger and the audit helpers
// used by middleware and handlers.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/config"
)

// New returns a logger configured for cfg.Env: JSON lines in production,
// human readable text otherwise, nothing at all under test.
func New(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	switch {
	case cfg.IsProduction():
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.IsTest() {
		logger.SetOutput(io.Discard)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Audit fields shared by every audit entry.
const (
	FieldActor    = "actor"
	FieldResource = "resource"
	FieldAction   = "action"
	FieldOutcome  = "outcome"
	FieldReason   = "reason"
)

// Audit starts an audit entry for actor acting on resource.
func Audit(log logrus.FieldLogger, actor, action, resource string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		FieldActor:    actor,
		FieldAction:   action,
		FieldResource: resource,
	})
}

// Denied records a refused operation at warn level.
func Denied(log logrus.FieldLogger, actor, action, resource, reason string) {
	Audit(log, actor, action, resource).
		WithField(FieldOutcome, "denied").
		WithField(FieldReason, reason).
		Warn("access denied")
}

// Succeeded records a completed state-changing operation at info level.
func Succeeded(log logrus.FieldLogger, actor, action, resource string) {
	Audit(log, actor, action, resource).
		WithField(FieldOutcome, "success").
		Info(action)
}
