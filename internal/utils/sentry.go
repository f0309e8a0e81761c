package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// InitSentry initializes Sentry for error tracking. An empty DSN disables
// reporting and returns false.
func InitSentry(dsn, environment string) (bool, error) {
	if dsn == "" {
		logrus.Info("SENTRY_DSN not set, error reporting disabled")
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		EnableTracing:    false,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}

	logrus.WithField("environment", environment).Info("Sentry initialized")
	return true, nil
}

// FlushSentry drains buffered events before exit
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
