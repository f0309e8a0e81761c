package events

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SentryPublisher reports security incidents and storage outages
type SentryPublisher struct {
	hub *sentry.Hub
}

// NewSentryPublisher reports through hub, or the current hub when nil
func NewSentryPublisher(hub *sentry.Hub) *SentryPublisher {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryPublisher{hub: hub}
}

func (p *SentryPublisher) Publish(_ context.Context, event Event) {
	if event.Type != TokenRotateFailed {
		return
	}
	level := sentry.LevelWarning
	switch event.Kind {
	case KindReuseDetected, KindRotationLimit:
	case KindStorageUnavailable:
		level = sentry.LevelError
	default:
		return
	}

	p.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("event", event.Type)
		scope.SetTag("kind", event.Kind)
		if event.UserID != "" {
			scope.SetUser(sentry.User{ID: event.UserID, IPAddress: event.IPAddress})
		}
		scope.SetContext("session", sentry.Context{
			"token_id":   event.TokenID,
			"lineage_id": event.LineageID,
			"count":      event.Count,
		})
		p.hub.CaptureMessage("refresh token rotation failed: " + event.Kind)
	})
}
