// Package events carries the session lifecycle's observability extension
// points. Sinks are best effort: publishing never fails the caller.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types
const (
	TokenIssued       = "token.issued"
	TokenRotated      = "token.rotated"
	TokenRotateFailed = "token.rotate_failed"
	TokenRevoked      = "token.revoked"
	TokensRevokedAll  = "tokens.revoked_all"
	LineagePurged     = "lineage.purged"
	SessionRevoked    = "session.revoked"
	ReaperSweep       = "reaper.sweep"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Failure kinds carried by token.rotate_failed
const (
	KindNotFound           = "token_not_found"
	KindExpired            = "token_expired"
	KindReuseDetected      = "reuse_detected"
	KindRotationLimit      = "rotation_limit_exceeded"
	KindStorageUnavailable = "storage_unavailable"
)

// Event describes one lifecycle step. Secrets never appear here.
type Event struct {
	Type      string    `json:"type"`
	Outcome   string    `json:"outcome"`
	Kind      string    `json:"kind,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	TokenID   string    `json:"token_id,omitempty"`
	LineageID string    `json:"lineage_id,omitempty"`
	Count     int64     `json:"count,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher receives lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to every sink in order
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// LogPublisher writes events as structured log lines
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher logs through logger, or the standard logrus logger when nil
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) {
	fields := logrus.Fields{
		"event":   event.Type,
		"outcome": event.Outcome,
	}
	if event.Kind != "" {
		fields["kind"] = event.Kind
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.TokenID != "" {
		fields["token_id"] = event.TokenID
	}
	if event.LineageID != "" {
		fields["lineage_id"] = event.LineageID
	}
	if event.Count != 0 {
		fields["count"] = event.Count
	}
	entry := p.logger.WithFields(fields)

	switch {
	case event.Kind == KindReuseDetected || event.Kind == KindRotationLimit:
		entry.Warn("Session security event")
	case event.Outcome == OutcomeFailure:
		entry.Info("Session event failed")
	default:
		entry.Debug("Session event")
	}
}
