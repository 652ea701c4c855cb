// Package notify defines the notification collaborator used by automation
// actions. The transport (email, chat, websocket) lives outside this
// service; implementations here either log or record for tests.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Notification is one outbound message.
type Notification struct {
	Template   string            `json:"template"`
	Recipients []string          `json:"recipients"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// =============================================================================
// LOG NOTIFIER - Default delivery: structured log lines
// =============================================================================

// LogNotifier writes notifications to a structured log. Used when no real
// transport is wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"template", n.Template,
		"recipients", n.Recipients,
		"subject", n.Subject,
	)
	return nil
}

// =============================================================================
// RECORDER - Test double
// =============================================================================

// Recorder captures notifications for assertions. FailWith, when set, is
// returned from every Send.
type Recorder struct {
	mu       sync.Mutex
	Sent     []Notification
	FailWith error
}

func (r *Recorder) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.Sent = append(r.Sent, n)
	return nil
}

// Count returns how many notifications were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Sent)
}
