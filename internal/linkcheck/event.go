package linkcheck

import (
	"context"
	"time"
)

// BrokenLinkEvent is published for every broken link found during a check.
// Downstream consumers turn these into issues or dashboards.
type BrokenLinkEvent struct {
	URL    string `json:"url"`
	Status int    `json:"status"` // HTTP status, 0 for non-HTTP failures
	Error  string `json:"error"`

	// Where the link was written.
	Module   string `json:"module"`
	Source   string `json:"source"` // identity of the documented declaration
	Platform string `json:"platform,omitempty"`
	Text     string `json:"text,omitempty"`
	Line     int    `json:"line,omitempty"`

	// Failure tracking carried over from the result cache.
	Timestamp     time.Time `json:"timestamp"`
	LastChecked   time.Time `json:"last_checked,omitzero"`
	FailureCount  int       `json:"failure_count,omitempty"`
	FirstFailedAt time.Time `json:"first_failed_at,omitzero"`

	RunID string `json:"run_id,omitempty"`
}

// Publisher delivers broken-link events to interested consumers. The NATS
// cache doubles as one; a nil publisher drops events silently.
type Publisher interface {
	PublishBroken(ctx context.Context, event *BrokenLinkEvent) error
}
