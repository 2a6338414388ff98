package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityStatus classifies an activity log entry.
type ActivityStatus string

const (
	StatusStarted    ActivityStatus = "started"
	StatusInProgress ActivityStatus = "in_progress"
	StatusCompleted  ActivityStatus = "completed"
	StatusError      ActivityStatus = "error"
	StatusLoaded     ActivityStatus = "loaded"
)

// Frontend event channel names.
const (
	AnalysisActivity = "events:analysis:activity"
	AnalysisState    = "events:analysis:state"
	AnalysisDone     = "events:analysis:done"
)

// maxDetailLen bounds the detail text shown in the activity timeline.
const maxDetailLen = 240

// ActivityEntry is one observational entry in the analysis timeline. The log
// is append-only and never read back as control input.
type ActivityEntry struct {
	ID         string         `json:"id"`
	Status     ActivityStatus `json:"status"`
	Action     string         `json:"action"`
	Details    string         `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	SessionKey string         `json:"sessionKey,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "codeanalyzer/events/session"

// WithSession returns a derived context annotated with the given session key
// so event emitters can automatically scope payloads.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

// SessionFromContext extracts the session key associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

// NewActivity creates an activity entry with a fresh id and timestamp.
// Details longer than maxDetailLen are truncated.
func NewActivity(status ActivityStatus, action, details string) ActivityEntry {
	return ActivityEntry{
		ID:        uuid.NewString(),
		Status:    status,
		Action:    action,
		Details:   truncateDetails(details),
		Timestamp: time.Now(),
	}
}

func truncateDetails(details string) string {
	details = strings.TrimSpace(details)
	if len(details) <= maxDetailLen {
		return details
	}
	return details[:maxDetailLen] + "..."
}
