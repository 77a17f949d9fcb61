package domain

import "time"

// ActivityEvent is an append-only report from the activity-detection
// collaborator (browser extension): the user went idle or navigated away
// from the focus context.
type ActivityEvent struct {
	ID        string
	UserID    string
	Kind      ActivityKind
	Context   string
	Timestamp time.Time
	CreatedAt time.Time
}
