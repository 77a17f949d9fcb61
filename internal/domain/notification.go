package domain

import "time"

// NotificationLog records one delivered digest: who it went to, when, and the
// serialized summary that was sent. It backs the digest aggregator's
// rate-limiting bookkeeping and is never read by the core.
type NotificationLog struct {
	ID      string
	UserID  string
	SentAt  time.Time
	Summary string
}
