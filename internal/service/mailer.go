package service

import (
	"context"
	"log/slog"
)

// logMailer writes digests to the log instead of delivering mail. It is the
// default Mailer until an SMTP collaborator is configured.
type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a Mailer that records each digest via slog.
func NewLogMailer(logger *slog.Logger) Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) SendDigest(ctx context.Context, to string, summary DigestSummary) error {
	m.logger.InfoContext(ctx, "digest",
		"to", to,
		"completed_tasks", len(summary.CompletedTasks),
		"pending_tasks", len(summary.PendingTasks),
		"pet_vitality", summary.PetVitality,
		"pet_mood", summary.PetMood,
		"gems", summary.Gems,
	)
	return nil
}
