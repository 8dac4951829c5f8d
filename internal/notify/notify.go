// Package notify delivers claim instructions to credential recipients.
package notify

import (
	"context"
	"log/slog"

	id "crest/pkg/domain"
)

// ClaimNotice carries what a recipient needs to claim a certificate. Token is
// the plaintext claim token; it exists only here and in the recipient's inbox,
// the store keeps only its hash.
type ClaimNotice struct {
	Recipient    id.UserID
	CredentialID id.CredentialID
	Title        string
	Token        string
}

// Notifier delivers claim notices. Delivery is best-effort from the issuer's
// point of view; a lost notice is recoverable by re-issuing.
type Notifier interface {
	NotifyClaim(ctx context.Context, notice ClaimNotice) error
}

// LogNotifier writes notices to the structured log. It stands in for a mail or
// push channel in development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyClaim(ctx context.Context, notice ClaimNotice) error {
	n.logger.InfoContext(ctx, "claim notice",
		"recipient", notice.Recipient.String(),
		"credential_id", notice.CredentialID.String(),
		"title", notice.Title)
	return nil
}
