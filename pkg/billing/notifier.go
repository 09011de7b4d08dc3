package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/email"
)

// Notifier receives billing lifecycle notices. Implementations must never
// block or fail the triggering operation; delivery problems are theirs to
// log and swallow.
type Notifier interface {
	CancellationScheduled(ctx context.Context, userID uuid.UUID)
	SubscriptionEnded(ctx context.Context, userID uuid.UUID)
	PaymentFailed(ctx context.Context, userID uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) CancellationScheduled(context.Context, uuid.UUID) {}
func (noopNotifier) SubscriptionEnded(context.Context, uuid.UUID)     {}
func (noopNotifier) PaymentFailed(context.Context, uuid.UUID)         {}

// EmailLookup resolves a user's email address. Account data lives outside
// this service, so the address comes from the caller's user directory.
type EmailLookup func(ctx context.Context, userID uuid.UUID) (string, error)

type emailNotifier struct {
	sender email.EmailSender
	lookup EmailLookup
	log    *slog.Logger
}

// NewEmailNotifier returns a Notifier that emails the user about billing
// events. Send failures are logged, never propagated.
func NewEmailNotifier(sender email.EmailSender, lookup EmailLookup, log *slog.Logger) Notifier {
	if sender == nil {
		panic("billing: email sender is required")
	}
	if lookup == nil {
		panic("billing: email lookup is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &emailNotifier{sender: sender, lookup: lookup, log: log}
}

func (n *emailNotifier) send(ctx context.Context, userID uuid.UUID, tag, subject, body string) {
	addr, err := n.lookup(ctx, userID)
	if err != nil {
		n.log.WarnContext(ctx, "billing notice skipped: no email for user", "user_id", userID, "tag", tag, "error", err)
		return
	}

	err = n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  subject,
		BodyHTML: body,
		Tag:      tag,
	})
	if err != nil {
		n.log.ErrorContext(ctx, "billing notice delivery failed", "user_id", userID, "tag", tag, "error", err)
	}
}

func (n *emailNotifier) CancellationScheduled(ctx context.Context, userID uuid.UUID) {
	n.send(ctx, userID, "cancellation-scheduled",
		"Your subscription has been cancelled",
		"<p>Your subscription will remain active until the end of the current billing period. You can reactivate it at any time before then.</p>")
}

func (n *emailNotifier) SubscriptionEnded(ctx context.Context, userID uuid.UUID) {
	n.send(ctx, userID, "subscription-ended",
		"Your subscription has ended",
		"<p>Your paid plan has ended and your account is back on the Basic plan. Your courses and purchased AI minutes are untouched.</p>")
}

func (n *emailNotifier) PaymentFailed(ctx context.Context, userID uuid.UUID) {
	n.send(ctx, userID, "payment-failed",
		"We could not process your payment",
		"<p>Your last subscription payment failed. Please update your payment method to keep your plan active.</p>")
}
