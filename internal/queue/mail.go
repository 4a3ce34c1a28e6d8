package queue

import (
	"context"

	"github.com/iliyamo/bearer-auth-api/internal/mailer"
	"github.com/iliyamo/bearer-auth-api/internal/metrics"
)

// MailHandler delivers events through m.  It is what the worker consumers
// and the inline publisher run.
func MailHandler(m mailer.Mailer, met *metrics.Metrics) Handler {
	return func(ctx context.Context, ev PasswordResetRequested) error {
		err := m.SendPasswordReset(ctx, mailer.PasswordResetMail{
			To:        ev.Email,
			FirstName: ev.FirstName,
			ResetURL:  ev.ResetURL,
			ExpiresIn: ev.ExpiresIn,
		})
		if err != nil {
			met.Mail("delivery_failed")
			return err
		}
		met.Mail("delivered")
		return nil
	}
}
