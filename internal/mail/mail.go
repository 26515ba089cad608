// Package mail abstracts outbound transactional email (verification and
// reset messages). Sending is always best-effort from the caller's view.
package mail

import "context"

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Noop discards mail; used when no provider key is configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, to, subject, html string) error { return nil }
