// Package payments is the seam to the external billing collaborator
// used by the feature-listing flow. The provider itself stays opaque.
package payments

import (
	"context"
	"errors"
)

var ErrPaymentNotVerified = errors.New("payment not verified")

// Provider confirms that a client-supplied payment reference settles the
// given amount.
type Provider interface {
	VerifyPayment(ctx context.Context, reference string, amountCents int64) error
}

// Manual accepts any non-empty reference. Stands in until a real
// provider is wired; references are still recorded by the caller's logs.
type Manual struct{}

func (Manual) VerifyPayment(ctx context.Context, reference string, amountCents int64) error {
	if reference == "" {
		return ErrPaymentNotVerified
	}
	return nil
}
