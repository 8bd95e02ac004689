package payments

import "context"

// Payment is a created payment: the URL the user is redirected to and the
// provider-assigned id used for status checks.
type Payment struct {
	ID  string
	URL string
}

// StatusChecker checks whether a payment has completed
type StatusChecker interface {
	IsPaid(ctx context.Context, paymentID string) (bool, error)
}

// TrustChecker treats every payment as completed. Development only,
// enabled via PAYMENT_TRUST_MODE.
type TrustChecker struct{}

// IsPaid always reports the payment as completed
func (TrustChecker) IsPaid(ctx context.Context, paymentID string) (bool, error) {
	return true, nil
}
