package domain

import "github.com/shopspring/decimal"

// ProviderAuthorizationHeadroom is the fraction over a payment intent's
// originally-authorized amount that most PSPs will still let a capture
// request exceed without a fresh authorization (Stripe documents this as
// a percentage of the original authorization). Kept as a decimal rather
// than a float so the boundary comparison below never drifts from rounding.
var ProviderAuthorizationHeadroom = decimal.NewFromFloat(0.15)

// WithinProviderAuthorizationLimit reports whether candidateAmount still
// fits under what the PSP authorized for originalAmount, i.e. whether an
// in-place amount bump can skip creating a brand-new payment intent.
func WithinProviderAuthorizationLimit(originalAmount, candidateAmount int64) bool {
	original := decimal.NewFromInt(originalAmount)
	limit := original.Add(original.Mul(ProviderAuthorizationHeadroom))
	return decimal.NewFromInt(candidateAmount).LessThanOrEqual(limit)
}
