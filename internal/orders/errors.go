package orders

import (
	"errors"

	"github.com/dukerupert/vidar/internal/domain"
)

// Typed failure outcomes of a dry-run or commit submission. These are
// mutually exclusive and none is retryable without operator
// intervention.
var (
	// ErrInsufficientStock: an added or increased line exceeds available
	// inventory.
	ErrInsufficientStock = domain.Errorf(domain.ECONFLICT, "", "Insufficient stock for one or more items")

	// ErrNegativeQuantity: a staged quantity resolved to zero or below.
	ErrNegativeQuantity = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")

	// ErrNoChangesSpecified: the submission contained no effective edits.
	ErrNoChangesSpecified = domain.Errorf(domain.EINVALID, "", "No changes were specified for the order modification")

	// ErrOrderLimit: the edit would exceed the configured maximum order
	// value or line count.
	ErrOrderLimit = domain.Errorf(domain.EINVALID, "", "Modification would exceed the order limit")

	// ErrOrderModificationState: the order is no longer in a state that
	// permits modification, e.g. after a concurrent transition.
	ErrOrderModificationState = domain.Errorf(domain.ECONFLICT, "", "Order is not in a modifiable state")

	// ErrPaymentMethodMissing: the commit requires a payment method
	// context that is absent.
	ErrPaymentMethodMissing = domain.Errorf(domain.EPAYMENT, "", "No payment method available to collect the additional amount")

	// ErrRefundPaymentIDMissing: a refund outcome was submitted without
	// a target payment id.
	ErrRefundPaymentIDMissing = domain.Errorf(domain.EPAYMENT, "", "A payment to refund against must be selected")

	// ErrOrderNotFound: the target order does not exist.
	ErrOrderNotFound = domain.Errorf(domain.ENOTFOUND, "", "Order not found")
)

// typedFailures is the closed set of modification failure outcomes.
// FailureMessage matches against every member; anything else is the
// safety-net unknown failure. Adding a variant here without a consumer
// update is caught by the exhaustiveness test.
var typedFailures = []error{
	ErrInsufficientStock,
	ErrNegativeQuantity,
	ErrNoChangesSpecified,
	ErrOrderLimit,
	ErrOrderModificationState,
	ErrPaymentMethodMissing,
	ErrRefundPaymentIDMissing,
	ErrOrderNotFound,
}

// IsTypedFailure reports whether err is one of the closed set of
// modification failure outcomes.
func IsTypedFailure(err error) bool {
	for _, sentinel := range typedFailures {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// FailureMessage returns the operator-facing message for a submission
// failure. Unrecognized errors report the generic internal message so
// no variant is ever silently swallowed.
func FailureMessage(err error) string {
	if IsTypedFailure(err) {
		return domain.ErrorMessage(err)
	}
	return domain.ErrorMessage(domain.Internal(err, "", ""))
}
