package identity

import "errors"

// errNotFound is returned when the identity service has no record of the
// requested payer or payment method. Client.GetRawPayer and
// Client.GetRawPaymentMethod map this to
// domain.NewPaymentMethodNotFoundError; it never reaches a client as-is.
var errNotFound = errors.New("identity: not found")

// IsNotFound reports whether err is the identity service's not-found
// response.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
