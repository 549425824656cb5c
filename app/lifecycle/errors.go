package lifecycle

import "net/http"

// Error is a rejected transition. All of them surface as 409 except the
// actor and action checks.
type Error struct {
	msg    string
	status int
}

func (e *Error) Error() string   { return e.msg }
func (e *Error) StatusCode() int { return e.status }

var (
	ErrTransitionNotAllowed = &Error{"transition not allowed", http.StatusConflict}
	ErrShipmentLocked       = &Error{"shipment is locked", http.StatusConflict}
	ErrShipmentRegression   = &Error{"shipment status cannot move backwards", http.StatusConflict}
	ErrPaymentNotApproved   = &Error{"payment has not been approved", http.StatusConflict}
	ErrNoPayment            = &Error{"order has no payment", http.StatusConflict}
	ErrNoShipment           = &Error{"order has no shipment", http.StatusConflict}
	ErrProofRequired        = &Error{"upload a payment proof to move the order to review", http.StatusConflict}
	ErrAdminOnly            = &Error{"action requires an admin", http.StatusForbidden}
	ErrUnknownAction        = &Error{"unknown action", http.StatusUnprocessableEntity}
	ErrUnknownStatus        = &Error{"unknown status", http.StatusUnprocessableEntity}
)
