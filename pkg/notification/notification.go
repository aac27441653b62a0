// Package notification delivers customer notifications off the request
// path. Publishers hand messages to per-channel actor mailboxes; delivery
// is at-least-once with bounded retries.
package notification

type Kind string

const (
	KindOrderPlaced        Kind = "order_placed"
	KindPaymentSucceeded   Kind = "payment_succeeded"
	KindPaymentFailed      Kind = "payment_failed"
	KindAccountDeactivated Kind = "account_deactivated"
)

type Message struct {
	Kind      Kind   `json:"kind"`
	OrderID   string `json:"order_id,omitempty"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	IsHTML    bool   `json:"is_html"`
}

// Publisher accepts a message for delivery without waiting for it.
type Publisher interface {
	Publish(msg Message)
}
