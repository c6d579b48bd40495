package notify

import "fmt"

// Message is one customer email queued for delivery.
type Message struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars"`
}

// Validate rejects malformed messages before they reach the consumer.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("to is required")
	}
	if m.Template == "" {
		return fmt.Errorf("template is required")
	}
	return nil
}

// Subject lines per template; unknown templates fall back to a generic one.
var subjects = map[string]string{
	"order-confirmation":    "We've received your order",
	"order-ready":           "Your order is ready for collection",
	"order-fulfilled":       "Your order has been fulfilled",
	"order-cancelled":       "Your order has been cancelled",
	"order-refunded":        "Your order has been refunded",
	"order-action-required": "Your order needs attention",
}

// Subject resolves the email subject for a template.
func (m Message) Subject() string {
	if s, ok := subjects[m.Template]; ok {
		return s
	}
	return "An update on your order"
}
