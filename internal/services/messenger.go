package services

import (
	"context"
	"log"
)

// Messenger sends a WhatsApp text message through the configured gateway.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
}

// Delivery is the outcome of a best-effort outbound send. Callers on the
// webhook path always discard it after logging: a slow or failing gateway
// must never delay the webhook acknowledgement or trigger provider retries.
type Delivery struct {
	To   string
	Sent bool
	Err  error
}

// Deliver sends text to the recipient and logs the outcome. Failures are
// logged, never retried.
func Deliver(ctx context.Context, m Messenger, to, text string) Delivery {
	if m == nil {
		log.Printf("📤 Message to %s not sent - gateway not configured", to)
		return Delivery{To: to}
	}
	if err := m.SendText(ctx, to, text); err != nil {
		log.Printf("❌ Failed to send message to %s: %v", to, err)
		return Delivery{To: to, Err: err}
	}
	log.Printf("✅ Message sent to %s", to)
	return Delivery{To: to, Sent: true}
}
