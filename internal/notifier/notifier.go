// Package notifier pushes trade lifecycle events (open, close, liquidation)
// to an operator channel. Delivery is best effort; trading never blocks on it.
package notifier

type Notifier interface {
	SendText(text string) error
}

// Nop discards every message. Used when notifications are disabled.
type Nop struct{}

func (Nop) SendText(string) error { return nil }
