// Package delivery defines the outbound message channel consumed by the
// notification dispatcher, plus the Slack-backed implementation.
package delivery

// Button is one reply button attached to an outbound message.
type Button struct {
	ID    string
	Label string
}

// Limits enforced at the channel boundary.
const (
	MaxButtons     = 3
	MaxButtonLabel = 20
)

// Result reports the outcome of one send.
type Result struct {
	MessageID string
}

// Channel sends a text/button payload to an address. Implementations map
// transport failures to *errors.DeliveryError so the dispatcher can decide
// retryability.
type Channel interface {
	Send(target, text string, buttons []Button) (Result, error)
}

// ClampButtons trims the button set to the channel limits: at most
// MaxButtons buttons, labels truncated to MaxButtonLabel runes.
func ClampButtons(buttons []Button) []Button {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	out := make([]Button, len(buttons))
	for i, b := range buttons {
		label := []rune(b.Label)
		if len(label) > MaxButtonLabel {
			label = label[:MaxButtonLabel]
		}
		out[i] = Button{ID: b.ID, Label: string(label)}
	}
	return out
}
