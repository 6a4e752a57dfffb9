package delivery

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogChannel writes notifications to the log instead of a chat platform.
// Used when no Slack token is configured, so local runs exercise the full
// dispatch path.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-backed channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("component", "log_channel").Logger()}
}

// Send logs the message and always succeeds.
func (l *LogChannel) Send(target, text string, buttons []Button) (Result, error) {
	buttons = ClampButtons(buttons)
	labels := make([]string, 0, len(buttons))
	for _, b := range buttons {
		labels = append(labels, b.Label)
	}
	l.logger.Info().
		Str("target", target).
		Str("text", text).
		Strs("buttons", labels).
		Msg("notification (log only)")
	return Result{MessageID: uuid.New().String()}, nil
}
