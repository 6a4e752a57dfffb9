package delivery

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
)

// SlackAPI abstracts the Slack client for testing.
type SlackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackChannel delivers messages to Slack users or channels. Buttons are
// rendered as a Block Kit action block.
type SlackChannel struct {
	api    SlackAPI
	logger zerolog.Logger
}

// NewSlackChannel creates a Slack delivery channel from a bot token.
func NewSlackChannel(botToken string, logger zerolog.Logger) *SlackChannel {
	return &SlackChannel{
		api:    slack.New(botToken),
		logger: logger.With().Str("component", "slack_channel").Logger(),
	}
}

// NewSlackChannelWithAPI creates a Slack delivery channel with an injected
// API client. Tests use this.
func NewSlackChannelWithAPI(api SlackAPI, logger zerolog.Logger) *SlackChannel {
	return &SlackChannel{
		api:    api,
		logger: logger.With().Str("component", "slack_channel").Logger(),
	}
}

// Send posts text plus optional buttons to target. Slack API errors map to
// *errors.DeliveryError; rate limiting is marked retryable via status 429.
func (c *SlackChannel) Send(target, text string, buttons []Button) (Result, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(buttons) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(buildBlocks(text, ClampButtons(buttons))...))
	}

	_, ts, err := c.api.PostMessage(target, opts...)
	if err != nil {
		status := 0
		var rle *slack.RateLimitedError
		if errors.As(err, &rle) {
			status = 429
		}
		c.logger.Warn().Err(err).Str("target", target).Msg("slack post failed")
		return Result{}, &berrors.DeliveryError{
			Channel:    "slack",
			StatusCode: status,
			Message:    "post message",
			Err:        err,
		}
	}

	return Result{MessageID: ts}, nil
}

func buildBlocks(text string, buttons []Button) []slack.Block {
	elements := make([]slack.BlockElement, 0, len(buttons))
	for _, b := range buttons {
		elements = append(elements, slack.NewButtonBlockElement(
			b.ID, b.ID,
			slack.NewTextBlockObject("plain_text", b.Label, false, false),
		))
	}
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", text, false, false),
			nil, nil,
		),
		slack.NewActionBlock("reply_actions", elements...),
	}
}
