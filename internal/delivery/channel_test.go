package delivery

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
)

func TestClampButtons(t *testing.T) {
	buttons := []Button{
		{ID: "a", Label: "One"},
		{ID: "b", Label: strings.Repeat("x", 30)},
		{ID: "c", Label: "Three"},
		{ID: "d", Label: "Dropped"},
	}

	out := ClampButtons(buttons)
	require.Len(t, out, MaxButtons)
	assert.Equal(t, "One", out[0].Label)
	assert.Len(t, []rune(out[1].Label), MaxButtonLabel)
	assert.Equal(t, "c", out[2].ID)

	// Input slice is untouched.
	assert.Len(t, []rune(buttons[1].Label), 30)
}

func TestClampButtons_MultibyteLabels(t *testing.T) {
	out := ClampButtons([]Button{{ID: "a", Label: strings.Repeat("ü", 25)}})
	assert.Len(t, []rune(out[0].Label), MaxButtonLabel)
}

type fakeSlackAPI struct {
	err      error
	channels []string
	options  int
}

func (f *fakeSlackAPI) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	f.options = len(options)
	if f.err != nil {
		return "", "", f.err
	}
	return channelID, "1724659200.000100", nil
}

func TestSlackChannel_Send(t *testing.T) {
	api := &fakeSlackAPI{}
	c := NewSlackChannelWithAPI(api, zerolog.Nop())

	res, err := c.Send("U123", "hello", []Button{{ID: "confirm", Label: "Confirm"}})
	require.NoError(t, err)
	assert.Equal(t, "1724659200.000100", res.MessageID)
	assert.Equal(t, []string{"U123"}, api.channels)
	assert.Equal(t, 2, api.options) // text + blocks
}

func TestSlackChannel_SendWithoutButtons(t *testing.T) {
	api := &fakeSlackAPI{}
	c := NewSlackChannelWithAPI(api, zerolog.Nop())

	_, err := c.Send("U123", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, api.options)
}

func TestSlackChannel_ErrorMapsToDeliveryError(t *testing.T) {
	api := &fakeSlackAPI{err: errors.New("channel_not_found")}
	c := NewSlackChannelWithAPI(api, zerolog.Nop())

	_, err := c.Send("U123", "hello", nil)
	require.Error(t, err)

	var de *berrors.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "slack", de.Channel)
	assert.Equal(t, 0, de.StatusCode)
	// Transport-level failures stay retryable.
	assert.True(t, berrors.IsRetryable(err))
}

func TestSlackChannel_RateLimitIsRetryable(t *testing.T) {
	api := &fakeSlackAPI{err: &slack.RateLimitedError{}}
	c := NewSlackChannelWithAPI(api, zerolog.Nop())

	_, err := c.Send("U123", "hello", nil)
	require.Error(t, err)

	var de *berrors.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 429, de.StatusCode)
	assert.True(t, berrors.IsRetryable(err))
}

func TestFakeChannel_ScriptedFailures(t *testing.T) {
	f := NewFakeChannel()
	f.FailFirst("u1", 1, errors.New("boom"))

	_, err := f.Send("u1", "first", nil)
	assert.Error(t, err)

	res, err := f.Send("u1", "second", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, 2, f.SendCount("u1"))
}

func TestLogChannel_AlwaysSucceeds(t *testing.T) {
	c := NewLogChannel(zerolog.Nop())
	res, err := c.Send("u1", "hello", []Button{{ID: "a", Label: "A"}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
}
