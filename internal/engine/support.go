package engine

import (
	"time"

	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Live support traps the session: while SupportActive, every input except
// an explicit EndChat is a support message, even if it contains keywords
// that would otherwise trigger Support or Help. Each message lands in the
// transcript and alerts the operator channel. SupportActive is handled by
// handleSupportMode ahead of table dispatch, so no entries are registered
// for it.
func startSupport(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	evt := event.New(event.TypeSupportStarted, sess.UserID, map[string]string{
		"name": e.displayName(sess),
	})
	return Reply{
		Text: "You're connected — a tutor has been notified and will reply here. " +
			"Say *end chat* whenever you're done.",
		NextState: e.setState(sess, session.StateSupportActive),
	}, []event.Event{evt}
}

func handleSupportMode(e *Engine, sess *session.Session, in intent.Intent, input Input) (Reply, []event.Event) {
	if in == intent.IntentEndChat {
		evt := event.New(event.TypeSupportEnded, sess.UserID, map[string]string{
			"name": e.displayName(sess),
		})
		return Reply{
			Text:      "Chat closed. Thanks for talking to us! Type *menu* to see your options.",
			Buttons:   menuButtons(),
			NextState: e.setState(sess, session.StateIdle),
		}, []event.Event{evt}
	}

	text := input.Text
	if text == "" && input.MediaRef != "" {
		text = input.MediaRef
	}
	sess.Data.AppendMessage(session.KeyTranscript, session.MessageRecord{
		Text: text,
		At:   time.Now().UTC(),
	})

	evt := event.New(event.TypeSupportMessageReceived, sess.UserID, map[string]string{
		"name": e.displayName(sess),
		"text": text,
	})

	return Reply{
		Text:      "Passed along to your tutor.",
		NextState: sess.State,
	}, []event.Event{evt}
}
