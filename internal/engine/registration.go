package engine

import (
	"fmt"
	"strings"

	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Registration is a strict linear sequence: name → email → class. Each
// step records one data field and advances the state; the terminal step
// emits registration.complete.
func registerRegistration(t map[tkey]handler) {
	t[tkey{session.StateInitial, intentAny}] = startRegistration
	t[tkey{session.StateRegisteringName, intentAny}] = collectName
	t[tkey{session.StateRegisteringEmail, intentAny}] = collectEmail
	t[tkey{session.StateRegisteringClass, intentAny}] = collectClass
}

func startRegistration(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	return Reply{
		Text:      "Welcome to TutorDesk! I'll get you set up in a minute. What's your name?",
		NextState: e.setState(sess, session.StateRegisteringName),
	}, nil
}

func collectName(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	name := strings.TrimSpace(input.Text)
	if name == "" {
		return Reply{Text: "I just need your name to get started.", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeyName, name)
	return Reply{
		Text:      fmt.Sprintf("Nice to meet you, %s! What's your email address?", name),
		NextState: e.setState(sess, session.StateRegisteringEmail),
	}, nil
}

func collectEmail(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	email := strings.TrimSpace(input.Text)
	if !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		return Reply{Text: "That doesn't look like an email address — try again?", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeyEmail, email)
	return Reply{
		Text:      "Got it. And which class or grade are you in?",
		NextState: e.setState(sess, session.StateRegisteringClass),
	}, nil
}

func collectClass(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	class := strings.TrimSpace(input.Text)
	if class == "" {
		return Reply{Text: "Which class or grade are you in?", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeyClass, class)

	name := sess.Data.GetString(session.KeyName)
	email := sess.Data.GetString(session.KeyEmail)

	if e.records != nil {
		if err := e.records.SaveUser(sess.UserID, name, email, class); err != nil {
			e.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("saving user record failed")
		}
	}

	evt := event.New(event.TypeRegistrationComplete, sess.UserID, map[string]string{
		"name":  name,
		"email": email,
		"class": class,
	})

	return Reply{
		Text:      fmt.Sprintf("You're all set, %s! %s", name, msgMenu),
		Buttons:   menuButtons(),
		NextState: e.setState(sess, session.StateIdle),
	}, []event.Event{evt}
}
