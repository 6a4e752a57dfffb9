package engine

import (
	"fmt"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Canonical response texts.
const (
	msgClarify = "Sorry, I didn't quite get that. Type *menu* to see what I can do, or *help* for a hint."

	msgMenu = "What would you like to do?\n" +
		"• *homework* — submit your homework\n" +
		"• *pay* — settle an open fee\n" +
		"• *support* — chat with a tutor\n" +
		"• *faq* — frequently asked questions"

	msgCancelled = "Okay, cancelled. Back to the main menu."
)

func menuButtons() []delivery.Button {
	return []delivery.Button{
		{ID: intent.ButtonHomework, Label: "Submit homework"},
		{ID: intent.ButtonPay, Label: "Pay fees"},
		{ID: intent.ButtonSupport, Label: "Tutor support"},
	}
}

// menuReply is the canonical "show menu" response. Users who haven't
// registered yet are routed into registration instead.
func (e *Engine) menuReply(sess *session.Session) Reply {
	switch sess.State {
	case session.StateInitial, session.StateRegisteringName,
		session.StateRegisteringEmail, session.StateRegisteringClass:
		return Reply{
			Text:      "Let's get you registered first. What's your name?",
			NextState: e.setState(sess, session.StateRegisteringName),
		}
	}
	name := e.displayName(sess)
	return Reply{
		Text:      fmt.Sprintf("Hi %s! %s", name, msgMenu),
		Buttons:   menuButtons(),
		NextState: e.setState(sess, session.StateIdle),
	}
}

// handleCancel aborts any in-flight flow and returns to the menu. Fields
// already collected are kept or cleared per configuration; finalized
// entities are never touched.
func handleCancel(e *Engine, sess *session.Session) (Reply, []event.Event) {
	switch sess.State {
	case session.StateInitial, session.StateRegisteringName,
		session.StateRegisteringEmail, session.StateRegisteringClass:
		if !e.cfg.KeepPartialDataOnCancel {
			sess.Data = session.NewData()
		}
		return Reply{
			Text:      "Registration cancelled. Say *hi* whenever you want to pick it up again.",
			NextState: e.setState(sess, session.StateInitial),
		}, nil
	}

	if !e.cfg.KeepPartialDataOnCancel {
		clearFlowData(sess)
	}
	return Reply{
		Text:      msgCancelled,
		Buttons:   menuButtons(),
		NextState: e.setState(sess, session.StateIdle),
	}, nil
}

// clearFlowData removes fields collected by unfinished flows, leaving
// identity fields intact.
func clearFlowData(sess *session.Session) {
	kept := session.NewData()
	for _, k := range sess.Data.Keys() {
		switch k {
		case session.KeyName, session.KeyEmail, session.KeyClass:
			kept.Set(k, sess.Data.Get(k))
		}
	}
	sess.Data = kept
}

// setState mutates the session state and returns it, keeping handlers
// terse. All state changes inside the engine funnel through here.
func (e *Engine) setState(sess *session.Session, st session.State) session.State {
	sess.State = st
	return st
}

// registerMenu wires the states whose behavior is "show the menu again".
func registerMenu(t map[tkey]handler) {
	idleLike := []session.State{session.StateIdle, session.StateRegistered, session.StatePaymentConfirmed}
	for _, st := range idleLike {
		t[tkey{st, intent.IntentHomework}] = startSubmission
		t[tkey{st, intent.IntentPay}] = startPayment
		t[tkey{st, intent.IntentSupport}] = startSupport
		t[tkey{st, intent.IntentFaq}] = startFaq
	}
}

func buildFallbacks() map[session.State]string {
	return map[session.State]string{
		session.StateIdle:              msgClarify,
		session.StateRegistered:        msgClarify,
		session.StateRegisteringName:   "I just need your name to get started.",
		session.StateRegisteringEmail:  "Please send me your email address.",
		session.StateRegisteringClass:  "Which class or grade are you in?",
		session.StateSubmissionSubject: "Which subject is this homework for? (e.g. Math, English)",
		session.StateSubmissionType:    "What kind of work is it? (e.g. essay, worksheet, photo)",
		session.StateSubmissionContent: "Send the work itself — paste the text or attach an image.",
		session.StateSubmissionSubmitted: "Tap *Submit* to send it in, or *cancel* to discard.",
		session.StatePaymentPending:    "Tap *Confirm* once you've completed the payment, or *cancel* to go back.",
		session.StateFaqMenu:           "Pick a question number from the list, or type *menu* to go back.",
	}
}
