package engine

import (
	"fmt"
	"strings"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Homework submission is a strict linear sequence: subject → kind →
// content → explicit confirm. The terminal step writes the submission
// record and emits submission.confirmed.
func registerSubmission(t map[tkey]handler) {
	t[tkey{session.StateSubmissionSubject, intentAny}] = collectSubject
	t[tkey{session.StateSubmissionType, intentAny}] = collectKind
	t[tkey{session.StateSubmissionContent, intentAny}] = collectContent
	t[tkey{session.StateSubmissionSubmitted, intent.IntentConfirm}] = finalizeSubmission
}

func startSubmission(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	return Reply{
		Text:      "Let's submit your homework. Which subject is it for? (e.g. Math, English)",
		NextState: e.setState(sess, session.StateSubmissionSubject),
	}, nil
}

func collectSubject(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	subject := strings.TrimSpace(input.Text)
	if subject == "" {
		return Reply{Text: "Which subject is this homework for?", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeySubject, subject)
	return Reply{
		Text:      fmt.Sprintf("%s, noted. What kind of work is it? (e.g. essay, worksheet, photo)", subject),
		NextState: e.setState(sess, session.StateSubmissionType),
	}, nil
}

func collectKind(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	kind := strings.TrimSpace(input.Text)
	if kind == "" {
		return Reply{Text: "What kind of work is it? (e.g. essay, worksheet, photo)", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeyKind, kind)
	return Reply{
		Text:      "Now send the work itself — paste the text or attach an image.",
		NextState: e.setState(sess, session.StateSubmissionContent),
	}, nil
}

func collectContent(e *Engine, sess *session.Session, in intent.Intent, input Input) (Reply, []event.Event) {
	ref := input.MediaRef
	if ref == "" {
		ref = strings.TrimSpace(input.Text)
	}
	if ref == "" {
		return Reply{Text: "Send the work itself — paste the text or attach an image.", NextState: sess.State}, nil
	}
	sess.Data.Set(session.KeyContentRef, ref)

	received := "your text"
	if in == intent.IntentImage {
		received = "your image"
	}
	return Reply{
		Text: fmt.Sprintf("I've got %s for %s (%s). Submit it?",
			received, sess.Data.GetString(session.KeySubject), sess.Data.GetString(session.KeyKind)),
		Buttons: []delivery.Button{
			{ID: intent.ButtonConfirm, Label: "Submit"},
			{ID: intent.ButtonCancel, Label: "Cancel"},
		},
		NextState: e.setState(sess, session.StateSubmissionSubmitted),
	}, nil
}

func finalizeSubmission(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	subject := sess.Data.GetString(session.KeySubject)
	kind := sess.Data.GetString(session.KeyKind)
	contentRef := sess.Data.GetString(session.KeyContentRef)

	if e.records != nil {
		if _, err := e.records.CreateSubmission(sess.UserID, subject, kind, contentRef); err != nil {
			e.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("saving submission record failed")
		}
	}

	evt := event.New(event.TypeSubmissionConfirmed, sess.UserID, map[string]string{
		"subject": subject,
		"kind":    kind,
	})

	return Reply{
		Text:      "Submitted! A tutor will take a look shortly. Anything else? Type *menu* to see your options.",
		Buttons:   menuButtons(),
		NextState: e.setState(sess, session.StateIdle),
	}, []event.Event{evt}
}
