package engine

import (
	"strings"

	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// faqEntries is the static question list shown in the FAQ menu. Answers
// are matched by number or by keyword.
var faqEntries = []struct {
	Keyword string
	Answer  string
}{
	{"hours", "Tutors are available Monday to Saturday, 9:00–20:00."},
	{"deadline", "Homework submitted before 18:00 is reviewed the same day."},
	{"refund", "Unused lesson fees are refundable within 14 days — just ask support."},
	{"subjects", "We currently cover Math, English, Science and History."},
}

func registerFaq(t map[tkey]handler) {
	t[tkey{session.StateFaqMenu, intentAny}] = answerFaq
	t[tkey{session.StateFaqMenu, intent.IntentEndChat}] = leaveFaq
}

func startFaq(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	var sb strings.Builder
	sb.WriteString("Frequently asked questions — reply with a number:\n")
	sb.WriteString("1. What are your opening hours?\n")
	sb.WriteString("2. When is the homework deadline?\n")
	sb.WriteString("3. How do refunds work?\n")
	sb.WriteString("4. Which subjects do you cover?\n")
	sb.WriteString("Type *menu* to go back.")
	return Reply{
		Text:      sb.String(),
		NextState: e.setState(sess, session.StateFaqMenu),
	}, nil
}

func answerFaq(e *Engine, sess *session.Session, _ intent.Intent, input Input) (Reply, []event.Event) {
	text := strings.ToLower(strings.TrimSpace(input.Text))

	for i, entry := range faqEntries {
		if text == string(rune('1'+i)) || strings.Contains(text, entry.Keyword) {
			return Reply{
				Text:      entry.Answer + "\n\nAnother number, or *menu* to go back.",
				NextState: sess.State,
			}, nil
		}
	}

	return Reply{
		Text:      "Pick a question number from the list, or type *menu* to go back.",
		NextState: sess.State,
	}, nil
}

func leaveFaq(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	return e.menuReply(sess), nil
}
