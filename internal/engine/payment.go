package engine

import (
	"fmt"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Payment is a handoff: the bot points at the external gateway and waits
// for the user to confirm. Confirmation is checked against the record
// store, which the gateway webhook (out of scope here) keeps current.
func registerPayment(t map[tkey]handler) {
	t[tkey{session.StatePaymentPending, intent.IntentConfirm}] = confirmPayment
	t[tkey{session.StatePaymentPending, intent.IntentPay}] = remindPayment
}

func startPayment(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	name := e.displayName(sess)
	return Reply{
		Text: fmt.Sprintf("%s, you can settle your fees at our payment page. "+
			"Tap *Confirm* here once you're done and I'll check on it.", name),
		Buttons: []delivery.Button{
			{ID: intent.ButtonConfirm, Label: "Confirm"},
			{ID: intent.ButtonCancel, Label: "Cancel"},
		},
		NextState: e.setState(sess, session.StatePaymentPending),
	}, nil
}

func remindPayment(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	return Reply{
		Text:      "You already have a payment in progress. Tap *Confirm* once it's done.",
		NextState: sess.State,
	}, nil
}

func confirmPayment(e *Engine, sess *session.Session, _ intent.Intent, _ Input) (Reply, []event.Event) {
	status := ""
	if e.records != nil {
		var err error
		status, err = e.records.PaymentStatus(sess.UserID)
		if err != nil {
			e.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("payment status lookup failed")
		}
	}

	if status != "confirmed" {
		return Reply{
			Text: "I can't see your payment yet — it can take a minute to land. " +
				"Tap *Confirm* again in a moment, or *cancel* to go back.",
			Buttons: []delivery.Button{
				{ID: intent.ButtonConfirm, Label: "Confirm"},
				{ID: intent.ButtonCancel, Label: "Cancel"},
			},
			NextState: sess.State,
		}, nil
	}

	sess.Data.Set(session.KeyPaymentRef, status)
	evt := event.New(event.TypePaymentConfirmed, sess.UserID, nil)

	return Reply{
		Text:      "Payment confirmed — thank you! Type *menu* whenever you need me.",
		Buttons:   menuButtons(),
		NextState: e.setState(sess, session.StatePaymentConfirmed),
	}, []event.Event{evt}
}
