// Package engine computes conversation responses. Given the current
// session and one inbound input it produces a reply, the next state, and
// zero or more domain events. It never performs delivery itself.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

// Input is one inbound message from the chat collaborator.
type Input struct {
	UserID   string
	Text     string
	ButtonID string
	MediaRef string
}

// Reply is the synchronous response to one inbound message.
type Reply struct {
	Text      string
	Buttons   []delivery.Button
	NextState session.State
}

// Records is the read/write surface of the persistent record store the
// engine consumes. All calls are simple key operations; failures degrade
// the response, never the transition.
type Records interface {
	DisplayName(userID string) (string, error)
	SaveUser(userID, name, email, class string) error
	CreateSubmission(userID, subject, kind, contentRef string) (string, error)
	PaymentStatus(userID string) (string, error)
}

// EventSink receives domain events emitted by transitions. Publishing must
// not block; the notification subsystem guarantees that.
type EventSink interface {
	Publish(evt event.Event)
}

// Recorder receives engine metrics. Nil disables them.
type Recorder interface {
	RecordMessage(in, state string)
	RecordError(module, errType string)
}

// Config holds engine settings.
type Config struct {
	// KeepPartialDataOnCancel preserves fields already collected by a
	// multi-step flow when the user cancels mid-flow. Matches the
	// reference behavior when true.
	KeepPartialDataOnCancel bool
}

// Engine is the state transition engine.
type Engine struct {
	sessions  *session.Store
	extractor *intent.Extractor
	records   Records
	sink      EventSink
	metrics   Recorder
	cfg       Config
	table     map[tkey]handler
	fallback  map[session.State]string
	logger    zerolog.Logger
}

// handler computes one transition. It runs with the session's shard lock
// held and must not block.
type handler func(e *Engine, sess *session.Session, in intent.Intent, input Input) (Reply, []event.Event)

type tkey struct {
	state session.State
	in    intent.Intent
}

// intentAny is the table wildcard: matched when no (state, intent) entry
// exists for the exact intent.
const intentAny = intent.Intent("*")

// New creates an engine. records, sink and metrics may be nil.
func New(sessions *session.Store, extractor *intent.Extractor, records Records, sink EventSink, metrics Recorder, cfg Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		sessions:  sessions,
		extractor: extractor,
		records:   records,
		sink:      sink,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
	e.table = buildTable()
	e.fallback = buildFallbacks()
	return e
}

// Transition processes one inbound message and returns the reply. The
// whole read-decide-mutate step runs under the session store's per-user
// lock, so concurrent messages from the same user are serialized.
func (e *Engine) Transition(input Input) Reply {
	in := e.classify(input)

	var reply Reply
	var events []event.Event

	e.sessions.Update(input.UserID, func(sess *session.Session) {
		if !sess.State.IsValid() {
			// Corrupted state: answer generically, leave the stored
			// state untouched.
			e.logger.Error().
				Str("user_id", input.UserID).
				Str("state", string(sess.State)).
				Msg("invalid session state")
			if e.metrics != nil {
				e.metrics.RecordError("engine", "invalid_state")
			}
			reply = Reply{Text: msgClarify, NextState: sess.State}
			return
		}
		reply, events = e.dispatch(sess, in, input)
	})

	if e.metrics != nil {
		e.metrics.RecordMessage(string(in), string(reply.NextState))
	}

	// Events are published outside the session lock. The sink never
	// blocks, so the reply is not delayed.
	if e.sink != nil {
		for _, evt := range events {
			e.sink.Publish(evt)
		}
	}

	e.logger.Debug().
		Str("user_id", input.UserID).
		Str("intent", string(in)).
		Str("next_state", string(reply.NextState)).
		Int("events", len(events)).
		Msg("transition")

	return reply
}

// classify maps the raw input to an intent. Buttons bypass keyword rules;
// attached media resolves otherwise-unmatched input to IntentImage.
func (e *Engine) classify(input Input) intent.Intent {
	if input.ButtonID != "" {
		return e.extractor.Extract(input.ButtonID, true)
	}
	in := e.extractor.Extract(input.Text, false)
	if in == intent.IntentUnknown && input.MediaRef != "" {
		return intent.IntentImage
	}
	return in
}

// dispatch applies the support-mode override, then the global menu
// overrides, then the explicit transition table.
func (e *Engine) dispatch(sess *session.Session, in intent.Intent, input Input) (Reply, []event.Event) {
	// SupportActive traps everything except EndChat: keywords that would
	// normally trigger Support or Help are support messages here.
	if sess.State == session.StateSupportActive {
		return handleSupportMode(e, sess, in, input)
	}

	// Global overrides: menu navigation works from any other state.
	switch in {
	case intent.IntentCancel:
		return handleCancel(e, sess)
	case intent.IntentHelp, intent.IntentMainMenu:
		return e.menuReply(sess), nil
	}

	if h, ok := e.table[tkey{sess.State, in}]; ok {
		return h(e, sess, in, input)
	}
	if h, ok := e.table[tkey{sess.State, intentAny}]; ok {
		return h(e, sess, in, input)
	}

	// Unmatched (state, intent): state-specific clarification, no state
	// change, no events.
	text := e.fallback[sess.State]
	if text == "" {
		text = msgClarify
	}
	return Reply{Text: text, NextState: sess.State}, nil
}

// displayName resolves the user's display name, preferring session data
// over the record store and degrading to the raw user ID.
func (e *Engine) displayName(sess *session.Session) string {
	if name := sess.Data.GetString(session.KeyName); name != "" {
		return name
	}
	if e.records != nil {
		if name, err := e.records.DisplayName(sess.UserID); err == nil && name != "" {
			return name
		}
	}
	return sess.UserID
}

// buildTable assembles the explicit (state, intent) transition table from
// the per-flow entries.
func buildTable() map[tkey]handler {
	t := make(map[tkey]handler)
	registerRegistration(t)
	registerSubmission(t)
	registerPayment(t)
	registerFaq(t)
	registerMenu(t)
	return t
}
