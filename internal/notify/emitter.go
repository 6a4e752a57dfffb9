package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tutordesk/tutordesk-agent/internal/event"
)

// RecordReader looks up display data in the persistent record store. The
// emitter only needs simple key reads.
type RecordReader interface {
	DisplayName(userID string) (string, error)
}

// EmitterConfig holds emitter settings.
type EmitterConfig struct {
	OperatorTarget string // delivery address of the human-operator channel
	MaxRetries     int    // per-task retry budget
}

// Emitter maps domain events to notification tasks. A malformed template
// (unresolved placeholder) drops that one task with an error log; it never
// fails the originating transition.
type Emitter struct {
	templates []Template
	cfg       EmitterConfig
	records   RecordReader
	metrics   Recorder
	logger    zerolog.Logger
}

// NewEmitter creates an emitter with the given template set. records and
// metrics may be nil; display names then fall back to the user ID.
func NewEmitter(templates []Template, cfg EmitterConfig, records RecordReader, metrics Recorder, logger zerolog.Logger) *Emitter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Emitter{
		templates: templates,
		cfg:       cfg,
		records:   records,
		metrics:   metrics,
		logger:    logger.With().Str("component", "emitter").Logger(),
	}
}

// Emit builds the notification tasks for one domain event.
func (e *Emitter) Emit(evt event.Event) []*Task {
	if !event.Known(evt.Type) {
		e.logger.Error().Str("event", evt.Type).Msg("unknown event type, dropping")
		if e.metrics != nil {
			e.metrics.RecordError("emitter", "unknown_event")
		}
		return nil
	}

	fields := e.resolveFields(evt)

	var tasks []*Task
	for _, tpl := range e.templates {
		if tpl.Event != evt.Type {
			continue
		}

		target := evt.UserID
		if tpl.Recipient == RecipientOperator {
			if e.cfg.OperatorTarget == "" {
				e.logger.Debug().Str("event", evt.Type).Msg("no operator target configured, skipping")
				continue
			}
			target = e.cfg.OperatorTarget
		}

		text, err := render(tpl.Text, fields)
		if err != nil {
			e.logger.Error().Err(err).
				Str("event", evt.Type).
				Str("recipient", string(tpl.Recipient)).
				Msg("template resolution failed, task dropped")
			if e.metrics != nil {
				e.metrics.RecordError("emitter", "template_resolution")
			}
			continue
		}

		tasks = append(tasks, &Task{
			ID:         uuid.New().String(),
			Target:     target,
			Text:       text,
			Priority:   tpl.Priority,
			Channel:    string(tpl.Recipient),
			MaxRetries: e.cfg.MaxRetries,
			Status:     StatusPending,
			CreatedAt:  time.Now().UTC(),
		})
	}
	return tasks
}

// resolveFields merges the event fields with built-ins: user_id always, and
// name looked up from the record store when the event didn't carry one.
func (e *Emitter) resolveFields(evt event.Event) map[string]string {
	fields := make(map[string]string, len(evt.Fields)+2)
	for k, v := range evt.Fields {
		fields[k] = v
	}
	fields["user_id"] = evt.UserID

	if _, ok := fields["name"]; !ok {
		name := evt.UserID
		if e.records != nil {
			if n, err := e.records.DisplayName(evt.UserID); err == nil && n != "" {
				name = n
			}
		}
		fields["name"] = name
	}
	return fields
}
