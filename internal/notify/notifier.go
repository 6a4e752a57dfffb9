package notify

import (
	"github.com/tutordesk/tutordesk-agent/internal/event"
)

// Notifier glues the emitter to the dispatcher: every published event is
// expanded into notification tasks and handed to the queue. Publish is
// fire-and-forget — enqueue failures are logged by the dispatcher, never
// surfaced to the conversation path.
type Notifier struct {
	emitter    *Emitter
	dispatcher *Dispatcher
}

// NewNotifier creates the emitter→dispatcher pipeline.
func NewNotifier(emitter *Emitter, dispatcher *Dispatcher) *Notifier {
	return &Notifier{emitter: emitter, dispatcher: dispatcher}
}

// Publish expands one event into tasks and enqueues them. Never blocks.
func (n *Notifier) Publish(evt event.Event) {
	n.dispatcher.EnqueueAll(n.emitter.Emit(evt))
}
