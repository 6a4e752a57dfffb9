package notify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-agent/internal/event"
)

type fakeReader struct {
	names map[string]string
}

func (f *fakeReader) DisplayName(userID string) (string, error) {
	return f.names[userID], nil
}

func newTestEmitter(templates []Template, cfg EmitterConfig, reader RecordReader) *Emitter {
	return NewEmitter(templates, cfg, reader, nil, zerolog.Nop())
}

func TestEmit_UserAndOperatorTasks(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{OperatorTarget: "#tutor-support"}, nil)

	evt := event.New(event.TypeSubmissionConfirmed, "u1", map[string]string{
		"name":    "Jane",
		"subject": "Math",
		"kind":    "worksheet",
	})
	tasks := e.Emit(evt)
	require.Len(t, tasks, 2)

	var user, operator *Task
	for _, task := range tasks {
		switch task.Channel {
		case "user":
			user = task
		case "operator":
			operator = task
		}
	}
	require.NotNil(t, user)
	require.NotNil(t, operator)

	assert.Equal(t, "u1", user.Target)
	assert.Contains(t, user.Text, "Jane")
	assert.Contains(t, user.Text, "Math")
	assert.Equal(t, StatusPending, user.Status)
	assert.NotEmpty(t, user.ID)

	assert.Equal(t, "#tutor-support", operator.Target)
	assert.Contains(t, operator.Text, "u1")
}

func TestEmit_SupportMessageIsHighPriority(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{OperatorTarget: "#tutor-support"}, nil)

	tasks := e.Emit(event.New(event.TypeSupportMessageReceived, "u1", map[string]string{
		"name": "Jane",
		"text": "my tutor never showed up",
	}))
	require.Len(t, tasks, 1)
	assert.Equal(t, PriorityHigh, tasks[0].Priority)
	assert.Equal(t, "[support] Jane: my tutor never showed up", tasks[0].Text)
}

func TestEmit_NameFallsBackToRecordStore(t *testing.T) {
	reader := &fakeReader{names: map[string]string{"u1": "Jane"}}
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{}, reader)

	tasks := e.Emit(event.New(event.TypePaymentConfirmed, "u1", nil))
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Text, "Jane")
}

func TestEmit_NameFallsBackToUserID(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{}, nil)

	tasks := e.Emit(event.New(event.TypePaymentConfirmed, "u1", nil))
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Text, "u1")
}

func TestEmit_UnresolvedPlaceholderDropsTask(t *testing.T) {
	templates := []Template{
		{Event: event.TypePaymentConfirmed, Recipient: RecipientUser, Text: "Paid {amount}", Priority: PriorityNormal},
		{Event: event.TypePaymentConfirmed, Recipient: RecipientUser, Text: "Thanks {name}", Priority: PriorityNormal},
	}
	e := newTestEmitter(templates, EmitterConfig{}, nil)

	// The malformed template drops its task; the valid one still emits.
	tasks := e.Emit(event.New(event.TypePaymentConfirmed, "u1", nil))
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Text, "Thanks")
}

func TestEmit_DroppedTaskRecordsError(t *testing.T) {
	templates := []Template{
		{Event: event.TypePaymentConfirmed, Recipient: RecipientUser, Text: "Paid {amount}", Priority: PriorityNormal},
	}
	rec := newFakeRecorder()
	e := NewEmitter(templates, EmitterConfig{}, nil, rec, zerolog.Nop())

	assert.Empty(t, e.Emit(event.New(event.TypePaymentConfirmed, "u1", nil)))
	assert.Equal(t, 1, rec.errorCount("emitter/template_resolution"))

	e.Emit(event.Event{Type: "bogus.event", UserID: "u1"})
	assert.Equal(t, 1, rec.errorCount("emitter/unknown_event"))
}

func TestEmit_UnknownEventDropped(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{}, nil)
	assert.Empty(t, e.Emit(event.Event{Type: "bogus.event", UserID: "u1"}))
}

func TestEmit_OperatorTemplateSkippedWithoutTarget(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{}, nil)

	// support.started only has an operator template.
	tasks := e.Emit(event.New(event.TypeSupportStarted, "u1", map[string]string{"name": "Jane"}))
	assert.Empty(t, tasks)
}

func TestEmit_MaxRetriesApplied(t *testing.T) {
	e := newTestEmitter(DefaultTemplates(), EmitterConfig{MaxRetries: 5}, nil)
	tasks := e.Emit(event.New(event.TypePaymentConfirmed, "u1", nil))
	require.Len(t, tasks, 1)
	assert.Equal(t, 5, tasks[0].MaxRetries)
}

func TestTemplatesFromYAML(t *testing.T) {
	yml := `
- event: payment.confirmed
  recipient: user
  text: "Paid, {name}!"
  priority: normal
`
	tpls, err := TemplatesFromYAML([]byte(yml))
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, RecipientUser, tpls[0].Recipient)

	_, err = TemplatesFromYAML([]byte("- event: bogus.event\n  recipient: user\n  text: x\n"))
	assert.Error(t, err)

	_, err = TemplatesFromYAML([]byte("- event: payment.confirmed\n  recipient: nobody\n  text: x\n"))
	assert.Error(t, err)
}
