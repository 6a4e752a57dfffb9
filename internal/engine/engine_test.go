package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-agent/internal/event"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/session"
)

type fakeRecords struct {
	mu            sync.Mutex
	users         map[string]string // userID → name
	submissions   int
	paymentStatus string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{users: make(map[string]string), paymentStatus: "none"}
}

func (f *fakeRecords) DisplayName(userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

func (f *fakeRecords) SaveUser(userID, name, email, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID] = name
	return nil
}

func (f *fakeRecords) CreateSubmission(userID, subject, kind, contentRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions++
	return "sub-1", nil
}

func (f *fakeRecords) PaymentStatus(userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentStatus, nil
}

func (f *fakeRecords) setPaymentStatus(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentStatus = s
}

type captureSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureSink) Publish(evt event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

type fakeMetrics struct {
	mu       sync.Mutex
	messages int
	errors   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: make(map[string]int)}
}

func (f *fakeMetrics) RecordMessage(in, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages++
}

func (f *fakeMetrics) RecordError(module, errType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[module+"/"+errType]++
}

func (f *fakeMetrics) errorCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[key]
}

type testRig struct {
	engine   *Engine
	sessions *session.Store
	records  *fakeRecords
	sink     *captureSink
}

func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	sessions := session.NewStore(30*time.Minute, zerolog.Nop())
	records := newFakeRecords()
	sink := &captureSink{}
	eng := New(sessions, intent.NewExtractor(), records, sink, nil, cfg, zerolog.Nop())
	return &testRig{engine: eng, sessions: sessions, records: records, sink: sink}
}

func (r *testRig) say(userID, text string) Reply {
	return r.engine.Transition(Input{UserID: userID, Text: text})
}

func (r *testRig) press(userID, buttonID string) Reply {
	return r.engine.Transition(Input{UserID: userID, ButtonID: buttonID})
}

// register drives a user through the full registration sequence.
func (r *testRig) register(t *testing.T, userID, name string) {
	t.Helper()
	r.say(userID, "hi")
	r.say(userID, name)
	r.say(userID, "jane@example.com")
	reply := r.say(userID, "Grade 9")
	require.Equal(t, session.StateIdle, reply.NextState)
}

func TestRegistrationFlow(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})

	reply := r.say("u1", "hi")
	assert.Equal(t, session.StateRegisteringName, reply.NextState)

	reply = r.say("u1", "Jane Doe")
	assert.Equal(t, session.StateRegisteringEmail, reply.NextState)
	assert.Contains(t, reply.Text, "Jane Doe")

	// Invalid email keeps the state.
	reply = r.say("u1", "not an email")
	assert.Equal(t, session.StateRegisteringEmail, reply.NextState)

	reply = r.say("u1", "jane@example.com")
	assert.Equal(t, session.StateRegisteringClass, reply.NextState)

	reply = r.say("u1", "Grade 9")
	assert.Equal(t, session.StateIdle, reply.NextState)
	assert.Contains(t, reply.Text, "Jane Doe")
	require.NotEmpty(t, reply.Buttons)

	assert.Equal(t, []string{event.TypeRegistrationComplete}, r.sink.types())
	assert.Equal(t, "Jane Doe", r.records.users["u1"])

	evt := r.sink.events[0]
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "jane@example.com", evt.Fields["email"])
	assert.Equal(t, "Grade 9", evt.Fields["class"])
}

func TestSubmissionFlow(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")
	r.sink.events = nil

	reply := r.say("u1", "I want to submit homework")
	assert.Equal(t, session.StateSubmissionSubject, reply.NextState)

	reply = r.say("u1", "Math")
	assert.Equal(t, session.StateSubmissionType, reply.NextState)

	reply = r.say("u1", "worksheet")
	assert.Equal(t, session.StateSubmissionContent, reply.NextState)

	reply = r.engine.Transition(Input{UserID: "u1", MediaRef: "file-123"})
	assert.Equal(t, session.StateSubmissionSubmitted, reply.NextState)
	assert.Contains(t, reply.Text, "your image")

	reply = r.press("u1", intent.ButtonConfirm)
	assert.Equal(t, session.StateIdle, reply.NextState)

	assert.Equal(t, []string{event.TypeSubmissionConfirmed}, r.sink.types())
	assert.Equal(t, 1, r.records.submissions)
	assert.Equal(t, "Math", r.sink.events[0].Fields["subject"])
	assert.Equal(t, "worksheet", r.sink.events[0].Fields["kind"])
}

func TestSubmission_NoEventWithoutConfirm(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")
	r.sink.events = nil

	r.say("u1", "homework")
	r.say("u1", "Math")
	r.say("u1", "essay")
	r.say("u1", "my essay text here")

	// Still awaiting confirmation: gibberish keeps the state, no event.
	reply := r.say("u1", "what happens now")
	assert.Equal(t, session.StateSubmissionSubmitted, reply.NextState)
	assert.Empty(t, r.sink.types())
	assert.Equal(t, 0, r.records.submissions)
}

func TestPaymentFlow(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")
	r.sink.events = nil

	reply := r.say("u1", "I want to pay my fees")
	assert.Equal(t, session.StatePaymentPending, reply.NextState)

	// Gateway hasn't confirmed yet: stay pending, no event.
	reply = r.press("u1", intent.ButtonConfirm)
	assert.Equal(t, session.StatePaymentPending, reply.NextState)
	assert.Empty(t, r.sink.types())

	r.records.setPaymentStatus("confirmed")
	reply = r.press("u1", intent.ButtonConfirm)
	assert.Equal(t, session.StatePaymentConfirmed, reply.NextState)
	assert.Equal(t, []string{event.TypePaymentConfirmed}, r.sink.types())
}

func TestSupportMode_TrapsEverythingButEndChat(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")
	r.sink.events = nil

	reply := r.say("u1", "I need chat support with math")
	require.Equal(t, session.StateSupportActive, reply.NextState)

	// Keywords that would normally re-trigger flows are plain messages here.
	for _, msg := range []string{"help", "homework", "I need chat support with math", "menu"} {
		reply = r.say("u1", msg)
		assert.Equal(t, session.StateSupportActive, reply.NextState, "input %q must stay in support", msg)
	}

	reply = r.say("u1", "end chat")
	assert.Equal(t, session.StateIdle, reply.NextState)

	types := r.sink.types()
	require.Len(t, types, 6)
	assert.Equal(t, event.TypeSupportStarted, types[0])
	for _, tp := range types[1:5] {
		assert.Equal(t, event.TypeSupportMessageReceived, tp)
	}
	assert.Equal(t, event.TypeSupportEnded, types[5])
}

func TestSupportMode_TranscriptAccumulates(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	r.say("u1", "talk to a tutor")
	r.say("u1", "first question")
	r.say("u1", "second question")

	var msgs []session.MessageRecord
	r.sessions.Update("u1", func(sess *session.Session) {
		msgs = sess.Data.Messages(session.KeyTranscript)
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "first question", msgs[0].Text)
	assert.Equal(t, "second question", msgs[1].Text)
}

func TestCancel_KeepsPartialDataByDefault(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	r.say("u1", "homework")
	r.say("u1", "Math")

	reply := r.say("u1", "cancel")
	assert.Equal(t, session.StateIdle, reply.NextState)
	assert.Equal(t, "Math", r.sessions.Get("u1").Data.GetString(session.KeySubject))
}

func TestCancel_ClearsFlowDataWhenConfigured(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: false})
	r.register(t, "u1", "Jane Doe")

	r.say("u1", "homework")
	r.say("u1", "Math")

	reply := r.say("u1", "cancel")
	assert.Equal(t, session.StateIdle, reply.NextState)

	sess := r.sessions.Get("u1")
	assert.Empty(t, sess.Data.GetString(session.KeySubject))
	// Identity fields survive a flow cancel.
	assert.Equal(t, "Jane Doe", sess.Data.GetString(session.KeyName))
}

func TestCancel_NoEventEmitted(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")
	r.sink.events = nil

	r.say("u1", "pay")
	r.say("u1", "cancel")
	assert.Empty(t, r.sink.types())
}

func TestUnknownInput_StateSpecificClarification(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	reply := r.say("u1", "xyzzy")
	assert.Equal(t, session.StateIdle, reply.NextState)
	assert.Equal(t, msgClarify, reply.Text)

	r.say("u1", "homework")
	reply = r.say("u1", "")
	assert.Equal(t, session.StateSubmissionSubject, reply.NextState)
	assert.Contains(t, reply.Text, "subject")
}

func TestCorruptedState_RecoversAndRecordsError(t *testing.T) {
	sessions := session.NewStore(30*time.Minute, zerolog.Nop())
	m := newFakeMetrics()
	eng := New(sessions, intent.NewExtractor(), nil, nil, m, Config{KeepPartialDataOnCancel: true}, zerolog.Nop())

	sessions.SetState("u1", session.State("corrupted"))

	reply := eng.Transition(Input{UserID: "u1", Text: "hi"})
	assert.Equal(t, msgClarify, reply.Text)

	// The stored state is left untouched and the defect is counted.
	assert.Equal(t, session.State("corrupted"), sessions.Get("u1").State)
	assert.Equal(t, 1, m.errorCount("engine/invalid_state"))
}

func TestFaqFlow(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	reply := r.say("u1", "faq")
	assert.Equal(t, session.StateFaqMenu, reply.NextState)

	reply = r.say("u1", "2")
	assert.Equal(t, session.StateFaqMenu, reply.NextState)
	assert.Contains(t, reply.Text, "18:00")

	reply = r.say("u1", "refund")
	assert.Contains(t, reply.Text, "14 days")

	reply = r.say("u1", "9")
	assert.Contains(t, reply.Text, "Pick a question")

	reply = r.say("u1", "menu")
	assert.Equal(t, session.StateIdle, reply.NextState)
}

func TestMenuFromAnywhere(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	r.say("u1", "pay")
	reply := r.say("u1", "main menu")
	assert.Equal(t, session.StateIdle, reply.NextState)
	assert.Contains(t, reply.Text, "Jane Doe")
}

func TestMenuBeforeRegistration_RoutesToRegistration(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})

	reply := r.say("u1", "menu")
	assert.Equal(t, session.StateRegisteringName, reply.NextState)
}

func TestDeterminism_SameInputSameReply(t *testing.T) {
	for i := 0; i < 3; i++ {
		r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
		reply := r.say("u1", "hi")
		assert.Equal(t, session.StateRegisteringName, reply.NextState)
		assert.Contains(t, reply.Text, "What's your name?")
	}
}

func TestDistinctUsersIndependent(t *testing.T) {
	r := newTestRig(t, Config{KeepPartialDataOnCancel: true})
	r.register(t, "u1", "Jane Doe")

	r.say("u1", "talk to a tutor")

	// A brand-new user is unaffected by u1's support session.
	reply := r.say("u2", "hello")
	assert.Equal(t, session.StateRegisteringName, reply.NextState)
	assert.Equal(t, session.StateSupportActive, r.sessions.Get("u1").State)
}
