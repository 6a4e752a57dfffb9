package session

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, timeout time.Duration) *Store {
	t.Helper()
	return NewStore(timeout, zerolog.Nop())
}

func TestGet_SynthesizesInitialSession(t *testing.T) {
	s := newTestStore(t, time.Hour)

	sess := s.Get("u1")
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, StateInitial, sess.State)
	assert.Equal(t, 0, sess.Data.Len())
	assert.Equal(t, 1, s.Len())
}

func TestLookup_NeverCreates(t *testing.T) {
	s := newTestStore(t, time.Hour)

	_, ok := s.Lookup("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	s.SetState("u1", StateIdle)
	sess, ok := s.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, StateIdle, sess.State)
	assert.Equal(t, 1, s.Len())
}

func TestLookup_ExpiredSessionAbsent(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	now := time.Now()
	s.SetClock(func() time.Time { return now })
	s.SetState("u1", StateFaqMenu)

	now = now.Add(31 * time.Minute)
	_, ok := s.Lookup("u1")
	assert.False(t, ok)
}

func TestSetStateAndData(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.SetState("u1", StateRegisteringEmail)
	s.SetData("u1", KeyName, "Jane Doe")

	sess := s.Get("u1")
	assert.Equal(t, StateRegisteringEmail, sess.State)
	assert.Equal(t, "Jane Doe", sess.Data.GetString(KeyName))
}

func TestIdleSessionResetOnAccess(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	s.SetState("u1", StateSubmissionContent)
	s.SetData("u1", KeySubject, "Math")

	// 29 minutes later the session survives.
	now = now.Add(29 * time.Minute)
	sess := s.Get("u1")
	assert.Equal(t, StateSubmissionContent, sess.State)
	assert.Equal(t, "Math", sess.Data.GetString(KeySubject))

	// Get touches nothing; 31 minutes past the last *update* the session
	// is reset on next access.
	now = now.Add(2 * time.Minute)
	sess = s.Get("u1")
	assert.Equal(t, StateInitial, sess.State)
	assert.Equal(t, 0, sess.Data.Len())
}

func TestActivityExtendsIdleWindow(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	s.SetState("u1", StatePaymentPending)

	// Keep touching the session every 20 minutes; it must never reset.
	for i := 0; i < 5; i++ {
		now = now.Add(20 * time.Minute)
		s.SetData("u1", KeyPaymentRef, "pending")
		assert.Equal(t, StatePaymentPending, s.Get("u1").State)
	}
}

func TestUpdate_SerializedReadModifyWrite(t *testing.T) {
	s := newTestStore(t, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("u1", func(sess *Session) {
				n, _ := sess.Data.Get("count").(int)
				sess.Data.Set("count", n+1)
			})
		}()
	}
	wg.Wait()

	n, _ := s.GetData("u1", "count").(int)
	assert.Equal(t, 50, n)
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	s := newTestStore(t, time.Hour)
	s.SetData("u1", KeyName, "Jane")

	snap := s.Get("u1")
	snap.Data.Set(KeyName, "Mallory")

	assert.Equal(t, "Jane", s.Get("u1").Data.GetString(KeyName))
}

func TestData_InsertionOrder(t *testing.T) {
	d := NewData()
	d.Set("b", 1)
	d.Set("a", 2)
	d.Set("c", 3)
	d.Set("a", 4) // update keeps original position

	assert.Equal(t, []string{"b", "a", "c"}, d.Keys())
	assert.Equal(t, 4, d.Get("a"))
	assert.Equal(t, 3, d.Len())
}

func TestData_Transcript(t *testing.T) {
	d := NewData()
	d.AppendMessage(KeyTranscript, MessageRecord{Text: "first"})
	d.AppendMessage(KeyTranscript, MessageRecord{Text: "second"})

	msgs := d.Messages(KeyTranscript)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestDistinctUsersIsolated(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.SetState("u1", StateSupportActive)
	s.SetState("u2", StateFaqMenu)

	assert.Equal(t, StateSupportActive, s.Get("u1").State)
	assert.Equal(t, StateFaqMenu, s.Get("u2").State)
	assert.Equal(t, 2, s.Len())
}
