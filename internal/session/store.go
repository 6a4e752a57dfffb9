package session

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const shardCount = 32

// DefaultIdleTimeout is the inactivity window after which a session is
// reset to Initial on next access.
const DefaultIdleTimeout = 30 * time.Minute

// Store is an in-memory conversation store. Sessions are sharded by user ID
// with one mutex per shard, so operations for the same user are serialized
// while distinct users proceed in parallel. Idle sessions are evicted
// lazily: staleness is checked on access, never by a background sweep.
//
// Sessions are memory-resident only and do not survive a restart.
type Store struct {
	shards      [shardCount]*shard
	idleTimeout time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store with the given idle timeout. A non-positive
// timeout falls back to DefaultIdleTimeout.
func NewStore(idleTimeout time.Duration, logger zerolog.Logger) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	s := &Store{
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger.With().Str("component", "session_store").Logger(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

// SetClock overrides the store's time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// locked fetches (or synthesizes) the session for userID with the shard
// lock held, applying lazy idle eviction first. Callers must hold sh.mu.
func (s *Store) locked(sh *shard, userID string) *Session {
	now := s.now()
	sess, ok := sh.sessions[userID]
	if !ok {
		sess = &Session{
			UserID:        userID,
			State:         StateInitial,
			Data:          NewData(),
			LastUpdatedAt: now,
		}
		sh.sessions[userID] = sess
		return sess
	}
	if now.Sub(sess.LastUpdatedAt) > s.idleTimeout {
		s.logger.Debug().
			Str("user_id", userID).
			Str("stale_state", string(sess.State)).
			Msg("idle session reset")
		sess.State = StateInitial
		sess.Data = NewData()
		sess.LastUpdatedAt = now
	}
	return sess
}

// Get returns a snapshot of the user's session, creating an Initial session
// if none exists. Stale sessions are reset before being returned.
func (s *Store) Get(userID string) Session {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.locked(sh, userID)
	return snapshot(sess)
}

// Lookup returns a snapshot of an existing session without creating one.
// Sessions past the idle window report as absent; unlike Get, nothing in
// the store is touched, so read-only callers never inflate Len.
func (s *Store) Lookup(userID string) (Session, bool) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[userID]
	if !ok || s.now().Sub(sess.LastUpdatedAt) > s.idleTimeout {
		return Session{}, false
	}
	return snapshot(sess), true
}

// SetState moves the session to newState and touches LastUpdatedAt.
func (s *Store) SetState(userID string, newState State) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.locked(sh, userID)
	sess.State = newState
	sess.LastUpdatedAt = s.now()
}

// SetData stores one data field and touches LastUpdatedAt.
func (s *Store) SetData(userID, key string, value any) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.locked(sh, userID)
	sess.Data.Set(key, value)
	sess.LastUpdatedAt = s.now()
}

// GetData returns one data field, or nil if absent.
func (s *Store) GetData(userID, key string) any {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return s.locked(sh, userID).Data.Get(key)
}

// Update runs fn against the live session with the shard lock held. The
// transition engine uses this so one inbound message reads and mutates the
// session as a single serialized step. fn must not retain the *Session.
func (s *Store) Update(userID string, fn func(sess *Session)) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.locked(sh, userID)
	fn(sess)
	sess.LastUpdatedAt = s.now()
}

// Len returns the number of live sessions across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

func snapshot(sess *Session) Session {
	data := NewData()
	for _, k := range sess.Data.Keys() {
		data.Set(k, sess.Data.Get(k))
	}
	return Session{
		UserID:        sess.UserID,
		State:         sess.State,
		Data:          data,
		LastUpdatedAt: sess.LastUpdatedAt,
	}
}
