package memory

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"policybot/internal/helper"
	"policybot/internal/models"
)

// session is the cached per-session state. Turns are bounded FIFO: once the
// limit is exceeded the oldest turns are evicted first.
type session struct {
	Turns        []models.ConversationTurn
	CreatedAt    time.Time
	LastActivity time.Time
}

// SessionMemory owns all conversation sessions. Entries expire when idle
// longer than the TTL; the cache janitor sweeps them on the configured
// interval and ExpireStale forces a sweep. Appends are serialized per
// session so concurrent queries on one session never lose turns.
type SessionMemory struct {
	cache    *gocache.Cache
	maxTurns int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(ttl, cleanupInterval time.Duration, maxTurns int) *SessionMemory {
	m := &SessionMemory{
		cache:    gocache.New(ttl, cleanupInterval),
		maxTurns: maxTurns,
		locks:    make(map[string]*sync.Mutex),
	}
	// release the per-session lock when the session itself is evicted, so
	// the lock map stays bounded by the number of live sessions
	m.cache.OnEvicted(func(sessionID string, _ interface{}) {
		m.mu.Lock()
		delete(m.locks, sessionID)
		m.mu.Unlock()
	})
	return m
}

// CreateSession registers a new empty session and returns its ID.
func (m *SessionMemory) CreateSession() string {
	id, err := helper.GenerateUUID()
	if err != nil {
		// crypto/rand failure; fall back to a time-based id
		id = time.Now().Format("20060102150405.000000000")
	}
	now := time.Now()
	m.cache.Set(id, &session{CreatedAt: now, LastActivity: now}, gocache.DefaultExpiration)
	log.Debug().Str("session_id", id).Msg("created session")
	return id
}

// AppendTurn adds a turn to the session, creating the session implicitly
// when the ID is unknown. Writes never fail on an unseen session.
func (m *SessionMemory) AppendTurn(sessionID string, turn models.ConversationTurn) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	s, ok := m.get(sessionID)
	if !ok {
		s = &session{CreatedAt: now}
	}
	s.Turns = append(s.Turns, turn)
	if len(s.Turns) > m.maxTurns {
		s.Turns = s.Turns[len(s.Turns)-m.maxTurns:]
	}
	s.LastActivity = now

	// Set refreshes the TTL: activity keeps a session alive.
	m.cache.Set(sessionID, s, gocache.DefaultExpiration)
}

// History returns the session's turns in order, or an empty slice for an
// unknown session. The returned slice is a copy.
func (m *SessionMemory) History(sessionID string) []models.ConversationTurn {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, ok := m.get(sessionID)
	if !ok {
		return nil
	}
	turns := make([]models.ConversationTurn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// Exists reports whether the session is live.
func (m *SessionMemory) Exists(sessionID string) bool {
	_, ok := m.get(sessionID)
	return ok
}

// ExpireStale evicts every session idle past the TTL. Eviction is immediate
// and irreversible. The cache janitor also runs this periodically.
func (m *SessionMemory) ExpireStale() {
	before := m.cache.ItemCount()
	m.cache.DeleteExpired()
	if evicted := before - m.cache.ItemCount(); evicted > 0 {
		log.Info().Int("evicted", evicted).Msg("expired stale sessions")
	}
}

// SessionCount returns the number of live sessions.
func (m *SessionMemory) SessionCount() int {
	return m.cache.ItemCount()
}

func (m *SessionMemory) get(sessionID string) (*session, bool) {
	if x, ok := m.cache.Get(sessionID); ok {
		return x.(*session), true
	}
	return nil, false
}

func (m *SessionMemory) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
