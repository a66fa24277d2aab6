package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policybot/internal/models"
)

func turn(role, text string) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Text: text, Timestamp: time.Now()}
}

func TestCreateSession(t *testing.T) {
	m := New(time.Hour, time.Hour, 10)

	id := m.CreateSession()
	require.NotEmpty(t, id)
	assert.True(t, m.Exists(id))
	assert.Empty(t, m.History(id))

	other := m.CreateSession()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, m.SessionCount())
}

func TestAppendAndHistory(t *testing.T) {
	m := New(time.Hour, time.Hour, 10)
	id := m.CreateSession()

	m.AppendTurn(id, turn(models.RoleUser, "what is the leave policy?"))
	m.AppendTurn(id, turn(models.RoleAgent, "20 days per year."))

	h := m.History(id)
	require.Len(t, h, 2)
	assert.Equal(t, models.RoleUser, h[0].Role)
	assert.Equal(t, models.RoleAgent, h[1].Role)
	assert.Equal(t, "20 days per year.", h[1].Text)
}

func TestHistoryIsACopy(t *testing.T) {
	m := New(time.Hour, time.Hour, 10)
	id := m.CreateSession()
	m.AppendTurn(id, turn(models.RoleUser, "original"))

	h := m.History(id)
	h[0].Text = "mutated"
	assert.Equal(t, "original", m.History(id)[0].Text)
}

func TestAppendTrimsOldestFirst(t *testing.T) {
	m := New(time.Hour, time.Hour, 4)
	id := m.CreateSession()

	for i := 0; i < 6; i++ {
		m.AppendTurn(id, turn(models.RoleUser, fmt.Sprintf("turn %d", i)))
	}

	h := m.History(id)
	require.Len(t, h, 4)
	assert.Equal(t, "turn 2", h[0].Text)
	assert.Equal(t, "turn 5", h[3].Text)
}

func TestAppendToUnknownSessionCreatesIt(t *testing.T) {
	m := New(time.Hour, time.Hour, 10)

	m.AppendTurn("never-created", turn(models.RoleUser, "hello"))
	assert.True(t, m.Exists("never-created"))
	assert.Len(t, m.History("never-created"), 1)
}

func TestHistoryUnknownSession(t *testing.T) {
	m := New(time.Hour, time.Hour, 10)
	assert.Empty(t, m.History("missing"))
	assert.False(t, m.Exists("missing"))
}

func TestExpiry(t *testing.T) {
	m := New(20*time.Millisecond, time.Hour, 10)
	id := m.CreateSession()
	m.AppendTurn(id, turn(models.RoleUser, "hello"))

	time.Sleep(40 * time.Millisecond)
	m.ExpireStale()

	assert.False(t, m.Exists(id))
	assert.Empty(t, m.History(id))
	assert.Equal(t, 0, m.SessionCount())
}

func TestExpiryReleasesSessionLocks(t *testing.T) {
	m := New(20*time.Millisecond, time.Hour, 10)

	for i := 0; i < 3; i++ {
		id := m.CreateSession()
		m.AppendTurn(id, turn(models.RoleUser, "hello"))
	}
	assert.Equal(t, 3, lockCount(m))

	time.Sleep(40 * time.Millisecond)
	m.ExpireStale()

	assert.Equal(t, 0, m.SessionCount())
	assert.Equal(t, 0, lockCount(m))
}

func lockCount(m *SessionMemory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func TestActivityRefreshesTTL(t *testing.T) {
	m := New(60*time.Millisecond, time.Hour, 10)
	id := m.CreateSession()

	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		m.AppendTurn(id, turn(models.RoleUser, "still here"))
	}

	// 90ms since creation but only 30ms since last activity
	assert.True(t, m.Exists(id))
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	const writers = 8
	const perWriter = 5

	m := New(time.Hour, time.Hour, writers*perWriter)
	id := m.CreateSession()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				m.AppendTurn(id, turn(models.RoleUser, fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, m.History(id), writers*perWriter)
}
