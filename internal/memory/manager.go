// Package memory keeps the short-term conversation window. It holds a
// bounded ring of messages and spills whole exchanges into the vector
// store when the ring fills, so old context stays recallable instead
// of vanishing.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shellmind/internal/logging"
)

// Message is one turn in the session window.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Roles used in the session window.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// OverflowStore receives conversation chunks evicted from the ring.
// *store.LocalStore satisfies it.
type OverflowStore interface {
	StoreConversationChunk(ctx context.Context, sessionID, content string, messageCount int, roles []string) error
}

// Manager is the session memory manager. Writes append user/assistant
// pairs; when the ring exceeds its bound, the oldest pairs are spilled
// to the overflow store as a single chunk.
type Manager struct {
	mu        sync.Mutex
	sessionID string
	messages  []Message
	maxSize   int

	store OverflowStore

	// toolMode suspends overflow while a plan is executing so that
	// mid-turn context survives until the turn completes.
	toolMode         bool
	overflowDeferred bool
}

// NewManager creates a session window bounded at maxSize messages.
// maxSize is rounded up to an even count so the ring always holds
// whole user/assistant exchanges. The store may be nil; evicted
// messages are then dropped after logging.
func NewManager(sessionID string, maxSize int, store OverflowStore) *Manager {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if maxSize < 2 {
		maxSize = 2
	}
	if maxSize%2 != 0 {
		maxSize++
	}
	return &Manager{
		sessionID: sessionID,
		maxSize:   maxSize,
		store:     store,
	}
}

// SessionID returns the identifier overflow chunks are tagged with.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// AddExchange appends a user/assistant pair and runs overflow unless
// tool-execution mode is active.
func (m *Manager) AddExchange(ctx context.Context, userContent, assistantContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.messages = append(m.messages,
		Message{
			ID:        uuid.NewString(),
			SessionID: m.sessionID,
			Role:      RoleUser,
			Content:   userContent,
			Timestamp: now,
		},
		Message{
			ID:        uuid.NewString(),
			SessionID: m.sessionID,
			Role:      RoleAssistant,
			Content:   assistantContent,
			Timestamp: now,
		},
	)

	logging.MemoryDebug("Session %s now holds %d messages (max %d)", m.sessionID, len(m.messages), m.maxSize)
	return m.overflowLocked(ctx)
}

// AddMessage appends a single message with optional metadata. Used for
// tool observations recorded mid-plan. Overflow still respects pair
// boundaries, so a lone trailing message is never evicted solo.
func (m *Manager) AddMessage(ctx context.Context, role, content string, meta map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, Message{
		ID:        uuid.NewString(),
		SessionID: m.sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Meta:      meta,
	})
	return m.overflowLocked(ctx)
}

// SetToolMode toggles tool-execution mode. Turning it off runs any
// overflow that was deferred while it was on.
func (m *Manager) SetToolMode(ctx context.Context, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.toolMode = on
	if !on && m.overflowDeferred {
		m.overflowDeferred = false
		logging.MemoryDebug("Running overflow deferred during tool execution")
		return m.overflowLocked(ctx)
	}
	return nil
}

// overflowLocked evicts the oldest messages once the ring exceeds its
// bound. Callers must hold mu.
func (m *Manager) overflowLocked(ctx context.Context) error {
	if len(m.messages) <= m.maxSize {
		return nil
	}
	if m.toolMode {
		m.overflowDeferred = true
		logging.MemoryDebug("Overflow deferred: tool execution in progress")
		return nil
	}

	evictCount := len(m.messages) - m.maxSize
	// Evict in pairs so the ring never starts mid-exchange.
	if evictCount%2 != 0 {
		evictCount++
	}

	evictCount = repairBoundary(m.messages, evictCount)
	if evictCount == 0 {
		return nil
	}

	evicted := make([]Message, evictCount)
	copy(evicted, m.messages[:evictCount])
	m.messages = m.messages[evictCount:]

	logging.Memory("Evicting %d messages from session %s", len(evicted), m.sessionID)
	return m.spill(ctx, evicted)
}

// repairBoundary adjusts an eviction count so the chunk never splits
// an exchange: the remaining ring must not start on an orphaned
// assistant reply, and the chunk must not end on a user message whose
// reply stays behind.
func repairBoundary(all []Message, evictCount int) int {
	// Extend past assistant replies so the ring head is a user turn.
	for evictCount < len(all) && all[evictCount].Role == RoleAssistant {
		evictCount++
	}
	// A chunk ending on an unanswered user message keeps it in the
	// ring instead.
	if evictCount > 0 && evictCount <= len(all) && all[evictCount-1].Role == RoleUser {
		evictCount--
	}
	return evictCount
}

// spill formats evicted messages as a chunk and hands it to the
// overflow store. Callers must hold mu.
func (m *Manager) spill(ctx context.Context, evicted []Message) error {
	if m.store == nil {
		logging.MemoryDebug("No overflow store configured, dropping %d messages", len(evicted))
		return nil
	}

	var sb strings.Builder
	roles := make([]string, 0, len(evicted))
	for _, msg := range evicted {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		roles = append(roles, msg.Role)
	}

	if err := m.store.StoreConversationChunk(ctx, m.sessionID, sb.String(), len(evicted), roles); err != nil {
		return fmt.Errorf("memory: spill %d messages: %w", len(evicted), err)
	}
	return nil
}

// Recent returns up to n of the newest messages, oldest first,
// stripped to what the model needs.
func (m *Manager) Recent(n int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	for i := range out {
		out[i].Meta = nil
	}
	return out
}

// Len reports the current window size.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Flush drains every remaining message to the overflow store. Called
// on session end so the next session can recall this one.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		return nil
	}
	evicted := m.messages
	m.messages = nil
	m.overflowDeferred = false

	logging.Memory("Flushing %d messages from session %s", len(evicted), m.sessionID)
	return m.spill(ctx, evicted)
}
