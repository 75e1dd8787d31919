package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"shellmind/internal/embedding"
	"shellmind/internal/logging"
)

// Memory is a row retrieved from the vector store.
type Memory struct {
	ID         int64
	Content    string
	Metadata   map[string]any
	CreatedAt  time.Time
	Similarity float64
	// Score is the similarity after temporal decay; search results
	// are ordered by it.
	Score float64
}

// SearchOptions tunes Search. Zero values pick sensible defaults.
type SearchOptions struct {
	Limit         int     // max results, default 3
	MinSimilarity float64 // raw cosine floor before decay, default 0.5
	// DecayHalfLife disables temporal weighting when negative.
	// Zero means the default 24h reference window.
	DecayHalfLife time.Duration
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return 3
	}
	return o.Limit
}

func (o SearchOptions) minSimilarity() float64 {
	if o.MinSimilarity == 0 {
		return 0.5
	}
	return o.MinSimilarity
}

// decayFactor is the per-reference-window multiplier. A memory a full
// window old scores 90% of its raw similarity, two windows 81%, and
// so on. Older memories fade but never disappear.
const decayFactor = 0.9

const defaultDecayWindow = 24 * time.Hour

// StoreMemory embeds content and inserts it with the given metadata.
func (s *LocalStore) StoreMemory(ctx context.Context, content string, metadata map[string]any) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreMemory")
	defer timer.Stop()

	if content == "" {
		return fmt.Errorf("store: refusing to store empty content")
	}
	if s.engine == nil {
		return fmt.Errorf("store: no embedding engine configured")
	}

	vec, err := s.engine.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("store: embed content: %w", err)
	}

	embJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("store: serialize embedding: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("store: serialize metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The blob column feeds vec_distance_cosine when the extension is
	// compiled in; the JSON column stays authoritative for the
	// in-process fallback.
	var blob []byte
	if s.vectorExt {
		blob = encodeVectorBlob(vec)
	}
	_, err = s.db.Exec(
		"INSERT INTO memories (content, embedding, embedding_blob, metadata) VALUES (?, ?, ?, ?)",
		content, string(embJSON), blob, string(metaJSON),
	)
	if err != nil {
		logging.StoreError("Insert memory failed: %v", err)
		return fmt.Errorf("store: insert memory: %w", err)
	}

	logging.Audit().MemoryOp(logging.AuditMemoryStore, fmt.Sprintf("%d bytes", len(content)), true)
	logging.StoreDebug("Stored memory (%d bytes, %d metadata keys)", len(content), len(metadata))
	return nil
}

// StoreConversationChunk persists a block of session messages that
// overflowed the in-memory ring. The chunk is stored as one document
// so recall brings back whole exchanges, not stray halves.
func (s *LocalStore) StoreConversationChunk(ctx context.Context, sessionID, content string, messageCount int, roles []string) error {
	metadata := map[string]any{
		"type":          "conversation_chunk",
		"source":        "session_overflow",
		"session_id":    sessionID,
		"message_count": messageCount,
		"roles":         roles,
		"stored_at":     time.Now().UTC().Format(time.RFC3339),
	}
	return s.StoreMemory(ctx, content, metadata)
}

// Search embeds the query and returns the best-scoring memories.
// Raw cosine similarity is filtered against MinSimilarity first, then
// weighted by recency so a marginally-similar fresh memory can outrank
// a slightly-more-similar stale one.
func (s *LocalStore) Search(ctx context.Context, query string, opts SearchOptions) ([]Memory, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	if s.engine == nil {
		return nil, fmt.Errorf("store: no embedding engine configured")
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: embed query: %w", err)
	}

	var candidates []Memory
	ranked := false
	if s.vectorExt {
		if c, accErr := s.searchAccelerated(queryVec, opts); accErr == nil {
			candidates, ranked = c, true
		} else {
			logging.StoreDebug("Accelerated search failed, scanning instead: %v", accErr)
		}
	}
	if !ranked {
		candidates, err = s.searchScan(queryVec, opts)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > opts.limit() {
		candidates = candidates[:opts.limit()]
	}

	logging.Audit().MemoryOp(logging.AuditMemoryRecall, fmt.Sprintf("%d results", len(candidates)), true)
	logging.StoreDebug("Search %q matched %d memories", query, len(candidates))
	return candidates, nil
}

// searchAccelerated ranks rows inside SQLite with vec_distance_cosine.
// It fetches a superset of the limit so the temporal re-ranking in Go
// can still reorder near ties.
func (s *LocalStore) searchAccelerated(queryVec []float32, opts SearchOptions) ([]Memory, error) {
	fetch := opts.limit() * 4
	if fetch < 16 {
		fetch = 16
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, content, metadata, created_at,
		        vec_distance_cosine(embedding_blob, ?) AS distance
		 FROM memories
		 WHERE embedding_blob IS NOT NULL
		 ORDER BY distance ASC
		 LIMIT ?`,
		encodeVectorBlob(queryVec), fetch,
	)
	if err != nil {
		return nil, fmt.Errorf("store: vec query: %w", err)
	}
	defer rows.Close()

	var candidates []Memory
	for rows.Next() {
		var m Memory
		var metaJSON sql.NullString
		var distance float64
		if err := rows.Scan(&m.ID, &m.Content, &metaJSON, &m.CreatedAt, &distance); err != nil {
			logging.StoreDebug("Skipping unreadable row: %v", err)
			continue
		}

		// Cosine distance is 1 - similarity.
		sim := 1.0 - distance
		if sim < opts.minSimilarity() {
			continue
		}
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
		}
		m.Similarity = sim
		m.Score = sim * temporalWeight(m.CreatedAt, opts.DecayHalfLife)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: vec scan: %w", err)
	}
	return candidates, nil
}

// searchScan reads every embedding and ranks in process. This is the
// fallback when the sqlite-vec extension is not compiled in.
func (s *LocalStore) searchScan(queryVec []float32, opts SearchOptions) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, content, embedding, metadata, created_at FROM memories WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, fmt.Errorf("store: query memories: %w", err)
	}
	defer rows.Close()

	var candidates []Memory
	for rows.Next() {
		var m Memory
		var embJSON string
		var metaJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.Content, &embJSON, &metaJSON, &m.CreatedAt); err != nil {
			logging.StoreDebug("Skipping unreadable row: %v", err)
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			// Dimension mismatch, likely stored under a different
			// embedding model. Skip rather than fail the search.
			continue
		}
		if sim < opts.minSimilarity() {
			continue
		}

		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
		}
		m.Similarity = sim
		m.Score = sim * temporalWeight(m.CreatedAt, opts.DecayHalfLife)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan memories: %w", err)
	}
	return candidates, nil
}

// encodeVectorBlob serializes a vector in the little-endian float32
// layout sqlite-vec expects.
func encodeVectorBlob(vec []float32) []byte {
	blob := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// temporalWeight computes decayFactor^(age/window).
func temporalWeight(createdAt time.Time, window time.Duration) float64 {
	if window < 0 {
		return 1.0
	}
	if window == 0 {
		window = defaultDecayWindow
	}
	age := time.Since(createdAt)
	if age <= 0 {
		return 1.0
	}
	return math.Pow(decayFactor, age.Hours()/window.Hours())
}

// SaveWorkspace upserts serialized progress state for a session.
func (s *LocalStore) SaveWorkspace(sessionID string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO workspaces (session_id, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(session_id) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP`,
		sessionID, string(state),
	)
	if err != nil {
		return fmt.Errorf("store: save workspace %s: %w", sessionID, err)
	}
	return nil
}

// LoadWorkspace returns the stored state for a session, or nil when
// the session has none.
func (s *LocalStore) LoadWorkspace(sessionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state string
	err := s.db.QueryRow(
		"SELECT state FROM workspaces WHERE session_id = ?", sessionID,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load workspace %s: %w", sessionID, err)
	}
	return []byte(state), nil
}
