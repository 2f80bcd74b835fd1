package session

import (
	"context"
	"sync"

	"SceneMCP-Agent/internal/llm"
)

const defaultMaxEntries = 50

// MemoryStore 在进程内保存会话记忆,每个会话是一个有界环。
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string][]llm.HistoryEntry
	maxEntries int
}

// NewMemoryStore 创建内存会话存储,maxEntries 非正时取默认上限。
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryStore{
		sessions:   make(map[string][]llm.HistoryEntry),
		maxEntries: maxEntries,
	}
}

// Append 追加一轮交互,超出上限时丢弃最旧的记录。
func (s *MemoryStore) Append(ctx context.Context, sessionID string, entry llm.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.sessions[sessionID], entry)
	if overflow := len(entries) - s.maxEntries; overflow > 0 {
		entries = append([]llm.HistoryEntry(nil), entries[overflow:]...)
	}
	s.sessions[sessionID] = entries
	return nil
}

// Recent 返回会话最近的 limit 条记录。
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]llm.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[sessionID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]llm.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Clear 清空会话记忆。
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close 对内存实现是空操作。
func (s *MemoryStore) Close() error { return nil }
