// Package session 维护每个会话的多轮对话记忆,
// 供规划器在构造上下文时回看最近的目标和回复。
package session

import (
	"context"

	"SceneMCP-Agent/internal/llm"
)

// Store 抽象会话记忆的持久化方式。
type Store interface {
	// Append 把一轮交互追加到会话末尾。
	Append(ctx context.Context, sessionID string, entry llm.HistoryEntry) error
	// Recent 返回会话最近的 limit 条记录,时间升序。
	Recent(ctx context.Context, sessionID string, limit int) ([]llm.HistoryEntry, error)
	// Clear 清空会话记忆。
	Clear(ctx context.Context, sessionID string) error
	// Close 释放底层连接。
	Close() error
}
