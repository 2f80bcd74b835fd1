package llm

import (
	"context"
	"errors"
)

// ErrQuotaExhausted 表示规划服务配额已耗尽，调用方应降级处理。
var ErrQuotaExhausted = errors.New("规划服务配额已耗尽")

// Request 描述发送给规划服务的任务上下文。
type Request struct {
	Goal      string
	Context   string
	History   []HistoryEntry
	Knowledge []KnowledgeCard
}

// Response 是规划服务推理得到的输出，Reply 可能包含需要
// 进一步抽取的结构化任务列表。
type Response struct {
	Thought string
	Reply   string
}

// KnowledgeCard 表示提供给规划服务的知识切片，帮助生成更加准确的计划。
type KnowledgeCard struct {
	Title   string
	Content string
}

// Client 定义了调用规划服务的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// StreamClient 是支持流式输出的可选扩展接口。
// 回调按到达顺序接收文本片段，返回错误即中止流。
type StreamClient interface {
	Client
	GenerateStream(ctx context.Context, req Request, emit func(chunk string) error) error
}

// HistoryEntry 描述一轮历史会话，用于为规划服务提供上下文记忆。
type HistoryEntry struct {
	Goal         string
	Reply        string
	Observations string
	CreatedAt    int64
}
