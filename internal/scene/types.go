package scene

import (
	"context"
	"fmt"
)

// Snapshot 汇总远端场景服务的元信息，用于上下文构建与上报。
type Snapshot struct {
	Name    string
	PlaceID string
	Notes   string
}

// Result 是远端操作返回的原始负载。
// 约定：负载中出现 error 字段即视为操作失败，与 HTTP 状态码无关。
type Result map[string]any

// ErrorMessage 返回负载中携带的错误文本。
// error 字段只要存在且非 nil 即视为失败，与取值形态无关。
func (r Result) ErrorMessage() (string, bool) {
	if r == nil {
		return "", false
	}
	raw, ok := r["error"]
	if !ok || raw == nil {
		return "", false
	}
	if msg, ok := raw.(string); ok {
		if msg == "" {
			return "远端返回了未说明的错误", true
		}
		return msg, true
	}
	return fmt.Sprintf("%v", raw), true
}

// Failed 报告负载是否携带错误字段。
func (r Result) Failed() bool {
	_, failed := r.ErrorMessage()
	return failed
}

// Client 定义所有场景后端实现必须提供的统一接口，
// 上层无需关心具体后端差异。
type Client interface {
	// CheckHealth 探测后端连通性，接受任何计划之前都会先调用。
	CheckHealth(ctx context.Context) error
	// CallTool 以同步往返方式调用一个远端操作。
	// 传输层失败返回 error；业务层失败体现在 Result 的 error 字段里。
	CallTool(ctx context.Context, tool string, params map[string]any) (Result, error)
	// FetchSnapshot 获取后端元信息。
	FetchSnapshot(ctx context.Context) (Snapshot, error)
	Close()
}
