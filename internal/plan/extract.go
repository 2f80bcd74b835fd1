package plan

import (
	"encoding/json"
	"strings"
)

// ExtractJSON 从规划服务的自由文本回复中提取 JSON 负载。
// 依次尝试:原文直接解析、```json 围栏、最后一个围栏代码块、
// 首个 [ 到最后一个 ] 的子串、首个 { 到最后一个 } 的子串。
// 第一个能解析成功的策略生效。
func ExtractJSON(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	strategies := []func(string) (string, bool){
		func(s string) (string, bool) { return s, true },
		extractTaggedFence,
		extractLastFence,
		func(s string) (string, bool) { return extractDelimited(s, '[', ']') },
		func(s string) (string, bool) { return extractDelimited(s, '{', '}') },
	}

	for _, strategy := range strategies {
		candidate, ok := strategy(text)
		if !ok {
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), true
		}
	}
	return nil, false
}

// extractTaggedFence 截取 ```json 围栏内的内容。
func extractTaggedFence(s string) (string, bool) {
	idx := strings.Index(s, "```json")
	if idx < 0 {
		return "", false
	}
	rest := s[idx+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// extractLastFence 截取最后一个围栏代码块的内容。
func extractLastFence(s string) (string, bool) {
	parts := strings.Split(s, "```")
	if len(parts) < 3 {
		return "", false
	}
	// 围栏内容位于奇数分段,取最后一个。
	for i := len(parts) - 2; i >= 1; i -= 2 {
		content := parts[i]
		// 去掉围栏起始行上的语言标签。
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(content[:nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "[{") {
				content = content[nl+1:]
			}
		}
		if strings.TrimSpace(content) != "" {
			return content, true
		}
	}
	return "", false
}

func extractDelimited(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start < 0 || end < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
