package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SceneMCP-Agent/internal/llm"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultModelName = "gemini-2.0-flash"
	defaultTimeout   = 60 * time.Second
)

// Config 描述了调用 Gemini Generative Language API 所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client 通过 HTTP 调用 Gemini 提供的规划能力。
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient 根据配置创建 Gemini 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Gemini API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Generate 调用 Gemini 生成回复。
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	payload, err := buildPayload(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("解析 Gemini 响应失败: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return nil, errors.New("Gemini 响应中没有有效的 candidates")
	}

	var content strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}
	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, errors.New("Gemini 响应内容为空")
	}

	return &llm.Response{Reply: text}, nil
}

// GenerateStream 调用流式端点，按到达顺序把文本片段交给回调。
func (c *Client) GenerateStream(ctx context.Context, req llm.Request, emit func(chunk string) error) error {
	payload, err := buildPayload(req)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构建 Gemini 流式请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("请求 Gemini 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var event struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		for _, candidate := range event.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				if err := emit(part.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取 Gemini 流式响应失败: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 Gemini 请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求 Gemini 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.statusError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 Gemini 响应失败: %w", err)
	}
	return body, nil
}

// statusError 把配额类错误映射为 llm.ErrQuotaExhausted，便于上层降级。
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if resp.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(detail), "quota") {
		return fmt.Errorf("Gemini 返回状态 %d: %w", resp.StatusCode, llm.ErrQuotaExhausted)
	}
	return fmt.Errorf("Gemini 返回错误状态 %d: %s", resp.StatusCode, detail)
}

func buildPayload(req llm.Request) ([]byte, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": buildPrompt(req)},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.2,
		},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化 Gemini 请求失败: %w", err)
	}
	return encoded, nil
}

func buildPrompt(req llm.Request) string {
	var builder strings.Builder
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		builder.WriteString(ctx)
		builder.WriteString("\n\n")
	}

	if len(req.Knowledge) > 0 {
		builder.WriteString("## Reference Knowledge\n")
		for idx, card := range req.Knowledge {
			builder.WriteString(fmt.Sprintf("[%d] %s: %s\n",
				idx+1,
				strings.TrimSpace(card.Title),
				truncate(card.Content),
			))
			if idx >= 4 {
				break
			}
		}
		builder.WriteString("\n")
	}

	if len(req.History) > 0 {
		builder.WriteString("## Recent Conversation\n")
		for idx, entry := range req.History {
			builder.WriteString(fmt.Sprintf("[%d] goal:%s | reply:%s\n",
				idx+1,
				strings.TrimSpace(entry.Goal),
				truncate(entry.Reply),
			))
			if idx >= 4 {
				break
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString("## Current Goal\n")
	builder.WriteString(strings.TrimSpace(req.Goal))
	return builder.String()
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) > 120 {
		return string([]rune(text)[:120]) + "..."
	}
	return text
}
