// Package studio 通过 JSON-over-HTTP 协议访问 Studio 场景服务，
// 每个远端操作对应一次 POST /{tool} 往返。
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SceneMCP-Agent/internal/scene"
)

const (
	defaultTimeout = 30 * time.Second
	healthTimeout  = 2 * time.Second
)

// Config describes how to construct a Studio backend client.
type Config struct {
	Name       string
	BaseURL    string
	HealthPath string
	Timeout    time.Duration
	Notes      string
	// HTTPClient 仅用于测试替换底层传输。
	HTTPClient *http.Client
}

// Client implements the scene.Client interface for Studio backends.
type Client struct {
	name       string
	baseURL    string
	healthPath string
	notes      string
	http       *http.Client
}

// NewClient validates the endpoint configuration and returns a ready-to-use client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("未配置场景服务地址")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	healthPath := strings.TrimSpace(cfg.HealthPath)
	if healthPath == "" {
		healthPath = "/health"
	}
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}

	return &Client{
		name:       cfg.Name,
		baseURL:    baseURL,
		healthPath: healthPath,
		notes:      cfg.Notes,
		http:       httpClient,
	}, nil
}

// CheckHealth 对健康检查端点做一次轻量 GET 探测。
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return fmt.Errorf("构造健康检查请求失败: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("场景服务不可达: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("场景服务健康检查返回状态 %d", resp.StatusCode)
	}
	return nil
}

// CallTool 以 POST /{tool} 的形式调用一个远端操作。
// 传输或解码失败返回 error；远端的业务错误保留在 Result 的 error 字段中。
func (c *Client) CallTool(ctx context.Context, tool string, params map[string]any) (scene.Result, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return nil, errors.New("远端操作名称不能为空")
	}
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("序列化操作参数失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+tool, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造操作请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用远端操作 %s 失败: %w", tool, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("读取操作 %s 的响应失败: %w", tool, err)
	}

	var result scene.Result
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			// 非对象响应按错误负载处理，交由上层的重试逻辑消化。
			result = scene.Result{"error": fmt.Sprintf("操作 %s 返回无法解析的响应: %s", tool, truncate(string(payload), 200))}
			return result, nil
		}
	}
	if result == nil {
		result = scene.Result{}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if _, ok := result.ErrorMessage(); !ok {
			result["error"] = fmt.Sprintf("操作 %s 返回 HTTP %d", tool, resp.StatusCode)
		}
	}
	return result, nil
}

// FetchSnapshot 读取后端元信息，失败时返回仅含本地信息的快照。
func (c *Client) FetchSnapshot(ctx context.Context) (scene.Snapshot, error) {
	snapshot := scene.Snapshot{Name: c.name, Notes: c.notes}

	result, err := c.CallTool(ctx, "get_place_info", nil)
	if err != nil {
		return snapshot, err
	}
	if msg, failed := result.ErrorMessage(); failed {
		return snapshot, fmt.Errorf("获取场景元信息失败: %s", msg)
	}
	if placeID, ok := result["placeId"].(string); ok {
		snapshot.PlaceID = placeID
	} else if placeID, ok := result["placeId"].(float64); ok {
		snapshot.PlaceID = fmt.Sprintf("%.0f", placeID)
	}
	if name, ok := result["name"].(string); ok && name != "" {
		snapshot.Name = name
	}
	return snapshot, nil
}

// Close 释放底层连接。
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
