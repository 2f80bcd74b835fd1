package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config 描述了 SceneMCP 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	JobQueue  JobQueueConfig  `json:"job_queue"`
	LLM       LLMConfig       `json:"llm"`
	Scene     SceneConfig     `json:"scene"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Agent     AgentConfig     `json:"agent"`
	Exec      ExecConfig      `json:"exec"`
	Session   SessionConfig   `json:"session"`
	Logging   LoggingConfig   `json:"logging"`
	Runtime   RuntimeConfig   `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// StorageConfig 统一描述 MySQL 等后端的连接信息。
type StorageConfig struct {
	JobStore JobStoreConfig `json:"job_store"`
	History  HistoryConfig  `json:"history"`
}

// HistoryConfig 描述执行历史归档的持久化方式，默认为本地文件实现。
type HistoryConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds"`
}

// JobStoreConfig 描述规划作业的持久化方式，默认为内存实现。
type JobStoreConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	Retries                int    `json:"retries"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds"`
}

// JobQueueConfig 描述作业排队所用的消息通道。
type JobQueueConfig struct {
	Driver   string              `json:"driver"`
	Worker   int                 `json:"worker"`
	Redis    RedisQueueConfig    `json:"redis"`
	RabbitMQ RabbitMQQueueConfig `json:"rabbitmq"`
}

// RedisQueueConfig 描述 Redis 列表队列的连接参数。
type RedisQueueConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQQueueConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQQueueConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LLMConfig 用于配置规划服务的调用方式。
type LLMConfig struct {
	Provider string             `json:"provider"`
	Gemini   GeminiConfig       `json:"gemini"`
	Python   PythonBridgeConfig `json:"python_bridge"`
}

// GeminiConfig 描述直连 Gemini API 所需的信息。
type GeminiConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回调用超时时间，未配置时为 60 秒。
func (c GeminiConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PythonBridgeConfig 描述通过 Python 脚本完成推理时所需的信息。
type PythonBridgeConfig struct {
	Enabled          bool   `json:"enabled"`
	PythonExecutable string `json:"python_executable"`
	ScriptPath       string `json:"script_path"`
	WorkingDir       string `json:"working_dir"`
}

// SceneConfig 包含访问远端场景服务所需的端点信息。
type SceneConfig struct {
	BackendConfig  string `json:"backend_config"`
	BaseURL        string `json:"base_url"`
	DefaultBackend string `json:"default_backend"`
}

// KnowledgeConfig 描述静态知识库的加载来源。
type KnowledgeConfig struct {
	Source     string `json:"source"`
	MaxResults int    `json:"max_results"`
}

// AgentConfig 控制智能体的会话与上下文行为。
type AgentConfig struct {
	MemoryDepth int `json:"memory_depth"`
}

// ExecConfig 控制执行引擎的重试与校验策略。
type ExecConfig struct {
	MaxAttempts int    `json:"max_attempts"`
	Verifier    string `json:"verifier"`
}

// SessionConfig 控制会话历史的留存策略。
type SessionConfig struct {
	Driver     string `json:"driver"`
	MaxEntries int    `json:"max_entries"`
	Redis      struct {
		Address    string `json:"address"`
		Password   string `json:"password"`
		DB         int    `json:"db"`
		TTLMinutes int    `json:"ttl_minutes"`
	} `json:"redis"`
}

// LoggingConfig 映射到 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	Audit       struct {
		Enabled    bool   `json:"enabled"`
		Path       string `json:"path"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
		MaxAgeDays int    `json:"max_age_days"`
	} `json:"audit"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Storage.JobStore.Driver == "" {
		c.Storage.JobStore.Driver = "memory"
	}
	if c.Storage.JobStore.Retries <= 0 {
		c.Storage.JobStore.Retries = 3
	}
	if c.Storage.History.Driver == "" {
		c.Storage.History.Driver = "memory"
	}

	if c.JobQueue.Driver == "" {
		c.JobQueue.Driver = "memory"
	}
	if c.JobQueue.Worker <= 0 {
		c.JobQueue.Worker = 1
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Gemini.Model == "" {
		c.LLM.Gemini.Model = "gemini-2.0-flash"
	}
	if c.LLM.Gemini.APIKeyEnv == "" {
		c.LLM.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.LLM.Python.PythonExecutable == "" {
		c.LLM.Python.PythonExecutable = "python3"
	}
	if c.LLM.Python.WorkingDir == "" {
		c.LLM.Python.WorkingDir = baseDir
	} else if !filepath.IsAbs(c.LLM.Python.WorkingDir) {
		c.LLM.Python.WorkingDir = filepath.Join(baseDir, c.LLM.Python.WorkingDir)
	}

	if c.Scene.BaseURL == "" && c.Scene.BackendConfig == "" {
		c.Scene.BaseURL = "http://localhost:3002"
	}
	if c.Scene.BackendConfig != "" && !filepath.IsAbs(c.Scene.BackendConfig) {
		c.Scene.BackendConfig = filepath.Join(baseDir, c.Scene.BackendConfig)
	}

	if c.Knowledge.Source != "" && !filepath.IsAbs(c.Knowledge.Source) {
		c.Knowledge.Source = filepath.Join(baseDir, c.Knowledge.Source)
	}

	if c.Agent.MemoryDepth <= 0 {
		c.Agent.MemoryDepth = 5
	}

	if c.Exec.MaxAttempts <= 0 {
		c.Exec.MaxAttempts = 3
	}
	if c.Exec.Verifier == "" {
		c.Exec.Verifier = "optimistic"
	}

	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.MaxEntries <= 0 {
		c.Session.MaxEntries = 50
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.Logging.OutputPaths) == 0 {
		c.Logging.OutputPaths = []string{"stdout"}
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}
