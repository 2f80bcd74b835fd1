package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"SceneMCP-Agent/internal/agent"
	"SceneMCP-Agent/internal/api"
	"SceneMCP-Agent/internal/config"
	"SceneMCP-Agent/internal/exec"
	"SceneMCP-Agent/internal/job"
	"SceneMCP-Agent/internal/knowledge"
	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/llm/gemini"
	"SceneMCP-Agent/internal/llm/pythonbridge"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene/provider"
	"SceneMCP-Agent/internal/session"
	"SceneMCP-Agent/internal/storage/mysql"
	"SceneMCP-Agent/pkg/logger"
)

// main 是 SceneMCP 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("scenemcpd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("SCENEMCP_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "scenemcp.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	// 初始化大模型客户端。
	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return err
	}

	dataDir := cfg.Runtime.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	historyRepo, err := createHistoryRepository(ctx, cfg, dataDir)
	if err != nil {
		return err
	}
	defer historyRepo.Close()

	var jobStore job.Store
	switch cfg.Storage.JobStore.Driver {
	case "memory", "":
		jobStore = job.NewMemoryStore()
	case "mysql":
		store, err := job.NewMySQLStore(cfg.Storage.JobStore.DSN)
		if err != nil {
			return err
		}
		jobStore = store
	default:
		return fmt.Errorf("未知的作业存储驱动: %s", cfg.Storage.JobStore.Driver)
	}
	defer func() {
		if jobStore != nil {
			_ = jobStore.Close()
		}
	}()

	var jobQueue job.Queue
	switch cfg.JobQueue.Driver {
	case "", "memory":
		jobQueue = job.NewMemoryQueue(1024)
	case "redis":
		queue, err := job.NewRedisQueue(job.RedisQueueConfig{
			Address:   cfg.JobQueue.Redis.Address,
			Password:  cfg.JobQueue.Redis.Password,
			DB:        cfg.JobQueue.Redis.DB,
			Queue:     cfg.JobQueue.Redis.Queue,
			BlockWait: time.Duration(cfg.JobQueue.Redis.BlockWait) * time.Second,
		})
		if err != nil {
			return err
		}
		jobQueue = queue
	case "rabbitmq":
		queue, err := job.NewRabbitMQQueue(job.RabbitMQConfig{
			URL:        cfg.JobQueue.RabbitMQ.URL,
			Queue:      cfg.JobQueue.RabbitMQ.Queue,
			Prefetch:   cfg.JobQueue.RabbitMQ.Prefetch,
			Durable:    cfg.JobQueue.RabbitMQ.Durable,
			AutoDelete: cfg.JobQueue.RabbitMQ.AutoDelete,
		})
		if err != nil {
			return err
		}
		jobQueue = queue
	default:
		return fmt.Errorf("未知的队列驱动: %s", cfg.JobQueue.Driver)
	}
	defer func() {
		if jobQueue != nil {
			if err := jobQueue.Close(); err != nil {
				logger.L().Warn("关闭作业队列失败", "error", err)
			}
		}
	}()

	sceneRegistry, err := provider.NewRegistry(cfg.Scene)
	if err != nil {
		return err
	}
	defer sceneRegistry.Close()

	sceneClient, err := sceneRegistry.DefaultClient()
	if err != nil {
		return err
	}

	sessionStore, err := createSessionStore(cfg)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	var knowledgeProvider knowledge.Provider
	if cfg.Knowledge.Source != "" {
		provider, err := knowledge.LoadStaticProvider(cfg.Knowledge.Source, cfg.Knowledge.MaxResults)
		if err != nil {
			return err
		}
		knowledgeProvider = provider
	}

	planner := plan.NewPlanner(llmClient)
	engine := exec.NewEngine(sceneClient,
		exec.WithVerifier(exec.NewVerifier(cfg.Exec.Verifier)),
		exec.WithMaxAttempts(cfg.Exec.MaxAttempts),
	)

	opts := []agent.Option{
		agent.WithMemoryDepth(cfg.Agent.MemoryDepth),
		agent.WithKnowledgeProvider(knowledgeProvider),
		agent.WithSessionStore(sessionStore),
		agent.WithHistoryRepository(historyRepo),
	}
	if cfg.LLM.Provider == "gemini" {
		opts = append(opts, agent.WithLLMTimeout(cfg.LLM.Gemini.Timeout()))
	}

	ag := agent.New(llmClient, planner, engine, sceneClient, opts...)

	jobService := job.NewService(jobStore, jobQueue, cfg.Storage.JobStore.Retries)
	processor := job.NewProcessor(ag, jobStore, jobQueue, jobQueue,
		job.WithWorkerCount(cfg.JobQueue.Worker),
		job.WithProcessorLogger(logger.Named("processor")),
	)

	processorCtx, processorCancel := context.WithCancel(ctx)
	defer processorCancel()

	go func() {
		if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("作业处理器异常退出", "error", err)
		}
	}()

	server := api.NewServer(cfg.Server.Address, jobService, ag)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "gemini":
		apiKey := strings.TrimSpace(cfg.LLM.Gemini.APIKey)
		if apiKey == "" && cfg.LLM.Gemini.APIKeyEnv != "" {
			apiKey = strings.TrimSpace(os.Getenv(cfg.LLM.Gemini.APIKeyEnv))
		}
		if apiKey == "" {
			return nil, errors.New("Gemini provider 需要配置 api_key 或 api_key_env")
		}
		return gemini.NewClient(gemini.Config{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.Gemini.BaseURL,
			Model:   cfg.LLM.Gemini.Model,
			Timeout: cfg.LLM.Gemini.Timeout(),
		})
	case "python_bridge":
		scriptPath := pythonbridge.ResolveScriptPath(cfg.LLM.Python.WorkingDir, cfg.LLM.Python.ScriptPath)
		return pythonbridge.NewClient(cfg.LLM.Python.PythonExecutable, scriptPath, cfg.LLM.Python.WorkingDir)
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

func createHistoryRepository(ctx context.Context, cfg *config.Config, dataDir string) (mysql.HistoryRepository, error) {
	switch cfg.Storage.History.Driver {
	case "memory", "":
		return mysql.NewMemoryHistoryRepository(dataDir)
	case "mysql":
		return mysql.NewSQLHistoryRepository(ctx, mysql.Config{
			DSN:             cfg.Storage.History.DSN,
			MaxOpenConns:    cfg.Storage.History.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.History.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.History.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Storage.History.ConnMaxIdleTimeSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的历史存储驱动: %s", cfg.Storage.History.Driver)
	}
}

func createSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Driver {
	case "", "memory":
		return session.NewMemoryStore(cfg.Session.MaxEntries), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Address:    cfg.Session.Redis.Address,
			Password:   cfg.Session.Redis.Password,
			DB:         cfg.Session.Redis.DB,
			MaxEntries: cfg.Session.MaxEntries,
			TTL:        time.Duration(cfg.Session.Redis.TTLMinutes) * time.Minute,
		})
	default:
		return nil, fmt.Errorf("未知的会话存储驱动: %s", cfg.Session.Driver)
	}
}
