// Package exec 把任务计划逐条落到远端场景服务上,
// 带重试、后置校验和失败自修补。
package exec

import (
	"context"
	"fmt"
	"log/slog"

	xerrors "SceneMCP-Agent/internal/errors"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/pkg/logger"
)

const defaultMaxAttempts = 3

// TaskError 记录一条最终失败的任务。
type TaskError struct {
	Task  string `json:"task"`
	Error string `json:"error"`
	Index int    `json:"task_index"`
}

// Summary 是一次计划执行的汇总结果。
type Summary struct {
	Success   bool        `json:"success"`
	Completed int         `json:"completed"`
	Total     int         `json:"total"`
	Results   []any       `json:"results"`
	Errors    []TaskError `json:"errors,omitempty"`
	Halted    bool        `json:"halted,omitempty"`
}

// Progress 在每条任务结束后回调给调用方,用于流式播报。
type Progress struct {
	Index       int
	Total       int
	Description string
	Success     bool
	Message     string
}

// Engine 顺序执行任务计划。
type Engine struct {
	client      scene.Client
	verifier    Verifier
	maxAttempts int
	log         *slog.Logger
}

// Option 配置执行引擎。
type Option func(*Engine)

// WithVerifier 替换后置校验策略。
func WithVerifier(verifier Verifier) Option {
	return func(e *Engine) { e.verifier = verifier }
}

// WithMaxAttempts 设置单条任务的尝试上限(含首次执行)。
func WithMaxAttempts(attempts int) Option {
	return func(e *Engine) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

// NewEngine 创建执行引擎。
func NewEngine(client scene.Client, opts ...Option) *Engine {
	engine := &Engine{
		client:      client,
		verifier:    NewOptimisticVerifier(),
		maxAttempts: defaultMaxAttempts,
		log:         logger.Named("exec"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Execute 顺序执行整份计划并返回汇总。
func (e *Engine) Execute(ctx context.Context, tasks []plan.Task) Summary {
	return e.execute(ctx, tasks, nil)
}

// ExecuteWithProgress 与 Execute 相同,但每条任务结束后回调 onProgress。
func (e *Engine) ExecuteWithProgress(ctx context.Context, tasks []plan.Task, onProgress func(Progress)) Summary {
	return e.execute(ctx, tasks, onProgress)
}

func (e *Engine) execute(ctx context.Context, tasks []plan.Task, onProgress func(Progress)) Summary {
	summary := Summary{Total: len(tasks), Results: make([]any, 0, len(tasks))}

	for index, task := range tasks {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, TaskError{
				Task:  task.Description,
				Error: xerrors.Wrap(xerrors.CodeTimeout, err, "执行被取消").Error(),
				Index: index,
			})
			summary.Halted = true
			break
		}

		result, err := e.runTask(ctx, task, index)
		if err != nil {
			summary.Errors = append(summary.Errors, TaskError{
				Task:  task.Description,
				Error: err.Error(),
				Index: index,
			})
			if onProgress != nil {
				onProgress(Progress{Index: index, Total: len(tasks),
					Description: task.Description, Message: err.Error()})
			}
			if task.IsCritical(index) {
				e.log.Error("关键任务失败,中止后续执行",
					"task", task.Description, "index", index)
				summary.Halted = true
				break
			}
			continue
		}

		summary.Completed++
		summary.Results = append(summary.Results, result)
		if onProgress != nil {
			onProgress(Progress{Index: index, Total: len(tasks),
				Description: task.Description, Success: true})
		}
	}

	summary.Success = summary.Completed == summary.Total
	return summary
}

// runTask 在尝试上限内执行单条任务,失败之间做一次修补。
func (e *Engine) runTask(ctx context.Context, task plan.Task, index int) (any, error) {
	current := task
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result, err := e.dispatch(ctx, current)
		if err == nil {
			if verifyErr := e.verifier.Verify(ctx, e.client, current); verifyErr != nil {
				err = verifyErr
			} else {
				if attempt > 1 {
					e.log.Info("任务在重试后成功",
						"task", current.Description, "attempt", attempt)
				}
				return result, nil
			}
		}

		lastErr = err
		if xerrors.CodeOf(err) == xerrors.CodeUnknownTaskKind {
			// 未知类型重试没有意义。
			return nil, err
		}
		e.log.Warn("任务执行失败",
			"task", current.Description, "attempt", attempt,
			"max", e.maxAttempts, "error", err)

		if attempt < e.maxAttempts {
			if repaired, ok := Repair(current, err.Error()); ok {
				e.log.Info("应用修补后重试", "task", current.Description)
				current = repaired
			}
		}
	}

	return nil, xerrors.Wrap(xerrors.CodeRetriesExhausted, lastErr,
		fmt.Sprintf("任务 %q 在 %d 次尝试后仍失败", task.Description, e.maxAttempts))
}

// dispatch 把任务类型映射到远端工具调用。
func (e *Engine) dispatch(ctx context.Context, task plan.Task) (any, error) {
	switch task.Kind {
	case plan.KindChat:
		// 纯对话任务不需要远端调用。
		return task.Params, nil
	case plan.KindCreateScript:
		return e.callTool(ctx, string(plan.KindCreateObjectWithProperties), scriptParams(task))
	case plan.KindCreateObject,
		plan.KindCreateObjectWithProperties,
		plan.KindMassCreateObjects,
		plan.KindSetProperty,
		plan.KindMassSetProperty,
		plan.KindGetInstanceProperties,
		plan.KindGetInstanceChildren,
		plan.KindSearchObjects,
		plan.KindGetFileTree,
		plan.KindDeleteObject:
		return e.callTool(ctx, string(task.Kind), task.Params)
	default:
		return nil, xerrors.New(xerrors.CodeUnknownTaskKind,
			fmt.Sprintf("未知的任务类型: %s", task.Kind))
	}
}

func (e *Engine) callTool(ctx context.Context, tool string, params map[string]any) (any, error) {
	result, err := e.client.CallTool(ctx, tool, params)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSceneUnavailable, err, "远端调用失败")
	}
	if msg, failed := result.ErrorMessage(); failed {
		return nil, xerrors.New(xerrors.CodeExecutionFailure, msg)
	}
	return map[string]any(result), nil
}

// scriptParams 把脚本创建任务翻译成带 Source 属性的对象创建参数。
func scriptParams(task plan.Task) map[string]any {
	className, _ := task.Params["script_type"].(string)
	if className == "" {
		className = "Script"
	}
	parent, _ := task.Params["parent_path"].(string)
	if parent == "" {
		parent = "ServerScriptService"
	}
	name, _ := task.Params["name"].(string)
	if name == "" {
		name = "NewScript"
	}
	content, _ := task.Params["content"].(string)
	if content == "" {
		content = "-- Empty script"
	}
	return map[string]any{
		"className": className,
		"parent":    parent,
		"name":      name,
		"properties": map[string]any{
			"Source": content,
		},
	}
}
