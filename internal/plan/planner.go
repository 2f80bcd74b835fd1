package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SceneMCP-Agent/internal/knowledge"
	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/tools"
	"SceneMCP-Agent/pkg/logger"
)

const defaultParseRetries = 2

// Planner 把目标字符串和运行上下文转换为有序任务列表。
// 常见目标形态走确定性模式,其余退回外部规划服务;
// 规划服务不可用或输出无法解析时降级为单个 chat 任务,
// 调用方永远不会收到不可恢复的错误。
type Planner struct {
	llm          llm.Client
	classifier   Classifier
	parseRetries int
	log          *slog.Logger
}

// Option 用于调整规划器行为。
type Option func(*Planner)

// WithClassifier 替换默认的关键词分类器。
func WithClassifier(c Classifier) Option {
	return func(p *Planner) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithParseRetries 设置规划服务输出解析的重试次数。
func WithParseRetries(retries int) Option {
	return func(p *Planner) {
		if retries > 0 {
			p.parseRetries = retries
		}
	}
}

// NewPlanner 创建规划器。
func NewPlanner(client llm.Client, opts ...Option) *Planner {
	p := &Planner{
		llm:          client,
		classifier:   NewKeywordClassifier(),
		parseRetries: defaultParseRetries,
		log:          logger.Named("planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildPlan 产出一份合法的、空间一致的任务列表。
// planContext 携带能力文档、近期会话与可选的项目快照。
func (p *Planner) BuildPlan(ctx context.Context, goal, planContext string) ([]Task, error) {
	intent := p.classifier.Classify(goal)
	p.log.Info("规划目标", "intent", string(intent), "goal", goal)

	switch intent {
	case IntentObby:
		return obbyPlan(goal)
	case IntentTycoon:
		return tycoonPlan(), nil
	case IntentBuilding:
		return buildingPlan(goal)
	case IntentScript:
		return p.scriptPlan(ctx, goal)
	default:
		return p.aiPlan(ctx, goal, planContext), nil
	}
}

// scriptPlan 让规划服务生成脚本内容,再包装为脚本创建任务。
// 生成失败时退回本地模板,保证计划总能产出。
func (p *Planner) scriptPlan(ctx context.Context, goal string) ([]Task, error) {
	prompt := fmt.Sprintf(`Create a Lua script for a 3D scene backend that implements: %s

Requirements:
- Use proper service access via game:GetService()
- Include error handling with pcall where appropriate
- Add comments explaining the code
- Make it production-ready

Return ONLY the Lua code, no explanations.`, goal)

	content := ""
	resp, err := p.llm.Generate(ctx, llm.Request{Goal: prompt})
	if err != nil {
		p.log.Warn("脚本生成失败,退回本地模板", "error", err)
		content, _ = knowledge.Template("module_script")
	} else {
		content = stripFence(resp.Reply)
	}
	if strings.TrimSpace(content) == "" {
		content, _ = knowledge.Template("module_script")
	}

	return []Task{scriptTaskFor(goal, content)}, nil
}

// aiPlan 构造嵌入能力目录的结构化提示并解析响应,
// 重试耗尽后降级为单个 chat 任务。
func (p *Planner) aiPlan(ctx context.Context, goal, planContext string) []Task {
	if len(planContext) > 300 {
		planContext = planContext[:300]
	}

	prompt := fmt.Sprintf(`%s

User Request: %q

Context: %s

Create a detailed execution plan. CRITICAL RULES:

1. SPATIAL AWARENESS:
   - If creating multiple objects, they MUST have DIFFERENT CFrame positions!
   - Use mass_create_objects_with_properties with calculated positions

2. TOOL SELECTION:
   - ALWAYS use mass_create_objects_with_properties for multiple objects
   - ALWAYS use create_object_with_properties (never plain create_object)
   - Include verification steps using get_instance_properties

3. TASK FORMAT:
   Each task must have:
   - type: tool name
   - description: what this does
   - params: exact parameters for the tool
   - reasoning: why this approach
   - verify_with: (optional) tool to verify success
   - verify_params: (optional) params for verification

Return ONLY a JSON array of tasks.`, tools.ContextForPlanner(), goal, planContext)

	for attempt := 0; attempt < p.parseRetries; attempt++ {
		resp, err := p.llm.Generate(ctx, llm.Request{Goal: prompt})
		if err != nil {
			p.log.Warn("规划服务调用失败", "attempt", attempt+1, "error", err)
			continue
		}
		raw, ok := ExtractJSON(resp.Reply)
		if !ok {
			p.log.Warn("规划服务输出无法提取", "attempt", attempt+1)
			continue
		}
		tasks, err := DecodeTasks(raw)
		if err != nil {
			p.log.Warn("规划服务输出不合法", "attempt", attempt+1, "error", err)
			continue
		}
		return tasks
	}

	p.log.Warn("规划降级为 chat 任务", "goal", goal)
	return []Task{chatFallback(goal)}
}

// chatFallback 是规划失败时的兜底任务。
func chatFallback(goal string) Task {
	return Task{
		Kind:        KindChat,
		Description: "Unable to create detailed plan, providing guidance",
		Params:      map[string]any{"goal": goal},
		Reasoning:   "Fallback to chat mode",
	}
}

// stripFence 去掉脚本内容外层的围栏标记。
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		first := strings.TrimSpace(text[:nl])
		if first == "lua" || first == "luau" || first == "" {
			text = text[nl+1:]
		}
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
