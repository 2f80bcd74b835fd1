package agent

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	xerrors "SceneMCP-Agent/internal/errors"
	"SceneMCP-Agent/internal/exec"
	"SceneMCP-Agent/internal/knowledge"
	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/internal/session"
	"SceneMCP-Agent/internal/storage/mysql"
)

// Request 描述了一个场景构建请求。
type Request struct {
	ID        string         `json:"id,omitempty"`
	Goal      string         `json:"goal"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result 汇总规划与执行得到的结果。
type Result struct {
	Goal         string        `json:"goal"`
	Thought      string        `json:"thought"`
	Reply        string        `json:"reply"`
	TaskCount    int           `json:"task_count"`
	Completed    int           `json:"completed"`
	Observations string        `json:"observations"`
	Summary      *exec.Summary `json:"summary,omitempty"`
	CreatedAt    int64         `json:"created_at"`
}

// Agent 协调规划器、执行引擎与远端场景服务,是系统的业务核心。
type Agent struct {
	llmClient   llm.Client
	planner     *plan.Planner
	engine      *exec.Engine
	sceneClient scene.Client
	sessions    session.Store
	knowledge   knowledge.Provider
	history     mysql.HistoryRepository
	memoryDepth int
	llmTimeout  time.Duration
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// defaultMemoryDepth 是构建上下文时可参考的历史交互数量的默认值。
const defaultMemoryDepth = 5

// WithMemoryDepth 设置构建上下文时可参考的历史交互数量。
func WithMemoryDepth(depth int) Option {
	return func(a *Agent) {
		a.memoryDepth = depth
	}
}

// WithKnowledgeProvider 配置知识库,用于在规划前补充上下文。
func WithKnowledgeProvider(provider knowledge.Provider) Option {
	return func(a *Agent) {
		a.knowledge = provider
	}
}

// WithSessionStore 配置会话记忆存储。
func WithSessionStore(store session.Store) Option {
	return func(a *Agent) {
		a.sessions = store
	}
}

// WithHistoryRepository 配置执行历史的归档仓库。
func WithHistoryRepository(repo mysql.HistoryRepository) Option {
	return func(a *Agent) {
		a.history = repo
	}
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout <= 0 {
			a.llmTimeout = 0
			return
		}
		a.llmTimeout = timeout
	}
}

// New 创建一个 Agent。
func New(llmClient llm.Client, planner *plan.Planner, engine *exec.Engine, sceneClient scene.Client, opts ...Option) *Agent {
	ag := &Agent{
		llmClient:   llmClient,
		planner:     planner,
		engine:      engine,
		sceneClient: sceneClient,
		memoryDepth: defaultMemoryDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	if ag.memoryDepth <= 0 {
		ag.memoryDepth = defaultMemoryDepth
	}
	return ag
}

// Execute 把自然语言目标展开成任务计划并执行。
func (a *Agent) Execute(ctx context.Context, req Request) (*Result, error) {
	if a.planner == nil || a.engine == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置规划器或执行引擎")
	}
	if strings.TrimSpace(req.Goal) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "作业目标不能为空")
	}

	planContext, observations := a.buildContext(ctx, req)

	tasks, err := a.planner.BuildPlan(ctx, req.Goal, planContext)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlanningFailure, err, "生成任务计划失败")
	}

	summary := a.engine.Execute(ctx, tasks)
	observations = appendObservation(observations,
		fmt.Sprintf("执行 %d/%d 个任务成功", summary.Completed, summary.Total))
	for _, taskErr := range summary.Errors {
		observations = appendObservation(observations,
			fmt.Sprintf("任务 %d 失败: %s", taskErr.Index, taskErr.Error))
	}

	thought, reply := a.composeReply(ctx, req.Goal, planContext, summary)

	result := &Result{
		Goal:         req.Goal,
		Thought:      thought,
		Reply:        reply,
		TaskCount:    summary.Total,
		Completed:    summary.Completed,
		Observations: observations,
		Summary:      &summary,
		CreatedAt:    time.Now().Unix(),
	}

	a.remember(ctx, req.SessionID, result)

	// 归档执行记录（如已配置仓库）。
	if err := a.archive(ctx, req, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *Agent) archive(ctx context.Context, req Request, result *Result) error {
	if a.history == nil {
		return nil
	}
	record := mysql.HistoryRecord{
		Goal:      req.Goal,
		SessionID: req.SessionID,
		Thought:   result.Thought,
		Reply:     result.Reply,
		TaskCount: result.TaskCount,
		Completed: result.Completed,
		Observes:  result.Observations,
		CreatedAt: result.CreatedAt,
	}
	if err := a.history.Save(ctx, record); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存执行记录失败")
	}
	return nil
}

// ListHistory 获取最近的执行归档记录。
func (a *Agent) ListHistory(ctx context.Context, limit int) ([]Result, error) {
	if a.history == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置历史仓库")
	}

	records, err := a.history.ListLatest(ctx, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询执行记录失败")
	}

	results := make([]Result, 0, len(records))
	for _, record := range records {
		results = append(results, Result{
			Goal:         record.Goal,
			Thought:      record.Thought,
			Reply:        record.Reply,
			TaskCount:    record.TaskCount,
			Completed:    record.Completed,
			Observations: record.Observes,
			CreatedAt:    record.CreatedAt,
		})
	}
	return results, nil
}

// ExecuteStream 与 Execute 相同,但把任务进度与回复增量写给 emit。
// emit 返回非空错误时中止推送。
func (a *Agent) ExecuteStream(ctx context.Context, req Request, emit func(chunk string) error) (*Result, error) {
	if a.planner == nil || a.engine == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置规划器或执行引擎")
	}
	if strings.TrimSpace(req.Goal) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "作业目标不能为空")
	}
	if emit == nil {
		return a.Execute(ctx, req)
	}

	planContext, observations := a.buildContext(ctx, req)

	tasks, err := a.planner.BuildPlan(ctx, req.Goal, planContext)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlanningFailure, err, "生成任务计划失败")
	}
	_ = emit(fmt.Sprintf("Planned %d tasks.\n", len(tasks)))

	emitErr := error(nil)
	summary := a.engine.ExecuteWithProgress(ctx, tasks, func(p exec.Progress) {
		if emitErr != nil {
			return
		}
		status := "done"
		if !p.Success {
			status = "failed"
		}
		emitErr = emit(fmt.Sprintf("[%d/%d] %s: %s\n", p.Index+1, p.Total, p.Description, status))
	})

	observations = appendObservation(observations,
		fmt.Sprintf("执行 %d/%d 个任务成功", summary.Completed, summary.Total))

	thought, reply := a.streamReply(ctx, req.Goal, planContext, summary, emit)

	result := &Result{
		Goal:         req.Goal,
		Thought:      thought,
		Reply:        reply,
		TaskCount:    summary.Total,
		Completed:    summary.Completed,
		Observations: observations,
		Summary:      &summary,
		CreatedAt:    time.Now().Unix(),
	}
	a.remember(ctx, req.SessionID, result)
	if err := a.archive(ctx, req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// buildContext 汇集场景状态、会话历史与知识库内容,作为规划上下文。
func (a *Agent) buildContext(ctx context.Context, req Request) (string, string) {
	var sections []string
	observations := ""

	if a.sceneClient != nil {
		if err := a.sceneClient.CheckHealth(ctx); err != nil {
			observations = appendObservation(observations, fmt.Sprintf("场景服务不可达: %v", err))
		} else {
			if snapshot, err := a.sceneClient.FetchSnapshot(ctx); err == nil {
				sections = append(sections, fmt.Sprintf("Current place: %s", snapshot.Name))
			}
			if goalWantsStructure(req.Goal) {
				if tree, err := a.sceneClient.CallTool(ctx, "get_file_tree", map[string]any{}); err == nil && !tree.Failed() {
					if encoded, err := json.Marshal(tree); err == nil {
						sections = append(sections, "Current project structure:\n"+string(encoded))
					}
				}
			}
		}
	}

	if a.sessions != nil && req.SessionID != "" {
		entries, err := a.sessions.Recent(ctx, req.SessionID, a.memoryDepth)
		if err != nil {
			observations = appendObservation(observations, fmt.Sprintf("加载会话历史失败: %v", err))
		} else if len(entries) > 0 {
			var lines []string
			for _, entry := range entries {
				lines = append(lines, fmt.Sprintf("- Goal: %s / Reply: %s", entry.Goal, truncate(entry.Reply, 120)))
			}
			sections = append(sections, "Recent conversation:\n"+strings.Join(lines, "\n"))
		}
	}

	if a.knowledge != nil {
		snippets := a.knowledge.Query(req.Goal)
		titles := make([]string, 0, len(snippets))
		for _, snippet := range snippets {
			if strings.TrimSpace(snippet.Content) == "" {
				continue
			}
			sections = append(sections, fmt.Sprintf("%s:\n%s", snippet.Title, snippet.Content))
			if snippet.Title != "" {
				titles = append(titles, snippet.Title)
			}
		}
		if len(titles) > 0 {
			observations = appendObservation(observations,
				fmt.Sprintf("知识库提示: %s", strings.Join(titles, "、")))
		}
	}

	return strings.Join(sections, "\n\n"), observations
}

// composeReply 请求大模型总结执行结果,额度耗尽时退回本地摘要。
func (a *Agent) composeReply(ctx context.Context, goal, planContext string, summary exec.Summary) (string, string) {
	fallback := summaryReply(goal, summary)
	if a.llmClient == nil {
		return "", fallback
	}

	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	resp, err := a.llmClient.Generate(llmCtx, llm.Request{
		Goal:    goal,
		Context: planContext + "\n\n" + executionReport(summary),
	})
	if err != nil {
		if stdErrors.Is(err, llm.ErrQuotaExhausted) {
			return "", fallback
		}
		return "", fallback
	}
	if strings.TrimSpace(resp.Reply) == "" {
		return resp.Thought, fallback
	}
	return resp.Thought, resp.Reply
}

// streamReply 在支持流式的大模型客户端上增量推送回复。
func (a *Agent) streamReply(ctx context.Context, goal, planContext string, summary exec.Summary, emit func(string) error) (string, string) {
	streamer, ok := a.llmClient.(llm.StreamClient)
	if !ok {
		thought, reply := a.composeReply(ctx, goal, planContext, summary)
		_ = emit(reply)
		return thought, reply
	}

	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	var builder strings.Builder
	err := streamer.GenerateStream(llmCtx, llm.Request{
		Goal:    goal,
		Context: planContext + "\n\n" + executionReport(summary),
	}, func(chunk string) error {
		builder.WriteString(chunk)
		return emit(chunk)
	})
	if err != nil || strings.TrimSpace(builder.String()) == "" {
		fallback := summaryReply(goal, summary)
		_ = emit(fallback)
		return "", fallback
	}
	return "", builder.String()
}

// goalWantsStructure 判断目标是否在询问工程结构，只有这时才拉取文件树。
func goalWantsStructure(goal string) bool {
	lower := strings.ToLower(goal)
	for _, keyword := range []string{"analyze", "project", "structure", "file", "show"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func (a *Agent) remember(ctx context.Context, sessionID string, result *Result) {
	if a.sessions == nil || sessionID == "" {
		return
	}
	_ = a.sessions.Append(ctx, sessionID, llm.HistoryEntry{
		Goal:         result.Goal,
		Reply:        result.Reply,
		Observations: result.Observations,
		CreatedAt:    result.CreatedAt,
	})
}

// summaryReply 在大模型不可用时产出的本地回复。
func summaryReply(goal string, summary exec.Summary) string {
	if summary.Total == 0 {
		return fmt.Sprintf("I couldn't build a plan for %q, but I'm happy to help if you rephrase the goal.", goal)
	}
	if summary.Success {
		return fmt.Sprintf("Done! Completed all %d tasks for %q.", summary.Total, goal)
	}
	return fmt.Sprintf("Completed %d of %d tasks for %q. Check the errors for details.",
		summary.Completed, summary.Total, goal)
}

// executionReport 把执行汇总编成大模型可读的文本。
func executionReport(summary exec.Summary) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Execution report: %d/%d tasks completed.\n", summary.Completed, summary.Total)
	for _, taskErr := range summary.Errors {
		fmt.Fprintf(&builder, "- Task %d (%s) failed: %s\n", taskErr.Index, taskErr.Task, taskErr.Error)
	}
	if summary.Halted {
		builder.WriteString("Execution halted early after a critical failure.\n")
	}
	return builder.String()
}

// appendObservation 将新的观察结果追加到现有的观察字符串中。
func appendObservation(existing, next string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return next
	}
	return existing + "\n" + next
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
