package agent

import (
	"context"
	"strings"
	"testing"

	"SceneMCP-Agent/internal/exec"
	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/internal/session"
	"SceneMCP-Agent/internal/storage/mysql"
)

type stubLLM struct {
	resp *llm.Response
	err  error
}

func (s *stubLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &llm.Response{Reply: "ok"}, nil
}

type stubScene struct {
	calls int
	tools []string
}

func (s *stubScene) CheckHealth(ctx context.Context) error { return nil }

func (s *stubScene) CallTool(ctx context.Context, tool string, params map[string]any) (scene.Result, error) {
	s.calls++
	s.tools = append(s.tools, tool)
	return scene.Result{"success": true}, nil
}

func (s *stubScene) FetchSnapshot(ctx context.Context) (scene.Snapshot, error) {
	return scene.Snapshot{Name: "TestPlace"}, nil
}

func (s *stubScene) Close() {}

func newTestAgent(llmClient llm.Client, opts ...Option) (*Agent, *stubScene) {
	sceneClient := &stubScene{}
	planner := plan.NewPlanner(llmClient)
	engine := exec.NewEngine(sceneClient)
	return New(llmClient, planner, engine, sceneClient, opts...), sceneClient
}

func TestAgentExecuteObbyGoal(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Thought: "分析", Reply: "Your obby is ready!"}}
	ag, sceneClient := newTestAgent(llmClient)

	result, err := ag.Execute(context.Background(), Request{Goal: "build an obby with 5 platforms"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TaskCount != 5 {
		t.Fatalf("期望 5 条任务, 实际 %d", result.TaskCount)
	}
	if result.Completed != result.TaskCount {
		t.Fatalf("completed = %d", result.Completed)
	}
	if result.Reply != "Your obby is ready!" {
		t.Fatalf("reply = %q", result.Reply)
	}
	if sceneClient.calls == 0 {
		t.Fatal("执行过程应当调用远端工具")
	}
}

func TestAgentExecuteRejectsEmptyGoal(t *testing.T) {
	ag, _ := newTestAgent(&stubLLM{})
	if _, err := ag.Execute(context.Background(), Request{Goal: "   "}); err == nil {
		t.Fatal("空目标应当报错")
	}
}

func TestAgentQuotaExhaustedFallsBackToLocalReply(t *testing.T) {
	llmClient := &stubLLM{err: llm.ErrQuotaExhausted}
	ag, _ := newTestAgent(llmClient)

	result, err := ag.Execute(context.Background(), Request{Goal: "build an obby with 3 platforms"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Reply, "Done!") {
		t.Fatalf("额度耗尽时应退回本地摘要, 实际: %q", result.Reply)
	}
}

func TestAgentRemembersSession(t *testing.T) {
	store := session.NewMemoryStore(10)
	ag, _ := newTestAgent(&stubLLM{}, WithSessionStore(store))

	if _, err := ag.Execute(context.Background(), Request{
		Goal:      "build an obby with 3 platforms",
		SessionID: "s1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.Recent(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("期望 1 条会话记录, 实际 %d", len(entries))
	}
	if entries[0].Goal != "build an obby with 3 platforms" {
		t.Fatalf("会话记录目标不符: %q", entries[0].Goal)
	}
}

func TestAgentExecuteStreamEmitsProgress(t *testing.T) {
	ag, _ := newTestAgent(&stubLLM{resp: &llm.Response{Reply: "All set."}})

	var chunks []string
	result, err := ag.ExecuteStream(context.Background(), Request{
		Goal: "build an obby with 4 platforms",
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TaskCount != 5 {
		t.Fatalf("task count = %d", result.TaskCount)
	}

	joined := strings.Join(chunks, "")
	if !strings.Contains(joined, "[1/5]") {
		t.Fatalf("进度事件缺失: %q", joined)
	}
	if !strings.Contains(joined, "All set.") {
		t.Fatalf("最终回复缺失: %q", joined)
	}
}

func TestAgentArchivesExecutionHistory(t *testing.T) {
	repo, err := mysql.NewMemoryHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewMemoryHistoryRepository: %v", err)
	}
	ag, _ := newTestAgent(&stubLLM{resp: &llm.Response{Reply: "ok"}}, WithHistoryRepository(repo))

	if _, err := ag.Execute(context.Background(), Request{
		Goal:      "build an obby with 5 platforms",
		SessionID: "s-archive",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := ag.ListHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 条归档记录, 实际 %d", len(records))
	}
	if records[0].Goal != "build an obby with 5 platforms" || records[0].TaskCount != 5 {
		t.Fatalf("归档记录不符: %+v", records[0])
	}
}

func TestAgentListHistoryWithoutRepository(t *testing.T) {
	ag, _ := newTestAgent(&stubLLM{})
	if _, err := ag.ListHistory(context.Background(), 5); err == nil {
		t.Fatal("未配置仓库时应当返回错误")
	}
}

func TestAgentFetchesFileTreeForStructureGoals(t *testing.T) {
	ag, sceneClient := newTestAgent(&stubLLM{resp: &llm.Response{Reply: "ok"}})

	if _, err := ag.Execute(context.Background(), Request{
		Goal: "show me the project structure",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !containsTool(sceneClient.tools, "get_file_tree") {
		t.Fatalf("询问工程结构时应当拉取文件树, 实际调用: %v", sceneClient.tools)
	}
}

func TestAgentSkipsFileTreeForBuildGoals(t *testing.T) {
	ag, sceneClient := newTestAgent(&stubLLM{resp: &llm.Response{Reply: "ok"}})

	if _, err := ag.Execute(context.Background(), Request{
		Goal: "build an obby with 3 platforms",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if containsTool(sceneClient.tools, "get_file_tree") {
		t.Fatalf("普通建造目标不应拉取文件树, 实际调用: %v", sceneClient.tools)
	}
}

func containsTool(tools []string, name string) bool {
	for _, tool := range tools {
		if tool == name {
			return true
		}
	}
	return false
}
