package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SceneMCP-Agent/internal/agent"
	"SceneMCP-Agent/internal/exec"
	"SceneMCP-Agent/internal/job"
	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/internal/storage/mysql"
)

func TestHandleJobDetailSuccess(t *testing.T) {
	store := job.NewMemoryStore()
	svc := job.NewService(store, job.NewMemoryQueue(8), 3)
	server := NewServer(":0", svc, nil)

	sample := &job.Job{
		ID:         "job-success",
		Goal:       "demo",
		Status:     job.StatusSucceeded,
		Attempts:   1,
		MaxRetries: 3,
		CreatedAt:  1700000000,
		UpdatedAt:  1700000001,
		Result: &job.PlanResult{
			Reply:     "ok",
			TaskCount: 5,
			Completed: 5,
		},
	}
	if err := store.Create(context.Background(), sample); err != nil {
		t.Fatalf("create sample job: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-success", nil)
	rec := httptest.NewRecorder()

	server.handleJobDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}

	var got job.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != sample.ID {
		t.Fatalf("unexpected job id: got %q want %q", got.ID, sample.ID)
	}
	if got.Result == nil || got.Result.Completed != 5 {
		t.Fatalf("unexpected job result: %+v", got.Result)
	}
}

func TestHandleJobDetailErrors(t *testing.T) {
	server := NewServer(":0", job.NewService(job.NewMemoryStore(), job.NewMemoryQueue(8), 3), nil)

	t.Run("invalid method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/job-1", nil)
		rec := httptest.NewRecorder()

		server.handleJobDetail(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/", nil)
		rec := httptest.NewRecorder()

		server.handleJobDetail(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
		rec := httptest.NewRecorder()

		server.handleJobDetail(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestHandleSubmitJobQueues(t *testing.T) {
	store := job.NewMemoryStore()
	svc := job.NewService(store, job.NewMemoryQueue(8), 3)
	server := NewServer(":0", svc, nil)

	body := strings.NewReader(`{"goal": "build an obby with 5 platforms"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	rec := httptest.NewRecorder()

	server.handleJobs(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body %s", rec.Code, rec.Body.String())
	}

	var got job.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != job.StatusPending {
		t.Fatalf("expected pending job, got %s", got.Status)
	}
	if got.ID == "" {
		t.Fatal("expected generated job id")
	}
}

func TestHandleJobStats(t *testing.T) {
	store := job.NewMemoryStore()
	svc := job.NewService(store, job.NewMemoryQueue(8), 3)
	server := NewServer(":0", svc, nil)

	if err := store.Create(context.Background(), &job.Job{ID: "a", Goal: "g", Status: job.StatusPending, MaxRetries: 3}); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/stats", nil)
	rec := httptest.NewRecorder()

	server.handleJobStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var stats job.JobStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 1 || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

type chatLLM struct{}

func (chatLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Reply: "Build complete."}, nil
}

type chatScene struct{}

func (chatScene) CheckHealth(ctx context.Context) error { return nil }
func (chatScene) CallTool(ctx context.Context, tool string, params map[string]any) (scene.Result, error) {
	return scene.Result{"success": true}, nil
}
func (chatScene) FetchSnapshot(ctx context.Context) (scene.Snapshot, error) {
	return scene.Snapshot{Name: "Place"}, nil
}
func (chatScene) Close() {}

func TestHandleChatExecutesGoal(t *testing.T) {
	llmClient := chatLLM{}
	sceneClient := chatScene{}
	ag := agent.New(llmClient, plan.NewPlanner(llmClient), exec.NewEngine(sceneClient), sceneClient)
	server := NewServer(":0", nil, ag)

	body := strings.NewReader(`{"goal": "build an obby with 3 platforms"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	rec := httptest.NewRecorder()

	server.handleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body %s", rec.Code, rec.Body.String())
	}
	var result agent.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Reply != "Build complete." {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.TaskCount != 5 {
		t.Fatalf("unexpected task count: %d", result.TaskCount)
	}
}

func TestHandleHistoryReturnsArchive(t *testing.T) {
	repo, err := mysql.NewMemoryHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewMemoryHistoryRepository: %v", err)
	}
	llmClient := chatLLM{}
	sceneClient := chatScene{}
	ag := agent.New(llmClient, plan.NewPlanner(llmClient), exec.NewEngine(sceneClient), sceneClient,
		agent.WithHistoryRepository(repo))
	server := NewServer(":0", nil, ag)

	body := strings.NewReader(`{"goal": "build an obby with 3 platforms"}`)
	chatReq := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	chatRec := httptest.NewRecorder()
	server.handleChat(chatRec, chatReq)
	if chatRec.Code != http.StatusOK {
		t.Fatalf("chat status: %d body %s", chatRec.Code, chatRec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=10", nil)
	rec := httptest.NewRecorder()
	server.handleHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body %s", rec.Code, rec.Body.String())
	}
	var records []agent.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Goal != "build an obby with 3 platforms" {
		t.Fatalf("unexpected goal: %q", records[0].Goal)
	}
}

func TestHandleHistoryWithoutRepository(t *testing.T) {
	llmClient := chatLLM{}
	sceneClient := chatScene{}
	ag := agent.New(llmClient, plan.NewPlanner(llmClient), exec.NewEngine(sceneClient), sceneClient)
	server := NewServer(":0", nil, ag)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	server.handleHistory(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
