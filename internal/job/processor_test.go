package job

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"SceneMCP-Agent/internal/agent"
)

type fakeExecutor struct {
	processed atomic.Int32
	latency   time.Duration
	err       error
}

func (f *fakeExecutor) Execute(ctx context.Context, req agent.Request) (*agent.Result, error) {
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.processed.Add(1)
	return &agent.Result{Goal: req.Goal, Reply: "ok", Thought: "done", TaskCount: 5, Completed: 5}, nil
}

func TestProcessorHandlesConcurrentJobs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := NewMemoryStore()
	queue := NewMemoryQueue(1024)
	executor := &fakeExecutor{latency: 10 * time.Millisecond}

	service := NewService(store, queue, 3)
	processor := NewProcessor(executor, store, queue, queue, WithWorkerCount(8))

	go func() {
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("processor exited: %v", err)
		}
	}()

	total := 200
	for i := 0; i < total; i++ {
		goal := fmt.Sprintf("goal-%d", i)
		if _, err := service.Submit(ctx, agent.Request{Goal: goal}); err != nil {
			t.Fatalf("提交作业失败: %v", err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		if int(executor.processed.Load()) >= total {
			cancel()
			break
		}
		select {
		case <-deadline:
			t.Fatalf("作业未能及时处理, 已完成 %d", executor.processed.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestProcessorRecordsPlanResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewMemoryStore()
	queue := NewMemoryQueue(8)
	executor := &fakeExecutor{}

	service := NewService(store, queue, 3)
	processor := NewProcessor(executor, store, queue, queue)

	go func() { _ = processor.Start(ctx) }()

	submitted, err := service.Submit(ctx, agent.Request{Goal: "build an obby"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	job, err := service.WaitUntilCompleted(ctx, submitted.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != StatusSucceeded {
		t.Fatalf("status = %s, last error %q", job.Status, job.LastError)
	}
	if job.Result == nil || job.Result.TaskCount != 5 || job.Result.Completed != 5 {
		t.Fatalf("unexpected result: %+v", job.Result)
	}
}

func TestServiceSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	queue := NewMemoryQueue(8)
	service := NewService(store, queue, 3)

	first, err := service.Submit(ctx, agent.Request{ID: "fixed", Goal: "build a house"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := service.Submit(ctx, agent.Request{ID: "fixed", Goal: "build a house"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same job, got %s and %s", first.ID, second.ID)
	}

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("expected a single job, got %d", stats.Total)
	}
}
