package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"SceneMCP-Agent/internal/llm"
	"SceneMCP-Agent/internal/spatial"
)

type fakeLLM struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	return &llm.Response{Reply: f.replies[idx]}, nil
}

func TestClassifierIntents(t *testing.T) {
	classifier := NewKeywordClassifier()
	cases := []struct {
		goal string
		want Intent
	}{
		{"make me a 10 platform obby", IntentObby},
		{"I want a parkour level", IntentObby},
		{"create a mining tycoon", IntentTycoon},
		{"build a large house", IntentBuilding},
		{"create a script called DoorOpener", IntentScript},
		{"what is the weather", IntentGeneric},
	}
	for _, tc := range cases {
		if got := classifier.Classify(tc.goal); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.goal, got, tc.want)
		}
	}
}

func TestObbyPlanShape(t *testing.T) {
	planner := NewPlanner(&fakeLLM{})
	tasks, err := planner.BuildPlan(context.Background(), "build a 5 platform easy obby", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}

	wantKinds := []TaskKind{
		KindCreateObject,
		KindMassCreateObjects,
		KindCreateObjectWithProperties,
		KindCreateScript,
		KindMassSetProperty,
	}
	for i, kind := range wantKinds {
		if tasks[i].Kind != kind {
			t.Fatalf("task %d has kind %s, want %s", i, tasks[i].Kind, kind)
		}
		if err := tasks[i].Validate(); err != nil {
			t.Fatalf("task %d failed validation: %v", i, err)
		}
	}

	objects, ok := tasks[1].Params["objects"].([]spatial.ObjectSpec)
	if !ok {
		t.Fatalf("bulk create objects field has type %T", tasks[1].Params["objects"])
	}
	if len(objects) != 5 {
		t.Fatalf("expected 5 platform specs, got %d", len(objects))
	}

	// 出生点位姿由首个平台派生:平台 y=5,厚度 1,抬高 0.5+2.5。
	props := tasks[2].Params["properties"].(map[string]any)
	spawnPose := props[spatial.PropPose].(spatial.Pose)
	if spawnPose.Y() != 8 {
		t.Fatalf("spawn pose at y=%v, want 8", spawnPose.Y())
	}

	if tasks[3].Params["content"] == "" {
		t.Fatal("checkpoint script task has empty content")
	}
}

func TestBuildingPlanSingleBulkTask(t *testing.T) {
	planner := NewPlanner(&fakeLLM{})
	tasks, err := planner.BuildPlan(context.Background(), "build a small tower", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Kind != KindMassCreateObjects {
		t.Fatalf("unexpected plan: %+v", tasks)
	}
	if !strings.Contains(tasks[0].Description, "tower") {
		t.Fatalf("description should name the building type: %s", tasks[0].Description)
	}
}

func TestScriptPlanExtractsName(t *testing.T) {
	planner := NewPlanner(&fakeLLM{replies: []string{"```lua\nprint('hi')\n```"}})
	tasks, err := planner.BuildPlan(context.Background(), "create a script called DoorOpener", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Kind != KindCreateScript {
		t.Fatalf("unexpected plan: %+v", tasks)
	}
	if tasks[0].Params["name"] != "DoorOpener" {
		t.Fatalf("unexpected script name %v", tasks[0].Params["name"])
	}
	if tasks[0].Params["content"] != "print('hi')" {
		t.Fatalf("fence was not stripped: %q", tasks[0].Params["content"])
	}
}

func TestScriptPlanFallsBackToTemplate(t *testing.T) {
	planner := NewPlanner(&fakeLLM{err: errors.New("boom")})
	tasks, err := planner.BuildPlan(context.Background(), "create a module system", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	content, _ := tasks[0].Params["content"].(string)
	if !strings.Contains(content, "return Module") {
		t.Fatalf("expected module template fallback, got %q", content)
	}
}

func TestGenericPlanParsesFencedResponse(t *testing.T) {
	reply := "Here you go:\n```json\n[{\"type\":\"create_object_with_properties\",\"description\":\"make a part\",\"params\":{\"className\":\"Part\",\"parent\":\"Workspace\",\"properties\":{}}}]\n```"
	planner := NewPlanner(&fakeLLM{replies: []string{reply}})
	tasks, err := planner.BuildPlan(context.Background(), "place one decorative part somewhere", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Kind != KindCreateObjectWithProperties {
		t.Fatalf("unexpected plan: %+v", tasks)
	}
}

func TestGenericPlanDegradesToChat(t *testing.T) {
	planner := NewPlanner(&fakeLLM{err: errors.New("quota")}, WithParseRetries(2))
	tasks, err := planner.BuildPlan(context.Background(), "do something unusual", "")
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Kind != KindChat {
		t.Fatalf("expected chat fallback, got %+v", tasks)
	}
}
