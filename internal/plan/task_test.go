package plan

import (
	"testing"

	xerrors "SceneMCP-Agent/internal/errors"
)

func TestNewTaskValidatesRequiredParams(t *testing.T) {
	if _, err := NewTask(KindCreateObject, "create part", map[string]any{
		"className": "Part",
	}); err == nil {
		t.Fatal("expected missing parent to fail validation")
	}

	task, err := NewTask(KindCreateObject, "create part", map[string]any{
		"className": "Part",
		"parent":    "Workspace",
	})
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if task.Kind != KindCreateObject {
		t.Fatalf("unexpected kind %s", task.Kind)
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	task := Task{Kind: "teleport", Description: "nope"}
	err := task.Validate()
	if err == nil {
		t.Fatal("expected unknown kind to fail")
	}
	if xerrors.CodeOf(err) != xerrors.CodeUnknownTaskKind {
		t.Fatalf("unexpected error code %s", xerrors.CodeOf(err))
	}
}

func TestCloneIsolatesParams(t *testing.T) {
	task := Task{
		Kind:        KindSetProperty,
		Description: "recolor",
		Params: map[string]any{
			"path":           "Workspace.Part",
			"property_name":  "BrickColor",
			"property_value": "Bright red",
			"properties":     map[string]any{"Anchored": true},
		},
	}
	copied := task.Clone()
	copied.Params["path"] = "Workspace.Other"
	copied.Params["properties"].(map[string]any)["Anchored"] = false

	if task.Params["path"] != "Workspace.Part" {
		t.Fatal("clone mutated the original params")
	}
	if task.Params["properties"].(map[string]any)["Anchored"] != true {
		t.Fatal("clone mutated nested properties")
	}
}

func TestIsCritical(t *testing.T) {
	folder := Task{Kind: KindCreateObject, Description: "Create Checkpoints folder in Workspace"}
	if !folder.IsCritical(7) {
		t.Fatal("folder task should be critical at any index")
	}

	plain := Task{Kind: KindSetProperty, Description: "recolor a part"}
	if !plain.IsCritical(0) || !plain.IsCritical(1) {
		t.Fatal("first two tasks should be critical")
	}
	if plain.IsCritical(2) {
		t.Fatal("later plain task should not be critical")
	}
}

func TestDecodeTasksRejectsInvalidShapes(t *testing.T) {
	if _, err := DecodeTasks([]byte(`[]`)); err == nil {
		t.Fatal("expected empty list to fail")
	}
	if _, err := DecodeTasks([]byte(`[{"type":"set_property","description":"x","params":{}}]`)); err == nil {
		t.Fatal("expected missing params to fail")
	}
	tasks, err := DecodeTasks([]byte(`[{"type":"chat","description":"talk","params":{}}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Kind != KindChat {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestDecodeTasksWrapsMalformedJSON(t *testing.T) {
	_, err := DecodeTasks([]byte(`{"not":"an array"`))
	if err == nil {
		t.Fatal("expected malformed JSON to fail")
	}
	if code := xerrors.CodeOf(err); code != xerrors.CodePlanningFailure {
		t.Fatalf("错误码 = %q", code)
	}
	wrapped, ok := xerrors.From(err)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("解析失败应当保留底层原因")
	}

	_, err = DecodeTasks([]byte(`[{"type":"chat","description":"ok","params":{}},{"type":"set_property","description":"x","params":{}}]`))
	if err == nil {
		t.Fatal("expected invalid task to fail")
	}
	if code := xerrors.CodeOf(err); code != xerrors.CodePlanningFailure {
		t.Fatalf("错误码 = %q", code)
	}
}
