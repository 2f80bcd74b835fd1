package tools

import (
	"strings"
	"testing"
)

func TestLookupKnownTool(t *testing.T) {
	tool, ok := Lookup("mass_create_objects_with_properties")
	if !ok {
		t.Fatal("expected bulk create tool to be registered")
	}
	if tool.Category != CategoryCreation {
		t.Fatalf("unexpected category %q", tool.Category)
	}
	if tool.BestPractice == "" {
		t.Fatal("bulk create tool should carry a best practice note")
	}
	if _, ok := Lookup("teleport_player"); ok {
		t.Fatal("unknown tool should not resolve")
	}
}

func TestByCategoryCoversCatalog(t *testing.T) {
	total := 0
	for category, tools := range ByCategory() {
		if len(tools) == 0 {
			t.Fatalf("category %q is empty", category)
		}
		for _, tool := range tools {
			if tool.Category != category {
				t.Fatalf("tool %s filed under %q but claims %q", tool.Name, category, tool.Category)
			}
		}
		total += len(tools)
	}
	if total != len(All()) {
		t.Fatalf("categories cover %d tools, catalog has %d", total, len(All()))
	}
}

func TestRecommendObbyPrefersBulkCreate(t *testing.T) {
	recs := Recommend("Create obby platforms across the map")
	if len(recs) == 0 {
		t.Fatal("expected recommendations for an obby task")
	}
	if recs[0].Tool != "mass_create_objects_with_properties" {
		t.Fatalf("expected bulk create first, got %s", recs[0].Tool)
	}
	if recs[0].Priority != PriorityHigh {
		t.Fatalf("unexpected priority %s", recs[0].Priority)
	}
}

func TestRecommendScriptEditIncludesReadFirst(t *testing.T) {
	recs := Recommend("edit the checkpoint script code")
	var sawRead bool
	for _, rec := range recs {
		if rec.Tool == "get_script_source" && rec.Priority == PriorityCritical {
			sawRead = true
		}
	}
	if !sawRead {
		t.Fatalf("expected a critical read-before-edit recommendation, got %+v", recs)
	}
}

func TestContextForPlannerMentionsEveryTool(t *testing.T) {
	doc := ContextForPlanner()
	for _, tool := range All() {
		if !strings.Contains(doc, "**"+tool.Name+"**") {
			t.Fatalf("planner context is missing tool %s", tool.Name)
		}
	}
	if !strings.Contains(doc, "Key Best Practices") {
		t.Fatal("planner context is missing the best practices section")
	}
}
