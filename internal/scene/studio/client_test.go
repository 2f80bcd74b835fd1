package studio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallToolPostsJSONAndDecodesResult(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"path": "Workspace.Platform1"})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	result, err := client.CallTool(context.Background(), "create_object", map[string]any{
		"class_name":  "Part",
		"parent_path": "Workspace",
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if gotPath != "/create_object" {
		t.Fatalf("unexpected request path %s", gotPath)
	}
	if gotBody["class_name"] != "Part" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if result.Failed() {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if result["path"] != "Workspace.Platform1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCallToolTreatsErrorFieldAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "parent not found"})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	result, err := client.CallTool(context.Background(), "create_object", nil)
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	msg, failed := result.ErrorMessage()
	if !failed || msg != "parent not found" {
		t.Fatalf("expected error payload, got %+v", result)
	}
}

func TestCallToolFillsErrorOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	result, err := client.CallTool(context.Background(), "delete_object", nil)
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if !result.Failed() {
		t.Fatalf("expected HTTP 500 to surface as error payload, got %+v", result)
	}
}

func TestCheckHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected health path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	client, err := NewClient(Config{BaseURL: healthy.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()
	if err := client.CheckHealth(context.Background()); err != nil {
		t.Fatalf("expected healthy backend: %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	client2, err := NewClient(Config{BaseURL: broken.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client2.Close()
	if err := client2.CheckHealth(context.Background()); err == nil {
		t.Fatal("expected unhealthy backend to fail the probe")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}
