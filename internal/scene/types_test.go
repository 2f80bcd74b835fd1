package scene

import (
	"strings"
	"testing"
)

func TestResultErrorPresenceMeansFailure(t *testing.T) {
	cases := []struct {
		name    string
		result  Result
		failed  bool
		message string
	}{
		{name: "无错误字段", result: Result{"success": true}, failed: false},
		{name: "错误为 nil", result: Result{"error": nil}, failed: false},
		{name: "字符串错误", result: Result{"error": "parent not found"}, failed: true, message: "parent not found"},
		{name: "空字符串错误", result: Result{"error": ""}, failed: true},
		{name: "结构化错误", result: Result{"error": map[string]any{"code": 500, "message": "internal"}}, failed: true, message: "500"},
		{name: "数值错误", result: Result{"error": 500}, failed: true, message: "500"},
		{name: "空负载", result: nil, failed: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.Failed(); got != tc.failed {
				t.Fatalf("Failed() = %v, 期望 %v", got, tc.failed)
			}
			msg, failed := tc.result.ErrorMessage()
			if failed != tc.failed {
				t.Fatalf("ErrorMessage() failed = %v, 期望 %v", failed, tc.failed)
			}
			if tc.failed && msg == "" {
				t.Fatal("失败时错误文本不能为空")
			}
			if tc.message != "" && !strings.Contains(msg, tc.message) {
				t.Fatalf("错误文本 %q 未包含 %q", msg, tc.message)
			}
		})
	}
}
