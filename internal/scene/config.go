package scene

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendDefinitions 对应 configs/scene.yaml 的结构。
type BackendDefinitions struct {
	Backends map[string]BackendDefinition `yaml:"backends"`
}

// BackendDefinition 描述单个场景后端的端点定义。
type BackendDefinition struct {
	Type           string `yaml:"type"`
	BaseURL        string `yaml:"base_url"`
	HealthPath     string `yaml:"health_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Description    string `yaml:"description"`
}

// LoadBackendDefinitions 解析场景后端的 YAML 配置文件。
func LoadBackendDefinitions(path string) (BackendDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return BackendDefinitions{Backends: map[string]BackendDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return BackendDefinitions{}, fmt.Errorf("读取场景后端配置失败: %w", err)
	}

	var defs BackendDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return BackendDefinitions{}, fmt.Errorf("解析场景后端配置失败: %w", err)
	}
	if defs.Backends == nil {
		defs.Backends = map[string]BackendDefinition{}
	}
	return defs, nil
}
