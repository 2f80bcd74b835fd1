// Package plan 负责把自然语言目标转化为有序的原子任务列表。
// 常见的目标形态由确定性的模式识别器直接展开,其余交给外部规划服务。
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	xerrors "SceneMCP-Agent/internal/errors"
)

// TaskKind 是任务种类的封闭枚举,每一种对应一个远端操作。
type TaskKind string

const (
	KindCreateObject                TaskKind = "create_object"
	KindCreateObjectWithProperties  TaskKind = "create_object_with_properties"
	KindMassCreateObjects           TaskKind = "mass_create_objects_with_properties"
	KindCreateScript                TaskKind = "create_script"
	KindSetProperty                 TaskKind = "set_property"
	KindMassSetProperty             TaskKind = "mass_set_property"
	KindGetInstanceProperties       TaskKind = "get_instance_properties"
	KindGetInstanceChildren         TaskKind = "get_instance_children"
	KindSearchObjects               TaskKind = "search_objects"
	KindGetFileTree                 TaskKind = "get_file_tree"
	KindDeleteObject                TaskKind = "delete_object"
	KindChat                        TaskKind = "chat"
)

// requiredParams 给出每个任务种类的必填参数契约。
// 规划器保证任务在交给执行引擎前已经满足契约。
var requiredParams = map[TaskKind][]string{
	KindCreateObject:               {"className", "parent"},
	KindCreateObjectWithProperties: {"className", "parent", "properties"},
	KindMassCreateObjects:          {"objects"},
	KindCreateScript:               {"name", "parent_path", "content"},
	KindSetProperty:                {"path", "property_name", "property_value"},
	KindMassSetProperty:            {"paths", "property_name", "property_value"},
	KindGetInstanceProperties:      {"path"},
	KindGetInstanceChildren:        {"path"},
	KindSearchObjects:              {"query"},
	KindGetFileTree:                nil,
	KindDeleteObject:               {"path"},
	KindChat:                       nil,
}

// Task 是一次原子的、可校验的远端操作。
// 任务一经构造即视为不可变,修复流程总是产出新的任务值。
type Task struct {
	Kind            TaskKind       `json:"type"`
	Description     string         `json:"description"`
	Params          map[string]any `json:"params"`
	Reasoning       string         `json:"reasoning,omitempty"`
	VerifyWith      string         `json:"verify_with,omitempty"`
	VerifyParams    map[string]any `json:"verify_params,omitempty"`
	VerifyCondition string         `json:"verify_condition,omitempty"`
}

// NewTask 构造并校验一个任务,参数不满足契约时在构造期报错。
func NewTask(kind TaskKind, description string, params map[string]any) (Task, error) {
	task := Task{
		Kind:        kind,
		Description: description,
		Params:      params,
	}
	if err := task.Validate(); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Validate 检查任务种类合法且必填参数齐备。
func (t Task) Validate() error {
	required, ok := requiredParams[t.Kind]
	if !ok {
		return xerrors.New(xerrors.CodeUnknownTaskKind, fmt.Sprintf("未知的任务种类 %q", t.Kind))
	}
	for _, field := range required {
		value, present := t.Params[field]
		if !present || value == nil {
			return xerrors.New(xerrors.CodeInvalidArgument,
				fmt.Sprintf("任务 %s 缺少必填参数 %s", t.Kind, field))
		}
	}
	return nil
}

// Clone 返回任务的深拷贝,参数映射独立于原值。
func (t Task) Clone() Task {
	copied := t
	copied.Params = cloneMap(t.Params)
	copied.VerifyParams = cloneMap(t.VerifyParams)
	return copied
}

// WithParams 基于当前任务产出替换了参数的新任务值。
func (t Task) WithParams(params map[string]any) Task {
	copied := t.Clone()
	copied.Params = params
	return copied
}

// IsCritical 判断任务在给定计划位置上是否关键:
// 描述中提到 folder/structure,或位于计划前两位。
func (t Task) IsCritical(index int) bool {
	if index < 2 {
		return true
	}
	lower := strings.ToLower(t.Description)
	return strings.Contains(lower, "folder") || strings.Contains(lower, "structure")
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		switch typed := value.(type) {
		case map[string]any:
			dst[key] = cloneMap(typed)
		case []any:
			items := make([]any, len(typed))
			for i, item := range typed {
				if nested, ok := item.(map[string]any); ok {
					items[i] = cloneMap(nested)
				} else {
					items[i] = item
				}
			}
			dst[key] = items
		default:
			dst[key] = value
		}
	}
	return dst
}

// DecodeTasks 把 JSON 数组解码为任务列表并逐个校验。
func DecodeTasks(raw []byte) ([]Task, error) {
	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlanningFailure, err, "解析任务列表失败")
	}
	if len(tasks) == 0 {
		return nil, xerrors.New(xerrors.CodePlanningFailure, "任务列表为空")
	}
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return nil, xerrors.Wrap(xerrors.CodePlanningFailure, err,
				fmt.Sprintf("第 %d 个任务不合法", i+1))
		}
	}
	return tasks, nil
}
