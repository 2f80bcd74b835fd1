package exec

import (
	"strings"

	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/spatial"
)

// repairWhitelist 是属性过滤启发式保留的安全属性集合。
var repairWhitelist = map[string]struct{}{
	spatial.PropPose:     {},
	spatial.PropSize:     {},
	spatial.PropAnchored: {},
	spatial.PropColor:    {},
}

// Repair 根据失败消息对任务做一次保守修补,返回修补后的副本。
// 每次重试最多应用一条启发式;没有命中时返回原任务和 false。
func Repair(task plan.Task, errMsg string) (plan.Task, bool) {
	lower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, spatial.PropPose) || strings.Contains(lower, "position") {
		if repaired, ok := repairPose(task); ok {
			return repaired, true
		}
	}
	if strings.Contains(lower, "parent") || strings.Contains(lower, "not found") {
		if repaired, ok := repairParent(task); ok {
			return repaired, true
		}
	}
	if strings.Contains(lower, "type") || strings.Contains(lower, "invalid") {
		if repaired, ok := repairProperties(task); ok {
			return repaired, true
		}
	}
	return task, false
}

// repairPose 把无法解析的位姿替换成安全默认值。
func repairPose(task plan.Task) (plan.Task, bool) {
	props, ok := task.Params["properties"].(map[string]any)
	if !ok {
		return task, false
	}
	value, ok := props[spatial.PropPose]
	if !ok {
		return task, false
	}
	switch value.(type) {
	case spatial.Pose, map[string]any:
		// 已经是结构化位姿,替换只会丢信息。
		return task, false
	}

	repaired := task.Clone()
	repairedProps := repaired.Params["properties"].(map[string]any)
	repairedProps[spatial.PropPose] = spatial.PoseAt(0, 5, 0)
	return repaired, true
}

// repairParent 把找不到的父路径截断到第一段,退回到顶层容器。
func repairParent(task plan.Task) (plan.Task, bool) {
	for _, key := range []string{"parent", "parent_path"} {
		parent, ok := task.Params[key].(string)
		if !ok || !strings.Contains(parent, ".") {
			continue
		}
		repaired := task.Clone()
		repaired.Params[key] = strings.SplitN(parent, ".", 2)[0]
		return repaired, true
	}
	return task, false
}

// repairProperties 把属性集收缩到已知安全的白名单。
func repairProperties(task plan.Task) (plan.Task, bool) {
	props, ok := task.Params["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return task, false
	}
	filtered := make(map[string]any)
	for name, value := range props {
		if _, keep := repairWhitelist[name]; keep {
			filtered[name] = value
		}
	}
	if len(filtered) == len(props) {
		return task, false
	}
	repaired := task.Clone()
	repaired.Params["properties"] = filtered
	return repaired, true
}
