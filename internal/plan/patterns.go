package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"SceneMCP-Agent/internal/knowledge"
	"SceneMCP-Agent/internal/spatial"
)

var (
	countPattern      = regexp.MustCompile(`(\d+)\s*(?:platform|stage|level|part)`)
	scriptNamePattern = regexp.MustCompile(`(?:called|named)\s+["']?(\w+)["']?`)
)

const defaultPlatformCount = 10

// obbyPlan 为跑酷类目标展开专用计划。平台位姿由空间布局计算,
// 出生点的位姿派生自首个平台的已计算位姿,属于计划内数据依赖。
func obbyPlan(goal string) ([]Task, error) {
	count := defaultPlatformCount
	if match := countPattern.FindStringSubmatch(strings.ToLower(goal)); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil && parsed > 0 {
			count = parsed
		}
	}

	difficulty := spatial.DifficultyMedium
	lower := strings.ToLower(goal)
	if strings.Contains(lower, "easy") {
		difficulty = spatial.DifficultyEasy
	} else if strings.Contains(lower, "hard") {
		difficulty = spatial.DifficultyHard
	}

	platforms, err := spatial.ObstacleCourse(count, difficulty)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, 5)

	folderTask := Task{
		Kind:        KindCreateObject,
		Description: "Create Checkpoints folder in Workspace",
		Params: map[string]any{
			"className":  "Folder",
			"parent":     "game.Workspace",
			"name":       "Checkpoints",
			"properties": map[string]any{},
		},
		Reasoning:    "Organize checkpoints in dedicated folder",
		VerifyWith:   "get_instance_children",
		VerifyParams: map[string]any{"path": "game.Workspace"},
	}
	tasks = append(tasks, folderTask)

	tasks = append(tasks, Task{
		Kind:        KindMassCreateObjects,
		Description: fmt.Sprintf("Create %d obby platforms with calculated positions", count),
		Params: map[string]any{
			"objects": platforms,
		},
		Reasoning:       "Bulk create with spatially calculated positions, each platform has a unique pose",
		VerifyWith:      "get_instance_children",
		VerifyParams:    map[string]any{"path": "Workspace"},
		VerifyCondition: fmt.Sprintf("Check that %d platforms exist with different positions", count),
	})

	// 出生点位姿必须在平台规格已经算出之后派生,不能重新向远端查询。
	firstPose, _ := platforms[0].Pose()
	firstSize, _ := platforms[0].Size()
	spawnPose := spatial.SpawnAbove(firstPose, firstSize)

	tasks = append(tasks, Task{
		Kind:        KindCreateObjectWithProperties,
		Description: "Create SpawnLocation on first platform",
		Params: map[string]any{
			"className": "SpawnLocation",
			"parent":    "game.Workspace",
			"name":      "StartSpawn",
			"properties": map[string]any{
				spatial.PropPose:  spawnPose,
				spatial.PropSize:  spatial.Vector3{X: 6, Y: 1, Z: 6},
				spatial.PropColor: "Bright green",
				"Transparency":    0,
				"Duration":        0,
			},
		},
		Reasoning:    "Players need a spawn point on the first platform",
		VerifyWith:   "get_instance_properties",
		VerifyParams: map[string]any{"path": "game.Workspace.StartSpawn"},
	})

	checkpointScript, _ := knowledge.Template("checkpoint_system")
	tasks = append(tasks, Task{
		Kind:        KindCreateScript,
		Description: "Create checkpoint system script",
		Params: map[string]any{
			"name":        "CheckpointSystem",
			"parent_path": "ServerScriptService",
			"script_type": "Script",
			"content":     checkpointScript,
		},
		Reasoning:    "Script to handle checkpoint saving and respawning",
		VerifyWith:   "get_script_source",
		VerifyParams: map[string]any{"instancePath": "ServerScriptService.CheckpointSystem"},
	})

	// 整理步骤是尽力而为:后端没有移动原语时,
	// 通过批量改写 Parent 属性实现,失败也不影响计划结果。
	paths := make([]any, 0, count)
	for i := 0; i < count; i++ {
		paths = append(paths, fmt.Sprintf("game.Workspace.Platform%d", i+1))
	}
	tasks = append(tasks, Task{
		Kind:        KindMassSetProperty,
		Description: "Organize platforms into Checkpoints folder",
		Params: map[string]any{
			"paths":          paths,
			"property_name":  "Parent",
			"property_value": "game.Workspace.Checkpoints",
		},
		Reasoning: "Keep workspace organized",
	})

	return tasks, nil
}

// tycoonPlan 展开 tycoon 类目标的基础结构。
func tycoonPlan() []Task {
	return []Task{
		{
			Kind:        KindCreateObject,
			Description: "Create TycoonData folder",
			Params: map[string]any{
				"className":  "Folder",
				"parent":     "ReplicatedStorage",
				"name":       "TycoonData",
				"properties": map[string]any{},
			},
		},
		{
			Kind:        KindCreateObjectWithProperties,
			Description: "Create tycoon base plot",
			Params: map[string]any{
				"className": "Part",
				"parent":    "game.Workspace",
				"name":      "TycoonPlot",
				"properties": map[string]any{
					spatial.PropPose:     spatial.PoseAt(0, 0.5, 0),
					spatial.PropSize:     spatial.Vector3{X: 50, Y: 1, Z: 50},
					spatial.PropColor:    "Dark green",
					spatial.PropAnchored: true,
				},
			},
		},
	}
}

// buildingPlan 根据描述选择建筑类型与尺寸档位,产出单个批量创建任务。
func buildingPlan(goal string) ([]Task, error) {
	kind := spatial.DetectBuildingKind(goal)
	class := spatial.DetectSizeClass(goal)

	objects, err := spatial.Building(kind, class, spatial.Vector3{})
	if err != nil {
		return nil, err
	}

	return []Task{
		{
			Kind:        KindMassCreateObjects,
			Description: fmt.Sprintf("Create %s structure (%s)", kind, class),
			Params: map[string]any{
				"objects": objects,
			},
			Reasoning:    fmt.Sprintf("Spatially calculated %s components as one atomic batch", kind),
			VerifyWith:   "get_instance_children",
			VerifyParams: map[string]any{"path": "Workspace"},
		},
	}, nil
}

// scriptTaskFor 把生成好的脚本内容包装为脚本创建任务,
// 脚本类型与落点由目标文本中的关键词决定。
func scriptTaskFor(goal, content string) Task {
	lower := strings.ToLower(goal)

	scriptType := "Script"
	parentPath := "ServerScriptService"
	if strings.Contains(lower, "local") || strings.Contains(lower, "client") {
		scriptType = "LocalScript"
		parentPath = "StarterPlayer.StarterPlayerScripts"
	} else if strings.Contains(lower, "module") {
		scriptType = "ModuleScript"
		parentPath = "ReplicatedStorage"
	}

	name := "NewScript"
	if match := scriptNamePattern.FindStringSubmatch(goal); match != nil {
		name = match[1]
	}

	return Task{
		Kind:        KindCreateScript,
		Description: fmt.Sprintf("Create %s for %s", scriptType, goal),
		Params: map[string]any{
			"name":        name,
			"parent_path": parentPath,
			"script_type": scriptType,
			"content":     content,
		},
		Reasoning:    "Generated complete script based on requirements",
		VerifyWith:   "get_script_source",
		VerifyParams: map[string]any{"instancePath": parentPath + "." + name},
	}
}
