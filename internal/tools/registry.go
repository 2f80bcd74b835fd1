// Package tools 维护远端场景服务全部操作的静态能力目录，
// 供规划器偏置工具选择，也用于为规划服务生成上下文文档。
package tools

import (
	"fmt"
	"sort"
	"strings"
)

// Tool 描述一个远端操作的参数契约与使用建议。
type Tool struct {
	Name         string
	Category     string
	Description  string
	Parameters   map[string]string
	Returns      string
	UseCases     []string
	Example      string
	BestPractice string
}

// Priority 表示推荐强度。
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
)

// Recommendation 是 Recommend 针对某个任务描述给出的单条建议。
type Recommendation struct {
	Tool     string
	Reason   string
	Priority Priority
}

const (
	CategoryFileSystem    = "File System"
	CategoryStudioContext = "Studio Context"
	CategoryProperties    = "Properties"
	CategoryModification  = "Modification"
	CategoryCreation      = "Creation"
	CategoryScripts       = "Scripts"
	CategoryAnalysis      = "Analysis"
)

var catalog = map[string]Tool{
	"get_file_tree": {
		Name:        "get_file_tree",
		Category:    CategoryFileSystem,
		Description: "获取项目中全部文件与文件夹的层级树",
		Returns:     "包含工作区对象、服务与层级关系的树结构",
		UseCases:    []string{"项目分析", "理解结构", "查找已有资源"},
		Example:     "用户询问项目结构时，或创建新对象之前调用",
	},
	"search_files": {
		Name:        "search_files",
		Category:    CategoryFileSystem,
		Description: "按名称或类型搜索文件",
		Parameters: map[string]string{
			"query":     "搜索关键词",
			"file_type": "可选过滤：Script、LocalScript、ModuleScript 等",
		},
		Returns:  "匹配文件及其路径的列表",
		UseCases: []string{"查找特定脚本", "定位资源", "按类型筛选"},
		Example:  `search_files("Checkpoint", file_type="Script")`,
	},
	"get_place_info": {
		Name:        "get_place_info",
		Category:    CategoryStudioContext,
		Description: "获取当前场景的元信息（PlaceId、名称等）",
		Returns:     "场景元数据，包括 ID、名称与创建者信息",
		UseCases:    []string{"了解当前项目", "获取场景详情"},
		Example:     "用户询问自己的游戏或场景时调用",
	},
	"get_services": {
		Name:        "get_services",
		Category:    CategoryStudioContext,
		Description: "列出全部服务（Workspace、Players、ReplicatedStorage 等）",
		Returns:     "可用服务名称数组",
		UseCases:    []string{"了解可用服务", "校验父路径"},
		Example:     "创建对象前调用以确认合法的父级服务",
	},
	"search_objects": {
		Name:        "search_objects",
		Category:    CategoryStudioContext,
		Description: "在场景层级中搜索对象",
		Parameters: map[string]string{
			"query":       "搜索关键词",
			"search_type": "name 或 class（默认 name）",
		},
		Returns:  "匹配对象及其路径的列表",
		UseCases: []string{"查找已有对象", "按类名定位实例"},
		Example:  `search_objects("SpawnLocation", search_type="class")`,
	},
	"get_instance_properties": {
		Name:        "get_instance_properties",
		Category:    CategoryProperties,
		Description: "获取指定实例的全部属性",
		Parameters: map[string]string{
			"path": "完整实例路径，如 Workspace.Part",
		},
		Returns:  "属性名到当前值的映射",
		UseCases: []string{"核对对象状态", "检查位置", "排查问题"},
		Example:  `get_instance_properties("Workspace.Baseplate")`,
	},
	"get_instance_children": {
		Name:        "get_instance_children",
		Category:    CategoryProperties,
		Description: "获取实例的全部子对象",
		Parameters: map[string]string{
			"path": "完整实例路径",
		},
		Returns:  "子对象名称与类名的列表",
		UseCases: []string{"理解层级", "查找后代", "核对结构"},
		Example:  `get_instance_children("Workspace")`,
	},
	"search_by_property": {
		Name:        "search_by_property",
		Category:    CategoryProperties,
		Description: "按属性值查找对象",
		Parameters: map[string]string{
			"property_name":  "要匹配的属性名",
			"property_value": "要匹配的属性值",
		},
		Returns:  "满足条件的对象列表",
		UseCases: []string{"查找特定透明度的部件", "定位某种颜色的对象"},
		Example:  `search_by_property("BrickColor", "Bright red")`,
	},
	"get_class_info": {
		Name:        "get_class_info",
		Category:    CategoryProperties,
		Description: "获取某个类的元信息（可用属性等）",
		Parameters: map[string]string{
			"class_name": "类名，如 Part、Script",
		},
		Returns:  "类的元数据，包括可用属性",
		UseCases: []string{"了解类有哪些属性", "校验属性名"},
		Example:  `get_class_info("Part")`,
	},
	"set_property": {
		Name:        "set_property",
		Category:    CategoryModification,
		Description: "设置单个实例的单个属性",
		Parameters: map[string]string{
			"path":           "完整实例路径",
			"property_name":  "属性名",
			"property_value": "新值",
		},
		Returns:  "成功或失败状态",
		UseCases: []string{"修改单个属性", "更新位置", "设置颜色"},
		Example:  `set_property("Workspace.Part", "Position", [0, 5, 0])`,
	},
	"mass_set_property": {
		Name:        "mass_set_property",
		Category:    CategoryModification,
		Description: "为多个实例批量设置同一属性",
		Parameters: map[string]string{
			"paths":          "实例路径数组",
			"property_name":  "属性名",
			"property_value": "所有实例的新值",
		},
		Returns:  "成功数量与错误明细",
		UseCases: []string{"批量属性更新", "批量改色", "批量移动"},
		Example:  `mass_set_property(["Workspace.Part1", "Workspace.Part2"], "Transparency", 0.5)`,
	},
	"mass_get_property": {
		Name:        "mass_get_property",
		Category:    CategoryProperties,
		Description: "从多个实例批量读取同一属性",
		Parameters: map[string]string{
			"paths":         "实例路径数组",
			"property_name": "属性名",
		},
		Returns:  "路径到属性值的映射",
		UseCases: []string{"批量核对对象", "检查多个部件的位置"},
		Example:  `mass_get_property(["Workspace.Part1", "Workspace.Part2"], "Position")`,
	},
	"create_object": {
		Name:        "create_object",
		Category:    CategoryCreation,
		Description: "创建单个实例",
		Parameters: map[string]string{
			"class_name":  "类名，如 Part、Folder",
			"parent_path": "创建位置，如 Workspace",
			"name":        "可选的自定义名称",
		},
		Returns:  "创建出的对象路径与详情",
		UseCases: []string{"创建简单对象", "创建文件夹", "基础实例化"},
		Example:  `create_object("Part", "Workspace", "MyPart")`,
	},
	"create_object_with_properties": {
		Name:        "create_object_with_properties",
		Category:    CategoryCreation,
		Description: "创建实例并一次性设置属性（单对象创建的首选）",
		Parameters: map[string]string{
			"className":  "类名",
			"parent":     "父路径",
			"name":       "可选名称",
			"properties": "待设置的属性映射",
		},
		Returns:      "已应用属性的新对象",
		UseCases:     []string{"创建带位置的对象", "创建指定 CFrame/Size 的部件", "设置初始状态"},
		Example:      `create_object_with_properties("Part", "Workspace", "Platform1", {"CFrame": [0, 1, 0], "Size": [10, 1, 10], "BrickColor": "Bright blue"})`,
		BestPractice: "始终用本操作替代 create_object 加 set_property 的组合",
	},
	"mass_create_objects_with_properties": {
		Name:        "mass_create_objects_with_properties",
		Category:    CategoryCreation,
		Description: "批量创建多个带属性的对象（跑酷、地图、关卡的最佳选择）",
		Parameters: map[string]string{
			"objects": "对象定义数组，含 className、parent、name、properties",
		},
		Returns:      "已创建对象的详情数组",
		UseCases:     []string{"创建跑酷平台", "搭建地图", "批量摆放对象"},
		Example:      `mass_create_objects_with_properties([{"className": "Part", "parent": "Workspace", "name": "Platform1", "properties": {...}}])`,
		BestPractice: "创建多个对象时务必使用本操作，原子且高效",
	},
	"delete_object": {
		Name:        "delete_object",
		Category:    CategoryModification,
		Description: "从场景中删除实例",
		Parameters: map[string]string{
			"path": "待删除的完整实例路径",
		},
		Returns:  "成功或失败状态",
		UseCases: []string{"移除对象", "清理", "纠正错误"},
		Example:  `delete_object("Workspace.OldPart")`,
	},
	"get_script_source": {
		Name:        "get_script_source",
		Category:    CategoryScripts,
		Description: "读取脚本源代码",
		Parameters: map[string]string{
			"instancePath": "脚本路径，如 ServerScriptService.MainScript",
		},
		Returns:      "脚本源代码文本",
		UseCases:     []string{"阅读现有脚本", "分析代码", "编辑前查看"},
		Example:      `get_script_source("ServerScriptService.GameManager")`,
		BestPractice: "编辑脚本前先读取原始内容",
	},
	"set_script_source": {
		Name:        "set_script_source",
		Category:    CategoryScripts,
		Description: "更新已有脚本的源代码",
		Parameters: map[string]string{
			"instancePath": "脚本路径",
			"source":       "新的 Lua 源代码",
		},
		Returns:  "成功或失败状态",
		UseCases: []string{"编辑脚本", "更新代码", "修复问题"},
		Example:  `set_script_source("ServerScriptService.MainScript", "print(\"Hello\")")`,
	},
	"get_project_structure": {
		Name:        "get_project_structure",
		Category:    CategoryAnalysis,
		Description: "按指定深度分析项目结构",
		Parameters: map[string]string{
			"depth": "分析层数（默认 5）",
		},
		Returns:  "完整的结构分析",
		UseCases: []string{"深度项目分析", "理解复杂层级"},
		Example:  `get_project_structure(depth=3)`,
	},
}

// All 返回目录中全部工具，按名称排序。
func All() []Tool {
	out := make([]Tool, 0, len(catalog))
	for _, tool := range catalog {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup 返回指定名称的工具文档。
func Lookup(name string) (Tool, bool) {
	tool, ok := catalog[name]
	return tool, ok
}

// ByCategory 按分类组织工具，便于发现。
func ByCategory() map[string][]Tool {
	out := make(map[string][]Tool)
	for _, tool := range All() {
		out[tool.Category] = append(out[tool.Category], tool)
	}
	return out
}

// Recommend 根据任务描述给出工具建议。
func Recommend(description string) []Recommendation {
	lower := strings.ToLower(description)
	var recs []Recommendation

	if containsAny(lower, "obby", "platform", "map", "level", "create multiple") {
		recs = append(recs, Recommendation{
			Tool:     "mass_create_objects_with_properties",
			Reason:   "批量创建带位置的对象最高效",
			Priority: PriorityHigh,
		})
	}
	if strings.Contains(lower, "create") && strings.Contains(lower, "object") {
		recs = append(recs, Recommendation{
			Tool:     "create_object_with_properties",
			Reason:   "创建对象并原子地设置属性",
			Priority: PriorityHigh,
		})
	}
	if containsAny(lower, "script", "code", "write", "lua") {
		recs = append(recs, Recommendation{
			Tool:     "create_object_with_properties",
			Reason:   "通过 Source 属性创建携带代码的脚本",
			Priority: PriorityHigh,
		})
		if containsAny(lower, "edit", "update") {
			recs = append(recs,
				Recommendation{
					Tool:     "get_script_source",
					Reason:   "编辑前先读取现有代码",
					Priority: PriorityCritical,
				},
				Recommendation{
					Tool:     "set_script_source",
					Reason:   "更新脚本代码",
					Priority: PriorityHigh,
				},
			)
		}
	}
	if containsAny(lower, "check", "verify", "analyze", "show") {
		recs = append(recs, Recommendation{
			Tool:     "get_instance_properties",
			Reason:   "核对对象状态与属性",
			Priority: PriorityMedium,
		})
	}
	return recs
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ContextForPlanner 生成供规划服务使用的完整工具参考文档。
func ContextForPlanner() string {
	var b strings.Builder
	b.WriteString("# Complete Scene Tool Reference\n")
	fmt.Fprintf(&b, "You have access to %d tools for remote scene automation.\n\n", len(catalog))
	b.WriteString("## Key Best Practices:\n")
	b.WriteString("1. ALWAYS use mass_create_objects_with_properties for creating multiple objects (obbies, maps, etc.)\n")
	b.WriteString("2. ALWAYS use create_object_with_properties instead of create_object + set_property\n")
	b.WriteString("3. ALWAYS calculate proper CFrame values for spatial positioning\n")
	b.WriteString("4. ALWAYS verify your work with get_instance_properties after creation\n")
	b.WriteString("5. For scripts, use create_object_with_properties with the Source property set to Lua code\n\n")
	b.WriteString("## Tool Categories and Complete Reference:\n")

	byCat := ByCategory()
	categories := make([]string, 0, len(byCat))
	for category := range byCat {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(&b, "\n### %s Tools\n\n", category)
		for _, tool := range byCat[category] {
			fmt.Fprintf(&b, "**%s**\n", tool.Name)
			fmt.Fprintf(&b, "- Description: %s\n", tool.Description)
			if len(tool.Parameters) > 0 {
				params := make([]string, 0, len(tool.Parameters))
				for name := range tool.Parameters {
					params = append(params, name)
				}
				sort.Strings(params)
				fmt.Fprintf(&b, "- Parameters: %s\n", strings.Join(params, ", "))
			}
			fmt.Fprintf(&b, "- Use Cases: %s\n", strings.Join(tool.UseCases, ", "))
			if tool.BestPractice != "" {
				fmt.Fprintf(&b, "- BEST PRACTICE: %s\n", tool.BestPractice)
			}
			fmt.Fprintf(&b, "- Example: %s\n\n", tool.Example)
		}
	}
	return b.String()
}
