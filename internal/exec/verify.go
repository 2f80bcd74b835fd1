package exec

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	xerrors "SceneMCP-Agent/internal/errors"
	"SceneMCP-Agent/internal/plan"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/internal/spatial"
	"SceneMCP-Agent/pkg/logger"
)

// Verifier 在任务执行后做一次后置检查。返回非空错误表示任务失败。
// 实现是具名策略,测试可以替换而不触碰引擎本身。
type Verifier interface {
	Name() string
	Verify(ctx context.Context, client scene.Client, task plan.Task) error
}

var verifyCountPattern = regexp.MustCompile(`(\d+)`)

// OptimisticVerifier 是默认策略:远端是尽力而为的外部系统,
// 校验的误报比漏报代价更高,因此绝大多数异常只记录不判失败。
// 唯一的硬失败:创建类任务声明了非原点的期望位姿,
// 实际位姿却落在原点默认值上。
type OptimisticVerifier struct {
	log *slog.Logger
}

// NewOptimisticVerifier 创建默认校验策略。
func NewOptimisticVerifier() *OptimisticVerifier {
	return &OptimisticVerifier{log: logger.Named("verifier")}
}

// Name 返回策略名称。
func (v *OptimisticVerifier) Name() string { return "optimistic" }

// Verify 发起后续读调用并乐观地解读结果。
func (v *OptimisticVerifier) Verify(ctx context.Context, client scene.Client, task plan.Task) error {
	if task.VerifyWith == "" {
		return nil
	}

	result, err := client.CallTool(ctx, task.VerifyWith, task.VerifyParams)
	if err != nil {
		// 校验调用自身失败只记录,不连累任务。
		v.log.Warn("校验调用失败", "tool", task.VerifyWith, "error", err)
		return nil
	}
	if msg, failed := result.ErrorMessage(); failed {
		v.log.Warn("校验返回错误负载", "tool", task.VerifyWith, "error", msg)
		return nil
	}

	switch task.VerifyWith {
	case "get_instance_properties":
		return v.verifyProperties(result, task)
	case "get_instance_children":
		v.verifyChildren(result, task)
	}
	return nil
}

// verifyProperties 检查对象存在,并拦截位姿落在原点默认值的情况。
func (v *OptimisticVerifier) verifyProperties(result scene.Result, task plan.Task) error {
	if len(result) == 0 {
		v.log.Warn("对象不存在或没有属性", "task", task.Description)
		return nil
	}

	expected := expectedPose(task)
	if expected == nil || poseAtOrigin(*expected) {
		return nil
	}
	if actual, ok := result[spatial.PropPose]; ok && valueAtOrigin(actual) {
		return xerrors.New(xerrors.CodeVerificationAnomaly,
			fmt.Sprintf("任务 %q 的位姿落在原点,期望 (%g, %g, %g)",
				task.Description, expected.X(), expected.Y(), expected.Z()))
	}
	return nil
}

// verifyChildren 对子对象数量做宽松比对,短缺只记录。
func (v *OptimisticVerifier) verifyChildren(result scene.Result, task plan.Task) {
	children := childList(result)
	if children == nil {
		v.log.Warn("校验未找到子对象,继续执行", "task", task.Description)
		return
	}
	if match := verifyCountPattern.FindStringSubmatch(task.VerifyCondition); match != nil {
		want, _ := strconv.Atoi(match[1])
		if len(children) < want {
			v.log.Warn("子对象数量少于预期",
				"task", task.Description, "want", want, "got", len(children))
		}
	}
}

// StrictVerifier 把所有异常都当作失败,主要供测试替换。
type StrictVerifier struct{}

// Name 返回策略名称。
func (StrictVerifier) Name() string { return "strict" }

// Verify 发起后续读调用,任何异常都判任务失败。
func (StrictVerifier) Verify(ctx context.Context, client scene.Client, task plan.Task) error {
	if task.VerifyWith == "" {
		return nil
	}
	result, err := client.CallTool(ctx, task.VerifyWith, task.VerifyParams)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeVerificationAnomaly, err, "校验调用失败")
	}
	if msg, failed := result.ErrorMessage(); failed {
		return xerrors.New(xerrors.CodeVerificationAnomaly, "校验返回错误负载: "+msg)
	}

	switch task.VerifyWith {
	case "get_instance_properties":
		if len(result) == 0 {
			return xerrors.New(xerrors.CodeVerificationAnomaly, "对象不存在或没有属性")
		}
		expected := expectedPose(task)
		if expected != nil && !poseAtOrigin(*expected) {
			if actual, ok := result[spatial.PropPose]; ok && valueAtOrigin(actual) {
				return xerrors.New(xerrors.CodeVerificationAnomaly, "位姿落在原点默认值")
			}
		}
	case "get_instance_children":
		children := childList(result)
		if match := verifyCountPattern.FindStringSubmatch(task.VerifyCondition); match != nil {
			want, _ := strconv.Atoi(match[1])
			if len(children) < want {
				return xerrors.New(xerrors.CodeVerificationAnomaly,
					fmt.Sprintf("子对象数量不足: 期望 %d, 实际 %d", want, len(children)))
			}
		}
	}
	return nil
}

// NewVerifier 按名称选择策略,未识别时退回 optimistic。
func NewVerifier(name string) Verifier {
	if name == "strict" {
		return StrictVerifier{}
	}
	return NewOptimisticVerifier()
}

// expectedPose 提取任务声明的期望位姿。
func expectedPose(task plan.Task) *spatial.Pose {
	props, ok := task.Params["properties"].(map[string]any)
	if !ok {
		return nil
	}
	switch value := props[spatial.PropPose].(type) {
	case spatial.Pose:
		return &value
	case map[string]any:
		if pose, ok := poseFromMap(value); ok {
			return &pose
		}
	}
	return nil
}

func poseFromMap(raw map[string]any) (spatial.Pose, bool) {
	position, ok := raw["position"].([]any)
	if !ok || len(position) != 3 {
		return spatial.Pose{}, false
	}
	coords := make([]float64, 3)
	for i, value := range position {
		number, ok := value.(float64)
		if !ok {
			return spatial.Pose{}, false
		}
		coords[i] = number
	}
	return spatial.PoseAt(coords[0], coords[1], coords[2]), true
}

func poseAtOrigin(pose spatial.Pose) bool {
	return pose.X() == 0 && pose.Y() == 0 && pose.Z() == 0
}

// valueAtOrigin 判断远端返回的位姿值是否落在原点,
// 兼容三元数组与 position/orientation 两种形式。
func valueAtOrigin(value any) bool {
	switch typed := value.(type) {
	case []any:
		if len(typed) != 3 {
			return false
		}
		for _, item := range typed {
			if number, ok := item.(float64); !ok || number != 0 {
				return false
			}
		}
		return true
	case map[string]any:
		if pose, ok := poseFromMap(typed); ok {
			return poseAtOrigin(pose)
		}
	case spatial.Pose:
		return poseAtOrigin(typed)
	}
	return false
}

func childList(result scene.Result) []any {
	if children, ok := result["children"].([]any); ok {
		return children
	}
	if instances, ok := result["instances"].([]any); ok {
		return instances
	}
	return nil
}
