package spatial

import (
	"fmt"
	"math"

	xerrors "SceneMCP-Agent/internal/errors"
)

// Difficulty 控制障碍跑酷布局的跳跃间距与平台尺寸。
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// difficultyConfig 为每档难度给出固定的间距参数。
type difficultyConfig struct {
	xSpacing float64
	zSpacing float64
	yStep    float64
	size     Vector3
}

var difficultyTable = map[Difficulty]difficultyConfig{
	DifficultyEasy:   {xSpacing: 8, zSpacing: 0, yStep: 2, size: Vector3{X: 8, Y: 1, Z: 8}},
	DifficultyMedium: {xSpacing: 10, zSpacing: 2, yStep: 3, size: Vector3{X: 6, Y: 1, Z: 6}},
	DifficultyHard:   {xSpacing: 12, zSpacing: 4, yStep: 4, size: Vector3{X: 4, Y: 1, Z: 4}},
}

// platformPalette 仅用于让相邻平台在视觉上可区分，不影响几何。
var platformPalette = []string{
	"Bright blue", "Bright green", "Bright yellow",
	"Bright orange", "Bright red", "Bright violet",
}

// NormalizeDifficulty 将未识别的难度回退到 medium。
func NormalizeDifficulty(d Difficulty) Difficulty {
	if _, ok := difficultyTable[d]; ok {
		return d
	}
	return DifficultyMedium
}

// ObstacleCourse 计算一条线性障碍跑酷的全部平台规格。
// 平台 0 固定在 (0, 5, 0)；之后每块平台沿 x 前进一个跳跃间距，
// z 按索引奇偶交替偏移。基准高度每三块抬升一个台阶，
// 索引模 3 余 1 的平台在自身位置下沉半个台阶，不影响后续基准。
func ObstacleCourse(count int, difficulty Difficulty) ([]ObjectSpec, error) {
	if count < 1 {
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("平台数量必须为正数，收到 %d", count))
	}
	cfg := difficultyTable[NormalizeDifficulty(difficulty)]

	specs := make([]ObjectSpec, 0, count)
	x, baseY, z := 0.0, 5.0, 0.0
	for i := 0; i < count; i++ {
		if i > 0 {
			x += cfg.xSpacing
			if i%2 == 0 {
				z += cfg.zSpacing
			} else {
				z -= cfg.zSpacing
			}
			if i%3 == 0 {
				baseY += cfg.yStep
			}
		}
		y := baseY
		if i%3 == 1 {
			y -= cfg.yStep / 2
		}
		specs = append(specs, ObjectSpec{
			Name:      fmt.Sprintf("Platform%d", i+1),
			ClassName: "Part",
			Parent:    "game.Workspace",
			Properties: map[string]any{
				PropPose:     PoseAt(x, y, z),
				PropSize:     cfg.size,
				PropColor:    platformPalette[i%len(platformPalette)],
				PropMaterial: "Plastic",
				PropAnchored: true,
			},
		})
	}
	return specs, nil
}

// Grid 计算网格布局的位姿集合。步长不小于单元尺寸，因而包围盒不会重叠。
func Grid(count int, cell Vector3, spacing float64) ([]Pose, error) {
	if count < 1 {
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("对象数量必须为正数，收到 %d", count))
	}
	side := int(math.Ceil(math.Sqrt(float64(count))))
	xStep := cell.X + spacing
	zStep := cell.Z + spacing

	poses := make([]Pose, 0, count)
	for i := 0; i < count; i++ {
		row := i / side
		col := i % side
		poses = append(poses, PoseAt(float64(col)*xStep, cell.Y/2, float64(row)*zStep))
	}
	return poses, nil
}

// Circle 计算环形布局的位姿集合，常用于竞技场或出生点。
func Circle(count int, radius, height float64) ([]Pose, error) {
	if count < 1 {
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("对象数量必须为正数，收到 %d", count))
	}
	step := 2 * math.Pi / float64(count)

	poses := make([]Pose, 0, count)
	for i := 0; i < count; i++ {
		angle := float64(i) * step
		poses = append(poses, PoseAt(radius*math.Cos(angle), height, radius*math.Sin(angle)))
	}
	return poses, nil
}

// Staircase 计算一段楼梯的台阶规格。
func Staircase(steps int, stepSize Vector3, rise, run float64) ([]ObjectSpec, error) {
	if steps < 1 {
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("台阶数量必须为正数，收到 %d", steps))
	}

	specs := make([]ObjectSpec, 0, steps)
	for i := 0; i < steps; i++ {
		specs = append(specs, ObjectSpec{
			Name:      fmt.Sprintf("Step%d", i+1),
			ClassName: "Part",
			Parent:    "game.Workspace",
			Properties: map[string]any{
				PropPose:     PoseAt(0, float64(i)*rise+stepSize.Y/2, float64(i)*run),
				PropSize:     stepSize,
				PropColor:    "Dark stone grey",
				PropMaterial: "Slate",
				PropAnchored: true,
			},
		})
	}
	return specs, nil
}

// SpawnAbove 根据平台已经算好的位姿推导其上方的出生点位姿。
// 出生点沿平台的上方向抬高半个平台厚度再加 2.5 个单位。
func SpawnAbove(platform Pose, size Vector3) Pose {
	return platform.Translate(0, size.Y/2+2.5, 0)
}

// PathPoints 计算从起点到终点的路径位姿。curve 大于 0 时叠加抛物线高度偏移。
func PathPoints(start, end Vector3, count int, curve float64) ([]Pose, error) {
	if count < 1 {
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("路径点数量必须为正数，收到 %d", count))
	}

	poses := make([]Pose, 0, count)
	for i := 0; i < count; i++ {
		t := 0.0
		if count > 1 {
			t = float64(i) / float64(count-1)
		}
		x := start.X + (end.X-start.X)*t
		y := start.Y + (end.Y-start.Y)*t
		z := start.Z + (end.Z-start.Z)*t
		if curve > 0 {
			y += curve * math.Sin(t*math.Pi)
		}
		poses = append(poses, PoseAt(x, y, z))
	}
	return poses, nil
}
