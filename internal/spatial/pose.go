package spatial

import (
	"encoding/json"
	"fmt"
)

// Vector3 表示三维尺寸或位置分量。
// 在线格式上序列化为 [x, y, z] 三元数组。
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// MarshalJSON 按远端后端约定输出三元数组。
func (v Vector3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

// UnmarshalJSON 接受三元数组形式的输入。
func (v *Vector3) UnmarshalJSON(data []byte) error {
	var raw [3]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("解析三维向量失败: %w", err)
	}
	v.X, v.Y, v.Z = raw[0], raw[1], raw[2]
	return nil
}

// Pose 描述一个对象的空间位姿：位置加 3x3 旋转矩阵（Rojo v7 兼容格式）。
// Pose 一经创建不可修改，所有布局函数都返回新值。
type Pose struct {
	Position    [3]float64    `json:"position"`
	Orientation [3][3]float64 `json:"orientation"`
}

// PoseAt 以单位朝向构造一个位姿。
func PoseAt(x, y, z float64) Pose {
	return Pose{
		Position: [3]float64{x, y, z},
		Orientation: [3][3]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
}

// X 返回位置的 x 分量。
func (p Pose) X() float64 { return p.Position[0] }

// Y 返回位置的 y 分量。
func (p Pose) Y() float64 { return p.Position[1] }

// Z 返回位置的 z 分量。
func (p Pose) Z() float64 { return p.Position[2] }

// Translate 返回平移后的新位姿，朝向保持不变。
func (p Pose) Translate(dx, dy, dz float64) Pose {
	p.Position[0] += dx
	p.Position[1] += dy
	p.Position[2] += dz
	return p
}

// 对象属性中保留的键名。PropPose 下存放 Pose，其余为远端后端直接识别的属性。
const (
	PropPose     = "CFrame"
	PropSize     = "Size"
	PropColor    = "BrickColor"
	PropMaterial = "Material"
	PropAnchored = "Anchored"
	PropSource   = "Source"
)

// ObjectSpec 描述一次对象创建请求，供批量创建接口使用。
type ObjectSpec struct {
	Name       string         `json:"name"`
	ClassName  string         `json:"className"`
	Parent     string         `json:"parent"`
	Properties map[string]any `json:"properties"`
}

// Pose 返回规格中携带的位姿。若未设置则返回 false。
func (s ObjectSpec) Pose() (Pose, bool) {
	raw, ok := s.Properties[PropPose]
	if !ok {
		return Pose{}, false
	}
	pose, ok := raw.(Pose)
	return pose, ok
}

// Size 返回规格中携带的尺寸。若未设置则返回 false。
func (s ObjectSpec) Size() (Vector3, bool) {
	raw, ok := s.Properties[PropSize]
	if !ok {
		return Vector3{}, false
	}
	size, ok := raw.(Vector3)
	return size, ok
}
