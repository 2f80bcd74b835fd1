package spatial

import (
	"fmt"
	"strings"

	xerrors "SceneMCP-Agent/internal/errors"
)

// BuildingKind 表示预置建筑的类型。
type BuildingKind string

const (
	BuildingHouse BuildingKind = "house"
	BuildingTower BuildingKind = "tower"
	BuildingShop  BuildingKind = "shop"
)

// SizeClass 决定预置建筑的整体缩放。
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

var sizeScale = map[SizeClass]float64{
	SizeSmall:  0.75,
	SizeMedium: 1,
	SizeLarge:  1.5,
}

// DetectSizeClass 从自然语言描述里识别尺寸档位，默认按 medium 处理。
func DetectSizeClass(description string) SizeClass {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "small") || strings.Contains(lower, "tiny"):
		return SizeSmall
	case strings.Contains(lower, "large") || strings.Contains(lower, "big") || strings.Contains(lower, "huge"):
		return SizeLarge
	default:
		return SizeMedium
	}
}

// DetectBuildingKind 从自然语言描述里识别建筑类型，默认按 house 处理。
func DetectBuildingKind(description string) BuildingKind {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "tower"):
		return BuildingTower
	case strings.Contains(lower, "shop") || strings.Contains(lower, "store"):
		return BuildingShop
	default:
		return BuildingHouse
	}
}

// Building 生成一座预置建筑的对象规格，首个元素是容器文件夹，
// 其余部件的 Parent 指向该文件夹。未识别的尺寸档位按 medium 处理。
func Building(kind BuildingKind, class SizeClass, origin Vector3) ([]ObjectSpec, error) {
	scale, ok := sizeScale[class]
	if !ok {
		scale = sizeScale[SizeMedium]
	}

	var specs []ObjectSpec
	switch kind {
	case BuildingHouse:
		specs = house(origin)
	case BuildingTower:
		// 塔楼按档位查表决定层数与边长，不参与整体缩放。
		return tower(origin, class), nil
	case BuildingShop:
		specs = shop(origin)
	default:
		return nil, xerrors.New(xerrors.CodeInvalidParameter, fmt.Sprintf("未知的建筑类型 %q", kind))
	}
	if scale != 1 {
		for i := range specs {
			scaleSpec(&specs[i], origin, scale)
		}
	}
	return specs, nil
}

// scaleSpec 以建筑原点为中心等比缩放部件的尺寸与偏移。
func scaleSpec(spec *ObjectSpec, origin Vector3, scale float64) {
	if size, ok := spec.Size(); ok {
		spec.Properties[PropSize] = Vector3{X: size.X * scale, Y: size.Y * scale, Z: size.Z * scale}
	}
	if pose, ok := spec.Pose(); ok {
		spec.Properties[PropPose] = PoseAt(
			origin.X+(pose.X()-origin.X)*scale,
			origin.Y+(pose.Y()-origin.Y)*scale,
			origin.Z+(pose.Z()-origin.Z)*scale,
		)
	}
}

func house(o Vector3) []ObjectSpec {
	folder := "game.Workspace.House"
	specs := []ObjectSpec{{
		Name:      "House",
		ClassName: "Folder",
		Parent:    "game.Workspace",
	}}
	specs = append(specs,
		part("Foundation", folder, PoseAt(o.X, o.Y+0.5, o.Z), Vector3{X: 20, Y: 1, Z: 20}, "Medium stone grey", "Concrete"),
		part("WallNorth", folder, PoseAt(o.X, o.Y+5, o.Z-9.5), Vector3{X: 20, Y: 8, Z: 1}, "Brick yellow", "Brick"),
		part("WallSouth", folder, PoseAt(o.X, o.Y+5, o.Z+9.5), Vector3{X: 20, Y: 8, Z: 1}, "Brick yellow", "Brick"),
		part("WallEast", folder, PoseAt(o.X+9.5, o.Y+5, o.Z), Vector3{X: 1, Y: 8, Z: 18}, "Brick yellow", "Brick"),
		part("WallWest", folder, PoseAt(o.X-9.5, o.Y+5, o.Z), Vector3{X: 1, Y: 8, Z: 18}, "Brick yellow", "Brick"),
		part("Roof", folder, PoseAt(o.X, o.Y+9.5, o.Z), Vector3{X: 22, Y: 1, Z: 22}, "Reddish brown", "Wood"),
	)
	return specs
}

type towerPreset struct {
	base        float64
	floors      int
	floorHeight float64
}

var towerPresets = map[SizeClass]towerPreset{
	SizeSmall:  {base: 8, floors: 5, floorHeight: 4},
	SizeMedium: {base: 12, floors: 8, floorHeight: 5},
	SizeLarge:  {base: 16, floors: 12, floorHeight: 6},
}

func tower(o Vector3, class SizeClass) []ObjectSpec {
	preset, ok := towerPresets[class]
	if !ok {
		preset = towerPresets[SizeMedium]
	}

	folder := "game.Workspace.Tower"
	specs := []ObjectSpec{{
		Name:      "Tower",
		ClassName: "Folder",
		Parent:    "game.Workspace",
	}}
	for i := 0; i < preset.floors; i++ {
		color := "Medium stone grey"
		if i%2 == 1 {
			color = "Dark stone grey"
		}
		specs = append(specs, part(
			fmt.Sprintf("Floor%d", i+1),
			folder,
			PoseAt(o.X, o.Y+float64(i)*preset.floorHeight+0.5, o.Z),
			Vector3{X: preset.base, Y: 1, Z: preset.base},
			color, "Concrete",
		))
	}
	return specs
}

func shop(o Vector3) []ObjectSpec {
	folder := "game.Workspace.Shop"
	specs := []ObjectSpec{{
		Name:      "Shop",
		ClassName: "Folder",
		Parent:    "game.Workspace",
	}}
	specs = append(specs,
		part("Floor", folder, PoseAt(o.X, o.Y+0.5, o.Z), Vector3{X: 16, Y: 1, Z: 12}, "Medium stone grey", "Concrete"),
		part("BackWall", folder, PoseAt(o.X, o.Y+4, o.Z-5.5), Vector3{X: 16, Y: 6, Z: 1}, "Bright blue", "SmoothPlastic"),
		part("Counter", folder, PoseAt(o.X, o.Y+2, o.Z+2), Vector3{X: 10, Y: 3, Z: 2}, "Reddish brown", "Wood"),
		part("Awning", folder, PoseAt(o.X, o.Y+7.5, o.Z+5), Vector3{X: 18, Y: 1, Z: 6}, "Bright red", "Fabric"),
	)
	return specs
}

func part(name, parent string, pose Pose, size Vector3, color, material string) ObjectSpec {
	return ObjectSpec{
		Name:      name,
		ClassName: "Part",
		Parent:    parent,
		Properties: map[string]any{
			PropPose:     pose,
			PropSize:     size,
			PropColor:    color,
			PropMaterial: material,
			PropAnchored: true,
		},
	}
}
