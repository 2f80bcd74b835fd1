package spatial

import (
	"math"
	"testing"

	xerrors "SceneMCP-Agent/internal/errors"
)

func platformPose(t *testing.T, spec ObjectSpec) Pose {
	t.Helper()
	pose, ok := spec.Pose()
	if !ok {
		t.Fatalf("spec %s has no pose property", spec.Name)
	}
	return pose
}

func TestObstacleCourseHard(t *testing.T) {
	specs, err := ObstacleCourse(10, DifficultyHard)
	if err != nil {
		t.Fatalf("obstacle course: %v", err)
	}
	if len(specs) != 10 {
		t.Fatalf("expected 10 platforms, got %d", len(specs))
	}

	first := platformPose(t, specs[0])
	if first.X() != 0 || first.Y() != 5 || first.Z() != 0 {
		t.Fatalf("unexpected start pose: %+v", first.Position)
	}

	second := platformPose(t, specs[1])
	if second.X() != 12 {
		t.Fatalf("expected x spacing 12, got %v", second.X())
	}
	if second.Z() != -4 {
		t.Fatalf("expected odd index to shift z by -4, got %v", second.Z())
	}
	if second.Y() != 3 {
		t.Fatalf("expected dipped platform at y=3, got %v", second.Y())
	}

	fourth := platformPose(t, specs[3])
	if fourth.Y() != 9 {
		t.Fatalf("expected raised platform at y=9, got %v", fourth.Y())
	}

	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if seen[spec.Name] {
			t.Fatalf("duplicate platform name %s", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Properties[PropColor] != platformPalette[i%len(platformPalette)] {
			t.Fatalf("platform %d has color %v", i, spec.Properties[PropColor])
		}
		if spec.Properties[PropAnchored] != true {
			t.Fatalf("platform %d is not anchored", i)
		}
	}
}

func TestObstacleCourseUnknownDifficultyFallsBack(t *testing.T) {
	specs, err := ObstacleCourse(2, "nightmare")
	if err != nil {
		t.Fatalf("obstacle course: %v", err)
	}
	second := platformPose(t, specs[1])
	if second.X() != 10 {
		t.Fatalf("expected medium x spacing 10, got %v", second.X())
	}
}

func TestObstacleCourseRejectsNonPositiveCount(t *testing.T) {
	_, err := ObstacleCourse(0, DifficultyEasy)
	if err == nil {
		t.Fatal("expected error for zero platforms")
	}
	if xerrors.CodeOf(err) != xerrors.CodeInvalidParameter {
		t.Fatalf("unexpected error code: %s", xerrors.CodeOf(err))
	}
}

func TestGridDoesNotOverlap(t *testing.T) {
	cell := Vector3{X: 4, Y: 2, Z: 4}
	poses, err := Grid(7, cell, 2)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(poses) != 7 {
		t.Fatalf("expected 7 poses, got %d", len(poses))
	}
	for i := range poses {
		if poses[i].Y() != cell.Y/2 {
			t.Fatalf("pose %d not resting on ground: y=%v", i, poses[i].Y())
		}
		for j := i + 1; j < len(poses); j++ {
			dx := math.Abs(poses[i].X() - poses[j].X())
			dz := math.Abs(poses[i].Z() - poses[j].Z())
			if dx < cell.X && dz < cell.Z {
				t.Fatalf("poses %d and %d overlap: %+v vs %+v", i, j, poses[i].Position, poses[j].Position)
			}
		}
	}
}

func TestCircleKeepsRadius(t *testing.T) {
	const radius, height = 15.0, 3.0
	poses, err := Circle(8, radius, height)
	if err != nil {
		t.Fatalf("circle: %v", err)
	}
	for i, pose := range poses {
		if pose.Y() != height {
			t.Fatalf("pose %d at wrong height %v", i, pose.Y())
		}
		dist := math.Hypot(pose.X(), pose.Z())
		if math.Abs(dist-radius) > 1e-9 {
			t.Fatalf("pose %d at distance %v, want %v", i, dist, radius)
		}
	}
}

func TestStaircaseRiseAndRun(t *testing.T) {
	size := Vector3{X: 4, Y: 1, Z: 2}
	specs, err := Staircase(5, size, 1.5, 2)
	if err != nil {
		t.Fatalf("staircase: %v", err)
	}
	for i, spec := range specs {
		pose := platformPose(t, spec)
		wantY := float64(i)*1.5 + size.Y/2
		if pose.Y() != wantY {
			t.Fatalf("step %d at y=%v, want %v", i, pose.Y(), wantY)
		}
		if pose.Z() != float64(i)*2 {
			t.Fatalf("step %d at z=%v", i, pose.Z())
		}
	}
}

func TestSpawnAbove(t *testing.T) {
	platform := PoseAt(30, 9, -4)
	spawn := SpawnAbove(platform, Vector3{X: 4, Y: 1, Z: 4})
	if spawn.X() != 30 || spawn.Z() != -4 {
		t.Fatalf("spawn moved horizontally: %+v", spawn.Position)
	}
	if spawn.Y() != 9+0.5+2.5 {
		t.Fatalf("spawn at y=%v, want %v", spawn.Y(), 12.0)
	}
}

func TestPathPointsEndpointsAndCurve(t *testing.T) {
	start := Vector3{X: 0, Y: 1, Z: 0}
	end := Vector3{X: 10, Y: 1, Z: 10}
	poses, err := PathPoints(start, end, 5, 4)
	if err != nil {
		t.Fatalf("path points: %v", err)
	}
	if poses[0].X() != 0 || poses[0].Z() != 0 {
		t.Fatalf("unexpected first point: %+v", poses[0].Position)
	}
	last := poses[len(poses)-1]
	if last.X() != 10 || last.Z() != 10 {
		t.Fatalf("unexpected last point: %+v", last.Position)
	}
	mid := poses[2]
	if mid.Y() <= 1 {
		t.Fatalf("expected curve to lift midpoint, got y=%v", mid.Y())
	}
}
