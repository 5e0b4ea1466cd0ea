package constraint

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAnglesAdd(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"small", 0.1, 0.2, 0.3},
		{"opposite", 1, -1, 0},
		{"wraps past pi", 3.0, 0.3, 3.3 - 2*math.Pi},
		{"wraps past minus pi", -3.0, -0.3, 2*math.Pi - 3.3},
		{"shortest difference across the cut", -3.1, -3.1, 2*math.Pi - 6.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnglesAdd(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("AnglesAdd(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCalculateAngle(t *testing.T) {
	x := mgl64.Vec3{1, 0, 0}
	y := mgl64.Vec3{0, 1, 0}
	z := mgl64.Vec3{0, 0, 1}

	tests := []struct {
		name        string
		dir, cosDir mgl64.Vec3
		axis        mgl64.Vec3
		expected    float64
	}{
		{"x to y about z", x, y, z, math.Pi / 2},
		{"y to x about z", y, x, z, -math.Pi / 2},
		{"same", x, x, z, 0},
		{"opposite", x, x.Mul(-1), z, math.Pi},
		{"45 degrees", x, mgl64.Vec3{1, 1, 0}.Normalize(), z, math.Pi / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateAngle(tt.dir, tt.cosDir, tt.axis); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CalculateAngle() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAngleBetween_ClampsRoundoff(t *testing.T) {
	v := mgl64.Vec3{1, 1e-9, 0}
	got := AngleBetween(v.Mul(1.0000001), v.Mul(1.0000001))
	if math.IsNaN(got) {
		t.Fatal("AngleBetween() returned NaN for a dot slightly above 1")
	}
}

func TestBasisFromDirection(t *testing.T) {
	dirs := []mgl64.Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, -3, 0},
		{0.2, 0.3, -0.9},
		{},
	}

	for _, dir := range dirs {
		front, up, right := BasisFromDirection(dir)
		for _, v := range []mgl64.Vec3{front, up, right} {
			if math.IsNaN(v.X()) || math.Abs(v.Len()-1) > 1e-9 {
				t.Fatalf("basis of %v is not unit: %v %v %v", dir, front, up, right)
			}
		}
		if math.Abs(front.Dot(up)) > 1e-9 || math.Abs(front.Dot(right)) > 1e-9 || math.Abs(up.Dot(right)) > 1e-9 {
			t.Errorf("basis of %v is not orthogonal", dir)
		}
		if front.Cross(up).Sub(right).Len() > 1e-9 {
			t.Errorf("basis of %v is not right handed", dir)
		}
		if dir.Len() > 0 && front.Sub(dir.Normalize()).Len() > 1e-9 {
			t.Errorf("front = %v, want %v", front, dir.Normalize())
		}
	}
}

func TestQuatAxisAngle(t *testing.T) {
	axis := mgl64.Vec3{0, 0, 1}
	q := mgl64.QuatRotate(0.5, axis)

	gotAxis, angle, ok := quatAxisAngle(q)
	if !ok || math.Abs(angle-0.5) > 1e-9 || gotAxis.Sub(axis).Len() > 1e-9 {
		t.Errorf("quatAxisAngle() = %v %v %v", gotAxis, angle, ok)
	}

	// the negated quaternion is the same rotation
	gotAxis, angle, ok = quatAxisAngle(q.Scale(-1))
	if !ok || math.Abs(angle-0.5) > 1e-9 || gotAxis.Sub(axis).Len() > 1e-9 {
		t.Errorf("quatAxisAngle(-q) = %v %v %v", gotAxis, angle, ok)
	}

	if _, _, ok := quatAxisAngle(mgl64.QuatIdent()); ok {
		t.Error("identity has no rotation axis")
	}
}

func TestTwistAngle(t *testing.T) {
	twist := mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0})
	swing := mgl64.QuatRotate(0.4, mgl64.Vec3{0, 0, 1})
	rotation := swing.Mul(twist)

	front0 := rotation.Rotate(mgl64.Vec3{1, 0, 0})
	up0 := rotation.Rotate(mgl64.Vec3{0, 1, 0})

	got := twistAngle(front0, up0, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	if math.Abs(got-0.3) > 1e-9 {
		t.Errorf("twistAngle() = %v, want 0.3", got)
	}
}
