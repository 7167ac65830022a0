package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/sphere"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got r3.Vec, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tol, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tol, msgAndArgs...)
}

func TestComputePose_FlatLooksDown(t *testing.T) {
	rot := ComputePose(orientation.Angles{}, 0, Offset{})
	assertVec(t, r3.Vec{Y: -1}, Forward(rot))
}

func TestComputePose_UprightLooksForward(t *testing.T) {
	rot := ComputePose(orientation.Angles{Beta: 90}, 0, Offset{})
	assertVec(t, r3.Vec{Z: -1}, Forward(rot))
	assertVec(t, r3.Vec{Y: 1}, Up(rot))
}

func TestComputePose_HeadingTurnsLeft(t *testing.T) {
	// alpha grows counter-clockwise seen from above.
	rot := ComputePose(orientation.Angles{Alpha: 90, Beta: 90}, 0, Offset{})
	assertVec(t, r3.Vec{X: -1}, Forward(rot))

	rot = ComputePose(orientation.Angles{Alpha: 180, Beta: 90}, 0, Offset{})
	assertVec(t, r3.Vec{Z: 1}, Forward(rot))
}

func TestComputePose_ScreenRotationKeepsViewDirection(t *testing.T) {
	portrait := ComputePose(orientation.Angles{Alpha: 30, Beta: 90}, 0, Offset{})
	landscape := ComputePose(orientation.Angles{Alpha: 30, Beta: 90}, 90, Offset{})

	// Rotating the screen only rolls the camera around its view axis.
	assertVec(t, Forward(portrait), Forward(landscape))

	rot := ComputePose(orientation.Angles{Beta: 90}, 90, Offset{})
	assertVec(t, r3.Vec{X: 1}, Up(rot))
}

func TestComputePose_CalibrationOffset(t *testing.T) {
	a := orientation.Angles{Alpha: 75, Beta: 90}
	rot := ComputePose(a, 0, Offset{Alpha: 75})
	assertVec(t, r3.Vec{Z: -1}, Forward(rot))

	off := OffsetFrom(orientation.Angles{Alpha: 75, Beta: 10, Gamma: 40})
	assert.Equal(t, Offset{Alpha: 75, Beta: -80}, off)
}

func TestOffsetFrom_RecentersAnyPose(t *testing.T) {
	for _, alpha := range []float64{0, 30, 200, 350} {
		for _, beta := range []float64{-30, 0, 45, 90, 150} {
			a := orientation.Angles{Alpha: alpha, Beta: beta}
			rot := ComputePose(a, 0, OffsetFrom(a))
			assertVec(t, r3.Vec{Z: -1}, Forward(rot), "alpha=%v beta=%v", alpha, beta)
			assertVec(t, r3.Vec{Y: 1}, Up(rot), "alpha=%v beta=%v", alpha, beta)
		}
	}
}

func TestOffsetFrom_UprightKeepsPitch(t *testing.T) {
	off := OffsetFrom(orientation.Angles{Alpha: 30, Beta: 90})
	assert.Equal(t, Offset{Alpha: 30}, off)

	// Tilting up 30 degrees after calibrating still looks 30 degrees up.
	rot := ComputePose(orientation.Angles{Alpha: 30, Beta: 120}, 0, off)
	s := math.Sin(math.Pi / 6)
	c := math.Cos(math.Pi / 6)
	assertVec(t, r3.Vec{Y: s, Z: -c}, Forward(rot))
}

func TestComputePose_Pure(t *testing.T) {
	a := orientation.Angles{Alpha: 123.4, Beta: 56.7, Gamma: -8.9}
	off := Offset{Alpha: 10, Beta: 5}

	first := ComputePose(a, 270, off)
	second := ComputePose(a, 270, off)
	assert.Equal(t, first, second)
}

func TestComputePose_UnitQuaternion(t *testing.T) {
	rot := ComputePose(orientation.Angles{Alpha: 200, Beta: -30, Gamma: 60}, 180, Offset{Alpha: 3})
	n := math.Sqrt(rot.Real*rot.Real + rot.Imag*rot.Imag + rot.Jmag*rot.Jmag + rot.Kmag*rot.Kmag)
	assert.InDelta(t, 1, n, 1e-12)
	assert.InDelta(t, 1, r3.Norm(Forward(rot)), 1e-12)
}

func TestLookAt_PointsAtSpherePoints(t *testing.T) {
	points, err := sphere.Generate(5, 16)
	assert.NoError(t, err)

	for _, p := range points {
		rot := LookAt(p.Position)
		assertVec(t, r3.Unit(p.Position), Forward(rot), "point %s", p.ID)
	}
}

func TestLookAt_Zero(t *testing.T) {
	assert.Equal(t, Identity, LookAt(r3.Vec{}))
	assertVec(t, r3.Vec{Z: -1}, Forward(Identity))
}
