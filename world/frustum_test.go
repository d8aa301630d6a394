package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixer/utils"
)

func unitBoxAt(x, y, z float64) Box {
	return NewBox(Vector{X: x - 0.5, Y: y - 0.5, Z: z - 0.5}, Vector{X: 1, Y: 1, Z: 1})
}

func TestFrustumIntersects(t *testing.T) {
	f := NewConicalFrustum(Vector{}, Vector{Z: -1}, math.Pi/4, 100, 1)

	assert.True(t, f.Intersects(unitBoxAt(0, 0, -10)), "straight ahead")
	assert.False(t, f.Intersects(unitBoxAt(0, 0, 10)), "behind the viewer")
	assert.False(t, f.Intersects(unitBoxAt(0, 0, -200)), "past the far clip")
	assert.True(t, f.Intersects(unitBoxAt(0, 0, 1)), "inside the keyhole even when behind")
	assert.False(t, f.Intersects(unitBoxAt(50, 0, -10)), "outside the cone angle")
	assert.True(t, f.Intersects(unitBoxAt(8, 0, -10)), "inside the cone angle")
}

func TestFrustumEncodeDecode(t *testing.T) {
	f := NewConicalFrustum(Vector{X: 1, Y: 2, Z: 3}, Vector{X: 0, Y: 0, Z: -4}, 0.75, 50, 2)
	b := f.Encode(nil)
	require.Len(t, b, FrustumRecordSize)

	got, err := DecodeConicalFrustum(b)
	require.NoError(t, err)

	const eps = 1e-6
	assert.True(t, utils.AlmostEqual(got.Position.Y, 2, eps))
	assert.True(t, utils.AlmostEqual(got.Direction.Z, -1, eps), "direction is normalized")
	assert.True(t, utils.AlmostEqual(got.HalfAngle, 0.75, eps))
	assert.True(t, utils.AlmostEqual(got.FarClip, 50, eps))
	assert.True(t, utils.AlmostEqual(got.Radius, 2, eps))

	_, err = DecodeConicalFrustum(b[:FrustumRecordSize-1])
	assert.Error(t, err)
}

func TestDecodeFrustumRejectsNaN(t *testing.T) {
	f := NewConicalFrustum(Vector{X: math.NaN()}, Vector{Z: -1}, 0.5, 10, 1)
	_, err := DecodeConicalFrustum(f.Encode(nil))
	assert.Error(t, err)
}

func TestBoxBounds(t *testing.T) {
	b := NewBox(Vector{}, Vector{X: 2, Y: 2, Z: 2})
	assert.Equal(t, Vector{X: 1, Y: 1, Z: 1}, b.Center())
	assert.True(t, utils.AlmostEqual(b.BoundingRadius(), math.Sqrt(3), 1e-9))
}

func TestBoxTouches(t *testing.T) {
	a := unitBoxAt(0, 0, 0)
	assert.True(t, a.Touches(unitBoxAt(0.5, 0, 0)))
	assert.True(t, a.Touches(unitBoxAt(1, 0, 0)), "shared face")
	assert.False(t, a.Touches(unitBoxAt(3, 0, 0)))
	assert.True(t, a.Expand(1).Touches(unitBoxAt(2.5, 0, 0)))
	assert.False(t, a.Expand(1).Touches(unitBoxAt(0, 0, 4)))
}
