package world

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FrustumRecordSize is the encoded size of one ConicalFrustum: nine float32s.
const FrustumRecordSize = 9 * 4

// ConicalFrustum approximates a viewer's visible volume as a cone with a
// keyhole sphere around its apex.
type ConicalFrustum struct {
	Position  Vector
	Direction Vector
	HalfAngle float64
	FarClip   float64
	Radius    float64

	sinAngle float64
	cosAngle float64
}

func NewConicalFrustum(position, direction Vector, halfAngle, farClip, radius float64) ConicalFrustum {
	return ConicalFrustum{
		Position:  position,
		Direction: direction.Normalize(),
		HalfAngle: halfAngle,
		FarClip:   farClip,
		Radius:    radius,
		sinAngle:  math.Sin(halfAngle),
		cosAngle:  math.Cos(halfAngle),
	}
}

// Intersects reports whether any part of the box's bounding sphere lies
// inside the keyhole or the cone.
func (f *ConicalFrustum) Intersects(box Box) bool {
	relative := box.Center().Sub(f.Position)
	return f.intersectsSphere(relative, relative.Length(), box.BoundingRadius())
}

func (f *ConicalFrustum) intersectsSphere(relative Vector, distance, radius float64) bool {
	if distance < f.Radius+radius {
		return true
	}
	if distance > f.FarClip+radius {
		return false
	}
	// cos(A+B) = cos(A)cos(B) - sin(A)sin(B), scaled by distance.
	return relative.Dot(f.Direction) > math.Sqrt(distance*distance-radius*radius)*f.cosAngle-radius*f.sinAngle
}

// Encode appends the wire record for f to b.
func (f *ConicalFrustum) Encode(b []byte) []byte {
	for _, v := range []float64{
		f.Position.X, f.Position.Y, f.Position.Z,
		f.Direction.X, f.Direction.Y, f.Direction.Z,
		f.HalfAngle, f.FarClip, f.Radius,
	} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return b
}

// DecodeConicalFrustum reads one record from the front of b.
func DecodeConicalFrustum(b []byte) (ConicalFrustum, error) {
	if len(b) < FrustumRecordSize {
		return ConicalFrustum{}, fmt.Errorf("frustum record needs %d bytes, have %d", FrustumRecordSize, len(b))
	}
	var v [9]float64
	for i := range v {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return ConicalFrustum{}, fmt.Errorf("frustum field %d is not finite", i)
		}
		v[i] = float64(f)
	}
	return NewConicalFrustum(
		Vector{X: v[0], Y: v[1], Z: v[2]},
		Vector{X: v[3], Y: v[4], Z: v[5]},
		v[6], v[7], v[8],
	), nil
}
