package world

// Box is an axis-aligned bounding box anchored at its minimum corner.
type Box struct {
	Corner     Vector
	Dimensions Vector
}

func NewBox(corner, dimensions Vector) Box {
	return Box{Corner: corner, Dimensions: dimensions}
}

func (b Box) Center() Vector {
	return b.Corner.Add(b.Dimensions.Scale(0.5))
}

// BoundingRadius is the radius of the smallest sphere around Center holding the box.
func (b Box) BoundingRadius() float64 {
	return 0.5 * b.Dimensions.Length()
}

// Expand grows the box by margin on every side.
func (b Box) Expand(margin float64) Box {
	m := Vector{X: margin, Y: margin, Z: margin}
	return Box{Corner: b.Corner.Sub(m), Dimensions: b.Dimensions.Add(m.Scale(2))}
}

// Touches reports whether the boxes overlap or share a face.
func (b Box) Touches(o Box) bool {
	bMax, oMax := b.Corner.Add(b.Dimensions), o.Corner.Add(o.Dimensions)
	return b.Corner.X <= oMax.X && o.Corner.X <= bMax.X &&
		b.Corner.Y <= oMax.Y && o.Corner.Y <= bMax.Y &&
		b.Corner.Z <= oMax.Z && o.Corner.Z <= bMax.Z
}
