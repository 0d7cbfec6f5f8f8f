package renderer

// Projection maps world positions onto a screen. Z is ignored.
type Projection struct {
	Scale   float32 // Screen units per world unit
	OriginX float32 // Screen position of the world origin
	OriginY float32
	FlipY   bool // World +Y points up
}

// Apply returns the screen position of a world position.
func (p Projection) Apply(pos [3]float32) (x, y float32) {
	x = p.OriginX + pos[0]*p.Scale
	if p.FlipY {
		return x, p.OriginY - pos[1]*p.Scale
	}
	return x, p.OriginY + pos[1]*p.Scale
}

// quadCentre returns the centre of the quad starting at v[i]. Both
// triangles of a parallelogram average to its centre whatever the corner
// order.
func quadCentre(v []Vertex, i int) [3]float32 {
	var c [3]float32
	for _, q := range v[i : i+VerticesPerParticle] {
		c[0] += q.Pos[0]
		c[1] += q.Pos[1]
		c[2] += q.Pos[2]
	}
	for k := range c {
		c[k] /= VerticesPerParticle
	}
	return c
}
