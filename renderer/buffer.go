// Package renderer turns technique vertex streams into pixels. The particle
// engine only ever writes into an AttributeBuffer; a Backend draws whatever
// the buffer currently publishes.
package renderer

import "fmt"

// VerticesPerParticle is the triangle-list size of one particle quad.
const VerticesPerParticle = 6

// Vertex is one corner of a particle quad.
type Vertex struct {
	Pos   [3]float32
	UV    [2]float32
	Color [4]uint8
}

// AttributeBuffer is a double-buffered vertex stream. The simulation fills
// the back slice and publishes it with Swap; draw calls read Front. Both
// slices are allocated once at capacity so a steady state never allocates.
type AttributeBuffer struct {
	front []Vertex
	back  []Vertex
	swaps int
}

// NewAttributeBuffer allocates a buffer holding up to capacity vertices.
func NewAttributeBuffer(capacity int) *AttributeBuffer {
	return &AttributeBuffer{
		front: make([]Vertex, 0, capacity),
		back:  make([]Vertex, 0, capacity),
	}
}

// Back returns the empty back slice to append into.
func (b *AttributeBuffer) Back() []Vertex { return b.back[:0] }

// Swap publishes filled as the new front. filled must come from Back.
func (b *AttributeBuffer) Swap(filled []Vertex) {
	b.back = b.front[:0]
	b.front = filled
	b.swaps++
}

// Front returns the last published vertices.
func (b *AttributeBuffer) Front() []Vertex { return b.front }

// Cap returns the vertex capacity.
func (b *AttributeBuffer) Cap() int { return cap(b.back) }

// Swaps returns how many times the buffer has been published.
func (b *AttributeBuffer) Swaps() int { return b.swaps }

// Blend is a material blend mode.
type Blend uint8

const (
	BlendAlpha Blend = iota
	BlendAdd
	BlendColour
	BlendModulate
	BlendReplace
)

var blendNames = []string{"alpha_blend", "add", "colour_blend", "modulate", "replace"}

func (b Blend) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("Blend(%d)", b)
}

// ParseBlend maps a scene_blend name to a Blend.
func ParseBlend(s string) (Blend, error) {
	for i, name := range blendNames {
		if name == s {
			return Blend(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scene_blend %q (expected one of %v)", s, blendNames)
}

// Primitive selects how a batch's vertices are assembled.
type Primitive uint8

const (
	Triangles Primitive = iota
	Points
)

// Batch is one technique's draw request. PointSize applies to Points only.
type Batch struct {
	Name      string
	Texture   string
	Blend     Blend
	Primitive Primitive
	PointSize float32
	Vertices  []Vertex
}

// Backend draws batches. Implementations own their window or screen.
type Backend interface {
	BeginFrame()
	Draw(b Batch)
	EndFrame()
	Close() error
}
