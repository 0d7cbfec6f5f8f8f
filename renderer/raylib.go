package renderer

import (
	"log/slog"
	"os"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Raylib draws batches into the current raylib window. The window itself
// is opened and closed by the caller.
type Raylib struct {
	Projection Projection
	Background rl.Color
	TextureDir string

	textures map[string]rl.Texture2D
	fallback *rl.Texture2D
}

// NewRaylib creates a raylib backend. Textures are loaded lazily from dir.
func NewRaylib(p Projection, background rl.Color, dir string) *Raylib {
	return &Raylib{
		Projection: p,
		Background: background,
		TextureDir: dir,
		textures:   make(map[string]rl.Texture2D),
	}
}

// BeginFrame starts drawing and clears the screen.
func (r *Raylib) BeginFrame() {
	rl.BeginDrawing()
	rl.ClearBackground(r.Background)
}

// EndFrame presents the frame.
func (r *Raylib) EndFrame() {
	rl.EndDrawing()
}

// Draw renders one batch with its blend mode.
func (r *Raylib) Draw(b Batch) {
	if len(b.Vertices) == 0 {
		return
	}
	rl.BeginBlendMode(raylibBlend(b.Blend))
	defer rl.EndBlendMode()

	if b.Primitive == Points {
		radius := max(b.PointSize/2*r.Projection.Scale, 0.5)
		for i := range b.Vertices {
			v := &b.Vertices[i]
			x, y := r.Projection.Apply(v.Pos)
			rl.DrawCircle(int32(x), int32(y), radius, toColor(v.Color))
		}
		return
	}

	if b.Texture == "" {
		r.drawFlat(b.Vertices)
		return
	}
	r.drawTextured(r.texture(b.Texture), b.Vertices)
}

// drawFlat fills every triangle with its first vertex colour.
func (r *Raylib) drawFlat(verts []Vertex) {
	for i := 0; i+2 < len(verts); i += 3 {
		a := r.point(verts[i].Pos)
		b := r.point(verts[i+1].Pos)
		c := r.point(verts[i+2].Pos)
		// DrawTriangle requires counter-clockwise winding on screen
		if cross(a, b, c) > 0 {
			b, c = c, b
		}
		rl.DrawTriangle(a, b, c, toColor(verts[i].Color))
	}
}

// drawTextured feeds the triangles through rlgl so texture coordinates and
// per-vertex colours survive.
func (r *Raylib) drawTextured(tex rl.Texture2D, verts []Vertex) {
	rl.SetTexture(tex.ID)
	rl.Begin(rl.Triangles)
	for i := 0; i+2 < len(verts); i += 3 {
		tri := [3]int{i, i + 1, i + 2}
		if cross(r.point(verts[i].Pos), r.point(verts[i+1].Pos), r.point(verts[i+2].Pos)) > 0 {
			tri[1], tri[2] = tri[2], tri[1]
		}
		for _, k := range tri {
			v := &verts[k]
			x, y := r.Projection.Apply(v.Pos)
			rl.Color4ub(v.Color[0], v.Color[1], v.Color[2], v.Color[3])
			rl.TexCoord2f(v.UV[0], v.UV[1])
			rl.Vertex2f(x, y)
		}
	}
	rl.End()
	rl.SetTexture(0)
}

func (r *Raylib) point(pos [3]float32) rl.Vector2 {
	x, y := r.Projection.Apply(pos)
	return rl.Vector2{X: x, Y: y}
}

// texture returns the named texture, falling back to plain white when the
// file cannot be found.
func (r *Raylib) texture(name string) rl.Texture2D {
	if t, ok := r.textures[name]; ok {
		return t
	}
	path := filepath.Join(r.TextureDir, name)
	if _, err := os.Stat(path); err != nil {
		slog.Warn("texture not found, drawing untextured", "texture", name, "error", err)
		r.textures[name] = r.white()
		return r.textures[name]
	}
	t := rl.LoadTexture(path)
	r.textures[name] = t
	return t
}

func (r *Raylib) white() rl.Texture2D {
	if r.fallback == nil {
		img := rl.GenImageColor(2, 2, rl.White)
		t := rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		r.fallback = &t
	}
	return *r.fallback
}

// Close unloads every texture the backend loaded.
func (r *Raylib) Close() error {
	for name, t := range r.textures {
		if r.fallback == nil || t.ID != r.fallback.ID {
			rl.UnloadTexture(t)
		}
		delete(r.textures, name)
	}
	if r.fallback != nil {
		rl.UnloadTexture(*r.fallback)
		r.fallback = nil
	}
	return nil
}

// raylibBlend maps a material blend. raylib has no opaque mode, so replace
// draws as alpha blending.
func raylibBlend(b Blend) rl.BlendMode {
	switch b {
	case BlendAdd:
		return rl.BlendAdditive
	case BlendColour:
		return rl.BlendAddColors
	case BlendModulate:
		return rl.BlendMultiplied
	}
	return rl.BlendAlpha
}

func toColor(c [4]uint8) rl.Color {
	return rl.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// cross is the z component of (b-a) x (c-a) in screen space.
func cross(a, b, c rl.Vector2) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
