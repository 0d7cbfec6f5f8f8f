package particles

import (
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/renderer"
)

// Material is the render state a technique draws with.
type Material struct {
	Name       string
	Texture    string
	Blend      renderer.Blend
	DepthWrite bool
	DepthCheck bool
	Lighting   bool
}

func defaultMaterial() Material {
	return Material{Blend: renderer.BlendAlpha, DepthCheck: true}
}

// parseMaterial accepts either a bare material name or a map.
func parseMaterial(n node.Node) (Material, error) {
	m := defaultMaterial()
	if n.IsNil() {
		return m, nil
	}
	if n.IsString() {
		s, err := n.AsString()
		m.Name = s
		return m, err
	}
	if !n.IsMap() {
		return m, n.Errorf(node.ErrType, "expected material name or map")
	}
	var err error
	if m.Name, err = n.StringOr("name", ""); err != nil {
		return m, err
	}
	if m.Texture, err = n.StringOr("texture", ""); err != nil {
		return m, err
	}
	blend, err := n.StringOr("scene_blend", m.Blend.String())
	if err != nil {
		return m, err
	}
	if m.Blend, err = renderer.ParseBlend(blend); err != nil {
		return m, n.Get("scene_blend").Errorf(node.ErrValue, "%v", err)
	}
	if m.DepthWrite, err = n.BoolOr("depth_write", false); err != nil {
		return m, err
	}
	if m.DepthCheck, err = n.BoolOr("depth_check", true); err != nil {
		return m, err
	}
	if m.Lighting, err = n.BoolOr("lighting", false); err != nil {
		return m, err
	}
	return m, nil
}

func (m Material) write() *node.Map {
	out := node.NewMap()
	if m.Name != "" {
		out.Set("name", m.Name)
	}
	if m.Texture != "" {
		out.Set("texture", m.Texture)
	}
	out.Set("scene_blend", m.Blend.String())
	out.Set("depth_write", m.DepthWrite)
	out.Set("depth_check", m.DepthCheck)
	out.Set("lighting", m.Lighting)
	return out
}
