package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"deferred-engine/internal/pass"
)

// Description is the YAML form of a scene: a 3D node tree and a flat list of
// overlay panels. Meshes are named rather than stored.
type Description struct {
	Nodes   []NodeDescription  `yaml:"nodes"`
	Overlay []PanelDescription `yaml:"overlay"`
}

type NodeDescription struct {
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position"`
	// Rotation is a quaternion as x, y, z, w. All zero means identity.
	Rotation [4]float32 `yaml:"rotation"`
	// Scale of all zero means 1.
	Scale [3]float32 `yaml:"scale"`
	// Mesh is cube, sphere, plane, or the path of a glTF file relative to
	// the description.
	Mesh     string            `yaml:"mesh"`
	Size     float32           `yaml:"size"`
	Color    [4]uint8          `yaml:"color"`
	Light    *LightDescription `yaml:"light"`
	Children []NodeDescription `yaml:"children"`
}

type LightDescription struct {
	Color     [3]float32 `yaml:"color"`
	Direction [3]float32 `yaml:"direction"`
	Strength  float32    `yaml:"strength"`
}

type PanelDescription struct {
	Name string `yaml:"name"`
	// Layer is background, foreground or text.
	Layer string     `yaml:"layer"`
	Rect  [4]float32 `yaml:"rect"`
	Color [4]uint8   `yaml:"color"`
	// Texture is an image path relative to the description.
	Texture string `yaml:"texture"`
}

// ErrUnknownMesh is returned for a mesh name that is neither a primitive nor
// a glTF file.
var ErrUnknownMesh = errors.New("scene: unknown mesh")

// LoadDescription reads a YAML scene description.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %q: %w", path, err)
	}
	d, err := ParseDescription(data)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", path, err)
	}
	return d, nil
}

func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal scene: %w", err)
	}
	return &d, nil
}

// Build constructs the CPU side of the scene. Relative file references are
// resolved against dir. Nothing is uploaded.
func (d *Description) Build(dir string, log *zap.Logger) (*Scene, error) {
	s := NewScene()
	for _, nd := range d.Nodes {
		n, err := nd.build(dir, log)
		if err != nil {
			return nil, err
		}
		s.AddNode(n)
	}
	for _, pd := range d.Overlay {
		n, err := pd.build(dir)
		if err != nil {
			return nil, err
		}
		s.AddOverlay(n)
	}
	return s, nil
}

func (nd NodeDescription) build(dir string, log *zap.Logger) (*Node, error) {
	n := NewNode(nd.Name)
	n.Position = mgl32.Vec3(nd.Position)
	if nd.Rotation != [4]float32{} {
		r := nd.Rotation
		n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
	}
	if nd.Scale != [3]float32{} {
		n.Scale = mgl32.Vec3(nd.Scale)
	}

	size := nd.Size
	if size == 0 {
		size = 1
	}
	switch strings.ToLower(nd.Mesh) {
	case "":
	case "cube":
		n.Mesh = CreateCube(size)
	case "sphere":
		n.Mesh = CreateSphere(size/2, 32, 16)
	case "plane":
		n.Mesh = CreatePlane(size, size, 1)
	default:
		ext := strings.ToLower(filepath.Ext(nd.Mesh))
		if ext != ".glb" && ext != ".gltf" {
			return nil, fmt.Errorf("node %q: %w: %q", nd.Name, ErrUnknownMesh, nd.Mesh)
		}
		model, err := ReadGLTF(resolve(dir, nd.Mesh), log)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
		n.AddChild(model)
	}
	if n.Mesh != nil && nd.Color != [4]uint8{} {
		c := nd.Color
		n.Mesh.Texture = NewSolidTexture(nd.Name, c[0], c[1], c[2], c[3])
	}

	if l := nd.Light; l != nil {
		n.Light = &Light{
			Color:     mgl32.Vec3(l.Color),
			Direction: mgl32.Vec3(l.Direction),
			Strength:  l.Strength,
		}
	}

	for _, cd := range nd.Children {
		child, err := cd.build(dir, log)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func (pd PanelDescription) build(dir string) (*Node, error) {
	layer, err := ParseLayer(pd.Layer)
	if err != nil {
		return nil, fmt.Errorf("panel %q: %w", pd.Name, err)
	}
	var tex *Texture
	switch {
	case pd.Texture != "":
		tex, err = LoadTexture(resolve(dir, pd.Texture))
		if err != nil {
			return nil, fmt.Errorf("panel %q: %w", pd.Name, err)
		}
	case pd.Color != [4]uint8{}:
		c := pd.Color
		tex = NewSolidTexture(pd.Name, c[0], c[1], c[2], c[3])
	}
	r := pd.Rect
	return NewPanelNode(pd.Name, layer, r[0], r[1], r[2], r[3], tex), nil
}

// ParseLayer maps an interface layer name to its pass.
func ParseLayer(name string) (pass.Pass, error) {
	switch strings.ToLower(name) {
	case "", "background":
		return pass.InterfaceBackground, nil
	case "foreground":
		return pass.InterfaceForeground, nil
	case "text":
		return pass.InterfaceText, nil
	}
	return 0, fmt.Errorf("unknown interface layer %q", name)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
