package scene

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"deferred-engine/internal/gpu"
)

// LoadGLTF reads a .glb or .gltf file, builds its node tree under one root
// and uploads every mesh and texture to dev.
func LoadGLTF(dev gpu.Device, path string, log *zap.Logger) (*Node, error) {
	root, err := ReadGLTF(path, log)
	if err != nil {
		return nil, err
	}
	root.Upload(dev)
	return root, nil
}

// ReadGLTF builds the CPU side of a glTF file. Mesh geometry, base colour
// factors and textures, and the node hierarchy are populated; primitives
// that fail to decode are logged and skipped.
func ReadGLTF(path string, log *zap.Logger) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("gltf").With(zap.String("path", path))

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	texCache := make([]*Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || *gt.Source >= len(doc.Images) {
			continue
		}
		img := doc.Images[*gt.Source]

		var tex *Texture
		switch {
		case img.BufferView != nil:
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				log.Warn("image buffer view", zap.Int("image", *gt.Source), zap.Error(err))
				continue
			}
			name := img.Name
			if name == "" {
				name = fmt.Sprintf("gltf_img_%d", *gt.Source)
			}
			tex, err = DecodeTexture(name, raw)
			if err != nil {
				log.Warn("image decode", zap.Int("image", *gt.Source), zap.Error(err))
				continue
			}
		case img.URI != "" && !img.IsEmbeddedResource():
			tex, err = LoadTexture(filepath.Join(dir, img.URI))
			if err != nil {
				log.Warn("image load", zap.String("uri", img.URI), zap.Error(err))
				continue
			}
		}
		texCache[i] = tex
	}

	type surface struct {
		color   mgl32.Vec4
		texture *Texture
	}
	materials := make([]surface, len(doc.Materials))
	for i, gm := range doc.Materials {
		s := surface{color: white}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			s.color = mgl32.Vec4{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
			if pbr.BaseColorTexture != nil {
				if idx := pbr.BaseColorTexture.Index; idx < len(texCache) {
					s.texture = texCache[idx]
				}
			}
		}
		materials[i] = s
	}

	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			s := surface{color: white}
			if prim.Material != nil && *prim.Material < len(materials) {
				s = materials[*prim.Material]
			}
			m, err := readPrimitive(doc, gm.Name, pi, prim, s.color)
			if err != nil {
				log.Warn("primitive skipped", zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			m.Texture = s.texture
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
		sc := gn.ScaleOrDefault()
		n.Scale = mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])}
		r := gn.RotationOrDefault() // [x, y, z, w]
		n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
			case 1:
				n.Mesh = prims[0]
			default:
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", name, pi))
					child.Mesh = p
					n.AddChild(child)
				}
			}
		}
		nodes[i] = n
	}

	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(nodes) && c != i {
				nodes[i].AddChild(nodes[c])
				hasParent[c] = true
			}
		}
	}

	root := NewNode(filepath.Base(path))
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, idx := range doc.Scenes[*doc.Scene].Nodes {
			if idx < len(nodes) {
				root.AddChild(nodes[idx])
			}
		}
	} else {
		for i, n := range nodes {
			if !hasParent[i] {
				root.AddChild(n)
			}
		}
	}
	log.Debug("gltf read", zap.Int("nodes", len(nodes)), zap.Int("meshes", len(doc.Meshes)))
	return root, nil
}

func readPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive, color mgl32.Vec4) (*Mesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}
	return primitiveMesh(name, positions, normals, uvs, indices, color), nil
}

// primitiveMesh zips glTF attribute streams into vertices. Missing normals
// default to +Y and missing uvs to zero.
func primitiveMesh(name string, positions, normals [][3]float32, uvs [][2]float32, indices []uint32, color mgl32.Vec4) *Mesh {
	verts := make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{
			Position: mgl32.Vec3(p),
			Color:    color,
			Normal:   mgl32.Vec3{0, 1, 0},
		}
		if i < len(normals) {
			v.Normal = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.UV = mgl32.Vec2(uvs[i])
		}
		verts[i] = v
	}
	return NewMesh(name, verts, indices)
}
