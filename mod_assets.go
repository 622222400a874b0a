package lightwave

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

type AssetId string

const (
	DefaultPipeline            = "lit"
	DefaultTransparentPipeline = "lit transparent"
	DefaultTexture             = "white"
)

var (
	ErrUnknownAsset = errors.New("assets: unknown asset")
	ErrEmptyMesh    = errors.New("assets: mesh has no vertices")
)

type MeshAsset struct {
	Name       string
	Primitives []geometry.PrimitiveData
	Min, Max   mgl32.Vec3
}

// MaterialAsset names a renderer pipeline and its textures. Texture entries
// are either texture asset ids or names of renderer textures.
type MaterialAsset struct {
	Pipeline    string
	Textures    []string
	Transparent bool
}

type TextureAsset struct {
	Texels []uint8
	Width  uint32
	Height uint32
	Format gpu.TextureFormat
}

// AssetServer stores host-side assets. The renderer module uploads new
// assets and frees removed ones on its own schedule.
type AssetServer struct {
	meshes    map[AssetId]MeshAsset
	materials map[AssetId]MaterialAsset
	textures  map[AssetId]TextureAsset

	removedMeshes []AssetId
	defaultMat    AssetId
}

type AssetServerModule struct{}

func NewAssetServer() *AssetServer {
	server := &AssetServer{
		meshes:    make(map[AssetId]MeshAsset),
		materials: make(map[AssetId]MaterialAsset),
		textures:  make(map[AssetId]TextureAsset),
	}
	server.defaultMat = server.CreateMaterial(DefaultPipeline, DefaultTexture)
	return server
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	ensureAssetServer(app)
}

func ensureAssetServer(app *App) *AssetServer {
	if s, ok := Resource[AssetServer](app); ok {
		return s
	}
	s := NewAssetServer()
	app.addResources(s)
	return s
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// DefaultMaterial is the lit white material.
func (server *AssetServer) DefaultMaterial() AssetId { return server.defaultMat }

// LoadMesh stores primitives drawn with one transform. Primitive i uses
// material i of the drawable that references the mesh.
func (server *AssetServer) LoadMesh(name string, primitives ...geometry.PrimitiveData) (AssetId, error) {
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := lo.Mul(-1)
	n := 0
	for _, p := range primitives {
		for _, v := range p.Positions {
			for a := 0; a < 3; a++ {
				lo[a] = min(lo[a], v[a])
				hi[a] = max(hi[a], v[a])
			}
		}
		n += len(p.Positions)
	}
	if n == 0 {
		return "", fmt.Errorf("mesh %q: %w", name, ErrEmptyMesh)
	}
	id := makeAssetId()
	server.meshes[id] = MeshAsset{Name: name, Primitives: primitives, Min: lo, Max: hi}
	return id, nil
}

// CreatePrimitiveMesh tessellates one of the built-in shapes.
func (server *AssetServer) CreatePrimitiveMesh(shape geometry.Shape) AssetId {
	id, err := server.LoadMesh(shape.String(), geometry.GeneratePrimitive(shape))
	if err != nil {
		return ""
	}
	return id
}

func (server *AssetServer) CreateBoxMesh() AssetId    { return server.CreatePrimitiveMesh(geometry.ShapeBox) }
func (server *AssetServer) CreateSphereMesh() AssetId { return server.CreatePrimitiveMesh(geometry.ShapeSphere) }
func (server *AssetServer) CreatePlaneMesh() AssetId  { return server.CreatePrimitiveMesh(geometry.ShapePlane) }

func (server *AssetServer) Mesh(id AssetId) (MeshAsset, bool) {
	m, ok := server.meshes[id]
	return m, ok
}

// RemoveMesh forgets a mesh. Its GPU blocks are released once no queued
// frame can reference them.
func (server *AssetServer) RemoveMesh(id AssetId) bool {
	if _, ok := server.meshes[id]; !ok {
		return false
	}
	delete(server.meshes, id)
	server.removedMeshes = append(server.removedMeshes, id)
	return true
}

func (server *AssetServer) takeRemovedMeshes() []AssetId {
	ids := server.removedMeshes
	server.removedMeshes = nil
	return ids
}

func (server *AssetServer) CreateMaterial(pipeline string, textures ...string) AssetId {
	id := makeAssetId()
	server.materials[id] = MaterialAsset{Pipeline: pipeline, Textures: textures}
	return id
}

// CreateTransparentMaterial builds a material whose models sort back to front.
func (server *AssetServer) CreateTransparentMaterial(pipeline string, textures ...string) AssetId {
	id := makeAssetId()
	server.materials[id] = MaterialAsset{Pipeline: pipeline, Textures: textures, Transparent: true}
	return id
}

func (server *AssetServer) Material(id AssetId) (MaterialAsset, bool) {
	m, ok := server.materials[id]
	return m, ok
}

func (server *AssetServer) CreateTexture(texels []uint8, texWidth uint32, texHeight uint32, format gpu.TextureFormat) (AssetId, error) {
	want := int(texWidth) * int(texHeight) * int(format.BytesPerPixel())
	if want == 0 || len(texels) != want {
		return "", fmt.Errorf("texture %dx%d format %d: %d bytes, want %d", texWidth, texHeight, format, len(texels), want)
	}
	id := makeAssetId()
	server.textures[id] = TextureAsset{
		Texels: texels,
		Width:  texWidth,
		Height: texHeight,
		Format: format,
	}
	return id, nil
}

// LoadTexture decodes a PNG, JPEG, BMP, TIFF or WebP file into an RGBA8 texture.
func (server *AssetServer) LoadTexture(filename string) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return server.CreateTexture(rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), gpu.FormatRGBA8)
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, bool) {
	t, ok := server.textures[id]
	return t, ok
}
