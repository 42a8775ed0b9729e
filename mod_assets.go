package frostvale

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

type TextureFormat uint32

const (
	TextureFormatR8Uint     TextureFormat = 0x00000003
	TextureFormatRGBA8Unorm TextureFormat = 0x00000012
)

// maxTextureDim caps decoded textures; larger images are resampled down.
const maxTextureDim = 1024

type MeshAsset struct {
	version  uint
	vertices []VertexPNC
	indices  []uint16
}

type TextureAsset struct {
	version uint
	texels  []uint8
	width   uint32
	height  uint32
	format  TextureFormat
}

type AudioAsset struct {
	version uint
	format  beep.Format
	buffer  *beep.Buffer
}

// ModelPart places one mesh within a composite model.
type ModelPart struct {
	Mesh     AssetId
	Offset   mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Tint     mgl32.Vec4
}

type ModelAsset struct {
	version uint
	parts   []ModelPart
}

// AssetServer owns every loaded asset. File loads are cached by path, so a
// path requested twice resolves to the same id. The mutex exists because
// batch loads run their jobs concurrently.
type AssetServer struct {
	mu       sync.Mutex
	meshes   map[AssetId]MeshAsset
	textures map[AssetId]TextureAsset
	audio    map[AssetId]AudioAsset
	models   map[AssetId]ModelAsset
	byPath   map[string]AssetId
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewAssetServer())
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		meshes:   make(map[AssetId]MeshAsset),
		textures: make(map[AssetId]TextureAsset),
		audio:    make(map[AssetId]AudioAsset),
		models:   make(map[AssetId]ModelAsset),
		byPath:   make(map[string]AssetId),
	}
}

func (server *AssetServer) LoadMesh(vertices []VertexPNC, indices []uint16) AssetId {
	server.mu.Lock()
	defer server.mu.Unlock()

	id := makeAssetId()
	server.meshes[id] = MeshAsset{
		version:  0,
		vertices: vertices,
		indices:  indices,
	}
	return id
}

func (server *AssetServer) Mesh(id AssetId) (MeshAsset, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	mesh, ok := server.meshes[id]
	return mesh, ok
}

// RegisterModel groups mesh parts into one composite model.
func (server *AssetServer) RegisterModel(parts ...ModelPart) AssetId {
	server.mu.Lock()
	defer server.mu.Unlock()

	id := makeAssetId()
	server.models[id] = ModelAsset{
		version: 0,
		parts:   parts,
	}
	return id
}

// Instantiate returns an independent copy of a model's parts. Spawners may
// mutate the copy freely without affecting the stored asset.
func (server *AssetServer) Instantiate(id AssetId) ([]ModelPart, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	model, ok := server.models[id]
	if !ok {
		return nil, false
	}
	parts := make([]ModelPart, len(model.parts))
	copy(parts, model.parts)
	return parts, true
}

func (server *AssetServer) CreateTexture(texels []uint8, width, height uint32, format TextureFormat) AssetId {
	server.mu.Lock()
	defer server.mu.Unlock()

	id := makeAssetId()
	server.textures[id] = TextureAsset{
		version: 0,
		texels:  texels,
		width:   width,
		height:  height,
		format:  format,
	}
	return id
}

// LoadTexture decodes a PNG from disk into RGBA texels, resampling it down
// to maxTextureDim when larger.
func (server *AssetServer) LoadTexture(path string) (AssetId, error) {
	if id, ok := server.cached(path); ok {
		return id, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	rgba := toRGBA(img)

	server.mu.Lock()
	defer server.mu.Unlock()

	id := makeAssetId()
	bounds := rgba.Bounds()
	server.textures[id] = TextureAsset{
		version: 0,
		texels:  rgba.Pix,
		width:   uint32(bounds.Dx()),
		height:  uint32(bounds.Dy()),
		format:  TextureFormatRGBA8Unorm,
	}
	server.byPath[path] = id
	return id, nil
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := float64(1)
	if width > maxTextureDim || height > maxTextureDim {
		scale = float64(maxTextureDim) / float64(max(width, height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	if scale == 1 {
		xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	}
	return dst
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	texture, ok := server.textures[id]
	return texture, ok
}

// LoadAudio decodes a WAV from disk into a reusable sample buffer.
func (server *AssetServer) LoadAudio(path string) (AssetId, error) {
	if id, ok := server.cached(path); ok {
		return id, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}

	streamer, format, err := wav.Decode(file)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	streamer.Close()

	server.mu.Lock()
	defer server.mu.Unlock()

	id := makeAssetId()
	server.audio[id] = AudioAsset{
		version: 0,
		format:  format,
		buffer:  buffer,
	}
	server.byPath[path] = id
	return id, nil
}

func (server *AssetServer) Audio(id AssetId) (AudioAsset, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	audio, ok := server.audio[id]
	return audio, ok
}

func (server *AssetServer) cached(path string) (AssetId, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	id, ok := server.byPath[path]
	return id, ok
}

// LoadJob is one independently awaited load within a batch.
type LoadJob struct {
	Name string
	Run  func(server *AssetServer) error
}

// LoadProgress reports a running batch. The first failing job's error is
// kept; later failures are dropped.
type LoadProgress struct {
	mu       sync.Mutex
	total    int
	done     int
	err      error
	finished bool
}

// Fraction is in [0, 1]; an empty batch is complete immediately.
func (p *LoadProgress) Fraction() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return 1
	}
	return float32(p.done) / float32(p.total)
}

func (p *LoadProgress) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *LoadProgress) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// LoadBatch runs every job on its own goroutine and returns immediately.
// Jobs have no ordering dependency on each other; callers poll the returned
// progress and only proceed once Finished reports true with a nil Err.
func (server *AssetServer) LoadBatch(jobs ...LoadJob) *LoadProgress {
	progress := &LoadProgress{total: len(jobs)}
	if len(jobs) == 0 {
		progress.finished = true
		return progress
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job LoadJob) {
			defer wg.Done()
			err := job.Run(server)

			progress.mu.Lock()
			progress.done++
			if err != nil && progress.err == nil {
				progress.err = fmt.Errorf("load %q: %w", job.Name, err)
			}
			progress.mu.Unlock()
		}(job)
	}

	go func() {
		wg.Wait()
		progress.mu.Lock()
		progress.finished = true
		progress.mu.Unlock()
	}()
	return progress
}
