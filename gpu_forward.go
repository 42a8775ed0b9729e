package frostvale

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/mathgl/mgl32"
)

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createGpuState(win *WindowState) (*GpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.windowGlfw))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Frostvale Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(win.WindowWidth),
		Height:      uint32(win.WindowHeight),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}, nil
}

const depthFormat = wgpu.TextureFormatDepth24Plus

func createDepthTexture(gpu *GpuState, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := gpu.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("depth texture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, fmt.Errorf("depth view: %w", err)
	}
	return texture, view, nil
}

func createTextureFromAsset(asset *TextureAsset, gpu *GpuState) (*wgpu.TextureView, error) {
	extent := wgpu.Extent3D{
		Width:              asset.width,
		Height:             asset.height,
		DepthOrArrayLayers: 1,
	}
	texture, err := gpu.device.CreateTexture(&wgpu.TextureDescriptor{
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormat(asset.format),
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer texture.Release()

	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, err
	}

	err = gpu.queue.WriteTexture(
		texture.AsImageCopy(),
		wgpu.ToBytes(asset.texels),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  asset.width * uint32(wgpuBytesPerPixel(wgpu.TextureFormat(asset.format))),
			RowsPerImage: asset.height,
		},
		&extent,
	)
	if err != nil {
		view.Release()
		return nil, err
	}
	return view, nil
}

func wgpuBytesPerPixel(format wgpu.TextureFormat) uint {
	switch format {
	case wgpu.TextureFormatR8Unorm, wgpu.TextureFormatR8Uint:
		return 1
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm:
		return 4
	}
	panic("add missing texture format")
}

// createVertexBufferLayout reads the vertex struct's layout tags and builds
// the attribute list. Field offsets follow declaration order.
func createVertexBufferLayout(vertexType any, stepMode wgpu.VertexStepMode) wgpu.VertexBufferLayout {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		panic("vertex must be a struct")
	}

	var attributes []wgpu.VertexAttribute
	var offset uint64

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if "layout" == field.Tag.Get("frostvale") {
			format := parseVertexFormat(field.Tag.Get("format"))
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if nil != err {
				panic(err)
			}

			attributes = append(attributes, wgpu.VertexAttribute{
				ShaderLocation: uint32(location),
				Offset:         offset,
				Format:         format,
			})
		}

		offset += uint64(field.Type.Size())
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    stepMode,
		Attributes:  attributes,
	}
}

func parseVertexFormat(name string) wgpu.VertexFormat {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2
	case "float3":
		return wgpu.VertexFormatFloat32x3
	case "float4":
		return wgpu.VertexFormatFloat32x4
	default:
		panic("unsupported vertex layout format: " + name)
	}
}

func toBufferBytes(data any) []byte {
	buf := new(bytes.Buffer)
	readUniformsBytes(reflect.ValueOf(data), buf)
	return buf.Bytes()
}

func readUniformsBytes(field reflect.Value, buf *bytes.Buffer) {
	switch field.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				readUniformsBytes(elem, buf)
			} else {
				if err := binary.Write(buf, binary.LittleEndian, elem.Interface()); err != nil {
					panic(fmt.Errorf("write slice element: %w", err))
				}
			}
		}

	case reflect.Struct:
		for i := 0; i < field.NumField(); i++ {
			readUniformsBytes(field.Field(i), buf)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32:
		if err := binary.Write(buf, binary.LittleEndian, field.Interface()); err != nil {
			panic(fmt.Errorf("write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", field))
	}
}

// meshInstance carries one draw's model matrix columns and tint.
type meshInstance struct {
	Model0 mgl32.Vec4 `frostvale:"layout" format:"float4" location:"4"`
	Model1 mgl32.Vec4 `frostvale:"layout" format:"float4" location:"5"`
	Model2 mgl32.Vec4 `frostvale:"layout" format:"float4" location:"6"`
	Model3 mgl32.Vec4 `frostvale:"layout" format:"float4" location:"7"`
	Tint   mgl32.Vec4 `frostvale:"layout" format:"float4" location:"8"`
}

// particleInstance packs position+size and color for one billboard.
type particleInstance struct {
	PosSize mgl32.Vec4 `frostvale:"layout" format:"float4" location:"0"`
	Color   mgl32.Vec4 `frostvale:"layout" format:"float4" location:"1"`
}

// forwardFrameUniforms matches the FrameUniforms struct in both shaders.
type forwardFrameUniforms struct {
	ViewProj   mgl32.Mat4
	CamRight   mgl32.Vec4
	CamUp      mgl32.Vec4
	LightDir   mgl32.Vec4
	LightColor mgl32.Vec4
	Ambient    mgl32.Vec4
}

const forwardMeshWGSL = `
struct FrameUniforms {
	view_proj: mat4x4<f32>,
	cam_right: vec4<f32>,
	cam_up: vec4<f32>,
	light_dir: vec4<f32>,
	light_color: vec4<f32>,
	ambient: vec4<f32>,
};
@group(0) @binding(0) var<uniform> frame: FrameUniforms;
@group(1) @binding(0) var base_texture: texture_2d<f32>;
@group(1) @binding(1) var base_sampler: sampler;

struct VsIn {
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) color: vec4<f32>,
	@location(3) uv: vec2<f32>,
	@location(4) model0: vec4<f32>,
	@location(5) model1: vec4<f32>,
	@location(6) model2: vec4<f32>,
	@location(7) model3: vec4<f32>,
	@location(8) tint: vec4<f32>,
};

struct VsOut {
	@builtin(position) clip: vec4<f32>,
	@location(0) normal: vec3<f32>,
	@location(1) color: vec4<f32>,
	@location(2) uv: vec2<f32>,
};

@vertex
fn vs_main(in: VsIn) -> VsOut {
	let model = mat4x4<f32>(in.model0, in.model1, in.model2, in.model3);
	var out: VsOut;
	out.clip = frame.view_proj * model * vec4<f32>(in.position, 1.0);
	out.normal = (model * vec4<f32>(in.normal, 0.0)).xyz;
	out.color = in.color * in.tint;
	out.uv = in.uv;
	return out;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
	let n = normalize(in.normal);
	let ndl = max(dot(n, -normalize(frame.light_dir.xyz)), 0.0);
	let lit = frame.ambient.xyz + frame.light_color.xyz * ndl;
	let albedo = in.color * textureSample(base_texture, base_sampler, in.uv);
	return vec4<f32>(albedo.rgb * lit, albedo.a);
}
`

const forwardParticleWGSL = `
struct FrameUniforms {
	view_proj: mat4x4<f32>,
	cam_right: vec4<f32>,
	cam_up: vec4<f32>,
	light_dir: vec4<f32>,
	light_color: vec4<f32>,
	ambient: vec4<f32>,
};
@group(0) @binding(0) var<uniform> frame: FrameUniforms;

const QUAD = array<vec2<f32>, 6>(
	vec2<f32>(-0.5, -0.5), vec2<f32>(0.5, -0.5), vec2<f32>(0.5, 0.5),
	vec2<f32>(-0.5, -0.5), vec2<f32>(0.5, 0.5), vec2<f32>(-0.5, 0.5),
);

struct PtIn {
	@location(0) pos_size: vec4<f32>,
	@location(1) color: vec4<f32>,
};

struct PtOut {
	@builtin(position) clip: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) corner: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) vi: u32, in: PtIn) -> PtOut {
	let corner = QUAD[vi];
	let size = in.pos_size.w;
	let world = in.pos_size.xyz
		+ frame.cam_right.xyz * corner.x * size
		+ frame.cam_up.xyz * corner.y * size;
	var out: PtOut;
	out.clip = frame.view_proj * vec4<f32>(world, 1.0);
	out.color = in.color;
	out.corner = corner * 2.0;
	return out;
}

@fragment
fn fs_main(in: PtOut) -> @location(0) vec4<f32> {
	let d = dot(in.corner, in.corner);
	if (d > 1.0) {
		discard;
	}
	return vec4<f32>(in.color.rgb, in.color.a * (1.0 - d));
}
`

type gpuMesh struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
	version    uint
}

// ForwardRenderer is the wgpu RenderTarget: one opaque lit mesh pass and
// one blended billboard pass over a shared depth buffer. Mesh and texture
// uploads happen lazily on first use and are cached by asset id.
type ForwardRenderer struct {
	win    *WindowState
	assets *AssetServer
	gpu    *GpuState

	meshPipeline     *wgpu.RenderPipeline
	particlePipeline *wgpu.RenderPipeline

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	uniformBuf       *wgpu.Buffer
	frameBindGroup   *wgpu.BindGroup
	particleFrameBG  *wgpu.BindGroup
	sampler          *wgpu.Sampler
	whiteTextureView *wgpu.TextureView

	meshes        map[AssetId]*gpuMesh
	textureViews  map[AssetId]*wgpu.TextureView
	textureGroups map[AssetId]*wgpu.BindGroup

	clearColor wgpu.Color

	instances []meshInstance
	billboard []particleInstance
}

func NewForwardRenderer(win *WindowState, assets *AssetServer) (*ForwardRenderer, error) {
	gpu, err := createGpuState(win)
	if err != nil {
		return nil, err
	}

	r := &ForwardRenderer{
		win:           win,
		assets:        assets,
		gpu:           gpu,
		meshes:        make(map[AssetId]*gpuMesh),
		textureViews:  make(map[AssetId]*wgpu.TextureView),
		textureGroups: make(map[AssetId]*wgpu.BindGroup),
		clearColor:    wgpu.Color{R: 0.015, G: 0.025, B: 0.08, A: 1},
	}

	if err := r.createPipelines(); err != nil {
		return nil, err
	}
	if err := r.createFrameResources(); err != nil {
		return nil, err
	}

	r.depthTexture, r.depthView, err = createDepthTexture(gpu, gpu.surfaceConfig.Width, gpu.surfaceConfig.Height)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ForwardRenderer) createPipelines() error {
	device := r.gpu.device

	meshShader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "forward mesh",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: forwardMeshWGSL},
	})
	if err != nil {
		return fmt.Errorf("mesh shader: %w", err)
	}
	defer meshShader.Release()

	stencilIgnore := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}

	r.meshPipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "forward mesh",
		Vertex: wgpu.VertexState{
			Module:     meshShader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				createVertexBufferLayout(VertexPNC{}, wgpu.VertexStepModeVertex),
				createVertexBufferLayout(meshInstance{}, wgpu.VertexStepModeInstance),
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     meshShader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.gpu.surfaceConfig.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      stencilIgnore,
			StencilBack:       stencilIgnore,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("mesh pipeline: %w", err)
	}

	particleShader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "forward particles",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: forwardParticleWGSL},
	})
	if err != nil {
		return fmt.Errorf("particle shader: %w", err)
	}
	defer particleShader.Release()

	r.particlePipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "forward particles",
		Vertex: wgpu.VertexState{
			Module:     particleShader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				createVertexBufferLayout(particleInstance{}, wgpu.VertexStepModeInstance),
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     particleShader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: r.gpu.surfaceConfig.Format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      stencilIgnore,
			StencilBack:       stencilIgnore,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("particle pipeline: %w", err)
	}
	return nil
}

func (r *ForwardRenderer) createFrameResources() error {
	device := r.gpu.device

	var err error
	r.uniformBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "frame uniforms",
		Contents: toBufferBytes(forwardFrameUniforms{}),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}

	meshLayout := r.meshPipeline.GetBindGroupLayout(0)
	defer meshLayout.Release()
	r.frameBindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: meshLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.uniformBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("frame bind group: %w", err)
	}

	particleLayout := r.particlePipeline.GetBindGroupLayout(0)
	defer particleLayout.Release()
	r.particleFrameBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: particleLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.uniformBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("particle bind group: %w", err)
	}

	r.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	white := TextureAsset{
		texels: []uint8{255, 255, 255, 255},
		width:  1,
		height: 1,
		format: TextureFormatRGBA8Unorm,
	}
	r.whiteTextureView, err = createTextureFromAsset(&white, r.gpu)
	if err != nil {
		return fmt.Errorf("white texture: %w", err)
	}
	return nil
}

func (r *ForwardRenderer) ensureMesh(id AssetId) (*gpuMesh, bool) {
	asset, ok := r.assets.Mesh(id)
	if !ok {
		return nil, false
	}
	if mesh, ok := r.meshes[id]; ok && mesh.version == asset.version {
		return mesh, true
	}

	vertexBuf, err := r.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "mesh vertices",
		Contents: wgpu.ToBytes(asset.vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, false
	}
	indexBuf, err := r.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "mesh indices",
		Contents: wgpu.ToBytes(asset.indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertexBuf.Release()
		return nil, false
	}

	mesh := &gpuMesh{
		vertexBuf:  vertexBuf,
		indexBuf:   indexBuf,
		indexCount: uint32(len(asset.indices)),
		version:    asset.version,
	}
	r.meshes[id] = mesh
	return mesh, true
}

func (r *ForwardRenderer) textureBindGroup(id AssetId) *wgpu.BindGroup {
	if group, ok := r.textureGroups[id]; ok {
		return group
	}

	view := r.whiteTextureView
	if id != "" {
		if asset, ok := r.assets.Texture(id); ok {
			if created, err := createTextureFromAsset(&asset, r.gpu); err == nil {
				r.textureViews[id] = created
				view = created
			}
		}
	}

	layout := r.meshPipeline.GetBindGroupLayout(1)
	defer layout.Release()
	group, err := r.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: r.sampler, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil
	}
	r.textureGroups[id] = group
	return group
}

func (r *ForwardRenderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.gpu.surfaceConfig.Width = uint32(width)
	r.gpu.surfaceConfig.Height = uint32(height)
	r.gpu.surface.Configure(r.gpu.adapter, r.gpu.device, r.gpu.surfaceConfig)

	if r.depthView != nil {
		r.depthView.Release()
	}
	if r.depthTexture != nil {
		r.depthTexture.Release()
	}
	r.depthTexture, r.depthView, _ = createDepthTexture(r.gpu, uint32(width), uint32(height))
}

func (r *ForwardRenderer) Submit(frame *FrameSnapshot) error {
	if r.gpu.surfaceConfig.Width == 0 || r.gpu.surfaceConfig.Height == 0 {
		return nil
	}

	// Before the scene exists there is no camera; clear and present only.
	if frame.HasCamera {
		view := frame.Camera.View()
		uniforms := forwardFrameUniforms{
			ViewProj:   frame.Camera.Projection().Mul4(view),
			CamRight:   mgl32.Vec4{view[0], view[4], view[8], 0},
			CamUp:      mgl32.Vec4{view[1], view[5], view[9], 0},
			LightDir:   frame.Light.Direction.Vec4(0),
			LightColor: frame.Light.Color.Vec4(0),
			Ambient:    frame.Light.Ambient.Vec4(0),
		}
		if err := r.gpu.queue.WriteBuffer(r.uniformBuf, 0, toBufferBytes(uniforms)); err != nil {
			return fmt.Errorf("write uniforms: %w", err)
		}
	}

	surfaceTexture, err := r.gpu.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface: %w", err)
	}
	defer surfaceTexture.Release()

	surfaceView, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer surfaceView.Release()

	encoder, err := r.gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       surfaceView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: r.clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	defer pass.Release()

	var frameBuffers []*wgpu.Buffer
	defer func() {
		for _, buf := range frameBuffers {
			buf.Release()
		}
	}()

	if frame.HasCamera {
		pass.SetPipeline(r.meshPipeline)
		pass.SetBindGroup(0, r.frameBindGroup, nil)

		for _, batch := range batchMeshDraws(frame.Meshes) {
			mesh, ok := r.ensureMesh(batch.model)
			if !ok {
				continue
			}
			group := r.textureBindGroup(batch.texture)
			if group == nil {
				continue
			}

			r.instances = r.instances[:0]
			for _, draw := range batch.draws {
				m := draw.Transform
				r.instances = append(r.instances, meshInstance{
					Model0: mgl32.Vec4{m[0], m[1], m[2], m[3]},
					Model1: mgl32.Vec4{m[4], m[5], m[6], m[7]},
					Model2: mgl32.Vec4{m[8], m[9], m[10], m[11]},
					Model3: mgl32.Vec4{m[12], m[13], m[14], m[15]},
					Tint:   draw.Tint,
				})
			}

			instanceBuf, err := r.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
				Label:    "mesh instances",
				Contents: wgpu.ToBytes(r.instances),
				Usage:    wgpu.BufferUsageVertex,
			})
			if err != nil {
				continue
			}
			frameBuffers = append(frameBuffers, instanceBuf)

			pass.SetBindGroup(1, group, nil)
			pass.SetVertexBuffer(0, mesh.vertexBuf, 0, wgpu.WholeSize)
			pass.SetVertexBuffer(1, instanceBuf, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(mesh.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			pass.DrawIndexed(mesh.indexCount, uint32(len(batch.draws)), 0, 0, 0)
		}
	}

	if frame.HasCamera && len(frame.Particles) > 0 {
		r.billboard = r.billboard[:0]
		for _, p := range frame.Particles {
			r.billboard = append(r.billboard, particleInstance{
				PosSize: mgl32.Vec4{p.Position.X(), p.Position.Y(), p.Position.Z(), p.Size},
				Color:   p.Color,
			})
		}

		particleBuf, err := r.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "particle instances",
			Contents: wgpu.ToBytes(r.billboard),
			Usage:    wgpu.BufferUsageVertex,
		})
		if err == nil {
			frameBuffers = append(frameBuffers, particleBuf)

			pass.SetPipeline(r.particlePipeline)
			pass.SetBindGroup(0, r.particleFrameBG, nil)
			pass.SetVertexBuffer(0, particleBuf, 0, wgpu.WholeSize)
			pass.Draw(6, uint32(len(r.billboard)), 0, 0)
		}
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass: %w", err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder finish: %w", err)
	}
	defer cmdBuffer.Release()

	r.gpu.queue.Submit(cmdBuffer)
	r.gpu.surface.Present()
	return nil
}

func (r *ForwardRenderer) Close() {
	for _, mesh := range r.meshes {
		mesh.vertexBuf.Release()
		mesh.indexBuf.Release()
	}
	for _, view := range r.textureViews {
		view.Release()
	}
	for _, group := range r.textureGroups {
		group.Release()
	}
	if r.whiteTextureView != nil {
		r.whiteTextureView.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.frameBindGroup != nil {
		r.frameBindGroup.Release()
	}
	if r.particleFrameBG != nil {
		r.particleFrameBG.Release()
	}
	if r.uniformBuf != nil {
		r.uniformBuf.Release()
	}
	if r.depthView != nil {
		r.depthView.Release()
	}
	if r.depthTexture != nil {
		r.depthTexture.Release()
	}
	if r.meshPipeline != nil {
		r.meshPipeline.Release()
	}
	if r.particlePipeline != nil {
		r.particlePipeline.Release()
	}
}

type meshBatch struct {
	model   AssetId
	texture AssetId
	draws   []MeshDraw
}

// batchMeshDraws groups draws by model and texture, preserving first-seen
// order so batching stays deterministic.
func batchMeshDraws(draws []MeshDraw) []meshBatch {
	type batchKey struct {
		model   AssetId
		texture AssetId
	}
	index := make(map[batchKey]int)
	var batches []meshBatch

	for _, draw := range draws {
		key := batchKey{draw.Model, draw.Texture}
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, meshBatch{model: draw.Model, texture: draw.Texture})
		}
		batches[i].draws = append(batches[i].draws, draw)
	}
	return batches
}
