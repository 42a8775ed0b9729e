package frostvale

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VillageDef is the generated layout of one village: pure data the
// construction stages consume. The same seed regenerates the same village.
type VillageDef struct {
	GroundRadius float32
	SkyRadius    float32

	SnowCount    int
	FireflyCount int
	MistCount    int

	Houses     []HouseDef
	Trees      []TreeDef
	Fences     []FenceDef
	Lamps      []mgl32.Vec3
	RingPath   []mgl32.Vec3
	Characters []CharacterDef
}

type HouseDef struct {
	Position  mgl32.Vec3 // ground center
	Yaw       float32
	Width     float32
	Height    float32
	Depth     float32
	RoofRise  float32
	BodyColor mgl32.Vec4
	RoofColor mgl32.Vec4
}

// ChimneyTop is the world-space mouth of the chimney, where smoke emits.
func (h *HouseDef) ChimneyTop() mgl32.Vec3 {
	local := mgl32.Vec3{h.Width * 0.25, h.Height + h.RoofRise + 0.8, -h.Depth * 0.15}
	rot := mgl32.QuatRotate(h.Yaw, mgl32.Vec3{0, 1, 0})
	return h.Position.Add(rot.Rotate(local))
}

type TreeDef struct {
	Position mgl32.Vec3
	Scale    float32
	Variant  int
}

type FenceDef struct {
	From mgl32.Vec3
	To   mgl32.Vec3
}

type CharacterKind int

const (
	CharacterVillager CharacterKind = iota
	CharacterHauler
)

type CharacterDef struct {
	Kind      CharacterKind
	Start     mgl32.Vec3
	PathIndex int
	MoveSpeed float32 // world units per executed tick
	GaitPhase float32
	Coat      mgl32.Vec4
}

var houseBodyColors = []mgl32.Vec4{
	{0.58, 0.42, 0.30, 1},
	{0.52, 0.36, 0.26, 1},
	{0.64, 0.50, 0.36, 1},
	{0.47, 0.40, 0.34, 1},
}

var characterCoats = []mgl32.Vec4{
	{0.72, 0.20, 0.22, 1},
	{0.22, 0.42, 0.30, 1},
	{0.26, 0.32, 0.58, 1},
	{0.58, 0.46, 0.20, 1},
}

// GenerateVillage lays out houses on a ring facing a central green, trees in
// the surrounding belt, fences between neighbouring houses, lamps along the
// ring road, and characters spread over the road.
func GenerateVillage(settings Settings, rng *Rng) *VillageDef {
	def := &VillageDef{
		GroundRadius: 80,
		SkyRadius:    200,
		SnowCount:    settings.SnowCount,
		FireflyCount: settings.FireflyCount,
		MistCount:    settings.MistCount,
	}

	houseRing := float32(28)
	for i := 0; i < settings.HouseCount; i++ {
		angle := float32(i)/float32(settings.HouseCount)*2*math.Pi + rng.rangeF(-0.1, 0.1)
		radius := houseRing + rng.rangeF(-4, 4)
		sin, cos := float32(math.Sin(float64(angle))), float32(math.Cos(float64(angle)))

		def.Houses = append(def.Houses, HouseDef{
			Position:  mgl32.Vec3{radius * sin, 0, radius * cos},
			Yaw:       angle + math.Pi + rng.rangeF(-0.15, 0.15),
			Width:     rng.rangeF(6, 9),
			Height:    rng.rangeF(4, 5.5),
			Depth:     rng.rangeF(6, 9),
			RoofRise:  rng.rangeF(2, 3),
			BodyColor: houseBodyColors[i%len(houseBodyColors)],
			RoofColor: mgl32.Vec4{0.45, 0.48, 0.58, 1},
		})
	}

	for len(def.Trees) < settings.TreeCount {
		angle := rng.rangeF(0, 2*math.Pi)
		radius := rng.rangeF(40, 72)
		def.Trees = append(def.Trees, TreeDef{
			Position: mgl32.Vec3{
				radius * float32(math.Sin(float64(angle))),
				0,
				radius * float32(math.Cos(float64(angle))),
			},
			Scale:   rng.rangeF(0.8, 1.6),
			Variant: rng.Intn(treeVariantCount),
		})
	}

	if len(def.Houses) > 1 {
		for i := range def.Houses {
			a := def.Houses[i].Position
			b := def.Houses[(i+1)%len(def.Houses)].Position
			gap := b.Sub(a)
			def.Fences = append(def.Fences, FenceDef{
				From: a.Add(gap.Mul(0.24)),
				To:   a.Add(gap.Mul(0.76)),
			})
			if mid := a.Add(gap.Mul(0.5)); i%2 == 0 && mid.Len() > 6 {
				toward := mid.Mul(1 - 4/mid.Len())
				def.Lamps = append(def.Lamps, mgl32.Vec3{toward.X(), 0, toward.Z()})
			}
		}
	}

	const pathPoints = 10
	pathRadius := float32(20)
	for i := 0; i < pathPoints; i++ {
		angle := float32(i) / pathPoints * 2 * math.Pi
		def.RingPath = append(def.RingPath, mgl32.Vec3{
			(pathRadius + rng.rangeF(-1.5, 1.5)) * float32(math.Sin(float64(angle))),
			0,
			(pathRadius + rng.rangeF(-1.5, 1.5)) * float32(math.Cos(float64(angle))),
		})
	}

	for i := 0; i < 3; i++ {
		start := rng.Intn(pathPoints)
		def.Characters = append(def.Characters, CharacterDef{
			Kind:      CharacterVillager,
			Start:     def.RingPath[start],
			PathIndex: (start + 1) % pathPoints,
			MoveSpeed: rng.rangeF(0.05, 0.09),
			GaitPhase: rng.rangeF(0, 2*math.Pi),
			Coat:      characterCoats[i%len(characterCoats)],
		})
	}
	haulerStart := rng.Intn(pathPoints)
	def.Characters = append(def.Characters, CharacterDef{
		Kind:      CharacterHauler,
		Start:     def.RingPath[haulerStart],
		PathIndex: (haulerStart + 1) % pathPoints,
		MoveSpeed: 0.04,
		GaitPhase: rng.rangeF(0, 2*math.Pi),
		Coat:      mgl32.Vec4{0.68, 0.14, 0.16, 1},
	})

	return def
}

// VillageAssets collects every mesh and model id the spawners reference.
type VillageAssets struct {
	Ground AssetId
	Sky    AssetId
	Drift  AssetId
	Lamp   AssetId

	HouseLods [][3]AssetId // per house: full, simple, box
	TreeLods  [][2]AssetId // per variant: full, cone
	Fences    []AssetId    // per segment, built along +x

	Villager AssetId
	Hauler   AssetId
}

// Character model part order. Spawning depends on it to pick which parts
// swing and which carry the coat tint.
const (
	characterPartBody = iota
	characterPartHead
	characterPartArmLeft
	characterPartArmRight
	characterPartLegLeft
	characterPartLegRight
	characterPartSled
)

const treeVariantCount = 3

var treeVariants = [treeVariantCount]struct {
	Tiers  int
	Height float32
}{
	{Tiers: 3, Height: 7},
	{Tiers: 4, Height: 9},
	{Tiers: 3, Height: 5.5},
}

var vec3One = mgl32.Vec3{1, 1, 1}

// registerVillageAssets builds all procedural meshes for the generated
// layout and registers them with the asset server.
func registerVillageAssets(assets *AssetServer, def *VillageDef) *VillageAssets {
	va := &VillageAssets{}

	groundVerts, groundIdx := buildDiscMesh(def.GroundRadius, 48, mgl32.Vec4{1, 1, 1, 1})
	va.Ground = assets.LoadMesh(groundVerts, groundIdx)

	skyVerts, skyIdx := buildDomeMesh(def.SkyRadius, 10, 24, mgl32.Vec4{0.04, 0.07, 0.17, 1})
	va.Sky = assets.LoadMesh(skyVerts, skyIdx)

	// Drift mound: the sky dome flipped outward, recentered so the unit
	// mesh spans y in [-0.5, 0.5] the way drift growth expects.
	driftVerts, driftIdx := buildDomeMesh(1, 4, 10, mgl32.Vec4{0.93, 0.95, 0.99, 1})
	db := &meshBuilder{}
	db.appendAt(flipWinding(driftVerts), driftIdx, mgl32.Vec3{0, -0.5, 0}, vec3One)
	va.Drift = assets.LoadMesh(db.vertices, db.indices)

	va.Lamp = assets.LoadMesh(buildLampMesh())

	for i := range def.Houses {
		h := &def.Houses[i]
		full, fullIdx := buildHouseFullMesh(h)
		simple, simpleIdx := buildHouseSimpleMesh(h)
		box, boxIdx := buildHouseBoxMesh(h)
		va.HouseLods = append(va.HouseLods, [3]AssetId{
			assets.LoadMesh(full, fullIdx),
			assets.LoadMesh(simple, simpleIdx),
			assets.LoadMesh(box, boxIdx),
		})
	}

	for _, variant := range treeVariants {
		full, fullIdx := buildTreeFullMesh(variant.Tiers, variant.Height)
		low, lowIdx := buildTreeLowMesh(variant.Height)
		va.TreeLods = append(va.TreeLods, [2]AssetId{
			assets.LoadMesh(full, fullIdx),
			assets.LoadMesh(low, lowIdx),
		})
	}

	for _, fence := range def.Fences {
		va.Fences = append(va.Fences, assets.LoadMesh(buildFenceMesh(fence.To.Sub(fence.From).Len())))
	}

	va.Villager = registerCharacterModel(assets, false)
	va.Hauler = registerCharacterModel(assets, true)
	return va
}

// flipWinding reverses every triangle and negates the normals, turning the
// inward-facing dome into a solid outward mound for drifts.
func flipWinding(vertices []VertexPNC) []VertexPNC {
	out := make([]VertexPNC, len(vertices))
	for i := 0; i < len(vertices); i += 3 {
		out[i], out[i+1], out[i+2] = vertices[i], vertices[i+2], vertices[i+1]
	}
	for i := range out {
		out[i].Normal = out[i].Normal.Mul(-1)
	}
	return out
}

func buildHouseFullMesh(h *HouseDef) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}

	body, bodyIdx := buildBoxMesh(h.Width, h.Height, h.Depth, h.BodyColor)
	b.appendAt(body, bodyIdx, mgl32.Vec3{0, h.Height / 2, 0}, vec3One)

	roof, roofIdx := buildPrismMesh(h.Width*1.15, h.RoofRise, h.Depth*1.1, h.RoofColor)
	b.appendAt(roof, roofIdx, mgl32.Vec3{0, h.Height, 0}, vec3One)

	chimney, chimneyIdx := buildBoxMesh(0.9, 2.2, 0.9, mgl32.Vec4{0.48, 0.28, 0.24, 1})
	b.appendAt(chimney, chimneyIdx, mgl32.Vec3{h.Width * 0.25, h.Height + h.RoofRise - 0.3, -h.Depth * 0.15}, vec3One)

	door, doorIdx := buildBoxMesh(1.4, 2.4, 0.2, mgl32.Vec4{0.30, 0.20, 0.14, 1})
	b.appendAt(door, doorIdx, mgl32.Vec3{0, 1.2, h.Depth / 2}, vec3One)

	window, windowIdx := buildBoxMesh(1.0, 1.0, 0.16, mgl32.Vec4{1.0, 0.85, 0.48, 1})
	b.appendAt(window, windowIdx, mgl32.Vec3{-h.Width * 0.28, h.Height * 0.55, h.Depth / 2}, vec3One)
	b.appendAt(window, windowIdx, mgl32.Vec3{h.Width * 0.28, h.Height * 0.55, h.Depth / 2}, vec3One)

	return b.vertices, b.indices
}

func buildHouseSimpleMesh(h *HouseDef) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}

	body, bodyIdx := buildBoxMesh(h.Width, h.Height, h.Depth, h.BodyColor)
	b.appendAt(body, bodyIdx, mgl32.Vec3{0, h.Height / 2, 0}, vec3One)

	roof, roofIdx := buildPrismMesh(h.Width*1.15, h.RoofRise, h.Depth*1.1, h.RoofColor)
	b.appendAt(roof, roofIdx, mgl32.Vec3{0, h.Height, 0}, vec3One)

	return b.vertices, b.indices
}

func buildHouseBoxMesh(h *HouseDef) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}
	total := h.Height + h.RoofRise
	box, boxIdx := buildBoxMesh(h.Width, total, h.Depth, h.BodyColor)
	b.appendAt(box, boxIdx, mgl32.Vec3{0, total / 2, 0}, vec3One)
	return b.vertices, b.indices
}

func buildTreeFullMesh(tiers int, height float32) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}

	trunkHeight := height * 0.2
	trunk, trunkIdx := buildCylinderMesh(height*0.06, trunkHeight, 6, mgl32.Vec4{0.36, 0.26, 0.18, 1})
	b.appendAt(trunk, trunkIdx, mgl32.Vec3{0, trunkHeight / 2, 0}, vec3One)

	canopy := height - trunkHeight
	tierHeight := canopy / float32(tiers) * 1.35
	for i := 0; i < tiers; i++ {
		fr := float32(i) / float32(tiers)
		radius := height * 0.28 * (1 - fr*0.55)
		shade := mgl32.Vec4{0.12 + fr*0.05, 0.30 + fr*0.08, 0.18 + fr*0.05, 1}
		cone, coneIdx := buildConeMesh(radius, tierHeight, 8, shade)
		b.appendAt(cone, coneIdx, mgl32.Vec3{0, trunkHeight + canopy*fr + tierHeight/2, 0}, vec3One)
	}

	return b.vertices, b.indices
}

func buildTreeLowMesh(height float32) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}
	cone, coneIdx := buildConeMesh(height*0.3, height, 6, mgl32.Vec4{0.13, 0.31, 0.19, 1})
	b.appendAt(cone, coneIdx, mgl32.Vec3{0, height / 2, 0}, vec3One)
	return b.vertices, b.indices
}

// buildFenceMesh runs a post-and-two-rail fence from the origin along +x.
func buildFenceMesh(length float32) ([]VertexPNC, []uint16) {
	b := &meshBuilder{}
	wood := mgl32.Vec4{0.42, 0.32, 0.24, 1}

	posts := int(length/2.2) + 2
	post, postIdx := buildBoxMesh(0.18, 1.1, 0.18, wood)
	for i := 0; i < posts; i++ {
		x := length * float32(i) / float32(posts-1)
		b.appendAt(post, postIdx, mgl32.Vec3{x, 0.55, 0}, vec3One)
	}

	rail, railIdx := buildBoxMesh(length, 0.12, 0.1, wood)
	b.appendAt(rail, railIdx, mgl32.Vec3{length / 2, 0.48, 0}, vec3One)
	b.appendAt(rail, railIdx, mgl32.Vec3{length / 2, 0.88, 0}, vec3One)

	return b.vertices, b.indices
}

func buildLampMesh() ([]VertexPNC, []uint16) {
	b := &meshBuilder{}

	post, postIdx := buildCylinderMesh(0.12, 3.2, 6, mgl32.Vec4{0.18, 0.18, 0.22, 1})
	b.appendAt(post, postIdx, mgl32.Vec3{0, 1.6, 0}, vec3One)

	head, headIdx := buildBoxMesh(0.5, 0.6, 0.5, mgl32.Vec4{1.0, 0.82, 0.45, 1})
	b.appendAt(head, headIdx, mgl32.Vec3{0, 3.45, 0}, vec3One)

	cap, capIdx := buildConeMesh(0.45, 0.4, 6, mgl32.Vec4{0.18, 0.18, 0.22, 1})
	b.appendAt(cap, capIdx, mgl32.Vec3{0, 3.95, 0}, vec3One)

	return b.vertices, b.indices
}

// registerCharacterModel builds the shared six-part figure, optionally with
// a sled in tow. Body and limbs are white so the per-character coat arrives
// through the renderable tint.
func registerCharacterModel(assets *AssetServer, withSled bool) AssetId {
	white := mgl32.Vec4{1, 1, 1, 1}

	bodyVerts, bodyIdx := buildBoxMesh(0.8, 1.1, 0.5, white)
	body := assets.LoadMesh(bodyVerts, bodyIdx)

	headVerts, headIdx := buildBoxMesh(0.45, 0.45, 0.45, mgl32.Vec4{0.92, 0.76, 0.62, 1})
	head := assets.LoadMesh(headVerts, headIdx)

	// Limb box hangs below the origin so the local rotation pivots at the
	// shoulder or hip.
	lb := &meshBuilder{}
	limbBox, limbIdx := buildBoxMesh(0.22, 0.9, 0.22, white)
	lb.appendAt(limbBox, limbIdx, mgl32.Vec3{0, -0.45, 0}, vec3One)
	limb := assets.LoadMesh(lb.vertices, lb.indices)

	ident := mgl32.QuatIdent()
	parts := []ModelPart{
		{Mesh: body, Offset: mgl32.Vec3{0, 1.5, 0}, Rotation: ident, Scale: vec3One, Tint: white},
		{Mesh: head, Offset: mgl32.Vec3{0, 2.25, 0}, Rotation: ident, Scale: vec3One, Tint: white},
		{Mesh: limb, Offset: mgl32.Vec3{-0.51, 1.95, 0}, Rotation: ident, Scale: vec3One, Tint: white},
		{Mesh: limb, Offset: mgl32.Vec3{0.51, 1.95, 0}, Rotation: ident, Scale: vec3One, Tint: white},
		{Mesh: limb, Offset: mgl32.Vec3{-0.2, 0.95, 0}, Rotation: ident, Scale: vec3One, Tint: white},
		{Mesh: limb, Offset: mgl32.Vec3{0.2, 0.95, 0}, Rotation: ident, Scale: vec3One, Tint: white},
	}

	if withSled {
		sb := &meshBuilder{}
		deck, deckIdx := buildBoxMesh(1.1, 0.18, 2.2, mgl32.Vec4{0.46, 0.30, 0.20, 1})
		sb.appendAt(deck, deckIdx, mgl32.Vec3{0, 0.42, 0}, vec3One)
		runner, runnerIdx := buildBoxMesh(0.1, 0.28, 2.5, mgl32.Vec4{0.60, 0.62, 0.68, 1})
		sb.appendAt(runner, runnerIdx, mgl32.Vec3{-0.5, 0.14, 0}, vec3One)
		sb.appendAt(runner, runnerIdx, mgl32.Vec3{0.5, 0.14, 0}, vec3One)
		sled := assets.LoadMesh(sb.vertices, sb.indices)

		parts = append(parts, ModelPart{
			Mesh: sled, Offset: mgl32.Vec3{0, 0, -2.1}, Rotation: ident, Scale: vec3One, Tint: white,
		})
	}

	return assets.RegisterModel(parts...)
}

// VillageScene bundles everything construction needs once loading finishes.
type VillageScene struct {
	Def           *VillageDef
	Meshes        *VillageAssets
	GroundTexture AssetId
	Ambience      AssetId
}

// BuildVillage runs the construction stages in their fixed order. Later
// stages read what earlier ones produced (smoke rises from placed chimneys,
// characters walk the ring road), so the order is load-bearing.
func BuildVillage(cmd *Commands, assets *AssetServer, drifts *DriftField, audio *AudioState, log Logger, scene *VillageScene) {
	def, va := scene.Def, scene.Meshes

	camera := spawnCamera(cmd)
	attachOrbitControls(cmd, camera)
	spawnLighting(cmd)
	spawnGround(cmd, def, va, scene.GroundTexture)
	spawnSnow(cmd, def, drifts, va)
	pathEntity := spawnStructures(cmd, def, va)
	spawnCharacters(cmd, assets, def, va, pathEntity)
	spawnSky(cmd, va)
	spawnFences(cmd, def, va)
	startAmbience(assets, audio, scene.Ambience, log)

	log.Infof("Village built: %d houses, %d trees, %d characters",
		len(def.Houses), len(def.Trees), len(def.Characters))
}

func spawnCamera(cmd *Commands) EntityId {
	return cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&CameraComponent{
			LookAt: mgl32.Vec3{0, 2, 0},
			Up:     mgl32.Vec3{0, 1, 0},
			FovY:   55,
			Near:   0.1,
			Far:    500,
		},
	)
}

func attachOrbitControls(cmd *Commands, camera EntityId) {
	orbit := NewOrbitCamera(mgl32.Vec3{0, 2, 0}, 46, 0.6, 0.5)
	cmd.AddComponents(camera, &orbit)
}

func spawnLighting(cmd *Commands) {
	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&LightComponent{
			Type:      LightTypeDirectional,
			Color:     [3]float32{0.75, 0.82, 1.0},
			Intensity: 0.9,
			Direction: mgl32.Vec3{-0.35, -1, -0.25},
		},
	)
	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&LightComponent{
			Type:      LightTypeAmbient,
			Color:     [3]float32{0.30, 0.34, 0.48},
			Intensity: 1,
		},
	)
}

func spawnGround(cmd *Commands, def *VillageDef, va *VillageAssets, texture AssetId) {
	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&RenderableComponent{
			Model:   va.Ground,
			Texture: texture,
			Tint:    mgl32.Vec4{0.96, 0.97, 1, 1},
			Visible: true,
		},
	)
}

func spawnSnow(cmd *Commands, def *VillageDef, drifts *DriftField, va *VillageAssets) {
	drifts.Mesh = va.Drift

	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&SnowfieldComponent{
			Count:        def.SnowCount,
			Extent:       55,
			Height:       60,
			FallSpeed:    [2]float32{4, 9},
			DriftSpeed:   1.2,
			WindStrength: 1.5,
			FlakeSize:    [2]float32{0.08, 0.22},
		},
	)
	cmd.AddEntity(
		&TransformComponent{Position: mgl32.Vec3{8, 0, -6}, Scale: vec3One},
		&FireflyFieldComponent{
			Count:        def.FireflyCount,
			Radius:       30,
			HeightRange:  [2]float32{1.2, 4.5},
			BobAmplitude: 0.5,
			BobFrequency: 1.2,
			SizeBase:     0.12,
		},
	)
	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&MistFieldComponent{
			Count:  def.MistCount,
			Radius: 55,
			Height: 1.2,
			Speed:  [2]float32{0.3, 0.8},
			Size:   [2]float32{6, 11},
		},
	)
}

// spawnStructures places houses with their chimney emitters, trees, lamps
// and the ring road, returning the road's path entity for the characters.
func spawnStructures(cmd *Commands, def *VillageDef, va *VillageAssets) EntityId {
	white := mgl32.Vec4{1, 1, 1, 1}

	for i := range def.Houses {
		h := &def.Houses[i]
		cmd.AddEntity(
			&TransformComponent{
				Position: h.Position,
				Rotation: mgl32.QuatRotate(h.Yaw, mgl32.Vec3{0, 1, 0}),
				Scale:    vec3One,
			},
			&RenderableComponent{Model: va.HouseLods[i][0], Tint: white, Visible: true},
			&LodGroupComponent{
				Thresholds: []float32{0, 50, 100},
				Models:     va.HouseLods[i][:],
			},
		)
		cmd.AddEntity(
			&TransformComponent{Position: h.ChimneyTop(), Scale: vec3One},
			&ChimneySmokeComponent{
				Count:      26,
				RiseSpeed:  [2]float32{0.9, 1.6},
				Spread:     0.35,
				Life:       [2]float32{2.5, 4.5},
				SizeStart:  0.5,
				SizeGrowth: 1.6,
			},
		)
	}

	for _, tree := range def.Trees {
		cmd.AddEntity(
			&TransformComponent{
				Position: tree.Position,
				Scale:    mgl32.Vec3{tree.Scale, tree.Scale, tree.Scale},
			},
			&RenderableComponent{Model: va.TreeLods[tree.Variant][0], Tint: white, Visible: true},
			&LodGroupComponent{
				Thresholds: []float32{0, 60},
				Models:     va.TreeLods[tree.Variant][:],
			},
		)
	}

	for _, lamp := range def.Lamps {
		cmd.AddEntity(
			&TransformComponent{Position: lamp, Scale: vec3One},
			&RenderableComponent{Model: va.Lamp, Tint: white, Visible: true},
		)
	}

	path := ClosedPath(def.RingPath...)
	return cmd.AddEntity(&path)
}

var limbPhases = map[int]float32{
	characterPartArmLeft:  0,
	characterPartArmRight: math.Pi,
	characterPartLegLeft:  math.Pi,
	characterPartLegRight: 0,
}

func spawnCharacters(cmd *Commands, assets *AssetServer, def *VillageDef, va *VillageAssets, pathEntity EntityId) {
	for _, c := range def.Characters {
		model := va.Villager
		if c.Kind == CharacterHauler {
			model = va.Hauler
		}
		spawnCharacter(cmd, assets, &c, model, pathEntity)
	}
}

func spawnCharacter(cmd *Commands, assets *AssetServer, c *CharacterDef, model AssetId, pathEntity EntityId) {
	parts, ok := assets.Instantiate(model)
	if !ok {
		return
	}

	root := cmd.AddEntity(
		&TransformComponent{Position: c.Start, Rotation: mgl32.QuatIdent(), Scale: vec3One},
		&PathFollowerComponent{Path: pathEntity, MoveSpeed: c.MoveSpeed, PathIndex: c.PathIndex},
	)

	for i, part := range parts {
		tint := part.Tint
		switch i {
		case characterPartBody:
			tint = tintMul(tint, c.Coat)
		case characterPartArmLeft, characterPartArmRight, characterPartLegLeft, characterPartLegRight:
			tint = tintMul(tint, mgl32.Vec4{c.Coat.X() * 0.8, c.Coat.Y() * 0.8, c.Coat.Z() * 0.8, 1})
		}

		comps := []any{
			&TransformComponent{Scale: vec3One},
			&LocalTransformComponent{Position: part.Offset, Rotation: part.Rotation, Scale: part.Scale},
			&Parent{Entity: root},
			&RenderableComponent{Model: part.Mesh, Tint: tint, Visible: true},
		}
		if phase, swings := limbPhases[i]; swings {
			amplitude := float32(0.55)
			if i == characterPartArmLeft || i == characterPartArmRight {
				amplitude = 0.4
			}
			comps = append(comps, &LimbSwingComponent{
				Amplitude: amplitude,
				Frequency: 5.5,
				Phase:     phase + c.GaitPhase,
			})
		}
		cmd.AddEntity(comps...)
	}
}

func spawnSky(cmd *Commands, va *VillageAssets) {
	cmd.AddEntity(
		&TransformComponent{Scale: vec3One},
		&RenderableComponent{Model: va.Sky, Tint: mgl32.Vec4{1, 1, 1, 1}, Visible: true},
	)
}

func spawnFences(cmd *Commands, def *VillageDef, va *VillageAssets) {
	for i, fence := range def.Fences {
		dir := fence.To.Sub(fence.From)
		if dir.Len() == 0 {
			continue
		}
		yaw := float32(math.Atan2(float64(-dir.Z()), float64(dir.X())))
		cmd.AddEntity(
			&TransformComponent{
				Position: fence.From,
				Rotation: mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0}),
				Scale:    vec3One,
			},
			&RenderableComponent{Model: va.Fences[i], Tint: mgl32.Vec4{1, 1, 1, 1}, Visible: true},
		)
	}
}

func startAmbience(assets *AssetServer, audio *AudioState, ambience AssetId, log Logger) {
	if ambience == "" {
		log.Infof("No ambience configured, scene runs silent")
		return
	}
	asset, ok := assets.Audio(ambience)
	if !ok {
		log.Warnf("Ambience asset missing, scene runs silent")
		return
	}
	audio.StartAmbience(asset, log)
}

func tintMul(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z(), a.W() * b.W()}
}
