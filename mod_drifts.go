package frostvale

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DriftComponent carries the growth parameters of one snow drift. MaxHeight
// caps the transform's y-scale, BaseHeight is the unscaled mesh height.
type DriftComponent struct {
	MaxHeight  float32
	GrowthRate float32
	BaseHeight float32
}

type driftRecord struct {
	entity    EntityId
	x, z      float32
	lastGrown uint64
}

// driftGrid buckets drift records by ground-plane cell so an impact only
// compares against nearby drifts. Cell size equals the merge radius, so the
// 3x3 neighborhood around a point always covers it.
type driftGrid struct {
	cellSize float32
	cells    map[uint64][]int
}

func makeDriftGrid(cellSize float32) driftGrid {
	return driftGrid{
		cellSize: cellSize,
		cells:    make(map[uint64][]int),
	}
}

func (grid *driftGrid) cellIndex(v float32) int {
	return int(math.Floor(float64(v / grid.cellSize)))
}

func (grid *driftGrid) hashKey(x, z int) uint64 {
	const p1 = 73856093
	const p3 = 83492791
	return uint64(x*p1 ^ z*p3)
}

func (grid *driftGrid) insert(x, z float32, idx int) {
	key := grid.hashKey(grid.cellIndex(x), grid.cellIndex(z))
	grid.cells[key] = append(grid.cells[key], idx)
}

func (grid *driftGrid) remove(x, z float32, idx int) {
	key := grid.hashKey(grid.cellIndex(x), grid.cellIndex(z))
	bucket := grid.cells[key]
	for i, v := range bucket {
		if v == idx {
			bucket[i] = bucket[len(bucket)-1]
			grid.cells[key] = bucket[:len(bucket)-1]
			return
		}
	}
}

func (grid *driftGrid) visitAround(x, z float32, visit func(idx int)) {
	cx, cz := grid.cellIndex(x), grid.cellIndex(z)
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, idx := range grid.cells[grid.hashKey(cx+dx, cz+dz)] {
				visit(idx)
			}
		}
	}
}

// DriftField accumulates snow on the ground. Impacts near an existing drift
// grow it; impacts on fresh ground sometimes seed a new one. The population
// is capped, after which the least recently grown drift is moved to the new
// impact site instead.
type DriftField struct {
	MergeRadius  float32
	SpawnChance  float32
	SettleChance float32
	MaxDrifts    int
	Mesh         AssetId

	records []driftRecord
	grid    driftGrid
}

func NewDriftField() *DriftField {
	field := &DriftField{
		MergeRadius:  2,
		SpawnChance:  0.05,
		SettleChance: 0.01,
		MaxDrifts:    360,
	}
	field.grid = makeDriftGrid(field.MergeRadius)
	return field
}

// DriftCount reports how many drifts currently exist.
func (f *DriftField) DriftCount() int {
	return len(f.records)
}

// RecordImpact handles one snowflake landing at (x, z). The nearest drift
// within MergeRadius absorbs the hit; otherwise a new drift spawns with
// probability SpawnChance.
func (f *DriftField) RecordImpact(cmd *Commands, rng *Rng, tick uint64, x, z float32) {
	if idx := f.nearestWithin(x, z, f.MergeRadius); idx >= 0 {
		f.growDrift(cmd, idx, tick)
		return
	}
	if rng.Float32() < f.SpawnChance {
		f.spawnDrift(cmd, rng, tick, x, z)
	}
}

func (f *DriftField) nearestWithin(x, z, radius float32) int {
	best := -1
	bestD2 := radius * radius
	f.grid.visitAround(x, z, func(idx int) {
		rec := &f.records[idx]
		dx, dz := rec.x-x, rec.z-z
		d2 := dx*dx + dz*dz
		if d2 <= bestD2 {
			best, bestD2 = idx, d2
		}
	})
	return best
}

// growDrift thickens a drift: y-scale by the full growth rate, footprint by
// half of it, then re-seats the transform so the mesh base stays on the
// ground. Growth stops at the drift's own MaxHeight.
func (f *DriftField) growDrift(cmd *Commands, idx int, tick uint64) {
	rec := &f.records[idx]
	tr, ok := GetComponent[TransformComponent](cmd, rec.entity)
	if !ok {
		return
	}
	drift, ok := GetComponent[DriftComponent](cmd, rec.entity)
	if !ok {
		return
	}
	if tr.Scale.Y() >= drift.MaxHeight {
		return
	}
	tr.Scale[1] += drift.GrowthRate
	tr.Scale[0] += drift.GrowthRate * 0.5
	tr.Scale[2] += drift.GrowthRate * 0.5
	tr.Position[1] = tr.Scale.Y() * drift.BaseHeight * 0.5
	rec.lastGrown = tick
}

func (f *DriftField) spawnDrift(cmd *Commands, rng *Rng, tick uint64, x, z float32) {
	if f.MaxDrifts > 0 && len(f.records) >= f.MaxDrifts {
		f.recycleDrift(cmd, rng, tick, x, z)
		return
	}

	drift := randomDriftShape(rng)
	scale := randomDriftScale(rng)
	entity := cmd.AddEntity(
		&TransformComponent{
			Position: mgl32.Vec3{x, scale.Y() * drift.BaseHeight * 0.5, z},
			Rotation: mgl32.QuatRotate(rng.rangeF(0, 2*math.Pi), mgl32.Vec3{0, 1, 0}),
			Scale:    scale,
		},
		&drift,
		&RenderableComponent{Model: f.Mesh, Tint: mgl32.Vec4{0.93, 0.95, 0.99, 1}, Visible: true},
	)

	f.grid.insert(x, z, len(f.records))
	f.records = append(f.records, driftRecord{entity: entity, x: x, z: z, lastGrown: tick})
}

// recycleDrift moves the least recently grown drift to the new impact site
// with fresh geometry, keeping the population at MaxDrifts.
func (f *DriftField) recycleDrift(cmd *Commands, rng *Rng, tick uint64, x, z float32) {
	oldest := -1
	for i := range f.records {
		if oldest < 0 || f.records[i].lastGrown < f.records[oldest].lastGrown {
			oldest = i
		}
	}
	if oldest < 0 {
		return
	}

	rec := &f.records[oldest]
	tr, ok := GetComponent[TransformComponent](cmd, rec.entity)
	if !ok {
		return
	}
	drift, ok := GetComponent[DriftComponent](cmd, rec.entity)
	if !ok {
		return
	}

	*drift = randomDriftShape(rng)
	tr.Scale = randomDriftScale(rng)
	tr.Position = mgl32.Vec3{x, tr.Scale.Y() * drift.BaseHeight * 0.5, z}
	tr.Rotation = mgl32.QuatRotate(rng.rangeF(0, 2*math.Pi), mgl32.Vec3{0, 1, 0})

	f.grid.remove(rec.x, rec.z, oldest)
	rec.x, rec.z = x, z
	rec.lastGrown = tick
	f.grid.insert(x, z, oldest)
}

func randomDriftShape(rng *Rng) DriftComponent {
	return DriftComponent{
		MaxHeight:  rng.rangeF(1.6, 2.6),
		GrowthRate: rng.rangeF(0.01, 0.025),
		BaseHeight: 1,
	}
}

func randomDriftScale(rng *Rng) mgl32.Vec3 {
	return mgl32.Vec3{
		rng.rangeF(0.7, 1.3),
		rng.rangeF(0.3, 0.5),
		rng.rangeF(0.7, 1.3),
	}
}

// DriftModule owns the drift field and its background settling. Settling is
// a low-probability growth pass over all drifts, so buried paths keep
// thickening even where snow rarely lands.
type DriftModule struct {
	Active State
}

func (m DriftModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewDriftField())

	app.UseSystem(
		System(driftSettleSystem).
			InStage(Update).
			InState(OnExecute(m.Active)).
			HalfRate(),
	)
}

func driftSettleSystem(field *DriftField, t *Time, rng *Rng, cmd *Commands) {
	for i := range field.records {
		if rng.Float32() < field.SettleChance {
			field.growDrift(cmd, i, t.Tick)
		}
	}
}
