package game

import (
	"math"
	"math/rand"

	"arena-brawl/internal/game/spatial"
)

// Map identifiers accepted by changeMap/createRoom
const (
	MapCity   = "map1"
	MapIsland = "map2"
)

// BotRadius is the collision radius used for bot movement.
const BotRadius = 0.65

// Vec3 is a world position. Y is height; the simulation runs on x/z.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistXZ returns the planar distance between two points.
func (v Vec3) DistXZ(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Obstacle is a solid axis-aligned box on the floor.
type Obstacle struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// overlaps reports whether a circle of radius r at (x, z) touches the box.
func (o Obstacle) overlaps(x, z, r float64) bool {
	return x+r > o.MinX && x-r < o.MaxX && z+r > o.MinZ && z-r < o.MaxZ
}

// Arena is the static geometry of one map.
type Arena struct {
	ID        string
	Bounds    spatial.Bounds
	Obstacles []Obstacle
	SpawnY    float64
	// Weapons drop inside this region at WeaponY.
	WeaponRegion spatial.Bounds
	WeaponY      float64
}

var arenas = map[string]Arena{
	MapCity: {
		ID:     MapCity,
		Bounds: spatial.Bounds{MinX: -39, MaxX: 39, MinZ: -39, MaxZ: 39},
		Obstacles: []Obstacle{
			{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10},
			{MinX: -30, MaxX: -20, MinZ: -15, MaxZ: -5},
			{MinX: 20, MaxX: 30, MinZ: -15, MaxZ: -5},
			{MinX: -15, MaxX: -5, MinZ: 20, MaxZ: 30},
			{MinX: -15, MaxX: -5, MinZ: -30, MaxZ: -20},
		},
		SpawnY:       0,
		WeaponRegion: spatial.Bounds{MinX: -38, MaxX: 38, MinZ: -38, MaxZ: 38},
		WeaponY:      1,
	},
	MapIsland: {
		ID:     MapIsland,
		Bounds: spatial.Bounds{MinX: 0, MaxX: 58, MinZ: -40, MaxZ: 19},
		Obstacles: []Obstacle{
			{MinX: -15, MaxX: 15, MinZ: -15, MaxZ: 15},
		},
		SpawnY:       5,
		WeaponRegion: spatial.Bounds{MinX: 2, MaxX: 56, MinZ: -36, MaxZ: 18},
		WeaponY:      5,
	},
}

// LookupArena returns the geometry for a map id.
func LookupArena(id string) (Arena, bool) {
	a, ok := arenas[id]
	return a, ok
}

// ValidMap reports whether id names a known map.
func ValidMap(id string) bool {
	_, ok := arenas[id]
	return ok
}

// Blocked reports whether a body of radius r at (x, z) intersects an obstacle.
func (a Arena) Blocked(x, z, r float64) bool {
	for _, o := range a.Obstacles {
		if o.overlaps(x, z, r) {
			return true
		}
	}
	return false
}

// InBounds reports whether (x, z) lies inside the playable area.
func (a Arena) InBounds(x, z float64) bool {
	b := a.Bounds
	return x >= b.MinX && x <= b.MaxX && z >= b.MinZ && z <= b.MaxZ
}

// CanMoveTo reports whether a bot may occupy (x, z).
func (a Arena) CanMoveTo(x, z float64) bool {
	return a.InBounds(x, z) && !a.Blocked(x, z, BotRadius)
}

// Clamp pulls a point back inside the bounds.
func (a Arena) Clamp(x, z float64) (float64, float64) {
	b := a.Bounds
	return clamp(x, b.MinX, b.MaxX), clamp(z, b.MinZ, b.MaxZ)
}

// RandomSpawn returns a free point for a bot to appear at.
func (a Arena) RandomSpawn(rng *rand.Rand) Vec3 {
	x, z := a.randomFree(rng, a.Bounds, BotRadius)
	return Vec3{X: x, Y: a.SpawnY, Z: z}
}

// RandomWeaponPoint returns a free point inside the weapon drop region.
func (a Arena) RandomWeaponPoint(rng *rand.Rand) Vec3 {
	x, z := a.randomFree(rng, a.WeaponRegion, 0.3)
	return Vec3{X: x, Y: a.WeaponY, Z: z}
}

func (a Arena) randomFree(rng *rand.Rand, region spatial.Bounds, r float64) (float64, float64) {
	var x, z float64
	for i := 0; i < 32; i++ {
		x = region.MinX + rng.Float64()*region.Width()
		z = region.MinZ + rng.Float64()*region.Depth()
		if !a.Blocked(x, z, r) {
			return x, z
		}
	}
	return a.nearestFree(region, x, z, r)
}

// nearestFree walks rings of growing radius around (x, z) and returns the
// first unblocked point inside region. Bots cannot step out of an obstacle,
// so a blocked spawn would trap them.
func (a Arena) nearestFree(region spatial.Bounds, x, z, r float64) (float64, float64) {
	limit := math.Hypot(region.Width(), region.Depth())
	for ring := 0.5; ring <= limit; ring += 0.5 {
		for k := 0; k < 16; k++ {
			ang := float64(k) * math.Pi / 8
			cx := clamp(x+math.Cos(ang)*ring, region.MinX, region.MaxX)
			cz := clamp(z+math.Sin(ang)*ring, region.MinZ, region.MaxZ)
			if !a.Blocked(cx, cz, r) {
				return cx, cz
			}
		}
	}
	// Region fully covered by obstacles.
	return x, z
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
