package game

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
)

//go:embed data/weapons.json
var embeddedWeapons []byte

// Weapon types
const (
	WeaponMelee      = "melee"
	WeaponRanged     = "ranged"
	WeaponConsumable = "consumable"
)

// ErrEmptyCatalog is returned when weapon data parses to zero entries.
var ErrEmptyCatalog = errors.New("weapon catalog is empty")

// ActivationWindow is a normalized [Start, End] slice of the attack
// animation during which the hitbox is live.
type ActivationWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Knockback parameters carried by a hit
type Knockback struct {
	Strength float64 `json:"strength"`
	Duration float64 `json:"duration"` // seconds
}

// ProjectileSpec describes the projectile fired by a ranged weapon
type ProjectileSpec struct {
	Speed    float64 `json:"speed"`
	Radius   float64 `json:"radius"`
	Lifetime float64 `json:"lifetime"`
}

// Weapon represents a weapon configuration
type Weapon struct {
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	Category          string             `json:"category"`
	Damage            int                `json:"damage"`
	Tier              int                `json:"tier"` // rarity; higher is better
	Reach             float64            `json:"reach"`
	Range             float64            `json:"range,omitempty"`
	Radius            float64            `json:"radius,omitempty"`
	Angle             float64            `json:"angle,omitempty"`
	AttackSpeed       float64            `json:"attackSpeed,omitempty"`
	Knockback         Knockback          `json:"knockback"`
	Stun              float64            `json:"stun"`
	ActivationWindows []ActivationWindow `json:"activationWindows,omitempty"`
	Projectile        *ProjectileSpec    `json:"projectile,omitempty"`
	Spawnable         bool               `json:"spawnable"`
}

// IsMelee reports whether the weapon hits at melee reach.
func (w Weapon) IsMelee() bool { return w.Type == WeaponMelee }

// Effects returns the on-hit effects this weapon applies.
func (w Weapon) Effects() Effects {
	return Effects{
		KnockbackStrength: w.Knockback.Strength,
		KnockbackDuration: w.Knockback.Duration,
		StunDuration:      w.Stun,
	}
}

// AttackAnimation maps the weapon category to the clip the client plays.
func (w Weapon) AttackAnimation() string {
	return attackAnimationFor(w.Category)
}

func attackAnimationFor(category string) string {
	switch category {
	case "bow":
		return "Shoot_OneHanded"
	case "greatsword":
		return "GreatSwordAttack"
	case "dagger":
		return "DaggerAttack"
	case "doubleaxe":
		return "DoubleAxeAttack"
	case "handaxe":
		return "HandAxeAttack"
	case "hammer":
		return "HammerAttack"
	case "sword":
		return "SwordAttack"
	default:
		return "Punch"
	}
}

// Catalog is the read-only weapon table. Safe for concurrent use once built.
type Catalog struct {
	byName    map[string]Weapon
	names     []string
	spawnable []string
}

// LoadCatalog parses a JSON array of weapons.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var weapons []Weapon
	if err := json.NewDecoder(r).Decode(&weapons); err != nil {
		return nil, fmt.Errorf("decode weapons: %w", err)
	}
	return newCatalog(weapons)
}

// LoadCatalogFile reads weapon data from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weapon data: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	var weapons []Weapon
	if err := json.Unmarshal(embeddedWeapons, &weapons); err != nil {
		panic(fmt.Sprintf("embedded weapon data is invalid: %v", err))
	}
	c, err := newCatalog(weapons)
	if err != nil {
		panic(err)
	}
	return c
}

func newCatalog(weapons []Weapon) (*Catalog, error) {
	if len(weapons) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{byName: make(map[string]Weapon, len(weapons))}
	for _, w := range weapons {
		if w.Name == "" {
			return nil, fmt.Errorf("weapon without name")
		}
		if _, dup := c.byName[w.Name]; dup {
			return nil, fmt.Errorf("duplicate weapon %q", w.Name)
		}
		if w.Damage < 0 || w.Tier < 0 {
			return nil, fmt.Errorf("weapon %q: negative damage or tier", w.Name)
		}
		c.byName[w.Name] = w
		c.names = append(c.names, w.Name)
		// Potions and ranged weapons never appear as floor pickups.
		if w.Spawnable && w.Type == WeaponMelee {
			c.spawnable = append(c.spawnable, w.Name)
		}
	}
	sort.Strings(c.names)
	sort.Strings(c.spawnable)
	return c, nil
}

// Get returns a weapon by name
func (c *Catalog) Get(name string) (Weapon, bool) {
	w, ok := c.byName[name]
	return w, ok
}

// Has reports whether name is a known weapon.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// All returns all weapons sorted by name
func (c *Catalog) All() []Weapon {
	out := make([]Weapon, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[n])
	}
	return out
}

// Tier returns the rarity score of a weapon; unknown or empty names rank below everything.
func (c *Catalog) Tier(name string) int {
	if w, ok := c.byName[name]; ok {
		return w.Tier
	}
	return -1
}

// RandomSpawnable picks a weapon eligible to be placed on the map.
func (c *Catalog) RandomSpawnable(rng *rand.Rand) string {
	if len(c.spawnable) == 0 {
		return ""
	}
	return c.spawnable[rng.Intn(len(c.spawnable))]
}

// SpawnableNames lists the weapons that can appear as floor pickups.
func (c *Catalog) SpawnableNames() []string {
	return append([]string(nil), c.spawnable...)
}
