package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Weapons WeaponCatalog
	Agents  AgentCatalog
}

type WeaponCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]WeaponDef
	PaletteDigest string
	DefsDigest    string
}

type WeaponDef struct {
	ID    string `json:"id"`
	Class string `json:"class"` // "SIDEARM","SMG","RIFLE","SNIPER"
	Price int    `json:"price"`

	// Damage per body part at [no armor, light armor, heavy armor].
	DamageHead [3]int `json:"damage_head"`
	DamageBody [3]int `json:"damage_body"`
	DamageLegs [3]int `json:"damage_legs"`

	FireRate     float64 `json:"fire_rate"` // rounds per second
	Penetration  string  `json:"penetration"`
	MagazineSize int     `json:"magazine_size"`
	ReloadTimeMs int     `json:"reload_time_ms"`

	// Duel effectiveness multiplier applied to the wielder's skill.
	Effectiveness float64 `json:"effectiveness"`

	// Damage falloff bands, sorted by range. Empty means no falloff.
	Falloff []FalloffBand `json:"falloff,omitempty"`
}

type FalloffBand struct {
	MaxRangeM  float64 `json:"max_range_m"`
	Multiplier float64 `json:"multiplier"`
}

// DamageMultiplier returns the falloff multiplier at the given range.
// Past the last band the last band's multiplier applies.
func (d WeaponDef) DamageMultiplier(rangeM float64) float64 {
	if len(d.Falloff) == 0 {
		return 1.0
	}
	for _, b := range d.Falloff {
		if rangeM <= b.MaxRangeM {
			return b.Multiplier
		}
	}
	return d.Falloff[len(d.Falloff)-1].Multiplier
}

func (d WeaponDef) IsSidearm() bool { return d.Class == "SIDEARM" }

type AgentCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]AgentDef
	PaletteDigest string
	DefsDigest    string
}

type AgentDef struct {
	ID   string `json:"id"`
	Role string `json:"role"` // "DUELIST","INITIATOR","CONTROLLER","SENTINEL"
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadWeapons(filepath.Join(configDir, "weapons.json"), &c.Weapons); err != nil {
		return nil, err
	}
	if err := loadAgents(filepath.Join(configDir, "agents.json"), &c.Agents); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadWeapons(path string, out *WeaponCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []WeaponDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("weapons.json: %w", err)
	}
	if err := buildWeapons(defs, out); err != nil {
		return fmt.Errorf("weapons.json: %w", err)
	}
	return nil
}

func buildWeapons(defs []WeaponDef, out *WeaponCatalog) error {
	out.Defs = map[string]WeaponDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if d.Class == "" {
			return fmt.Errorf("%s: empty class", d.ID)
		}
		if d.Price < 0 {
			return fmt.Errorf("%s: negative price", d.ID)
		}
		if d.Effectiveness == 0 {
			d.Effectiveness = 0.7
		}
		out.Defs[d.ID] = d
	}

	// Ensure the starter sidearm exists; players always fall back to it.
	if _, ok := out.Defs["CLASSIC"]; !ok {
		return fmt.Errorf("missing CLASSIC")
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ids = append([]string{"CLASSIC"}, filterOut(ids, "CLASSIC")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadAgents(path string, out *AgentCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []AgentDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("agents.json: %w", err)
	}
	if err := buildAgents(defs, out); err != nil {
		return fmt.Errorf("agents.json: %w", err)
	}
	return nil
}

var validRoles = map[string]struct{}{
	"DUELIST":    {},
	"INITIATOR":  {},
	"CONTROLLER": {},
	"SENTINEL":   {},
}

func buildAgents(defs []AgentDef, out *AgentCatalog) error {
	out.Defs = map[string]AgentDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if _, ok := validRoles[d.Role]; !ok {
			return fmt.Errorf("%s: unknown role %q", d.ID, d.Role)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
