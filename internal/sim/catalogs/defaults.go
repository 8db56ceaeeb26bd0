package catalogs

import "encoding/json"

// Defaults returns the compiled-in catalog set. It mirrors the shipped
// configs/ files so the engine works without a config directory.
func Defaults() *Catalogs {
	var c Catalogs
	if err := buildWeapons(defaultWeapons(), &c.Weapons); err != nil {
		panic(err)
	}
	if err := buildAgents(defaultAgents(), &c.Agents); err != nil {
		panic(err)
	}
	wj, _ := json.Marshal(defaultWeapons())
	c.Weapons.DefsDigest = sha256Hex(wj)
	aj, _ := json.Marshal(defaultAgents())
	c.Agents.DefsDigest = sha256Hex(aj)
	return &c
}

func defaultWeapons() []WeaponDef {
	return []WeaponDef{
		{
			ID: "CLASSIC", Class: "SIDEARM", Price: 0,
			DamageHead: [3]int{78, 66, 26}, DamageBody: [3]int{26, 22, 22}, DamageLegs: [3]int{22, 18, 18},
			FireRate: 6.75, Penetration: "LOW", MagazineSize: 12, ReloadTimeMs: 2250,
			Effectiveness: 0.4,
		},
		{
			ID: "GHOST", Class: "SIDEARM", Price: 500,
			DamageHead: [3]int{105, 87, 30}, DamageBody: [3]int{30, 25, 25}, DamageLegs: [3]int{25, 21, 21},
			FireRate: 6.75, Penetration: "MEDIUM", MagazineSize: 15, ReloadTimeMs: 2500,
			Effectiveness: 0.6,
		},
		{
			ID: "SHERIFF", Class: "SIDEARM", Price: 800,
			DamageHead: [3]int{159, 145, 55}, DamageBody: [3]int{55, 50, 46}, DamageLegs: [3]int{46, 42, 42},
			FireRate: 4.0, Penetration: "HIGH", MagazineSize: 6, ReloadTimeMs: 3000,
			Effectiveness: 0.8,
		},
		{
			ID: "SPECTRE", Class: "SMG", Price: 1600,
			DamageHead: [3]int{78, 66, 26}, DamageBody: [3]int{26, 22, 22}, DamageLegs: [3]int{22, 18, 18},
			FireRate: 13.33, Penetration: "MEDIUM", MagazineSize: 30, ReloadTimeMs: 2250,
			Effectiveness: 0.9,
			Falloff: []FalloffBand{
				{MaxRangeM: 20, Multiplier: 1.0},
				{MaxRangeM: 50, Multiplier: 0.75},
			},
		},
		{
			ID: "BULLDOG", Class: "RIFLE", Price: 2050,
			DamageHead: [3]int{116, 100, 84}, DamageBody: [3]int{35, 30, 25}, DamageLegs: [3]int{26, 22, 18},
			FireRate: 9.15, Penetration: "MEDIUM", MagazineSize: 24, ReloadTimeMs: 2500,
			Effectiveness: 1.0,
		},
		{
			ID: "GUARDIAN", Class: "RIFLE", Price: 2250,
			DamageHead: [3]int{195, 180, 165}, DamageBody: [3]int{65, 60, 55}, DamageLegs: [3]int{48, 45, 41},
			FireRate: 4.75, Penetration: "HIGH", MagazineSize: 12, ReloadTimeMs: 2500,
			Effectiveness: 1.1,
		},
		{
			ID: "PHANTOM", Class: "RIFLE", Price: 2900,
			DamageHead: [3]int{156, 140, 124}, DamageBody: [3]int{39, 35, 31}, DamageLegs: [3]int{33, 29, 26},
			FireRate: 11.0, Penetration: "MEDIUM", MagazineSize: 30, ReloadTimeMs: 2500,
			Effectiveness: 1.15,
			Falloff: []FalloffBand{
				{MaxRangeM: 15, Multiplier: 1.0},
				{MaxRangeM: 30, Multiplier: 0.85},
				{MaxRangeM: 50, Multiplier: 0.7},
			},
		},
		{
			ID: "VANDAL", Class: "RIFLE", Price: 2900,
			DamageHead: [3]int{160, 160, 160}, DamageBody: [3]int{40, 40, 40}, DamageLegs: [3]int{34, 34, 34},
			FireRate: 9.75, Penetration: "MEDIUM", MagazineSize: 25, ReloadTimeMs: 2500,
			Effectiveness: 1.2,
		},
		{
			ID: "OPERATOR", Class: "SNIPER", Price: 4700,
			DamageHead: [3]int{255, 255, 255}, DamageBody: [3]int{150, 150, 150}, DamageLegs: [3]int{120, 120, 120},
			FireRate: 0.75, Penetration: "HIGH", MagazineSize: 5, ReloadTimeMs: 3700,
			Effectiveness: 1.5,
		},
	}
}

func defaultAgents() []AgentDef {
	return []AgentDef{
		{ID: "JETT", Role: "DUELIST"},
		{ID: "RAZE", Role: "DUELIST"},
		{ID: "PHOENIX", Role: "DUELIST"},
		{ID: "YORU", Role: "DUELIST"},
		{ID: "NEON", Role: "DUELIST"},
		{ID: "BREACH", Role: "INITIATOR"},
		{ID: "SOVA", Role: "INITIATOR"},
		{ID: "SKYE", Role: "INITIATOR"},
		{ID: "KAYO", Role: "INITIATOR"},
		{ID: "FADE", Role: "INITIATOR"},
		{ID: "GEKKO", Role: "INITIATOR"},
		{ID: "OMEN", Role: "CONTROLLER"},
		{ID: "BRIMSTONE", Role: "CONTROLLER"},
		{ID: "VIPER", Role: "CONTROLLER"},
		{ID: "ASTRA", Role: "CONTROLLER"},
		{ID: "HARBOR", Role: "CONTROLLER"},
		{ID: "CLOVE", Role: "CONTROLLER"},
		{ID: "SAGE", Role: "SENTINEL"},
		{ID: "CYPHER", Role: "SENTINEL"},
		{ID: "KILLJOY", Role: "SENTINEL"},
		{ID: "CHAMBER", Role: "SENTINEL"},
		{ID: "DEADLOCK", Role: "SENTINEL"},
		{ID: "ISO", Role: "SENTINEL"},
	}
}
