package match

// Skills are normalized to [0,1]. Use NewSkills to build from user input.
type Skills struct {
	Aim      float64
	Headshot float64
	Movement float64
	Utility  float64
}

// NewSkills normalizes each component: values above 1 are treated as a
// 0-100 scale and divided by 100, then clamped to [0,1].
func NewSkills(aim, headshot, movement, utility float64) Skills {
	return Skills{
		Aim:      normalizeSkill(aim),
		Headshot: normalizeSkill(headshot),
		Movement: normalizeSkill(movement),
		Utility:  normalizeSkill(utility),
	}
}

func normalizeSkill(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type Loadout struct {
	Primary   string // weapon id, empty means none
	Secondary string // weapon id, never empty
	Armor     ArmorTier
	Abilities []string
}

func starterLoadout() Loadout {
	return Loadout{Secondary: "CLASSIC", Armor: ArmorNone}
}

func (l Loadout) clone() Loadout {
	out := l
	if l.Abilities != nil {
		out.Abilities = append([]string(nil), l.Abilities...)
	}
	return out
}

// EquippedWeapon is the weapon used in duels: primary if owned.
func (l Loadout) EquippedWeapon() string {
	if l.Primary != "" {
		return l.Primary
	}
	return l.Secondary
}

type Player struct {
	ID    int
	Name  string
	Agent string
	Role  Role
	Team  Team

	Health int
	Armor  int
	Alive  bool

	Credits        int
	UltimatePoints int
	Loadout        Loadout

	Skills      Skills
	Preferences BuyPreferences
}

// NewPlayer builds a player with role-derived buy preferences. Health,
// armor and credits are set when the match starts.
func NewPlayer(id int, name, agent string, role Role, team Team, skills Skills) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		Agent:       agent,
		Role:        role,
		Team:        team,
		Health:      100,
		Alive:       true,
		Loadout:     starterLoadout(),
		Skills:      skills,
		Preferences: preferencesForRole(role, skills),
	}
}

func (p *Player) clone() *Player {
	out := *p
	out.Loadout = p.Loadout.clone()
	out.Preferences = p.Preferences.clone()
	return &out
}

func (p *Player) resetForRound() {
	p.Health = 100
	p.Armor = p.Loadout.Armor.Points()
	p.Alive = true
}

// takeDamage applies damage to armor first, then health.
func (p *Player) takeDamage(amount int) {
	if !p.Alive {
		return
	}
	if amount >= p.Health+p.Armor {
		p.Health = 0
		p.Armor = 0
		p.Alive = false
		return
	}
	if amount > p.Armor {
		p.Health -= amount - p.Armor
		p.Armor = 0
		return
	}
	p.Armor -= amount
}

// addCredits adds (or removes) credits, clamped to [0, cap].
func (p *Player) addCredits(delta, cap int) {
	c := p.Credits + delta
	if c < 0 {
		c = 0
	}
	if c > cap {
		c = cap
	}
	p.Credits = c
}

// WeaponPreference ranks one weapon for the buy engine.
type WeaponPreference struct {
	Weapon     string
	Priority   float64
	MinCredits int
	// Priority adjustment per round type.
	SituationalModifiers map[RoundType]float64
}

type BuyPreferences struct {
	PreferredWeapons []WeaponPreference
	EcoThreshold     int
	ForceBuyTendency float64
	UtilityPriority  float64
	ArmorPriority    float64
}

func (b BuyPreferences) clone() BuyPreferences {
	out := b
	out.PreferredWeapons = make([]WeaponPreference, len(b.PreferredWeapons))
	for i, w := range b.PreferredWeapons {
		out.PreferredWeapons[i] = w
		if w.SituationalModifiers != nil {
			m := make(map[RoundType]float64, len(w.SituationalModifiers))
			for k, v := range w.SituationalModifiers {
				m[k] = v
			}
			out.PreferredWeapons[i].SituationalModifiers = m
		}
	}
	return out
}

func preferencesForRole(role Role, skills Skills) BuyPreferences {
	var weapons []WeaponPreference
	switch role {
	case RoleDuelist:
		weapons = []WeaponPreference{
			{Weapon: "VANDAL", Priority: 0.9 + skills.Aim*0.1, MinCredits: 2900},
			{Weapon: "PHANTOM", Priority: 0.85 + skills.Aim*0.1, MinCredits: 2900},
			{Weapon: "OPERATOR", Priority: 0.6 + skills.Aim*0.3, MinCredits: 4700},
			{Weapon: "SPECTRE", Priority: 0.7, MinCredits: 1600},
		}
	case RoleController:
		weapons = []WeaponPreference{
			{Weapon: "PHANTOM", Priority: 0.8, MinCredits: 2900},
			{Weapon: "VANDAL", Priority: 0.75, MinCredits: 2900},
			{Weapon: "GUARDIAN", Priority: 0.6, MinCredits: 2250},
		}
	case RoleInitiator:
		weapons = []WeaponPreference{
			{Weapon: "PHANTOM", Priority: 0.85, MinCredits: 2900},
			{Weapon: "VANDAL", Priority: 0.8, MinCredits: 2900},
			{Weapon: "BULLDOG", Priority: 0.65, MinCredits: 2050},
		}
	case RoleSentinel:
		weapons = []WeaponPreference{
			{Weapon: "OPERATOR", Priority: 0.7 + skills.Aim*0.2, MinCredits: 4700},
			{Weapon: "GUARDIAN", Priority: 0.75, MinCredits: 2250},
			{Weapon: "VANDAL", Priority: 0.7, MinCredits: 2900},
		}
	}

	// Sidearm upgrades shared by all roles.
	weapons = append(weapons,
		WeaponPreference{Weapon: "SHERIFF", Priority: 0.6 + skills.Aim*0.2, MinCredits: 800},
		WeaponPreference{Weapon: "GHOST", Priority: 0.5, MinCredits: 500},
	)

	prefs := BuyPreferences{
		PreferredWeapons: weapons,
		ArmorPriority:    0.8,
	}
	switch role {
	case RoleDuelist:
		prefs.EcoThreshold = 2000
		prefs.ForceBuyTendency = 0.7
		prefs.UtilityPriority = 0.3
	case RoleController:
		prefs.EcoThreshold = 2500
		prefs.ForceBuyTendency = 0.4
		prefs.UtilityPriority = 0.8
	case RoleInitiator:
		prefs.EcoThreshold = 2200
		prefs.ForceBuyTendency = 0.5
		prefs.UtilityPriority = 0.7
	case RoleSentinel:
		prefs.EcoThreshold = 3000
		prefs.ForceBuyTendency = 0.3
		prefs.UtilityPriority = 0.6
	}
	return prefs
}
