package fetchqueue

// Collections of the catalog, usable as Endpoint.Collection.
const (
	AbilityScores       = "ability-scores"
	Alignments          = "alignments"
	Backgrounds         = "backgrounds"
	Classes             = "classes"
	Conditions          = "conditions"
	DamageTypes         = "damage-types"
	Equipment           = "equipment"
	EquipmentCategories = "equipment-categories"
	Feats               = "feats"
	Features            = "features"
	Languages           = "languages"
	MagicItems          = "magic-items"
	MagicSchools        = "magic-schools"
	Monsters            = "monsters"
	Proficiencies       = "proficiencies"
	Races               = "races"
	Rules               = "rules"
	Skills              = "skills"
	Spells              = "spells"
	Subclasses          = "subclasses"
	Subraces            = "subraces"
	Traits              = "traits"
	WeaponProperties    = "weapon-properties"
)
