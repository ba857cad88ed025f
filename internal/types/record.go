package types

import (
	"strings"
	"sync"
)

// AbilityKind is the semantic bucket a revealed ability is attributed to.
type AbilityKind string

const (
	KindInnate          AbilityKind = "innate"
	KindActive          AbilityKind = "active"
	KindCombatManoeuvre AbilityKind = "combat_manoeuvre"
)

// Weapon is one row of a weapon table.
type Weapon struct {
	Name   string `json:"name"   bson:"name"`
	Type   string `json:"type"   bson:"type"`
	Cost   string `json:"cost"   bson:"cost"`
	Reach  string `json:"reach"  bson:"reach"`
	Glance string `json:"glance" bson:"glance"`
	Solid  string `json:"solid"  bson:"solid"`
	Crit   string `json:"crit"   bson:"crit"`
}

// HeroFields holds the hero-specific attribute bag.
type HeroFields struct {
	Difficulty string
	Classes    []string
	Attributes map[string]string
	Weapons    []Weapon
	Health     map[string]int
	Gods       []string
}

// CreatureFields holds the monster/summon attribute bag.
type CreatureFields struct {
	CreatureType string
	Attributes   map[string]string
	Weapons      []Weapon
	Health       int
	Bounty       any // int when numeric, raw string otherwise
	Tier         int
}

// DeityFields holds the god/tribe attribute bag.
type DeityFields struct {
	Traits    []string
	Champions []string
	Avatars   []string
}

// PageRecord is one visited page.
type PageRecord struct {
	URL      string
	Title    string
	Category string // document label: god, tribe, hero, monster, summon, *_page, unknown
	ImageURL string
	Text     string

	Hero     *HeroFields
	Creature *CreatureFields
	Deity    *DeityFields

	InnateAbilities  []string
	ActiveAbilities  []string
	CombatManoeuvres []string
}

// AddAbility appends an ability name to the list matching kind.
func (p *PageRecord) AddAbility(kind AbilityKind, name string) {
	switch kind {
	case KindActive:
		p.ActiveAbilities = append(p.ActiveAbilities, name)
	case KindCombatManoeuvre:
		p.CombatManoeuvres = append(p.CombatManoeuvres, name)
	default:
		p.InnateAbilities = append(p.InnateAbilities, name)
	}
}

// Attributes renders the category-specific attribute bag using the sink's field names.
func (p *PageRecord) Attributes() map[string]any {
	out := make(map[string]any)
	switch {
	case p.Hero != nil:
		out["difficulty"] = p.Hero.Difficulty
		out["classes"] = nonNil(p.Hero.Classes)
		out["attributes"] = nonNilMap(p.Hero.Attributes)
		out["weapons"] = nonNilWeapons(p.Hero.Weapons)
		health := p.Hero.Health
		if health == nil {
			health = map[string]int{}
		}
		out["health"] = health
		out["gods"] = nonNil(p.Hero.Gods)
		out["hero_name"] = p.Title
		p.abilityLists(out)
	case p.Creature != nil:
		out["creature_type"] = p.Creature.CreatureType
		out["attributes"] = nonNilMap(p.Creature.Attributes)
		out["weapons"] = nonNilWeapons(p.Creature.Weapons)
		out["health"] = map[string]int{"level_1": p.Creature.Health}
		bounty := p.Creature.Bounty
		if bounty == nil {
			bounty = ""
		}
		out["bounty"] = bounty
		out["tier"] = p.Creature.Tier
		p.abilityLists(out)
	case p.Deity != nil:
		out["divine_attributes"] = nonNil(p.Deity.Traits)
		out["champions"] = nonNil(p.Deity.Champions)
		out["avatars"] = nonNil(p.Deity.Avatars)
	}
	return out
}

func (p *PageRecord) abilityLists(out map[string]any) {
	out["innate_abilities"] = nonNil(p.InnateAbilities)
	out["active_abilities"] = nonNil(p.ActiveAbilities)
	out["combat_manoeuvres"] = nonNil(p.CombatManoeuvres)
}

// EntityRef points from an ability to a page that reveals it.
type EntityRef struct {
	Name     string `json:"name"     bson:"name"`
	URL      string `json:"url"      bson:"url"`
	Category string `json:"category" bson:"category"`
}

// EntityCategoryFor labels the owner of an ability by its page URL.
func EntityCategoryFor(pageURL string) string {
	switch {
	case strings.Contains(pageURL, "/monsters/"):
		return "monster"
	case strings.Contains(pageURL, "/summons/"):
		return "summon"
	default:
		return "hero"
	}
}

// AbilityRecord is one unique ability, shared by every entity that reveals it.
type AbilityRecord struct {
	Title    string
	Text     string
	Kind     AbilityKind
	Cost     string
	Entities []EntityRef
}

// LeafKind identifies a sub-item scanned out of a page.
type LeafKind string

const (
	LeafArtifact   LeafKind = "artefact"
	LeafDefinition LeafKind = "game_definition"
	LeafCondition  LeafKind = "condition"
	LeafFAQ        LeafKind = "faq"
	LeafErratum    LeafKind = "erratum"
)

// LeafRecord is a discrete sub-item (artifact, definition, condition, faq, erratum).
// ID and URL are derived deterministically from the source page and the item name or ordinal.
type LeafRecord struct {
	Kind       LeafKind
	ID         string
	URL        string
	Title      string
	Text       string
	SourcePage string

	ArtifactType     string
	Cost             string
	ArtifactCategory string
	Description      string
	Question         string
	Answer           string
	ItemName         string
	Correction       string
}

// Attributes renders the kind-specific fields using the sink's field names.
func (l *LeafRecord) Attributes() map[string]any {
	out := make(map[string]any)
	switch l.Kind {
	case LeafArtifact:
		out["artifact_type"] = l.ArtifactType
		out["cost"] = l.Cost
		out["artifact_category"] = l.ArtifactCategory
		out["description"] = l.Description
	case LeafDefinition, LeafCondition:
		out["source_page"] = l.SourcePage
	case LeafFAQ:
		out["question"] = l.Question
		out["answer"] = l.Answer
		out["source_page"] = l.SourcePage
	case LeafErratum:
		out["item_name"] = l.ItemName
		out["correction"] = l.Correction
		out["source_page"] = l.SourcePage
	}
	return out
}

// VisitState is a step of the per-URL crawl state machine.
type VisitState string

const (
	StateSeeded           VisitState = "seeded"
	StateListing          VisitState = "listing"
	StateLinkDiscovery    VisitState = "link_discovery"
	StateDirectExtraction VisitState = "direct_extraction"
	StateDetail           VisitState = "detail"
	StateRevealed         VisitState = "revealed"
	StateRecorded         VisitState = "recorded"
	StateSkipped          VisitState = "skipped"
)

// Terminal reports whether no further transition can follow the state.
func (s VisitState) Terminal() bool {
	return s == StateRecorded || s == StateSkipped
}

// Result is the aggregate output of one crawl run. A Result is owned by one session.
type Result struct {
	mu sync.Mutex

	Pages       []*PageRecord
	Abilities   []*AbilityRecord
	Artifacts   []*LeafRecord
	Definitions []*LeafRecord
	Conditions  []*LeafRecord
	FAQs        []*LeafRecord
	Errata      []*LeafRecord

	States  map[string]VisitState
	Visited int
	Skipped int
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{States: make(map[string]VisitState)}
}

// AddPage appends a page record.
func (r *Result) AddPage(p *PageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pages = append(r.Pages, p)
}

// AddLeaves appends leaf records to the slice for their kind.
func (r *Result) AddLeaves(leaves []*LeafRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range leaves {
		switch l.Kind {
		case LeafArtifact:
			r.Artifacts = append(r.Artifacts, l)
		case LeafDefinition:
			r.Definitions = append(r.Definitions, l)
		case LeafCondition:
			r.Conditions = append(r.Conditions, l)
		case LeafFAQ:
			r.FAQs = append(r.FAQs, l)
		case LeafErratum:
			r.Errata = append(r.Errata, l)
		}
	}
}

// Transition records the current state of a URL and maintains the terminal counters.
func (r *Result) Transition(url string, s VisitState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States[url] = s
	switch s {
	case StateRecorded:
		r.Visited++
	case StateSkipped:
		r.Skipped++
	}
}

// State returns the last recorded state for a URL.
func (r *Result) State(url string) (VisitState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.States[url]
	return s, ok
}

// SetAbilities replaces the consolidated ability list.
func (r *Result) SetAbilities(abilities []*AbilityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Abilities = abilities
}

// CategoryCounts tallies pages by document label.
func (r *Result) CategoryCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range r.Pages {
		counts[p.Category]++
	}
	return counts
}

// Totals returns the number of records of each kind.
func (r *Result) Totals() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"pages":       len(r.Pages),
		"abilities":   len(r.Abilities),
		"artifacts":   len(r.Artifacts),
		"definitions": len(r.Definitions),
		"conditions":  len(r.Conditions),
		"faqs":        len(r.FAQs),
		"errata":      len(r.Errata),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilWeapons(w []Weapon) []Weapon {
	if w == nil {
		return []Weapon{}
	}
	return w
}
