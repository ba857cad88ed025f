package extract

import (
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/hallcrawl/internal/assemble"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

const origin = "https://www.hallofeternalchampions.com"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	u, err := url.Parse(origin)
	require.NoError(t, err)
	return New(u, testLogger())
}

const heroPage = `<html><head><title>Allandir | Hall</title></head><body>
<main>
  <img src="/img/allandir.png">
  <h1>Allandir</h1>
  <div><span>Difficulty</span><span>Medium</span></div>
  <div>
    <h2>Classes</h2>
    <div class="badge border-transparent">Warrior</div>
    <div class="badge border-transparent">Guardian</div>
  </div>
  <div>
    <h2>Attributes</h2>
    <table>
      <thead><tr><th>Speed</th><th>Might</th><th>Defense</th></tr></thead>
      <tbody><tr><td>3</td><td>-</td><td><svg></svg></td></tr></tbody>
    </table>
  </div>
  <div>
    <h2>Weapons</h2>
    <table>
      <thead><tr><th>Name</th><th>Type</th><th>Cost</th><th>Reach</th><th>Glance</th><th>Solid</th><th>Crit</th></tr></thead>
      <tbody>
        <tr><td>Sword</td><td>Melee</td><td>2</td><td>1</td><td>1</td><td>2</td><td>3</td></tr>
        <tr><td>Broken</td><td>Melee</td></tr>
      </tbody>
    </table>
  </div>
  <div>
    <h2>Health</h2>
    <div class="grid grid-cols-2">
      <div><div class="text-muted-foreground">Level 1</div><div class="font-bold">10</div></div>
      <div><div class="text-muted-foreground">Level 2</div><div class="font-bold">14</div></div>
      <div><div class="text-muted-foreground">Level 3</div><div class="font-bold">?</div></div>
    </div>
  </div>
  <a href="/gods/solarius">Solarius</a>
  <a href="/gods/solarius">Solarius</a>
  <script>var hidden = "nope";</script>
</main>
</body></html>`

func TestHeroPage(t *testing.T) {
	e := newExtractor(t)
	pageURL := origin + "/heroes/allandir"

	rec, leaves := e.Page(types.CategoryHero, pageURL, parser.MustParse(heroPage))
	require.NotNil(t, rec.Hero)
	assert.Empty(t, leaves)

	assert.Equal(t, "hero", rec.Category)
	assert.Equal(t, "Allandir", rec.Title)
	assert.Equal(t, origin+"/img/allandir.png", rec.ImageURL)
	assert.NotContains(t, rec.Text, "nope")
	assert.Contains(t, rec.Text, "Allandir\n\nDifficulty")

	h := rec.Hero
	assert.Equal(t, "Medium", h.Difficulty)
	assert.Equal(t, []string{"Warrior", "Guardian"}, h.Classes)
	assert.Equal(t, map[string]string{"Speed": "3", "Defense": "-"}, h.Attributes)
	assert.Equal(t, []types.Weapon{{
		Name: "Sword", Type: "Melee", Cost: "2", Reach: "1", Glance: "1", Solid: "2", Crit: "3",
	}}, h.Weapons)
	assert.Equal(t, map[string]int{"level_1": 10, "level_2": 14}, h.Health)
	assert.Equal(t, []string{"Solarius"}, h.Gods)

	attrs := rec.Attributes()
	assert.Equal(t, "Allandir", attrs["hero_name"])
	assert.Equal(t, []string{}, attrs["innate_abilities"])
}

const monsterPage = `<html><body><main>
  <h1>Grave Hound</h1>
  <p>Beast</p>
  <div>
    <h2>Attributes</h2>
    <table>
      <thead><tr><th>Speed</th><th>Armour</th></tr></thead>
      <tbody><tr><td>4</td><td><svg></svg></td></tr></tbody>
    </table>
  </div>
  <div>
    <h2>Health &amp; Bounty</h2>
    <div>Health: <b>12</b></div>
    <div>Bounty: Special</div>
    <div>Tier: 2</div>
  </div>
</main></body></html>`

func TestCreaturePage(t *testing.T) {
	e := newExtractor(t)
	rec, _ := e.Page(types.CategoryMonster, origin+"/monsters/grave-hound", parser.MustParse(monsterPage))
	require.NotNil(t, rec.Creature)

	c := rec.Creature
	assert.Equal(t, "monster", rec.Category)
	assert.Equal(t, "Beast", c.CreatureType)
	assert.Equal(t, map[string]string{"Speed": "4", "Armour": "0"}, c.Attributes)
	assert.Equal(t, 12, c.Health)
	assert.Equal(t, "Special", c.Bounty)
	assert.Equal(t, 2, c.Tier)
	assert.Equal(t, map[string]int{"level_1": 12}, rec.Attributes()["health"])
}

func TestCreatureTypeSkipsSectionHeading(t *testing.T) {
	e := newExtractor(t)
	doc := parser.MustParse(`<main><h1>Wisp</h1><h2>Attributes</h2></main>`)
	rec, _ := e.Page(types.CategorySummon, origin+"/summons/wisp", doc)

	assert.Equal(t, "summon", rec.Category)
	assert.Empty(t, rec.Creature.CreatureType)
	assert.Equal(t, "", rec.Attributes()["bounty"])
}

const godPage = `<html><body><main>
  <h1>Solarius</h1>
  <div class="bg-secondary">Light</div>
  <div class="bg-secondary">Sun Fire</div>
  <div class="bg-secondary">Three Word Trait</div>
  <div class="bg-secondary">Level 2</div>
  <div class="bg-secondary">Description</div>
  <div class="bg-secondary">Light</div>
  <div class="bg-secondary">Order</div>
  <div class="bg-secondary">Dawn</div>
  <div class="bg-secondary">Valour</div>
  <div class="bg-secondary">Mercy</div>
  <h3>Avatars</h3>
  <div><a href="/heroes/allandir"><h3>Allandir</h3></a><a href="/heroes/allandir"><h3>Allandir</h3></a></div>
  <h3>Champions</h3>
  <div><a href="/heroes/brok"><h3>Brok</h3></a><a href="/monsters/x"><h3>Not a hero</h3></a></div>
</main></body></html>`

func TestDeityPage(t *testing.T) {
	e := newExtractor(t)
	rec, _ := e.Page(types.CategoryDeity, origin+"/gods/solarius", parser.MustParse(godPage))
	require.NotNil(t, rec.Deity)

	assert.Equal(t, "god", rec.Category)
	assert.Equal(t, []string{"Light", "Sun Fire", "Order", "Dawn", "Valour"}, rec.Deity.Traits)
	assert.Equal(t, []string{"Allandir"}, rec.Deity.Avatars)
	assert.Equal(t, []string{"Brok"}, rec.Deity.Champions)

	tribe, _ := e.Page(types.CategoryDeity, origin+"/tribes/wolfkin", parser.MustParse(godPage))
	assert.Equal(t, "tribe", tribe.Category)
}

func TestMissingStructureDegrades(t *testing.T) {
	e := newExtractor(t)
	doc := parser.MustParse(`<html><head><meta property="og:title" content="Fallback"><meta property="og:image" content="/og.png"></head><body><p>x</p></body></html>`)

	rec, _ := e.Page(types.CategoryHero, origin+"/heroes/empty", doc)
	assert.Equal(t, "Fallback", rec.Title)
	assert.Equal(t, origin+"/og.png", rec.ImageURL)
	assert.Empty(t, rec.Text)
	assert.Empty(t, rec.Hero.Difficulty)
	assert.Empty(t, rec.Hero.Weapons)
	assert.Empty(t, rec.Hero.Health)
}

func TestDefinitionLeaves(t *testing.T) {
	e := newExtractor(t)
	pageURL := origin + "/gamedefinitions"
	doc := parser.MustParse(`<main>
  <div class="card"><h3>Reach</h3><p>Distance a weapon can strike.</p></div>
  <div class="card"><h3>Reach</h3><p>Duplicate card.</p></div>
  <div class="definition"><strong>Glance</strong> <span>A weak hit.</span></div>
  <div class="card"><p>No name here</p></div>
</main>`)

	rec, leaves := e.Page(types.CategoryDefinitions, pageURL, doc)
	assert.Equal(t, "game_definitions_page", rec.Category)
	require.Len(t, leaves, 2)

	assert.Equal(t, types.LeafDefinition, leaves[0].Kind)
	assert.Equal(t, "Reach", leaves[0].Title)
	assert.Equal(t, "Reach Distance a weapon can strike.", leaves[0].Text)
	assert.Equal(t, assemble.ItemID(pageURL, "Reach"), leaves[0].ID)
	assert.Equal(t, pageURL+"#reach", leaves[0].URL)
	assert.Equal(t, "Glance A weak hit.", leaves[1].Text)
}

func TestConditionLeaves(t *testing.T) {
	e := newExtractor(t)
	pageURL := origin + "/pages/conditions"
	doc := parser.MustParse(`<main>
  <h2>Conditions</h2><p>Intro.</p>
  <h2>General Rules</h2><p>Rules.</p>
  <h3>Burning</h3><p>Take 1 damage.</p><p></p><p>Ends on water.</p>
  <h3>Stunned</h3><p>Lose an action.</p>
</main>`)

	_, leaves := e.Page(types.CategoryConditions, pageURL, doc)
	got := make(map[string]string)
	for _, l := range leaves {
		got[l.Title] = l.Text
	}
	want := map[string]string{
		"Burning": "Take 1 damage. Ends on water.",
		"Stunned": "Lose an action.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("conditions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, pageURL, leaves[0].SourcePage)
}

func TestFAQLeaves(t *testing.T) {
	e := newExtractor(t)
	pageURL := origin + "/faqs"
	doc := parser.MustParse(`<main>
  <div class="faq-question">Can I move twice?</div><p>Yes, by spending AP.</p>
  <div class="question"></div><p>orphan</p>
  <div class="question">Do glances stack?</div><p>No.</p>
</main>`)

	_, leaves := e.Page(types.CategoryFAQs, pageURL, doc)
	require.Len(t, leaves, 2)

	assert.Equal(t, "Can I move twice?", leaves[0].Question)
	assert.Equal(t, "Yes, by spending AP.", leaves[0].Answer)
	assert.Equal(t, "Can I move twice?\n\nYes, by spending AP.", leaves[0].Text)
	assert.Equal(t, assemble.OrdinalID(pageURL, 0), leaves[0].ID)

	// the empty question still consumes its ordinal
	assert.Equal(t, pageURL+"#faq-2", leaves[1].URL)
	assert.Equal(t, assemble.OrdinalID(pageURL, 2), leaves[1].ID)
}

func TestErrataLeaves(t *testing.T) {
	e := newExtractor(t)
	pageURL := origin + "/errata"
	doc := parser.MustParse(`<main>
  <h2>Errata</h2><p>Updated often.</p>
  <h2>Errata: Brok</h2><p>Health is 12,</p><p>not 10.</p>
</main>`)

	rec, leaves := e.Page(types.CategoryErrata, pageURL, doc)
	assert.Equal(t, "errata_page", rec.Category)
	require.Len(t, leaves, 1)

	l := leaves[0]
	assert.Equal(t, "Errata: Brok", l.Title)
	assert.Equal(t, "Brok", l.ItemName)
	assert.Equal(t, "Health is 12, not 10.", l.Correction)
	assert.Equal(t, pageURL+"#brok", l.URL)
	assert.Equal(t, map[string]any{
		"item_name":   "Brok",
		"correction":  "Health is 12, not 10.",
		"source_page": pageURL,
	}, l.Attributes())
}

func TestArtifactOverlay(t *testing.T) {
	e := newExtractor(t)
	listing := origin + "/artefacts"
	doc := parser.MustParse(`<div role="dialog">
  <h2>Crown of Ash</h2>
  <p>Type: Relic | Cost: 3 | Category: Headgear</p>
  <p>Grants fire resistance.</p>
  <p>Stacks with nothing.</p>
  <button>Close</button>
</div>`)

	l := e.Artifact(listing, 0, doc.First(`[role="dialog"]`))
	assert.Equal(t, types.LeafArtifact, l.Kind)
	assert.Equal(t, "Crown of Ash", l.Title)
	assert.Equal(t, "Relic", l.ArtifactType)
	assert.Equal(t, "3", l.Cost)
	assert.Equal(t, "Headgear", l.ArtifactCategory)
	assert.Equal(t, "Grants fire resistance. Stacks with nothing.", l.Description)
	assert.Equal(t, listing+"#crown-of-ash", l.URL)
	assert.Equal(t, assemble.ItemID(listing, "Crown of Ash"), l.ID)
}

func TestArtifactOverlayWithoutHeading(t *testing.T) {
	e := newExtractor(t)
	doc := parser.MustParse(`<div class="modal"><p>Just text</p></div>`)

	l := e.Artifact(origin+"/artefacts", 4, doc.First(".modal"))
	assert.Equal(t, "Artifact 5", l.Title)
	assert.Empty(t, l.ArtifactType)
	assert.Empty(t, l.Description)
}
