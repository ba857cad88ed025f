package reveal

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/automation/automationtest"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/consolidate"
	"github.com/IshaanNene/hallcrawl/internal/extract"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

const origin = "https://www.hallofeternalchampions.com"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRevealer(t *testing.T) *Revealer {
	t.Helper()
	u, err := url.Parse(origin)
	require.NoError(t, err)
	opts := OptionsFrom(config.DefaultConfig().Reveal)
	return New(opts, extract.New(u, testLogger()), nil, testLogger())
}

func brokRef() types.EntityRef {
	return types.EntityRef{Name: "Brok", URL: origin + "/heroes/brok", Category: "hero"}
}

const heroMarkup = `<html><body><main>
<h1>Brok</h1>
<div><h2>Active Abilities</h2><button type="button">Cleave (2AP)</button></div>
<div><h2>Other</h2><button type="button">Stubborn</button></div>
<button type="button">Description</button>
</main></body></html>`

func TestRevealHeroPage(t *testing.T) {
	page := automationtest.NewPage(heroMarkup)
	site := page.Site()
	site.Overlays["Cleave (2AP)"] = `<div role="dialog"><h2>Cleave</h2><p>Deal damage twice.</p></div>`
	site.Overlays["Stubborn"] = `<div class="modal-content">Stubborn<br>Cost: 1F</div>`
	site.Replacements["Description"] = `<html><body><main><p>Brok is a dwarf.</p></main></body></html>`

	store := consolidate.NewStore()
	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), store)
	require.NoError(t, err)

	assert.Equal(t, []string{"Stubborn", "Cleave (2AP)", "Description"}, page.Clicks(),
		"controls run bottom to top with the description last")
	assert.Equal(t, []automation.Key{automation.KeyEscape, automation.KeyEscape}, page.Keys())

	want := []Ability{
		{Title: "Stubborn", Text: "Stubborn\nCost: 1F", Kind: types.KindInnate, Cost: "1F"},
		{Title: "Cleave (2AP)", Text: "Cleave\nDeal damage twice.", Kind: types.KindActive, Cost: "2AP"},
	}
	if diff := cmp.Diff(want, report.Abilities); diff != "" {
		t.Errorf("abilities mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{
		"\n--- Stubborn ---\nStubborn\nCost: 1F",
		"\n--- Cleave (2AP) ---\nCleave\nDeal damage twice.",
		"\n--- Description ---\nBrok is a dwarf.",
	}, report.Fragments)

	revealed, skipped := report.Counts()
	assert.Equal(t, 3, revealed)
	assert.Zero(t, skipped)

	abilities := store.Abilities()
	require.Len(t, abilities, 2)
	assert.Equal(t, "Stubborn", abilities[0].Title)
	assert.Equal(t, []types.EntityRef{brokRef()}, abilities[1].Entities)

	assert.Equal(t, 2*(500+200)*time.Millisecond+time.Second, page.Waited())
}

func TestReverseOrder(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main>
<button type="button">C1</button><button type="button">C2</button><button type="button">C3</button>
</main></body></html>`)
	for _, label := range []string{"C1", "C2", "C3"} {
		page.Site().Overlays[label] = `<div role="dialog">` + label + `</div>`
	}

	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "C2", "C1"}, page.Clicks())
	for _, a := range report.Abilities {
		assert.Equal(t, types.KindInnate, a.Kind, "unmapped %s must default to innate", a.Title)
	}
}

func TestSkippedControls(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main>
<button type="button">Alpha</button>
<button type="button" data-hidden>Hidden</button>
<button type="button" disabled>Off</button>
<button type="button" data-stale>Gone</button>
<button type="button">   </button>
<button type="button">Nothing</button>
</main></body></html>`)
	page.Site().Overlays["Alpha"] = `<div role="dialog">Alpha text</div>`

	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), nil)
	require.NoError(t, err)

	var reasons []string
	for _, o := range report.Outcomes {
		reasons = append(reasons, o.Reason)
	}
	assert.Equal(t, []string{
		ReasonNoOverlay,
		ReasonEmptyLabel,
		ReasonStale,
		ReasonDisabled,
		ReasonHidden,
		"",
	}, reasons)

	assert.ErrorIs(t, report.Outcomes[0].Err, types.ErrNoOverlay)
	assert.ErrorIs(t, report.Outcomes[2].Err, automationtest.ErrStale)
	assert.ErrorIs(t, report.Outcomes[4].Err, types.ErrControlHidden)

	require.Len(t, report.Abilities, 1)
	assert.Equal(t, "Alpha", report.Abilities[0].Title)
	assert.Equal(t, []string{"Nothing", "Alpha"}, page.Clicks())
	assert.Len(t, page.Keys(), 2, "a missing overlay is still dismissed")
}

func TestDismissFallsBackToCloseControl(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main><button type="button">Pinned</button></main></body></html>`)
	site := page.Site()
	site.Overlays["Pinned"] = `<div role="dialog"><p>Pinned text</p><button type="button" aria-label="Close" data-close>Close</button></div>`
	site.Sticky["Pinned"] = true

	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Pinned", "Close"}, page.Clicks())
	assert.False(t, page.OverlayOpen())
	require.Len(t, report.Abilities, 1)
	assert.Equal(t, "Pinned text\nClose", report.Abilities[0].Text)
}

func TestRevealCanceled(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main><button type="button">A</button><button type="button">B</button></main></body></html>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRevealer(t).Reveal(ctx, page, brokRef(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Clicks())
	for _, o := range report.Outcomes {
		assert.Equal(t, ReasonCanceled, o.Reason)
	}
}

func TestDescriptionRunsLastOnce(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main>
<button type="button" data-hidden>Description</button>
<div><h2>Active Abilities</h2><button type="button">Cleave (2AP)</button></div>
<button type="button">Show Description</button>
<button type="button">Full Description</button>
</main></body></html>`)
	site := page.Site()
	site.Overlays["Cleave (2AP)"] = `<div role="dialog">Deal damage twice.</div>`
	site.Replacements["Show Description"] = `<html><body><main><p>Brok is a dwarf.</p></main></body></html>`

	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Cleave (2AP)", "Show Description"}, page.Clicks(),
		"abilities run before the single visible description control")
	require.NotEmpty(t, report.Fragments)
	assert.Equal(t, "\n--- Description ---\nBrok is a dwarf.", report.Fragments[len(report.Fragments)-1])

	byLabel := map[string]Outcome{}
	for _, o := range report.Outcomes {
		byLabel[o.Label] = o
	}
	assert.Equal(t, ReasonHidden, byLabel["Description"].Reason)
	assert.ErrorIs(t, byLabel["Description"].Err, types.ErrControlHidden)
	assert.Equal(t, ReasonDuplicate, byLabel["Full Description"].Reason)
	assert.Equal(t, StatusRevealed, byLabel["Show Description"].Status)
	assert.Equal(t, StatusRevealed, byLabel["Cleave (2AP)"].Status)
}

func TestLabelWhitespaceCollapsed(t *testing.T) {
	page := automationtest.NewPage("<html><body><main>\n" +
		"<div><h2>Active Abilities</h2><button type=\"button\">Cleave\n      (2AP)</button></div>\n" +
		"</main></body></html>")
	page.Site().Overlays["Cleave (2AP)"] = `<div role="dialog">Deal damage twice.</div>`

	store := consolidate.NewStore()
	report, err := newRevealer(t).Reveal(context.Background(), page, brokRef(), store)
	require.NoError(t, err)

	require.Len(t, report.Abilities, 1)
	a := report.Abilities[0]
	assert.Equal(t, "Cleave (2AP)", a.Title)
	assert.Equal(t, types.KindActive, a.Kind)
	assert.Equal(t, "2AP", a.Cost)
	assert.Equal(t, "\n--- Cleave (2AP) ---\nDeal damage twice.", report.Fragments[0])

	abilities := store.Abilities()
	require.Len(t, abilities, 1)
	assert.Equal(t, "Cleave (2AP)", abilities[0].Title)
}

func TestDismissStopsWhenCanceled(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main><button type="button">Pinned</button></main></body></html>`)
	site := page.Site()
	site.Overlays["Pinned"] = `<div role="dialog"><p>Pinned text</p><button type="button" aria-label="Close" data-close>Close</button></div>`
	site.Sticky["Pinned"] = true

	controls, err := page.Controls(`button[type="button"]`)
	require.NoError(t, err)
	require.NoError(t, controls[0].Click())
	require.True(t, page.OverlayOpen())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newRevealer(t).dismiss(ctx, page)

	assert.Equal(t, []string{"Pinned"}, page.Clicks(), "no close control is clicked after cancellation")
	assert.Equal(t, []automation.Key{automation.KeyEscape}, page.Keys())
	assert.True(t, page.OverlayOpen())
}

func TestBuildKindMap(t *testing.T) {
	doc := parser.MustParse(`<main>
<h2>Innate Abilities</h2><button type="button">A</button>
<h2>Active Abilities</h2><button type="button">B</button>
<h2>Combat Manoeuvres</h2><button type="button">C</button>
<button type="button">Description</button>
<section><h2>Active</h2><button type="button">X</button></section>
<div><button type="button">Y</button></div>
</main>`)

	kinds := BuildKindMap(doc, `button[type="button"]`)

	assert.Equal(t, types.KindInnate, kinds.Kind("A"))
	assert.Equal(t, types.KindActive, kinds.Kind("B"))
	assert.Equal(t, types.KindCombatManoeuvre, kinds.Kind("C"))
	assert.Equal(t, types.KindActive, kinds.Kind("X"))
	assert.NotContains(t, kinds, "Description")
	assert.Equal(t, types.KindCombatManoeuvre, kinds.Kind("Y"),
		"Y follows the flat combat heading inside main")
	assert.Equal(t, types.KindInnate, kinds.Kind("unknown"))
}

func TestAbilityCost(t *testing.T) {
	assert.Equal(t, "3 Fate", abilityCost("Title\nCost: 3 Fate\nBody", "Title (1AP)"))
	assert.Equal(t, "1AP", abilityCost("Title\nBody", "Title (1AP)"))
	assert.Equal(t, "2S", abilityCost("", "Parry (2S)"))
	assert.Empty(t, abilityCost("Body", "Plain"))
}

func TestReportApply(t *testing.T) {
	rec := &types.PageRecord{Text: "Base"}
	report := &Report{
		Abilities: []Ability{
			{Title: "A", Kind: types.KindActive},
			{Title: "B", Kind: types.KindInnate},
			{Title: "C", Kind: types.KindCombatManoeuvre},
		},
		Fragments: []string{"\n--- A ---\nx", "\n--- B ---\ny"},
	}
	report.Apply(rec)

	assert.Equal(t, []string{"A"}, rec.ActiveAbilities)
	assert.Equal(t, []string{"B"}, rec.InnateAbilities)
	assert.Equal(t, []string{"C"}, rec.CombatManoeuvres)
	assert.Equal(t, "Base\n\n\n--- A ---\nx\n\n--- B ---\ny", rec.Text)
}

func TestArtifacts(t *testing.T) {
	page := automationtest.NewPage(`<html><body><main>
<button type="button">All Categories</button>
<button type="button">Crown of Ash</button>
<button type="button">Mystery</button>
<button type="button">Close</button>
</main></body></html>`)
	page.Site().Overlays["Crown of Ash"] = `<div role="dialog"><h2>Crown of Ash</h2><p>Type: Relic | Cost: 3 | Category: Headgear</p><p>Grants fire resistance.</p></div>`

	listing := origin + "/artefacts"
	leaves, report, err := newRevealer(t).Artifacts(context.Background(), page, listing)
	require.NoError(t, err)

	require.Len(t, leaves, 1)
	assert.Equal(t, "Crown of Ash", leaves[0].Title)
	assert.Equal(t, "Relic", leaves[0].ArtifactType)
	assert.Equal(t, listing+"#crown-of-ash", leaves[0].URL)

	assert.Equal(t, []string{"Crown of Ash", "Mystery"}, page.Clicks(), "cards run in document order")
	assert.Len(t, page.Keys(), 2)

	revealed, skipped := report.Counts()
	assert.Equal(t, 1, revealed)
	assert.Equal(t, 3, skipped)
}
