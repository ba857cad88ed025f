package reveal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// KindMap maps a control label to the ability kind of the section it sits in.
type KindMap map[string]types.AbilityKind

// Kind returns the mapped kind for label, or innate when it is unmapped.
func (m KindMap) Kind(label string) types.AbilityKind {
	if k, ok := m[label]; ok {
		return k
	}
	return types.KindInnate
}

type kindSection struct {
	container *goquery.Selection
	kind      types.AbilityKind
}

// BuildKindMap walks the h2 headings and controls of doc in document order.
// Each control takes the kind of the nearest preceding kind heading whose
// container holds it. Description controls are never mapped. When a label
// appears in several sections the last one wins.
func BuildKindMap(doc *parser.Document, controlSelector string) KindMap {
	kinds := make(KindMap)
	var sections []kindSection

	doc.Find("h2, "+controlSelector).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "h2" {
			if kind, ok := headingKind(parser.Text(s)); ok {
				sections = append(sections, kindSection{container: parser.ContainerOf(s), kind: kind})
			}
			return
		}

		label := parser.Text(s)
		if label == "" || isDescription(label) {
			return
		}
		for j := len(sections) - 1; j >= 0; j-- {
			if sections[j].container.Contains(s.Get(0)) {
				kinds[label] = sections[j].kind
				return
			}
		}
	})
	return kinds
}

func headingKind(heading string) (types.AbilityKind, bool) {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "innate"):
		return types.KindInnate, true
	case strings.Contains(h, "active"):
		return types.KindActive, true
	case strings.Contains(h, "combat"), strings.Contains(h, "manoeuvre"), strings.Contains(h, "maneuver"):
		return types.KindCombatManoeuvre, true
	}
	return "", false
}
