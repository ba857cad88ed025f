package types

// Category is the content category a URL belongs to.
// It is assigned once when a URL is classified and never changes afterwards.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryDeity
	CategoryHero
	CategoryMonster
	CategorySummon
	CategoryArtifacts
	CategoryDefinitions
	CategoryConditions
	CategoryFAQs
	CategoryErrata
)

// Categories lists every known category in classification order.
var Categories = []Category{
	CategoryDeity,
	CategoryHero,
	CategoryMonster,
	CategorySummon,
	CategoryArtifacts,
	CategoryDefinitions,
	CategoryConditions,
	CategoryFAQs,
	CategoryErrata,
}

// String returns the site slug for the category.
func (c Category) String() string {
	switch c {
	case CategoryDeity:
		return "gods"
	case CategoryHero:
		return "heroes"
	case CategoryMonster:
		return "monsters"
	case CategorySummon:
		return "summons"
	case CategoryArtifacts:
		return "artefacts"
	case CategoryDefinitions:
		return "gamedefinitions"
	case CategoryConditions:
		return "conditions"
	case CategoryFAQs:
		return "faqs"
	case CategoryErrata:
		return "errata"
	default:
		return "unknown"
	}
}

// ParseCategory maps a site slug back to its Category.
func ParseCategory(slug string) Category {
	for _, c := range Categories {
		if c.String() == slug {
			return c
		}
	}
	return CategoryUnknown
}

// Interactive reports whether detail pages of this category hide abilities behind controls.
func (c Category) Interactive() bool {
	switch c {
	case CategoryHero, CategoryMonster, CategorySummon:
		return true
	default:
		return false
	}
}

// ExtractsListing reports whether the listing page itself yields records in addition to links.
func (c Category) ExtractsListing() bool {
	switch c {
	case CategoryDefinitions, CategoryConditions, CategoryFAQs, CategoryErrata:
		return true
	default:
		return false
	}
}
