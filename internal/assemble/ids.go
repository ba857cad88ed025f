package assemble

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// HashID returns the hex sha256 of s.
func HashID(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// PageID identifies a page document by its URL.
func PageID(pageURL string) string {
	return HashID(pageURL)
}

// ItemID identifies a named sub-item of a page.
func ItemID(pageURL, name string) string {
	return HashID(pageURL + "#" + name)
}

// OrdinalID identifies the i-th unnamed sub-item of a page.
func OrdinalID(pageURL string, i int) string {
	return HashID(pageURL + "#faq-" + strconv.Itoa(i))
}

// AbilityID identifies a consolidated ability by its title.
func AbilityID(title string) string {
	return HashID(title)
}

// Slug lowercases name and replaces spaces with dashes.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// AbilityURL is the pseudo URL of a consolidated ability.
func AbilityURL(title string) string {
	slug := strings.NewReplacer("(", "", ")", "").Replace(Slug(title))
	return "#ability-" + slug
}
