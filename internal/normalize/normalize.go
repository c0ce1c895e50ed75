// package normalize strips recording-variant metadata from track titles and builds catalog search queries.
//
// Normalization is an ordered list of [Rule] values. Later rules assume earlier ones already removed
// balanced metadata parentheses, so the order in [Rules] is significant.
package normalize

import (
	"regexp"
	"strings"

	"github.com/desertthunder/setlistx/internal/shared"
)

// MaxQueryPart caps the track and artist halves of a search query independently.
const MaxQueryPart = 200

// variant matches the metadata keywords that mark a recording variant rather than part of the title.
const variant = `(?:\d{4}\s+)?(?:live|acoustic|remaster(?:ed)?|radio edit|bonus track)`

// suffixVariant is the keyword set accepted after a trailing dash.
const suffixVariant = `(?:\d{4}\s+)?(?:live version|live|remaster(?:ed)?|radio edit|bonus track|acoustic)`

// Rule is one find/replace pass.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Apply runs the rule once over s.
func (r Rule) Apply(s string) string {
	return r.Pattern.ReplaceAllString(s, r.Replace)
}

var rules = []Rule{
	{
		Name:    "parenthetical",
		Pattern: regexp.MustCompile(`(?i)\s*\(\s*(?:` + variant + `\b|(?:feat|ft)\b)[^()]*\)`),
		Replace: " ",
	},
	{
		Name:    "unclosed parenthetical",
		Pattern: regexp.MustCompile(`(?i)\s*\(\s*` + variant + `\b[^()]*$`),
		Replace: "",
	},
	{
		Name:    "featuring with variant",
		Pattern: regexp.MustCompile(`(?i)\s*\b(?:feat|ft)\b\.?[^()]*?\s*[-–—]\s*(` + suffixVariant + `)\s*$`),
		Replace: " $1",
	},
	{
		Name:    "featuring",
		Pattern: regexp.MustCompile(`(?i)\s*\b(?:feat|ft)\b\.?.*$`),
		Replace: "",
	},
	{
		Name:    "variant suffix",
		Pattern: regexp.MustCompile(`(?i)\s*[-–—]\s*` + suffixVariant + `\s*$`),
		Replace: "",
	},
	{
		Name:    "separators",
		Pattern: regexp.MustCompile(`[\s\-–—]+`),
		Replace: " ",
	},
}

// Rules returns the ordered normalization passes.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func pass(s string) string {
	for _, r := range rules {
		s = r.Apply(s)
	}
	return strings.TrimSpace(s)
}

// Track removes variant metadata from a track title.
//
// Passes repeat until the title stops changing, which makes Track idempotent. Every pass either
// shortens the string or replaces dashes and non-space whitespace with spaces, so the loop ends.
func Track(name string) string {
	s := strings.TrimSpace(name)
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

// Query composes a catalog search term from a track title and optional artist.
func Query(track, artist string) string {
	parts := make([]string, 0, 2)
	if t := shared.TruncateRunes(Track(track), MaxQueryPart); t != "" {
		parts = append(parts, t)
	}
	if a := shared.TruncateRunes(strings.TrimSpace(artist), MaxQueryPart); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
