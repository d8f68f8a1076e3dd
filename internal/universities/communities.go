package universities

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OpenToAll is the community every user can see.
const OpenToAll = "Open to all"

// legacyDomains are recognized without an AI lookup.
var legacyDomains = map[string]string{
	"pomona.edu":         "Pomona College",
	"hmc.edu":            "Harvey Mudd College",
	"scrippscollege.edu": "Scripps College",
	"pitzer.edu":         "Pitzer College",
	"cmc.edu":            "Claremont McKenna College",
	"andrew.cmu.edu":     "Carnegie Mellon University",
}

var (
	claremont  = []string{"Pomona", "Harvey Mudd", "Scripps", "Pitzer", "CMC", "5C"}
	pittsburgh = []string{"CMU", "University of Pittsburgh", "Duquesne University", "Pittsburgh area"}

	legacyCommunities = map[string][]string{
		"Pomona College":             claremont,
		"Harvey Mudd College":        claremont,
		"Scripps College":            claremont,
		"Pitzer College":             claremont,
		"Claremont McKenna College":  claremont,
		"Carnegie Mellon University": pittsburgh,
	}
)

// alias maps a lowercase spelling to its canonical community. An empty
// canonical name drops the community.
type alias struct {
	key, name string
}

// Order matters: partial matching walks this list front to back.
var aliases = []alias{
	{"pomona", "Pomona"},
	{"pomona college", "Pomona"},
	{"pomona college california", "Pomona"},
	{"harvey mudd", "Harvey Mudd"},
	{"harvey mudd college", "Harvey Mudd"},
	{"hmc", "Harvey Mudd"},
	{"scripps", "Scripps"},
	{"scripps college", "Scripps"},
	{"pitzer", "Pitzer"},
	{"pitzer college", "Pitzer"},
	{"cmc", "CMC"},
	{"claremont mckenna", "CMC"},
	{"claremont mckenna college", "CMC"},
	{"claremont colleges", "5C"},
	{"5c", "5C"},
	{"five colleges", "5C"},
	{"claremont consortium", "5C"},

	{"usc", "USC"},
	{"university of southern california", "USC"},
	{"ucla", "UCLA"},
	{"university of california los angeles", "UCLA"},
	{"cal tech", "Caltech"},
	{"california institute of technology", "Caltech"},
	{"caltech", "Caltech"},

	{"open to all", OpenToAll},
	{"unknown", ""},
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// LegacyCollege returns the college name for a hardcoded domain.
func LegacyCollege(domain string) (string, bool) {
	c, ok := legacyDomains[strings.ToLower(domain)]
	return c, ok
}

// LegacyCommunities returns the fixed community list for a known college,
// or just OpenToAll.
func LegacyCommunities(college string) []string {
	if c, ok := legacyCommunities[college]; ok {
		out := make([]string, len(c))
		copy(out, c)
		return out
	}
	return []string{OpenToAll}
}

// Normalize maps a community spelling to its canonical name: exact alias,
// then the first alias that contains or is contained by it, then title case.
// ok is false for empty input and for names that are filtered out.
func Normalize(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	for _, a := range aliases {
		if a.key == key {
			return a.name, a.name != ""
		}
	}
	for _, a := range aliases {
		if strings.Contains(key, a.key) || strings.Contains(a.key, key) {
			return a.name, a.name != ""
		}
	}
	return titleCaser.String(strings.TrimSpace(name)), true
}

// NormalizeAll normalizes names, dropping filtered ones and duplicates while
// keeping first-seen order.
func NormalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		c, ok := Normalize(n)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
