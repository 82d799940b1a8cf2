package metrics

import "regexp"

// Lexicon is a versioned set of filler and hedge phrases. Matching is
// case-insensitive on word boundaries, so "so" matches but "sofa" does not.
// Entries may be multi-word ("you know", "i think").
type Lexicon struct {
	Version string
	Fillers []string
	Hedges  []string

	fillerPatterns []*regexp.Regexp
	hedgePatterns  []*regexp.Regexp
}

func NewLexicon(version string, fillers, hedges []string) Lexicon {
	return Lexicon{
		Version:        version,
		Fillers:        fillers,
		Hedges:         hedges,
		fillerPatterns: compilePhrases(fillers),
		hedgePatterns:  compilePhrases(hedges),
	}
}

func compilePhrases(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(p)+`\b`))
	}
	return out
}

// DefaultLexicon is the lexicon used for scoring. Changing its contents is a
// scoring-schema change; bump the version string alongside any edit.
var DefaultLexicon = NewLexicon("2025-06",
	[]string{
		"um", "uh", "like", "you know", "basically",
		"actually", "literally", "right", "so", "well",
	},
	[]string{
		"maybe", "perhaps", "i think", "i guess", "kind of",
		"sort of", "probably", "might", "could be",
	},
)
