package constants

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mozillazg/go-unidecode"
	"github.com/xrash/smetrics"
)

// Fuzzy-match weights. Jaro-Winkler dominates because it favors shared
// prefixes, which suits misspelled state names ("Calfornia", "Massachusets").
const (
	jwWeight    = 0.7
	levWeight   = 0.3
	jwFloor     = 0.88
	maxLevEdits = 2
)

// MatchStateName resolves a possibly misspelled or accented state name to its
// 2-letter code. Exact (case/diacritic-insensitive) matches win; otherwise the
// best fuzzy candidate within the edit bound is returned. The second return
// value is false when nothing matches confidently.
func MatchStateName(name string) (string, bool) {
	folded := foldName(name)
	if folded == "" {
		return "", false
	}

	upper := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := AllStateCodes[upper]; ok {
		return upper, true
	}

	bestCode := ""
	bestScore := 0.0
	for code, full := range AllStateCodes {
		candidate := foldName(full)
		if candidate == folded {
			return code, true
		}

		edits := levenshtein.ComputeDistance(folded, candidate)
		if edits > maxLevEdits {
			continue
		}
		jw := smetrics.JaroWinkler(folded, candidate, 0.7, 4)
		if jw < jwFloor {
			continue
		}
		levScore := 1.0 - float64(edits)/float64(max(len(folded), len(candidate)))
		score := jwWeight*jw + levWeight*levScore
		if score > bestScore {
			bestScore = score
			bestCode = code
		}
	}

	if bestCode == "" {
		return "", false
	}
	return bestCode, true
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
