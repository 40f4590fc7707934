package ai

import (
	"sort"
	"strings"

	"github.com/foundly-app/foundly/internal/entity"
)

// Lexical fallback scoring. When the remote model is unreachable these
// heuristics keep match listing and pairwise comparison functional with no
// network at all. Confidence from this path is always capped below 100 —
// a lexical overlap is never AI-verified certainty.

const (
	// minOverlapTokens is the usual inclusion bar for match mode.
	minOverlapTokens = 2
	// shortQueryTokens: queries with fewer tokens than this get an overlap
	// bar of 1. A one- or two-token query cannot reasonably be asked for
	// two overlaps; three tokens and up can.
	shortQueryTokens = 3
	// maxFallbackConfidence caps every lexical score.
	maxFallbackConfidence = 90

	fallbackExplanation = "AI matching was unavailable; this estimate comes from keyword overlap only."
)

// CandidateSummary is the slimmed-down candidate view sent to both the
// remote model and the lexical scorer.
type CandidateSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
}

// ScoredID pairs a candidate id with a lexical confidence score.
type ScoredID struct {
	ID         string
	Confidence int
}

// ScoreOverlap ranks candidates by token overlap with the query text.
// Inclusion requires minOverlapTokens shared tokens, relaxed to one for
// short queries. Results are sorted by confidence descending.
func ScoreOverlap(query string, candidates []CandidateSummary) []ScoredID {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	minOverlap := minOverlapTokens
	if len(queryTokens) < shortQueryTokens {
		minOverlap = 1
	}

	var out []ScoredID
	for _, c := range candidates {
		text := c.Title + " " + c.Description + " " + c.Category + " " + strings.Join(c.Tags, " ")
		overlap := countOverlap(queryTokens, tokenize(text))
		if overlap < minOverlap {
			continue
		}
		// scale overlap into a conservative confidence
		conf := 40 + overlap*10
		if conf > maxFallbackConfidence {
			conf = maxFallbackConfidence
		}
		out = append(out, ScoredID{ID: c.ID, Confidence: conf})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// ComparePairwise scores two reports against each other with Jaccard
// similarity over title and description tokens, plus a category bonus.
func ComparePairwise(a, b *entity.Report) *entity.ComparisonResult {
	conf := 0
	var similarities, differences []string

	if a.Category == b.Category {
		conf += 25
		similarities = append(similarities, "Same category: "+string(a.Category))
	} else {
		differences = append(differences, "Categories differ: "+string(a.Category)+" vs "+string(b.Category))
	}

	titleSim := jaccard(tokenize(a.Title), tokenize(b.Title))
	switch {
	case titleSim > 0.8:
		conf += 35
		similarities = append(similarities, "Titles are nearly identical")
	case titleSim > 0.4:
		conf += 20
		similarities = append(similarities, "Titles share several keywords")
	default:
		differences = append(differences, "Titles have little in common")
	}

	descSim := jaccard(tokenize(a.Description), tokenize(b.Description))
	if descSim > 0.8 {
		conf += 40
		similarities = append(similarities, "Descriptions are nearly identical")
	} else {
		conf += 15
		if descSim > 0.3 {
			conf += int(descSim * 20)
			similarities = append(similarities, "Descriptions overlap on key details")
		} else {
			differences = append(differences, "Descriptions describe different details")
		}
	}

	if conf > maxFallbackConfidence {
		conf = maxFallbackConfidence
	}

	return &entity.ComparisonResult{
		Confidence:   conf,
		Explanation:  fallbackExplanation,
		Similarities: similarities,
		Differences:  differences,
		FromFallback: true,
	}
}

// tokenize lowercases, strips punctuation, and keeps tokens longer than two
// characters as a set.
func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() > 2 {
			out[b.String()] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func countOverlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := countOverlap(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
