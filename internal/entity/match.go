package entity

// MatchCandidate pairs a candidate report with a confidence score for one
// scan request. Candidates are ephemeral: produced fresh per scan, never
// persisted on their own.
type MatchCandidate struct {
	Report       *Report `json:"report"`
	Confidence   int     `json:"confidence"` // 0..100
	FromFallback bool    `json:"from_fallback"`
}

// ComparisonResult is the outcome of a pairwise comparison of two reports.
type ComparisonResult struct {
	Confidence   int      `json:"confidence"` // 0..100
	Explanation  string   `json:"explanation"`
	Similarities []string `json:"similarities"`
	Differences  []string `json:"differences"`
	FromFallback bool     `json:"from_fallback"`
}
