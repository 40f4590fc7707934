package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foundly-app/foundly/internal/entity"
)

// Matching operations: candidate listing for a scan, and pairwise
// comparison of two reports. Both degrade to the lexical scorer, flagged
// as fallback so the UI can signal reduced confidence.

// ListMatchCandidates asks the model which candidates plausibly describe
// the query item. An optional image reference is attached when inlinable.
// Default on total failure: lexical overlap scoring over the same
// candidates, marked fromFallback.
func (c *Client) ListMatchCandidates(ctx context.Context, query, imageRef string, candidates []CandidateSummary) (scored []ScoredID, fromFallback bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	start := time.Now()
	key := CacheKey(opMatchListing, struct {
		Query      string             `json:"query"`
		Image      string             `json:"image,omitempty"`
		Candidates []CandidateSummary `json:"candidates"`
	}{query, imageRef, candidates})

	var cached []ScoredID
	if c.cache.Get(ctx, key, &cached) {
		return cached, false
	}

	var images []ImagePart
	if part, ok := DecodeImageRef(imageRef); ok {
		images = append(images, part)
	}

	system, user := buildMatchListingPrompt(query, candidates)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       images,
		JSONResponse: true,
	}, matchListingSchema())
	if err != nil {
		c.logger.Warn("ai.match_listing.fallback", "error", err,
			"candidates", len(candidates),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ScoreOverlap(query, candidates), true
	}

	var parsed struct {
		Matches []struct {
			ID         string  `json:"id"`
			Confidence float64 `json:"confidence"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("ai.match_listing.fallback", "error", err)
		return ScoreOverlap(query, candidates), true
	}

	// keep only ids that actually exist in the candidate set; the model
	// occasionally invents one
	known := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		known[cand.ID] = struct{}{}
	}
	out := make([]ScoredID, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		if _, ok := known[m.ID]; !ok {
			continue
		}
		conf := clampConfidence(m.Confidence)
		if conf == 0 {
			conf = 50 // model judged it relevant but gave no score
		}
		out = append(out, ScoredID{ID: m.ID, Confidence: conf})
	}

	c.cache.Set(ctx, key, out)
	c.logger.Info("ai.match_listing.ok",
		"candidates", len(candidates),
		"matches", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, false
}

// CompareReports produces a symmetric pairwise comparison: the pair is
// canonicalized by id order before prompting and caching, so compare(A,B)
// and compare(B,A) share one cache entry and one answer. Default on total
// failure: the lexical pairwise heuristic, marked fromFallback.
func (c *Client) CompareReports(ctx context.Context, a, b *entity.Report) *entity.ComparisonResult {
	if b.ID.String() < a.ID.String() {
		a, b = b, a
	}

	start := time.Now()
	key := CacheKey(opCompare, struct {
		A        string    `json:"a"`
		B        string    `json:"b"`
		AUpdated time.Time `json:"a_updated"`
		BUpdated time.Time `json:"b_updated"`
	}{a.ID.String(), b.ID.String(), a.UpdatedAt.UTC(), b.UpdatedAt.UTC()})

	var cached entity.ComparisonResult
	if c.cache.Get(ctx, key, &cached) {
		return &cached
	}

	var images []ImagePart
	if len(a.ImageURLs) > 0 {
		if part, ok := DecodeImageRef(a.ImageURLs[0]); ok {
			images = append(images, part)
		}
	}
	if len(b.ImageURLs) > 0 {
		if part, ok := DecodeImageRef(b.ImageURLs[0]); ok {
			images = append(images, part)
		}
	}

	system, user := buildComparePrompt(a, b)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       images,
		JSONResponse: true,
	}, compareSchema())
	if err != nil {
		c.logger.Warn("ai.compare.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return ComparePairwise(a, b)
	}

	var parsed struct {
		Confidence   float64  `json:"confidence"`
		Explanation  string   `json:"explanation"`
		Similarities []string `json:"similarities"`
		Differences  []string `json:"differences"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("ai.compare.fallback", "error", err)
		return ComparePairwise(a, b)
	}

	out := &entity.ComparisonResult{
		Confidence:   clampConfidence(parsed.Confidence),
		Explanation:  parsed.Explanation,
		Similarities: parsed.Similarities,
		Differences:  parsed.Differences,
	}

	c.cache.Set(ctx, key, out)
	c.logger.Info("ai.compare.ok",
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
