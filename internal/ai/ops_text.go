package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/entity"
)

// Text-centred operations: description merging, draft validation, final
// content analysis, search-query parsing.

// MergeDescription blends the user's free-text notes with the visual
// attributes read off their photo into one listing description. Default on
// total failure: the notes, unmodified.
func (c *Client) MergeDescription(ctx context.Context, notes string, attrs *VisualAttributes) string {
	start := time.Now()
	key := CacheKey(opMergeDesc, struct {
		Notes string            `json:"notes"`
		Attrs *VisualAttributes `json:"attrs"`
	}{notes, attrs})

	var cached string
	if c.cache.Get(ctx, key, &cached) {
		return cached
	}

	system, user := buildMergeDescriptionPrompt(notes, attrs)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		JSONResponse: true,
	}, mergeDescriptionSchema())
	if err != nil {
		c.logger.Warn("ai.merge_description.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return notes
	}

	var parsed struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || strings.TrimSpace(parsed.Description) == "" {
		c.logger.Warn("ai.merge_description.fallback", "error", err)
		return notes
	}

	c.cache.Set(ctx, key, parsed.Description)
	c.logger.Info("ai.merge_description.ok",
		"notes_len", len(notes),
		"out_len", len(parsed.Description),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return parsed.Description
}

// ValidateReportDraft sanity-checks a draft before submission. Fails OPEN:
// an unreachable checker must never block a user from reporting a lost
// item, so any failure yields valid=true.
func (c *Client) ValidateReportDraft(ctx context.Context, draft *entity.Report) *ValidationResult {
	start := time.Now()

	system, user := buildValidateDraftPrompt(draft)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		JSONResponse: true,
	}, validateDraftSchema())
	if err != nil {
		c.logger.Warn("ai.validate_draft.fail_open", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return &ValidationResult{IsValid: true, Reason: ""}
	}

	var out ValidationResult
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("ai.validate_draft.fail_open", "error", err)
		return &ValidationResult{IsValid: true, Reason: ""}
	}

	c.logger.Info("ai.validate_draft.ok",
		"is_valid", out.IsValid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out
}

// AnalyzeReportContent runs the final pre-publish review over the listing
// text and up to constants.MaxReportImages photos. Default on total
// failure: non-violating, category unchanged-from-Other, summary truncated
// from the description.
func (c *Client) AnalyzeReportContent(ctx context.Context, title, description string, imageRefs []string) *ContentAnalysis {
	start := time.Now()
	key := CacheKey(opContentAnalysis, struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Images      []string `json:"images"`
	}{title, description, imageRefs})

	var cached ContentAnalysis
	if c.cache.Get(ctx, key, &cached) {
		return &cached
	}

	fallback := &ContentAnalysis{
		IsViolating:  false,
		Violation:    ViolationNone,
		Category:     constants.Other,
		Summary:      summaryFromDescription(description),
		FromFallback: true,
	}

	system, user := buildContentAnalysisPrompt(title, description)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       DecodeImageRefs(imageRefs, constants.MaxReportImages),
		JSONResponse: true,
	}, contentAnalysisSchema())
	if err != nil {
		c.logger.Warn("ai.content_analysis.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return fallback
	}

	var out ContentAnalysis
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("ai.content_analysis.fallback", "error", err)
		return fallback
	}
	if out.Violation == "" {
		out.Violation = ViolationNone
	}
	if cat, ok := constants.Canonicalize(string(out.Category)); ok {
		out.Category = cat
	} else {
		out.Category = constants.Other
	}
	if strings.TrimSpace(out.Summary) == "" {
		out.Summary = summaryFromDescription(description)
	}

	c.cache.Set(ctx, key, &out)
	c.logger.Info("ai.content_analysis.ok",
		"is_violating", out.IsViolating,
		"violation", out.Violation,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out
}

// ParseSearchQuery infers polarity and refined keywords from a free-text
// search. Default on total failure: unknown polarity, query unchanged.
func (c *Client) ParseSearchQuery(ctx context.Context, query string) *SearchIntent {
	start := time.Now()
	key := CacheKey(opSearchParse, query)

	var cached SearchIntent
	if c.cache.Get(ctx, key, &cached) {
		return &cached
	}

	fallback := &SearchIntent{Type: "", Keywords: query}

	system, user := buildSearchParsePrompt(query)
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		JSONResponse: true,
	}, searchParseSchema())
	if err != nil {
		c.logger.Warn("ai.search_parse.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return fallback
	}

	var parsed struct {
		Type     string `json:"type"`
		Keywords string `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("ai.search_parse.fallback", "error", err)
		return fallback
	}

	out := SearchIntent{Keywords: parsed.Keywords}
	switch parsed.Type {
	case "LOST":
		out.Type = constants.ReportTypeLost
	case "FOUND":
		out.Type = constants.ReportTypeFound
	}
	if strings.TrimSpace(out.Keywords) == "" {
		out.Keywords = query
	}

	c.cache.Set(ctx, key, &out)
	c.logger.Info("ai.search_parse.ok",
		"type", string(out.Type),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out
}

func summaryFromDescription(description string) string {
	const max = 120
	s := strings.TrimSpace(description)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}
