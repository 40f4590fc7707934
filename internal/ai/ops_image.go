package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foundly-app/foundly/constants"
)

// Single-image operations: safety check, redaction-region detection, and
// visual attribute extraction. All fail open into clearly degraded defaults
// — an unreachable model never blocks the user flow, and anything it would
// have caught is left to human moderation.

// CheckImageSafety classifies one photo for content-policy violations and
// staged-photo suspicion. Default on total failure: no violation, not
// staged, reason "Check unavailable".
func (c *Client) CheckImageSafety(ctx context.Context, imageRef string) *ImageSafetyResult {
	start := time.Now()
	key := CacheKey(opImageSafety, imageRef)

	var cached ImageSafetyResult
	if c.cache.Get(ctx, key, &cached) {
		return &cached
	}

	part, ok := DecodeImageRef(imageRef)
	if !ok {
		c.logger.Warn("ai.image_safety.no_inline_image")
		return &ImageSafetyResult{Violation: ViolationNone, Reason: "Check unavailable", FromFallback: true}
	}

	system, user := buildImageSafetyPrompt()
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       []ImagePart{part},
		JSONResponse: true,
	}, imageSafetySchema())
	if err != nil {
		c.logger.Warn("ai.image_safety.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return &ImageSafetyResult{Violation: ViolationNone, Reason: "Check unavailable", FromFallback: true}
	}

	var out ImageSafetyResult
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("ai.image_safety.fallback", "error", err)
		return &ImageSafetyResult{Violation: ViolationNone, Reason: "Check unavailable", FromFallback: true}
	}
	if out.Violation == "" {
		out.Violation = ViolationNone
	}

	c.cache.Set(ctx, key, &out)
	c.logger.Info("ai.image_safety.ok",
		"violation", out.Violation,
		"looks_staged", out.LooksStaged,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out
}

// DetectRedactionRegions finds face/ID regions to blur before public
// display. Default on total failure: no regions — the UI then offers manual
// blurring only.
func (c *Client) DetectRedactionRegions(ctx context.Context, imageRef string) []BoundingBox {
	start := time.Now()
	key := CacheKey(opRedactRegions, imageRef)

	var cached []BoundingBox
	if c.cache.Get(ctx, key, &cached) {
		return cached
	}

	part, ok := DecodeImageRef(imageRef)
	if !ok {
		return nil
	}

	system, user := buildRedactRegionsPrompt()
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       []ImagePart{part},
		JSONResponse: true,
	}, redactRegionsSchema())
	if err != nil {
		c.logger.Warn("ai.redact_regions.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil
	}

	var parsed struct {
		Regions [][]float64 `json:"regions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("ai.redact_regions.fallback", "error", err)
		return nil
	}

	boxes := make([]BoundingBox, 0, len(parsed.Regions))
	for _, r := range parsed.Regions {
		if len(r) != 4 {
			continue
		}
		boxes = append(boxes, BoundingBox{YMin: r[0], XMin: r[1], YMax: r[2], XMax: r[3]})
	}

	c.cache.Set(ctx, key, boxes)
	c.logger.Info("ai.redact_regions.ok",
		"regions", len(boxes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return boxes
}

// ExtractVisualAttributes reads listing attributes off one item photo.
// Default on total failure: an all-empty record with category Other, so
// the report form simply starts blank.
func (c *Client) ExtractVisualAttributes(ctx context.Context, imageRef string) *VisualAttributes {
	start := time.Now()
	key := CacheKey(opVisualAttrs, imageRef)

	var cached VisualAttributes
	if c.cache.Get(ctx, key, &cached) {
		return &cached
	}

	fallback := &VisualAttributes{Category: constants.Other, FromFallback: true}

	part, ok := DecodeImageRef(imageRef)
	if !ok {
		return fallback
	}

	system, user := buildVisualAttrsPrompt()
	raw, err := c.generateValidated(ctx, GenerateRequest{
		System:       system,
		Prompt:       user,
		Images:       []ImagePart{part},
		JSONResponse: true,
	}, visualAttrsSchema())
	if err != nil {
		c.logger.Warn("ai.visual_attrs.fallback", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return fallback
	}

	var out VisualAttributes
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("ai.visual_attrs.fallback", "error", err)
		return fallback
	}
	if cat, ok := constants.Canonicalize(string(out.Category)); ok {
		out.Category = cat
	} else {
		out.Category = constants.Other
	}

	c.cache.Set(ctx, key, &out)
	c.logger.Info("ai.visual_attrs.ok",
		"title", out.Title,
		"category", out.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out
}
