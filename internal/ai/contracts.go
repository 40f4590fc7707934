package ai

import (
	"github.com/foundly-app/foundly/constants"
)

// Typed results for each domain operation. Every field the model may omit
// or mangle has a defined zero/default; a single schema-validation step per
// operation either yields one of these fully populated or triggers the
// operation's documented fallback.

// ViolationCategory classifies content-policy findings on user uploads.
type ViolationCategory string

const (
	ViolationNone      ViolationCategory = "NONE"
	ViolationExplicit  ViolationCategory = "EXPLICIT"
	ViolationViolence  ViolationCategory = "VIOLENCE"
	ViolationWeapons   ViolationCategory = "WEAPONS"
	ViolationDrugs     ViolationCategory = "DRUGS"
	ViolationPersonal  ViolationCategory = "PERSONAL_DATA"
	ViolationUnrelated ViolationCategory = "UNRELATED"
)

// violationValues is the closed enum handed to the model and the validator.
var violationValues = []string{
	string(ViolationNone),
	string(ViolationExplicit),
	string(ViolationViolence),
	string(ViolationWeapons),
	string(ViolationDrugs),
	string(ViolationPersonal),
	string(ViolationUnrelated),
}

// ImageSafetyResult is the outcome of the single-image safety check.
type ImageSafetyResult struct {
	Violation    ViolationCategory `json:"violation"`
	LooksStaged  bool              `json:"looks_staged"`
	Reason       string            `json:"reason"`
	FromFallback bool              `json:"from_fallback,omitempty"`
}

// BoundingBox is a detected region in Gemini's normalized 0–1000 scale,
// [ymin, xmin, ymax, xmax] order.
type BoundingBox struct {
	YMin float64 `json:"y_min"`
	XMin float64 `json:"x_min"`
	YMax float64 `json:"y_max"`
	XMax float64 `json:"x_max"`
}

// VisualAttributes is what the model reads off a single item photo.
type VisualAttributes struct {
	Title        string             `json:"title"`
	Category     constants.Category `json:"category"`
	Tags         []string           `json:"tags"`
	Color        string             `json:"color"`
	Brand        string             `json:"brand"`
	Condition    string             `json:"condition"`
	Features     string             `json:"features"` // distinguishing marks
	FromFallback bool               `json:"from_fallback,omitempty"`
}

// ValidationResult is the report-draft plausibility check. Fails open:
// when the checker is unreachable the draft is valid.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}

// ContentAnalysis is the final pre-publish review over description, title
// and up to MaxReportImages photos.
type ContentAnalysis struct {
	IsViolating  bool               `json:"is_violating"`
	Violation    ViolationCategory  `json:"violation"`
	Category     constants.Category `json:"category"`
	Summary      string             `json:"summary"`
	Tags         []string           `json:"tags"`
	FromFallback bool               `json:"from_fallback,omitempty"`
}

// SearchIntent is the parse of a free-text search box entry. Type is empty
// when polarity could not be inferred.
type SearchIntent struct {
	Type     constants.ReportType `json:"type,omitempty"`
	Keywords string               `json:"keywords"`
}

// operation names used in cache keys and log events.
const (
	opImageSafety     = "image_safety"
	opRedactRegions   = "redact_regions"
	opVisualAttrs     = "visual_attrs"
	opMergeDesc       = "merge_description"
	opValidateDraft   = "validate_draft"
	opContentAnalysis = "content_analysis"
	opSearchParse     = "search_parse"
	opMatchListing    = "match_listing"
	opCompare         = "compare"
)
