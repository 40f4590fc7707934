package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/entity"
)

// Prompt builders for the domain operations. The system prompts describe
// the expected JSON shape in words; the schema check after extraction is
// what actually enforces it.

const promptPreamble = "You are the assistant behind a lost-and-found marketplace. " +
	"Return ONLY JSON that matches the described shape. Never output null; omit unknown optional fields. " +
	"Do not wrap the JSON in Markdown fences or commentary."

func buildImageSafetyPrompt() (system, user string) {
	parts := []string{
		promptPreamble,
		"Review the attached photo of an item that a user wants to publish on a public listing.",
		"Shape: {\"violation\": one of " + strings.Join(violationValues, ", ") + ", \"looks_staged\": boolean, \"reason\": short string}.",
		"Use UNRELATED when the photo clearly shows no personal item (memes, screenshots, scenery).",
		"Set looks_staged true when the photo appears to be a stock image or a product catalogue shot rather than a real photo of the actual item.",
		"Keep 'reason' under 20 words, written for the end user.",
	}
	return strings.Join(parts, " "), "Classify the attached photo."
}

func buildRedactRegionsPrompt() (system, user string) {
	parts := []string{
		promptPreamble,
		"Find regions in the attached photo that should be blurred before public display: human faces, and any readable ID documents, cards, or name/address text.",
		"Shape: {\"regions\": [[y_min, x_min, y_max, x_max], ...]} with coordinates on the normalized 0-1000 scale.",
		"Return an empty regions array when nothing needs blurring.",
	}
	return strings.Join(parts, " "), "List the regions to blur in the attached photo."
}

func buildVisualAttrsPrompt() (system, user string) {
	parts := []string{
		promptPreamble,
		"Describe the single most prominent item in the attached photo for a lost-and-found listing.",
		"Shape: {\"title\": short item name, \"category\": one of " + strings.Join(constants.AsStringSlice(), ", ") + ", \"tags\": [strings], \"color\": string, \"brand\": string, \"condition\": string, \"features\": string}.",
		"If uncertain about category, choose 'Other'. 'features' lists distinguishing marks (scratches, stickers, engravings) in one sentence.",
		"Omit color/brand/condition/features when not visible.",
	}
	return strings.Join(parts, " "), "Describe the item in the attached photo."
}

func buildMergeDescriptionPrompt(notes string, attrs *VisualAttributes) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"Merge the user's notes with the visual attributes extracted from their photo into one short listing description (2-4 sentences, first person neutral).",
		"Keep every concrete detail the user wrote; add visual details only when they do not contradict the notes.",
		"Shape: {\"description\": string}.",
	}, " ")

	attrsJSON, _ := json.Marshal(attrs)
	var b strings.Builder
	b.WriteString("User notes:\n")
	b.WriteString(strings.TrimSpace(notes))
	b.WriteString("\n\nVisual attributes:\n")
	b.Write(attrsJSON)
	return system, b.String()
}

func buildValidateDraftPrompt(draft *entity.Report) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"Sanity-check a lost-and-found report draft before submission.",
		"Flag only drafts that are clearly unusable: gibberish text, a title that contradicts the description, or content that is not about a lost or found item at all.",
		"Do NOT flag drafts for being short, vague, or imperfectly written.",
		"Shape: {\"is_valid\": boolean, \"reason\": short string explaining a rejection, empty when valid}.",
	}, " ")

	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\nTitle: %s\nCategory: %s\nLocation: %s\nDescription:\n%s\n",
		draft.Type, draft.Title, draft.Category, draft.Location, truncateText(draft.Description, 2000))
	return system, b.String()
}

func buildContentAnalysisPrompt(title, description string) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"Run a final pre-publish review of a lost-and-found listing (text plus attached photos).",
		"Shape: {\"is_violating\": boolean, \"violation\": one of " + strings.Join(violationValues, ", ") + ", \"category\": one of " + strings.Join(constants.AsStringSlice(), ", ") + ", \"summary\": one-sentence listing summary, \"tags\": up to 6 short search keywords}.",
		"violation is NONE and is_violating false for ordinary listings.",
		"The summary is shown in search results; write it from the finder's perspective, under 25 words.",
	}, " ")

	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\nDescription:\n")
	b.WriteString(truncateText(description, 3000))
	return system, b.String()
}

func buildSearchParsePrompt(query string) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"Parse a free-text search from a lost-and-found site visitor.",
		"Infer whether they are searching among LOST reports, FOUND reports, or UNKNOWN when the text does not say.",
		"A visitor who lost something searches FOUND reports and vice versa — infer from phrasing like 'I lost my...' (search FOUND) or 'found a...' (search LOST).",
		"Shape: {\"type\": \"LOST\"|\"FOUND\"|\"UNKNOWN\", \"keywords\": the search terms with filler words removed}.",
	}, " ")
	return system, "Search text: " + query
}

func buildMatchListingPrompt(query string, candidates []CandidateSummary) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"You are matching a lost-and-found query item against candidate reports from the opposite side.",
		"Judge by what the item IS (type, brand, color, distinguishing marks), not by writing style.",
		"Shape: {\"matches\": [{\"id\": candidate id, \"confidence\": 0-100}, ...]} — include ONLY candidates that plausibly describe the same physical item, ordered most likely first.",
		"An empty matches array is a correct answer when nothing fits.",
	}, " ")

	candJSON, _ := json.MarshalIndent(candidates, "", "  ")
	var b strings.Builder
	b.WriteString("Query item:\n")
	b.WriteString(truncateText(query, 1500))
	b.WriteString("\n\nCandidates:\n")
	b.Write(candJSON)
	return system, b.String()
}

func buildComparePrompt(a, b *entity.Report) (system, user string) {
	system = strings.Join([]string{
		promptPreamble,
		"Compare one LOST report and one FOUND report and estimate whether they describe the same physical item.",
		"Shape: {\"confidence\": 0-100, \"explanation\": short paragraph for the end user, \"similarities\": [strings], \"differences\": [strings]}.",
		"Confidence 90+ only when brand, color and distinguishing marks all align. Dates and locations are weak signals; items travel.",
	}, " ")

	var sb strings.Builder
	writeReportBlock(&sb, "Report A", a)
	writeReportBlock(&sb, "Report B", b)
	return system, sb.String()
}

func writeReportBlock(b *strings.Builder, label string, r *entity.Report) {
	fmt.Fprintf(b, "%s (%s):\nTitle: %s\nCategory: %s\nLocation: %s\nDate: %s\nDescription: %s\n",
		label, r.Type, r.Title, r.Category, r.Location, r.Date.Format("2006-01-02"),
		truncateText(r.Description, 1200))
	if len(r.Tags) > 0 {
		fmt.Fprintf(b, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	keys := make([]string, 0, len(r.Specs))
	for k := range r.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %s\n", k, r.Specs[k])
	}
	b.WriteString("\n")
}

func truncateText(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "\n…(truncated)"
}
