package match

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/entity"
)

// Scanner runs the match-candidate scan: multi-stage filtering of the
// report snapshot, a capped hand-off to the AI candidate-listing operation,
// and mapping the answer back onto full reports.
type Scanner struct {
	ai         *ai.Client
	dateWindow time.Duration
	cap        int
	visionCap  int
	logger     *slog.Logger
}

// Option tweaks a Scanner.
type Option func(*Scanner)

// WithVisionCap sets the tighter candidate cap used when the source report
// carries a photo; image-bearing requests cost far more per candidate.
func WithVisionCap(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.visionCap = n
		}
	}
}

// NewScanner builds a Scanner. dateWindow is the date-proximity buffer
// (default 48h); cap bounds how many candidates reach the model.
func NewScanner(client *ai.Client, dateWindow time.Duration, cap int, logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if dateWindow <= 0 {
		dateWindow = 48 * time.Hour
	}
	if cap <= 0 {
		cap = 30
	}
	s := &Scanner{ai: client, dateWindow: dateWindow, cap: cap, visionCap: 6, logger: logger}
	for _, o := range opts {
		o(s)
	}
	if s.visionCap > s.cap {
		s.visionCap = s.cap
	}
	return s
}

// Scan returns match candidates for source drawn from the given report
// snapshot, sorted by confidence descending. The snapshot is whatever
// collection state the caller holds; the scanner takes no store dependency.
func (s *Scanner) Scan(ctx context.Context, source *entity.Report, snapshot []*entity.Report) []entity.MatchCandidate {
	start := time.Now()

	candidates := FilterEligible(source, snapshot)
	candidates = NarrowByCategory(source, candidates)
	candidates = FilterByDateWindow(source, candidates, s.dateWindow)
	SortByDateDistance(source, candidates)
	limit := s.cap
	if len(source.ImageURLs) > 0 {
		limit = s.visionCap
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.logger.Info("match.scan.filtered",
		"report_id", source.ID.String(),
		"snapshot", len(snapshot),
		"candidates", len(candidates),
	)
	if len(candidates) == 0 {
		return nil
	}

	summaries := make([]ai.CandidateSummary, len(candidates))
	byID := make(map[string]*entity.Report, len(candidates))
	for i, c := range candidates {
		summaries[i] = ai.CandidateSummary{
			ID:          c.ID.String(),
			Title:       c.Title,
			Description: c.Description,
			Category:    string(c.Category),
			Tags:        c.Tags,
		}
		byID[c.ID.String()] = c
	}

	var image string
	if len(source.ImageURLs) > 0 {
		image = source.ImageURLs[0]
	}
	query := strings.TrimSpace(source.Title + "\n" + source.Description)

	scored, fromFallback := s.ai.ListMatchCandidates(ctx, query, image, summaries)

	out := make([]entity.MatchCandidate, 0, len(scored))
	for _, sc := range scored {
		rep, ok := byID[sc.ID]
		if !ok {
			continue
		}
		out = append(out, entity.MatchCandidate{
			Report:       rep,
			Confidence:   sc.Confidence,
			FromFallback: fromFallback,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })

	s.logger.Info("match.scan.ok",
		"report_id", source.ID.String(),
		"matches", len(out),
		"from_fallback", fromFallback,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// FilterEligible keeps open reports of the opposite polarity with a
// different id. Each candidate is judged on its own; no candidate's
// inclusion depends on another's presence.
func FilterEligible(source *entity.Report, snapshot []*entity.Report) []*entity.Report {
	want := source.Type.Opposite()
	var out []*entity.Report
	for _, r := range snapshot {
		if r.ID == source.ID {
			continue
		}
		if r.Type != want || !r.IsOpen() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NarrowByCategory keeps same-category candidates when the source has a
// meaningful category AND the strict filter would leave something. A soft
// filter: narrowing to zero would throw away cross-category matches the
// model might still catch, so the unfiltered set wins over an empty one.
func NarrowByCategory(source *entity.Report, candidates []*entity.Report) []*entity.Report {
	if source.Category == "" || source.Category == constants.Other {
		return candidates
	}
	var same []*entity.Report
	for _, r := range candidates {
		if r.Category == source.Category {
			same = append(same, r)
		}
	}
	if len(same) == 0 {
		return candidates
	}
	return same
}

// FilterByDateWindow applies the polarity-directed date buffer. An item
// cannot be found materially before it was lost: a FOUND candidate may not
// predate a LOST source by more than the window, and a LOST candidate may
// not postdate a FOUND source by more than the window. The plausible
// direction stays unbounded — items surface weeks later.
func FilterByDateWindow(source *entity.Report, candidates []*entity.Report, window time.Duration) []*entity.Report {
	var out []*entity.Report
	for _, r := range candidates {
		if source.Type == constants.ReportTypeLost {
			// candidate is FOUND; reject found-dates too far before the loss
			if r.Date.Before(source.Date.Add(-window)) {
				continue
			}
		} else {
			// candidate is LOST; reject loss-dates too far after the find
			if r.Date.After(source.Date.Add(window)) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SortByDateDistance orders candidates by absolute date distance to the
// source, closest first, biasing the model's attention and any truncation
// toward the most plausible matches.
func SortByDateDistance(source *entity.Report, candidates []*entity.Report) {
	dist := func(r *entity.Report) time.Duration {
		d := r.Date.Sub(source.Date)
		if d < 0 {
			return -d
		}
		return d
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return dist(candidates[i]) < dist(candidates[j])
	})
}
