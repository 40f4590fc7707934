package ai

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/entity"
)

const testImage = "data:image/png;base64,aGVsbG8="

func TestCheckImageSafety(t *testing.T) {
	ctx := context.Background()

	t.Run("model verdict is returned and cached", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"violation":"WEAPONS","looks_staged":false,"reason":"knife visible"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CheckImageSafety(ctx, testImage)
		assert.Equal(t, ViolationWeapons, res.Violation)
		assert.False(t, res.FromFallback)

		// second call hits the cache, not the transport
		again := c.CheckImageSafety(ctx, testImage)
		assert.Equal(t, res.Violation, again.Violation)
		assert.Equal(t, 1, transport.callCount())
	})

	t.Run("failure yields the safe default", func(t *testing.T) {
		transport := newScriptedTransport() // every call errors
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CheckImageSafety(ctx, testImage)
		assert.Equal(t, ViolationNone, res.Violation)
		assert.True(t, res.FromFallback)
		assert.Equal(t, "Check unavailable", res.Reason)
	})

	t.Run("schema-invalid reply falls back", func(t *testing.T) {
		transport := newScriptedTransport(
			ok(`{"violation":"NOT_A_CATEGORY"}`),
			ok(`{"violation":"NOT_A_CATEGORY"}`),
		)
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CheckImageSafety(ctx, testImage)
		assert.True(t, res.FromFallback)
	})

	t.Run("hosted url cannot be inlined", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"violation":"NONE"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CheckImageSafety(ctx, "https://cdn.example.com/img.jpg")
		assert.True(t, res.FromFallback)
		assert.Zero(t, transport.callCount())
	})
}

func TestDetectRedactionRegions(t *testing.T) {
	ctx := context.Background()

	t.Run("parses four-number boxes", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"regions":[[10,20,110,220],[0,0,50,50]]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		boxes := c.DetectRedactionRegions(ctx, testImage)
		require.Len(t, boxes, 2)
		assert.Equal(t, BoundingBox{YMin: 10, XMin: 20, YMax: 110, XMax: 220}, boxes[0])
	})

	t.Run("failure yields no regions", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		assert.Nil(t, c.DetectRedactionRegions(ctx, testImage))
	})
}

func TestExtractVisualAttributes(t *testing.T) {
	ctx := context.Background()

	t.Run("non-enum category is rejected by the schema", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"title":"Leather wallet","category":"wallet","tags":["leather"],"color":"black"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		attrs := c.ExtractVisualAttributes(ctx, testImage)
		assert.True(t, attrs.FromFallback)
	})

	t.Run("valid reply passes through", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"title":"Leather wallet","category":"BagsWallets","color":"black"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		attrs := c.ExtractVisualAttributes(ctx, testImage)
		assert.Equal(t, constants.BagsWallets, attrs.Category)
		assert.Equal(t, "Leather wallet", attrs.Title)
		assert.False(t, attrs.FromFallback)
	})

	t.Run("failure yields the blank default", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		attrs := c.ExtractVisualAttributes(ctx, testImage)
		assert.Equal(t, constants.Other, attrs.Category)
		assert.True(t, attrs.FromFallback)
		assert.Empty(t, attrs.Title)
	})
}

func TestMergeDescription(t *testing.T) {
	ctx := context.Background()
	attrs := &VisualAttributes{Title: "Black wallet", Category: constants.BagsWallets, Color: "black"}

	t.Run("merged text wins", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"description":"Black leather wallet, slightly worn."}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		got := c.MergeDescription(ctx, "found a wallet", attrs)
		assert.Equal(t, "Black leather wallet, slightly worn.", got)
	})

	t.Run("failure keeps the notes untouched", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		assert.Equal(t, "found a wallet", c.MergeDescription(ctx, "found a wallet", attrs))
	})
}

func TestValidateReportDraft(t *testing.T) {
	ctx := context.Background()
	draft := &entity.Report{
		ID:          uuid.New(),
		Type:        constants.ReportTypeLost,
		Title:       "Black wallet",
		Description: "Lost near the station",
		Category:    constants.BagsWallets,
	}

	t.Run("model rejection is surfaced", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"is_valid":false,"reason":"description contradicts the title"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.ValidateReportDraft(ctx, draft)
		assert.False(t, res.IsValid)
		assert.NotEmpty(t, res.Reason)
	})

	t.Run("fails open when the checker is unreachable", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.ValidateReportDraft(ctx, draft)
		assert.True(t, res.IsValid)
	})

	t.Run("fails open without a credential", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"is_valid":false}`))
		transport.credential = false
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		assert.True(t, c.ValidateReportDraft(ctx, draft).IsValid)
	})
}

func TestAnalyzeReportContent(t *testing.T) {
	ctx := context.Background()

	t.Run("verdict with summary and tags", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"is_violating":false,"violation":"NONE","category":"Phones","summary":"White smartphone with cracked screen","tags":["phone","white"]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.AnalyzeReportContent(ctx, "White phone", "Found a white smartphone", nil)
		assert.False(t, res.IsViolating)
		assert.Equal(t, constants.Phones, res.Category)
		assert.Equal(t, []string{"phone", "white"}, res.Tags)
	})

	t.Run("failure defaults to truncated description summary", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		long := ""
		for i := 0; i < 40; i++ {
			long += "very long description "
		}
		res := c.AnalyzeReportContent(ctx, "t", long, nil)
		assert.True(t, res.FromFallback)
		assert.False(t, res.IsViolating, "moderation fails open")
		assert.LessOrEqual(t, len(res.Summary), 120+len("…"))
	})
}

func TestParseSearchQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("polarity and keywords", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"type":"LOST","keywords":"black leather wallet station"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		intent := c.ParseSearchQuery(ctx, "I lost my black leather wallet near the station")
		assert.Equal(t, constants.ReportTypeLost, intent.Type)
		assert.Equal(t, "black leather wallet station", intent.Keywords)
	})

	t.Run("unknown polarity stays empty", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"type":"UNKNOWN","keywords":"wallet"}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		intent := c.ParseSearchQuery(ctx, "wallet")
		assert.Empty(t, intent.Type)
	})

	t.Run("failure echoes the original query", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		intent := c.ParseSearchQuery(ctx, "black wallet")
		assert.Empty(t, intent.Type)
		assert.Equal(t, "black wallet", intent.Keywords)
	})
}

func TestListMatchCandidates(t *testing.T) {
	ctx := context.Background()
	candidates := []CandidateSummary{
		{ID: "c1", Title: "Black leather wallet", Description: "near the station", Category: "BagsWallets"},
		{ID: "c2", Title: "Red umbrella", Description: "on a bench", Category: "Other"},
	}

	t.Run("model listing is filtered to known ids", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"matches":[{"id":"c1","confidence":88},{"id":"invented","confidence":99}]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		scored, fromFallback := c.ListMatchCandidates(ctx, "black wallet", "", candidates)
		assert.False(t, fromFallback)
		require.Len(t, scored, 1)
		assert.Equal(t, ScoredID{ID: "c1", Confidence: 88}, scored[0])
	})

	t.Run("zero confidence becomes a neutral score", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"matches":[{"id":"c1"}]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		scored, _ := c.ListMatchCandidates(ctx, "black wallet", "", candidates)
		require.Len(t, scored, 1)
		assert.Equal(t, 50, scored[0].Confidence)
	})

	t.Run("failure falls back to lexical overlap", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		scored, fromFallback := c.ListMatchCandidates(ctx, "black leather wallet station", "", candidates)
		assert.True(t, fromFallback)
		require.NotEmpty(t, scored)
		assert.Equal(t, "c1", scored[0].ID)
	})

	t.Run("fallback results are not cached", func(t *testing.T) {
		transport := newScriptedTransport(
			fail("m1", http.StatusForbidden),
			fail("m2", http.StatusForbidden),
			ok(`{"matches":[{"id":"c1","confidence":77}]}`),
		)
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		_, fromFallback := c.ListMatchCandidates(ctx, "black wallet", "", candidates)
		require.True(t, fromFallback)

		// the AI is retried on the next identical request
		scored, fromFallback := c.ListMatchCandidates(ctx, "black wallet", "", candidates)
		assert.False(t, fromFallback)
		require.Len(t, scored, 1)
		assert.Equal(t, 77, scored[0].Confidence)
	})

	t.Run("empty candidate set short-circuits", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"matches":[]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		scored, fromFallback := c.ListMatchCandidates(ctx, "anything", "", nil)
		assert.Nil(t, scored)
		assert.False(t, fromFallback)
		assert.Zero(t, transport.callCount())
	})
}

func TestCompareReports(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	a := &entity.Report{ID: uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000"), Title: "Black wallet", Description: "lost downtown", Category: constants.BagsWallets, UpdatedAt: now}
	b := &entity.Report{ID: uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000"), Title: "Found wallet", Description: "black leather wallet", Category: constants.BagsWallets, UpdatedAt: now}

	t.Run("symmetric caching across argument order", func(t *testing.T) {
		transport := newScriptedTransport(ok(`{"confidence":81,"explanation":"same wallet","similarities":["color"],"differences":[]}`))
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		first := c.CompareReports(ctx, a, b)
		require.Equal(t, 81, first.Confidence)

		// swapped order must be answered from the cache
		second := c.CompareReports(ctx, b, a)
		assert.Equal(t, first.Confidence, second.Confidence)
		assert.Equal(t, first.Explanation, second.Explanation)
		assert.Equal(t, 1, transport.callCount())
	})

	t.Run("failure falls back to the pairwise heuristic", func(t *testing.T) {
		transport := newScriptedTransport()
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CompareReports(ctx, a, b)
		assert.True(t, res.FromFallback)
		assert.LessOrEqual(t, res.Confidence, 90)
	})

	t.Run("update invalidates the cached pair", func(t *testing.T) {
		transport := newScriptedTransport(
			ok(`{"confidence":70,"explanation":"first"}`),
			ok(`{"confidence":40,"explanation":"second"}`),
		)
		c := newTestClient(t, transport)
		defer func() { _ = c.Close() }()

		res := c.CompareReports(ctx, a, b)
		assert.Equal(t, 70, res.Confidence)

		bumped := *b
		bumped.UpdatedAt = now.Add(time.Minute)
		res = c.CompareReports(ctx, a, &bumped)
		assert.Equal(t, 40, res.Confidence)
	})
}

func TestTextTruncationRuneSafe(t *testing.T) {
	long := strings.Repeat("é", 200)

	t.Run("fallback summary", func(t *testing.T) {
		got := summaryFromDescription(long)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, 121, utf8.RuneCountInString(got)) // 120 runes + ellipsis
		assert.True(t, strings.HasSuffix(got, "…"))
	})

	t.Run("prompt text", func(t *testing.T) {
		got := truncateText(long, 50)
		assert.True(t, utf8.ValidString(got))
		assert.True(t, strings.HasPrefix(got, strings.Repeat("é", 50)))
	})

	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "égaré", summaryFromDescription("égaré"))
		assert.Equal(t, "égaré", truncateText("égaré", 10))
	})
}
