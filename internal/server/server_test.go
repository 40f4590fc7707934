package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/async"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
	"github.com/foundly-app/foundly/internal/export"
	"github.com/foundly-app/foundly/internal/match"
	"github.com/foundly-app/foundly/internal/repository"
)

// fakeReports is an in-memory ReportRepository.
type fakeReports struct {
	byID map[uuid.UUID]*entity.Report
}

func newFakeReports() *fakeReports {
	return &fakeReports{byID: make(map[uuid.UUID]*entity.Report)}
}

func (f *fakeReports) Create(_ context.Context, rep *entity.Report) (*entity.Report, error) {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.Status == "" {
		rep.Status = constants.ReportStatusOpen
	}
	f.byID[rep.ID] = rep
	return rep, nil
}

func (f *fakeReports) GetByID(_ context.Context, id uuid.UUID) (*entity.Report, error) {
	rep, ok := f.byID[id]
	if !ok {
		return nil, common.NewAppError(common.ErrNotFound, "report not found", nil)
	}
	return rep, nil
}

func (f *fakeReports) ListReports(_ context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	var out []*entity.Report
	for _, r := range f.byID {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReports) ListOpen(_ context.Context) ([]*entity.Report, error) {
	var out []*entity.Report
	for _, r := range f.byID {
		if r.IsOpen() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) Update(_ context.Context, rep *entity.Report) (*entity.Report, error) {
	if _, ok := f.byID[rep.ID]; !ok {
		return nil, common.NewAppError(common.ErrNotFound, "report not found", nil)
	}
	f.byID[rep.ID] = rep
	return rep, nil
}

func (f *fakeReports) UpdateStatus(_ context.Context, id uuid.UUID, status constants.ReportStatus) error {
	rep, ok := f.byID[id]
	if !ok {
		return common.NewAppError(common.ErrNotFound, "report not found", nil)
	}
	rep.Status = status
	return nil
}

func (f *fakeReports) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return common.NewAppError(common.ErrNotFound, "report not found", nil)
	}
	delete(f.byID, id)
	return nil
}

// fakeProfiles is an in-memory ProfileRepository.
type fakeProfiles struct {
	byID map[string]*entity.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: make(map[string]*entity.Profile)}
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, common.NewAppError(common.ErrNotFound, "profile not found", nil)
	}
	return p, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *entity.Profile) (*entity.Profile, error) {
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

type testEnv struct {
	srv      *Server
	reports  *fakeReports
	profiles *fakeProfiles
}

// newTestEnv wires a server over fakes and an offline AI client, so every
// AI operation takes its local fallback.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	transport := ai.NewGeminiTransport(ai.TransportConfig{APIKey: ""}, logger)
	aiClient, err := ai.NewClient(ai.ClientConfig{
		Transport: transport,
		Models:    []string{"m1"},
		CachePath: ":memory:",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = aiClient.Close() })

	reports := newFakeReports()
	profiles := newFakeProfiles()
	scanner := match.NewScanner(aiClient, 48*time.Hour, 30, logger)
	exporter := export.NewService(reports, logger)

	scans := async.NewScanQueue(func(ctx context.Context, reportID uuid.UUID) ([]entity.MatchCandidate, error) {
		rep, err := reports.GetByID(ctx, reportID)
		if err != nil {
			return nil, err
		}
		snapshot, err := reports.ListOpen(ctx)
		if err != nil {
			return nil, err
		}
		return scanner.Scan(ctx, rep, snapshot), nil
	}, logger, async.WithWorkers(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scans.Shutdown(ctx)
	})

	cfg := &common.Config{Server: common.ServerConfig{HTTPAddr: ":0"}}
	srv := New(cfg, nil, reports, profiles, aiClient, scanner, scans, exporter, logger)
	return &testEnv{srv: srv, reports: reports, profiles: profiles}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func validReportBody() map[string]any {
	return map[string]any{
		"type":        "LOST",
		"title":       "Black leather wallet",
		"description": "Lost my black leather wallet near the central station",
		"category":    "BagsWallets",
		"location":    "Central Station",
		"date":        "2025-06-10",
	}
}

func TestIdentityRequired(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/v1/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateReport(t *testing.T) {
	t.Run("valid lost report", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", validReportBody())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created entity.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "user-1", created.UserID)
		assert.Equal(t, constants.ReportStatusOpen, created.Status)
		assert.NotEmpty(t, created.Summary, "analysis fallback still fills the summary")
	})

	t.Run("found report needs a photo", func(t *testing.T) {
		env := newTestEnv(t)
		body := validReportBody()
		body["type"] = "FOUND"
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("found report with photo passes", func(t *testing.T) {
		env := newTestEnv(t)
		body := validReportBody()
		body["type"] = "FOUND"
		body["image_urls"] = []string{"https://cdn.example.com/wallet.jpg"}
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", body)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("bad image extension", func(t *testing.T) {
		env := newTestEnv(t)
		body := validReportBody()
		body["image_urls"] = []string{"https://cdn.example.com/wallet.exe"}
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		env := newTestEnv(t)
		body := validReportBody()
		delete(body, "title")
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad date format", func(t *testing.T) {
		env := newTestEnv(t)
		body := validReportBody()
		body["date"] = "10/06/2025"
		w := env.do(t, http.MethodPost, "/v1/reports", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportOwnership(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/reports", "owner", validReportBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created entity.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("stranger cannot resolve", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/reports/"+created.ID.String()+"/resolve", "stranger", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/v1/reports/"+created.ID.String(), "stranger", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stranger can read", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/reports/"+created.ID.String(), "stranger", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("owner resolves once and again", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/reports/"+created.ID.String()+"/resolve", "owner", nil)
		require.Equal(t, http.StatusOK, w.Code)

		// second resolve is a no-op, not an error
		w = env.do(t, http.MethodPost, "/v1/reports/"+created.ID.String()+"/resolve", "owner", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := env.reports.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, constants.ReportStatusResolved, stored.Status)
	})
}

func TestGetReportErrors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("bad uuid", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/reports/not-a-uuid", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/reports/"+uuid.NewString(), "user-1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMatchScanEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/reports", "owner", validReportBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var source entity.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &source))

	// an opposite-polarity candidate close in date
	counterpart := validReportBody()
	counterpart["type"] = "FOUND"
	counterpart["date"] = "2025-06-11"
	counterpart["image_urls"] = []string{"https://cdn.example.com/wallet.jpg"}
	w = env.do(t, http.MethodPost, "/v1/reports", "finder", counterpart)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("scan finds the counterpart", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/reports/"+source.ID.String()+"/matches", "owner", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Matches []matchResponse `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Matches, 1)
		assert.True(t, resp.Matches[0].FromFallback)
	})

	t.Run("only the owner scans", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/reports/"+source.ID.String()+"/matches", "stranger", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("queued scan reaches DONE", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/reports/"+source.ID.String()+"/matches/async", "owner", nil)
		require.Equal(t, http.StatusAccepted, w.Code)

		require.Eventually(t, func() bool {
			w := env.do(t, http.MethodGet, "/v1/reports/"+source.ID.String()+"/matches/async", "owner", nil)
			if w.Code != http.StatusOK {
				return false
			}
			var result async.ScanResult
			if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
				return false
			}
			return result.State == async.ScanDone && len(result.Matches) == 1
		}, 5*time.Second, 20*time.Millisecond)
	})

	t.Run("poll without enqueue is a 404", func(t *testing.T) {
		other := validReportBody()
		w := env.do(t, http.MethodPost, "/v1/reports", "owner", other)
		require.Equal(t, http.StatusCreated, w.Code)
		var rep entity.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))

		w = env.do(t, http.MethodGet, "/v1/reports/"+rep.ID.String()+"/matches/async", "owner", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestParseSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("echoes keywords via fallback", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/search/parse", "user-1", map[string]any{"query": "black wallet"})
		require.Equal(t, http.StatusOK, w.Code)

		var intent ai.SearchIntent
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intent))
		assert.Equal(t, "black wallet", intent.Keywords)
	})

	t.Run("empty query rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/search/parse", "user-1", map[string]any{"query": "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/v1/profile", "user-1", map[string]any{"display_name": "Alex"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/profiles/user-1", "user-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p entity.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Alex", p.DisplayName)

	w = env.do(t, http.MethodPut, "/v1/profile", "user-1", map[string]any{"display_name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageEndpointsFailOpen(t *testing.T) {
	env := newTestEnv(t)
	img := "data:image/png;base64,aGVsbG8="

	t.Run("safety", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/images/safety", "user-1", map[string]any{"image": img})
		require.Equal(t, http.StatusOK, w.Code)
		var res ai.ImageSafetyResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, ai.ViolationNone, res.Violation)
		assert.True(t, res.FromFallback)
	})

	t.Run("redactions", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/images/redactions", "user-1", map[string]any{"image": img})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"regions":[]}`, w.Body.String())
	})

	t.Run("missing image rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/images/attributes", "user-1", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
