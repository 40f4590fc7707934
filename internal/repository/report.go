package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
)

// ReportFilter narrows ListReports. Zero values mean "no constraint".
type ReportFilter struct {
	UserID   string
	Type     constants.ReportType
	Status   constants.ReportStatus
	Category constants.Category
	Limit    int
}

type ReportRepository interface {
	Create(ctx context.Context, rep *entity.Report) (*entity.Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]*entity.Report, error)
	// ListOpen returns the open-report snapshot a match scan walks.
	ListOpen(ctx context.Context) ([]*entity.Report, error)
	Update(ctx context.Context, rep *entity.Report) (*entity.Report, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ReportStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reportRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewReportRepository(pool *pgxpool.Pool, logger *slog.Logger) ReportRepository {
	return &reportRepository{
		pool:   pool,
		logger: logger,
	}
}

const reportColumns = `id, report_type, title, description, summary, category, specs,
	location, occurred_at, time_of_day, image_urls, tags, status,
	user_id, user_name, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, rep *entity.Report) (*entity.Report, error) {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	now := time.Now().UTC()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	if rep.Status == "" {
		rep.Status = constants.ReportStatusOpen
	}

	specs, err := marshalSpecs(rep.Specs)
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rep.ID, rep.Type, rep.Title, rep.Description, rep.Summary, rep.Category, specs,
		rep.Location, rep.Date, rep.TimeOfDay, rep.ImageURLs, rep.Tags, rep.Status,
		rep.UserID, rep.UserName, rep.CreatedAt, rep.UpdatedAt,
	)
	if err != nil {
		mapped := mapCreateError(err)
		if errors.Is(mapped, common.ErrDatabase) {
			r.logger.Error("failed to create report", "report_id", rep.ID, "error", err)
		}
		return nil, mapped
	}
	return rep, nil
}

// mapCreateError turns a Postgres foreign key violation (SQLSTATE 23503) on
// insert into an invalid-input error: a report referencing a missing profile
// is a bad request, not a database failure.
func mapCreateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return common.NewAppError(common.ErrInvalidInput, "reporting user has no profile", err)
	}
	return common.NewAppError(common.ErrDatabase, "failed to create report", err)
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	rep, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.ErrNotFound, fmt.Sprintf("report %s not found", id), err)
	}
	if err != nil {
		r.logger.Error("failed to get report", "report_id", id, "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to get report", err)
	}
	return rep, nil
}

func (r *reportRepository) ListReports(ctx context.Context, filter ReportFilter) ([]*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		query += ` AND user_id = ` + arg(filter.UserID)
	}
	if filter.Type != "" {
		query += ` AND report_type = ` + arg(filter.Type)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	if filter.Category != "" {
		query += ` AND category = ` + arg(filter.Category)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list reports", "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to list reports", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *reportRepository) ListOpen(ctx context.Context) ([]*entity.Report, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE status = $1 ORDER BY occurred_at DESC`,
		constants.ReportStatusOpen,
	)
	if err != nil {
		r.logger.Error("failed to list open reports", "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to list open reports", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *reportRepository) Update(ctx context.Context, rep *entity.Report) (*entity.Report, error) {
	rep.UpdatedAt = time.Now().UTC()

	specs, err := marshalSpecs(rep.Specs)
	if err != nil {
		return nil, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE reports SET
			title = $2, description = $3, summary = $4, category = $5, specs = $6,
			location = $7, occurred_at = $8, time_of_day = $9, image_urls = $10,
			tags = $11, updated_at = $12
		WHERE id = $1`,
		rep.ID, rep.Title, rep.Description, rep.Summary, rep.Category, specs,
		rep.Location, rep.Date, rep.TimeOfDay, rep.ImageURLs, rep.Tags, rep.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update report", "report_id", rep.ID, "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to update report", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, common.NewAppError(common.ErrNotFound, fmt.Sprintf("report %s not found", rep.ID), nil)
	}
	return rep, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ReportStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to update report status", "report_id", id, "error", err)
		return common.NewAppError(common.ErrDatabase, "failed to update report status", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.ErrNotFound, fmt.Sprintf("report %s not found", id), nil)
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete report", "report_id", id, "error", err)
		return common.NewAppError(common.ErrDatabase, "failed to delete report", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.ErrNotFound, fmt.Sprintf("report %s not found", id), nil)
	}
	return nil
}

func marshalSpecs(specs map[string]string) ([]byte, error) {
	if specs == nil {
		specs = map[string]string{}
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return nil, common.NewAppError(common.ErrInternal, "failed to encode specs", err)
	}
	return b, nil
}

func scanReport(row pgx.Row) (*entity.Report, error) {
	var rep entity.Report
	var specs []byte
	err := row.Scan(
		&rep.ID, &rep.Type, &rep.Title, &rep.Description, &rep.Summary, &rep.Category, &specs,
		&rep.Location, &rep.Date, &rep.TimeOfDay, &rep.ImageURLs, &rep.Tags, &rep.Status,
		&rep.UserID, &rep.UserName, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &rep.Specs); err != nil {
			return nil, err
		}
	}
	return &rep, nil
}

func collectReports(rows pgx.Rows) ([]*entity.Report, error) {
	var out []*entity.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, common.NewAppError(common.ErrDatabase, "failed to scan report", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.ErrDatabase, "failed to read reports", err)
	}
	return out, nil
}
