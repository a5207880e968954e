package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
)

const reportSelect = `SELECT r.id, r.reporter_id, COALESCE(u.username, ''), r.target_type, r.target_id,
		        r.reason, r.status, COALESCE(r.admin_notes, ''), r.created_at, r.updated_at
		 FROM reports r
		 LEFT JOIN users u ON u.id = r.reporter_id`

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func scanReport(row pgx.Row) (model.Report, error) {
	var rep model.Report
	err := row.Scan(&rep.ID, &rep.ReporterID, &rep.Reporter, &rep.TargetType, &rep.TargetID,
		&rep.Reason, &rep.Status, &rep.AdminNotes, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, model.ErrReportNotFound
	}
	return rep, err
}

func (r *ReportRepository) Create(ctx context.Context, rep model.Report) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reports (id, reporter_id, target_type, target_id, reason, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.ID, rep.ReporterID, rep.TargetType, rep.TargetID, rep.Reason, rep.Status, rep.CreatedAt, rep.UpdatedAt)
	if isUniqueViolation(err, "reports_pending_key") {
		return model.ErrDuplicateReport
	}
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (model.Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, reportSelect+` WHERE r.id = $1`, id))
	if err != nil && !errors.Is(err, model.ErrReportNotFound) {
		return model.Report{}, fmt.Errorf("find report: %w", err)
	}
	return rep, err
}

func (r *ReportRepository) List(ctx context.Context, query model.ReportQuery) ([]model.Report, error) {
	where := make([]string, 0)
	args := make([]any, 0)

	if status := strings.TrimSpace(query.Status); status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if targetType := strings.TrimSpace(query.TargetType); targetType != "" {
		args = append(args, targetType)
		where = append(where, fmt.Sprintf("r.target_type = $%d", len(args)))
	}

	sql := reportSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY r.created_at DESC"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status string, notes string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reports SET status = $2, admin_notes = COALESCE(NULLIF($3, ''), admin_notes), updated_at = $4
		 WHERE id = $1`, id, status, notes, now)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReportNotFound
	}
	return nil
}

// AppendNote adds a line to the admin notes and moves a pending report to reviewed.
func (r *ReportRepository) AppendNote(ctx context.Context, id string, note string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reports
		 SET admin_notes = CASE WHEN COALESCE(admin_notes, '') = '' THEN $2 ELSE admin_notes || E'\n' || $2 END,
		     status = CASE WHEN status = 'pending' THEN 'reviewed' ELSE status END,
		     updated_at = $3
		 WHERE id = $1`, id, note, now)
	if err != nil {
		return fmt.Errorf("append report note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReportNotFound
	}
	return nil
}
