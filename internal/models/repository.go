package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relatorio-ocorrencias/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrAuditUnavailable is returned by the export log when no database is configured.
var ErrAuditUnavailable = errors.New("export audit is not configured")

// isUndefinedTable checks for SQLSTATE 42P01, raised when migrations were not applied.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// CreateExportRecord inserts one export attempt. ID and CreatedAt are filled
// in when left empty.
func CreateExportRecord(ctx context.Context, rec *ExportRecord) error {
	if db.DB == nil {
		return ErrAuditUnavailable
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	numbers := rec.Numbers
	if numbers == nil {
		numbers = []string{}
	}

	_, err := db.DB.ExecContext(ctx, `
		INSERT INTO export_log (id, session_id, student_id, student_name, numeros, status, http_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.SessionID, rec.StudentID, rec.StudentName, numbers, rec.Status, rec.HTTPStatus, rec.CreatedAt)
	if err != nil {
		if isUndefinedTable(err) {
			return fmt.Errorf("failed to insert export record (export_log missing, run migrations): %w", err)
		}
		return fmt.Errorf("failed to insert export record: %w", err)
	}
	return nil
}

// GetExportRecordsByStudent returns the latest export attempts for a student, newest first.
func GetExportRecordsByStudent(ctx context.Context, studentID string, limit int) ([]*ExportRecord, error) {
	if db.DB == nil {
		return nil, ErrAuditUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.DB.QueryContext(ctx, `
		SELECT id, session_id, student_id, student_name, numeros, status, http_status, created_at
		FROM export_log
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query export records: %w", err)
	}
	defer rows.Close()

	typeMap := pgtype.NewMap()
	records := []*ExportRecord{}
	for rows.Next() {
		rec := &ExportRecord{}
		var httpStatus sql.NullInt32
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.StudentID, &rec.StudentName,
			typeMap.SQLScanner(&rec.Numbers), &rec.Status, &httpStatus, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export record: %w", err)
		}
		if httpStatus.Valid {
			rec.HTTPStatus = int(httpStatus.Int32)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export records: %w", err)
	}
	return records, nil
}

// ExportLog adapts the repository functions to the auditor interface used by the export flow.
type ExportLog struct{}

func (ExportLog) Record(ctx context.Context, rec *ExportRecord) error {
	return CreateExportRecord(ctx, rec)
}

func (ExportLog) ListByStudent(ctx context.Context, studentID string, limit int) ([]*ExportRecord, error) {
	return GetExportRecordsByStudent(ctx, studentID, limit)
}
