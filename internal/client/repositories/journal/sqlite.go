package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/dbx"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository over a DBTX, so it can be bound to
// a transaction.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.JournalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO scans (id, content_uri, encrypted, mode, state, clean, error, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ContentURI, rec.Encrypted, rec.Mode, string(rec.State),
		rec.Clean, rec.Error, rec.Location, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert journal record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.JournalRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, content_uri, encrypted, mode, state, clean, error, location, created_at
		FROM scans ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select journal records: %w", err)
	}
	defer rows.Close()

	var result []models.JournalRecord
	for rows.Next() {
		var (
			rec     models.JournalRecord
			state   string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.ContentURI, &rec.Encrypted, &rec.Mode, &state,
			&rec.Clean, &rec.Error, &rec.Location, &created); err != nil {
			return nil, fmt.Errorf("failed to scan journal record: %w", err)
		}
		rec.State = models.ScanState(state)
		rec.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByState(ctx context.Context) (map[models.ScanState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM scans GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ScanState]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[models.ScanState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
