package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

// SQLiteStore keeps each report as a JSON payload next to the columns the
// listing needs, so List never decodes payloads.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	project_name TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',
	mode         TEXT NOT NULL DEFAULT 'COMPLETE',
	npv          REAL NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	payload      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS reports_created_at ON reports (created_at DESC);
`

// sqliteTimeFormat has fixed width so created_at sorts correctly as text.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type summaryRow struct {
	ID          string  `db:"id"`
	ProjectName string  `db:"project_name"`
	CompanyName string  `db:"company_name"`
	Mode        string  `db:"mode"`
	NPV         float64 `db:"npv"`
	CreatedAt   string  `db:"created_at"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, eris.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)

	s, err := newSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newSQLiteStore(db *sqlx.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, eris.Wrap(err, "create schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, r businesscase.ReportData) error {
	if err := checkID(r.ID); err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO reports (id, project_name, company_name, mode, npv, created_at, payload)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	project_name = excluded.project_name,
	company_name = excluded.company_name,
	mode = excluded.mode,
	npv = excluded.npv,
	created_at = excluded.created_at,
	payload = excluded.payload`,
		r.ID, r.Input.ProjectName, r.Input.CompanyName, string(r.Mode), r.FinancialMetrics.NPV,
		r.CreatedAt.UTC().Format(sqliteTimeFormat), string(payload))
	if err != nil {
		return eris.Wrapf(err, "save report %s", r.ID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (businesscase.ReportData, error) {
	var payload string
	if err := s.db.GetContext(ctx, &payload, "SELECT payload FROM reports WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return businesscase.ReportData{}, ErrNotFound
		}
		return businesscase.ReportData{}, eris.Wrapf(err, "get report %s", id)
	}
	var r businesscase.ReportData
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return businesscase.ReportData{}, eris.Wrapf(err, "decode report %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []summaryRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, project_name, company_name, mode, npv, created_at FROM reports ORDER BY created_at DESC, id ASC LIMIT ?",
		limit); err != nil {
		return nil, eris.Wrap(err, "list reports")
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		created, err := time.Parse(sqliteTimeFormat, row.CreatedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "report %s: bad created_at %q", row.ID, row.CreatedAt)
		}
		out = append(out, Summary{
			ID:          row.ID,
			ProjectName: row.ProjectName,
			CompanyName: row.CompanyName,
			Mode:        businesscase.ReportMode(row.Mode),
			NPV:         row.NPV,
			CreatedAt:   created,
		})
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return eris.Wrapf(err, "delete report %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "delete report %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
