package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite stores each export run as rows tagged with a run id.
type SQLite struct {
	db *sql.DB
}

// ExportRun describes one stored export.
type ExportRun struct {
	ID         string
	Kind       string
	RowCount   int
	ExportedAt time.Time
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return string(FormatSQLite) }

// Write inserts the table rows in one transaction under a new export run.
func (s *SQLite) Write(ctx context.Context, t Table) error {
	if _, err := s.WriteRun(ctx, t); err != nil {
		return &model.DeliveryError{Sink: s.Name(), Err: err}
	}
	return nil
}

// WriteRun is Write returning the created export run.
func (s *SQLite) WriteRun(ctx context.Context, t Table) (*ExportRun, error) {
	if t.Name != "boards" && t.Name != "members" {
		return nil, fmt.Errorf("unsupported table %q", t.Name)
	}

	run := &ExportRun{
		ID:         uuid.New().String(),
		Kind:       t.Name,
		RowCount:   len(t.Rows),
		ExportedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO exports (id, kind, row_count, exported_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Kind, run.RowCount, run.ExportedAt,
	); err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}

	fields := make([]string, 0, len(t.Columns)+1)
	fields = append(fields, "export_id")
	for _, c := range t.Columns {
		fields = append(fields, c.Field)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(fields, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, 0, len(row)+1)
		args = append(args, run.ID)
		for _, v := range row {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("insert %s row: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit export: %w", err)
	}
	return run, nil
}

// ListRuns returns stored export runs, newest first.
func (s *SQLite) ListRuns(ctx context.Context) ([]ExportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, row_count, exported_at FROM exports ORDER BY exported_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		var r ExportRun
		if err := rows.Scan(&r.ID, &r.Kind, &r.RowCount, &r.ExportedAt); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRows returns how many rows an export run stored.
func (s *SQLite) CountRows(ctx context.Context, run *ExportRun) (int, error) {
	var table string
	switch run.Kind {
	case "boards", "members":
		table = run.Kind
	default:
		return 0, fmt.Errorf("unsupported table %q", run.Kind)
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE export_id = ?", table), run.ID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table, err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
