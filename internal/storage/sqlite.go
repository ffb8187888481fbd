package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const metaLastID = "last_id"

// SQLiteBackend persists deals and their stage history in SQLite.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

var (
	_ service.Backend       = (*SQLiteBackend)(nil)
	_ service.TransitionLog = (*SQLiteBackend)(nil)
)

// NewSQLiteBackend opens (creating if needed) the database at dbPath. Call
// Migrate before first use.
func NewSQLiteBackend(dbPath string, logger *slog.Logger) (*SQLiteBackend, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteBackend{
		db:     db,
		dbPath: dbPath,
		logger: common.OrDefault(logger),
	}, nil
}

// Path returns the database location.
func (s *SQLiteBackend) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// Load reads every deal and the id high-water mark.
func (s *SQLiteBackend) Load(ctx context.Context) (service.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return service.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, company, contact, value, stage, priority, description,
		       expected_close_date, created_at, updated_at
		FROM deals
		ORDER BY id`)
	if err != nil {
		return service.Snapshot{}, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return service.Snapshot{}, err
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return service.Snapshot{}, fmt.Errorf("failed to read deals: %w", err)
	}

	lastID, err := s.readLastID(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}

	return service.Snapshot{
		Version: service.SnapshotVersion,
		Deals:   deals,
		LastID:  lastID,
	}, nil
}

// Save replaces the stored deals with the snapshot in one transaction.
func (s *SQLiteBackend) Save(ctx context.Context, snap service.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deals`); err != nil {
		return fmt.Errorf("failed to clear deals: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deals (id, title, company, contact, value, stage, priority, description,
		                   expected_close_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range snap.Deals {
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Title, d.Company, d.Contact, d.Value, string(d.Stage), string(d.Priority), d.Description,
			formatNullTime(d.ExpectedCloseDate), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert deal %d: %w", d.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastID, strconv.Itoa(snap.LastID),
	); err != nil {
		return fmt.Errorf("failed to save id high-water mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deals: %w", err)
	}
	return nil
}

// Append records a stage transition.
func (s *SQLiteBackend) Append(ctx context.Context, t model.StageTransition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(t.ID, "transition id"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_transitions (id, deal_id, from_stage, to_stage, moved_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.DealID, string(t.From), string(t.To), formatTime(t.At),
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// ForDeal returns the transitions of one deal, oldest first.
func (s *SQLiteBackend) ForDeal(ctx context.Context, dealID int) ([]model.StageTransition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deal_id, from_stage, to_stage, moved_at
		FROM stage_transitions
		WHERE deal_id = ?
		ORDER BY moved_at, id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []model.StageTransition
	for rows.Next() {
		var (
			t          model.StageTransition
			from, to   string
			movedAtRaw string
		)
		if err := rows.Scan(&t.ID, &t.DealID, &from, &to, &movedAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		t.From = model.StageID(from)
		t.To = model.StageID(to)
		if t.At, err = parseTime(movedAtRaw); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}
	return out, nil
}

func (s *SQLiteBackend) readLastID(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaLastID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read id high-water mark: %w", err)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: last id %q", ErrCorruptedData, raw)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (model.Deal, error) {
	var (
		d                      model.Deal
		stage, priority        string
		closeDate              sql.NullString
		createdRaw, updatedRaw string
	)
	if err := row.Scan(
		&d.ID, &d.Title, &d.Company, &d.Contact, &d.Value, &stage, &priority, &d.Description,
		&closeDate, &createdRaw, &updatedRaw,
	); err != nil {
		return d, fmt.Errorf("failed to scan deal: %w", err)
	}
	d.Stage = model.StageID(stage)
	d.Priority = model.Priority(priority)

	var err error
	if d.CreatedAt, err = parseTime(createdRaw); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return d, err
	}
	if closeDate.Valid && closeDate.String != "" {
		t, err := parseTime(closeDate.String)
		if err != nil {
			return d, err
		}
		d.ExpectedCloseDate = &t
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrCorruptedData, raw)
	}
	return t.UTC(), nil
}
