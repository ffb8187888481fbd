package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS deals (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL DEFAULT '',
		value BIGINT NOT NULL DEFAULT 0 CHECK (value >= 0),
		stage TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		description TEXT NOT NULL DEFAULT '',
		expected_close_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage)`,
	`CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stage_transitions (
		id TEXT PRIMARY KEY,
		deal_id BIGINT NOT NULL,
		from_stage TEXT NOT NULL,
		to_stage TEXT NOT NULL,
		moved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stage_transitions_deal ON stage_transitions(deal_id, moved_at)`,
}

var dealColumns = []string{
	"id", "title", "company", "contact", "value", "stage", "priority", "description",
	"expected_close_date", "created_at", "updated_at",
}

// PostgresBackend persists deals in PostgreSQL through a pgx pool.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ service.Backend       = (*PostgresBackend)(nil)
	_ service.TransitionLog = (*PostgresBackend)(nil)
)

// NewPostgresBackend connects to dsn and creates the schema if needed.
func NewPostgresBackend(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresBackend, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dsn, "postgres dsn"); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pool: %w", common.ErrBackendUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to connect to Postgres: %w", common.ErrBackendUnavailable, err)
	}

	p := &PostgresBackend{pool: pool, logger: common.OrDefault(logger)}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresBackend) ensureSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range postgresSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return nil
	})
}

// Load reads every deal and the id high-water mark.
func (p *PostgresBackend) Load(ctx context.Context) (service.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return service.Snapshot{}, err
	}

	rows, err := p.pool.Query(ctx, `
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
		var (
			d               model.Deal
			stage, priority string
			closeDate       *time.Time
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Company, &d.Contact, &d.Value, &stage, &priority, &d.Description,
			&closeDate, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return service.Snapshot{}, fmt.Errorf("failed to scan deal: %w", err)
		}
		d.Stage = model.StageID(stage)
		d.Priority = model.Priority(priority)
		d.CreatedAt = d.CreatedAt.UTC()
		d.UpdatedAt = d.UpdatedAt.UTC()
		if closeDate != nil {
			t := closeDate.UTC()
			d.ExpectedCloseDate = &t
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return service.Snapshot{}, fmt.Errorf("failed to read deals: %w", err)
	}

	var lastID int
	err = p.pool.QueryRow(ctx, `SELECT value FROM store_meta WHERE key = $1`, metaLastID).Scan(&lastID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return service.Snapshot{}, fmt.Errorf("failed to read id high-water mark: %w", err)
	}

	return service.Snapshot{
		Version: service.SnapshotVersion,
		Deals:   deals,
		LastID:  lastID,
	}, nil
}

// Save replaces the stored deals in one transaction, bulk-loading them with
// COPY.
func (p *PostgresBackend) Save(ctx context.Context, snap service.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rows := make([][]any, len(snap.Deals))
	for i, d := range snap.Deals {
		rows[i] = []any{
			d.ID, d.Title, d.Company, d.Contact, d.Value, string(d.Stage), string(d.Priority), d.Description,
			d.ExpectedCloseDate, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
		}
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM deals`); err != nil {
			return fmt.Errorf("failed to clear deals: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"deals"}, dealColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy deals: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO store_meta (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			metaLastID, snap.LastID,
		); err != nil {
			return fmt.Errorf("failed to save id high-water mark: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Debug("saved deals to postgres", "count", len(snap.Deals))
	return nil
}

// Append records a stage transition.
func (p *PostgresBackend) Append(ctx context.Context, t model.StageTransition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO stage_transitions (id, deal_id, from_stage, to_stage, moved_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.DealID, string(t.From), string(t.To), t.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// ForDeal returns the transitions of one deal, oldest first.
func (p *PostgresBackend) ForDeal(ctx context.Context, dealID int) ([]model.StageTransition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, deal_id, from_stage, to_stage, moved_at
		FROM stage_transitions
		WHERE deal_id = $1
		ORDER BY moved_at, id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []model.StageTransition
	for rows.Next() {
		var (
			t        model.StageTransition
			from, to string
		)
		if err := rows.Scan(&t.ID, &t.DealID, &from, &to, &t.At); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		t.From = model.StageID(from)
		t.To = model.StageID(to)
		t.At = t.At.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
