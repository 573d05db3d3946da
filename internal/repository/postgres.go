package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(cfg *config.PostgresConfig) (*PostgresRepository, error) {
	return connectPostgres(cfg.DSN(), cfg.MaxConns, cfg.MinConns)
}

func connectPostgres(dsn string, maxConns, minConns int) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	if minConns > 0 {
		poolConfig.MinConns = int32(minConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Migrate creates the tables and indexes if they do not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CreateIfAbsent relies on the UNIQUE constraint on short_code: a conflicting
// insert returns no row instead of failing.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, url *model.ShortURL) error {
	query := `
		INSERT INTO short_urls (short_code, target_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (short_code) DO NOTHING
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query, url.ShortCode, url.TargetURL, url.CreatedAt, url.ExpiresAt).Scan(&url.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrShortcodeExists
		}
		return fmt.Errorf("failed to create short url: %w", err)
	}

	return nil
}

// FindByCode reads the mapping and its clicks from one read-only snapshot.
func (r *PostgresRepository) FindByCode(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		SELECT id, short_code, target_url, created_at, expires_at
		FROM short_urls
		WHERE short_code = $1
	`

	var url model.ShortURL
	err = tx.QueryRow(ctx, query, shortCode).Scan(
		&url.ID,
		&url.ShortCode,
		&url.TargetURL,
		&url.CreatedAt,
		&url.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get short url: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT clicked_at, referrer, user_agent, source_ip, country, region, city
		FROM click_events
		WHERE short_url_id = $1
		ORDER BY id
	`, url.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}

	clicks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ClickEvent, error) {
		var c model.ClickEvent
		err := row.Scan(&c.Timestamp, &c.Referrer, &c.UserAgent, &c.SourceIP, &c.Geo.Country, &c.Geo.Region, &c.Geo.City)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan clicks: %w", err)
	}
	url.Clicks = clicks

	return &url, nil
}

// AppendClick inserts one click row; the mapping lookup and the insert are a single statement.
func (r *PostgresRepository) AppendClick(ctx context.Context, shortCode string, click *model.ClickEvent) error {
	query := `
		INSERT INTO click_events (short_url_id, clicked_at, referrer, user_agent, source_ip, country, region, city)
		SELECT id, $2, $3, $4, $5, $6, $7, $8
		FROM short_urls
		WHERE short_code = $1
	`

	result, err := r.pool.Exec(ctx, query,
		shortCode,
		click.Timestamp,
		click.Referrer,
		click.UserAgent,
		click.SourceIP,
		click.Geo.Country,
		click.Geo.Region,
		click.Geo.City,
	)
	if err != nil {
		return fmt.Errorf("failed to append click: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}

	return nil
}

// Health checks the database connection
func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS short_urls (
		id          BIGSERIAL PRIMARY KEY,
		short_code  VARCHAR(20) NOT NULL UNIQUE,
		target_url  TEXT        NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS click_events (
		id            BIGSERIAL PRIMARY KEY,
		short_url_id  BIGINT      NOT NULL REFERENCES short_urls (id),
		clicked_at    TIMESTAMPTZ NOT NULL,
		referrer      TEXT        NOT NULL DEFAULT '',
		user_agent    TEXT        NOT NULL DEFAULT '',
		source_ip     TEXT        NOT NULL DEFAULT '',
		country       TEXT        NOT NULL DEFAULT '',
		region        TEXT        NOT NULL DEFAULT '',
		city          TEXT        NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_short_url_id ON click_events (short_url_id, id)`,
}

var _ MappingStore = (*PostgresRepository)(nil)
