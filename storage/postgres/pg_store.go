package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/clients"
	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Options configures the connection to the devices database.
type Options struct {
	DSN         string
	AutoMigrate bool
	MaxConns    int32
}

// Store represents the Postgres storage implementation of clients.Repository.
// The pool is opened on first use so the agent can start without a reachable
// database, and Reconfigure swaps it when settings change.
type Store struct {
	mu          sync.Mutex
	opts        Options
	pool        *pgxpool.Pool
	migratedDSN string
	migrating   chan struct{}
	retry       *utils.RetryPolicy
	log         zerolog.Logger
	now         func() time.Time
}

var _ clients.Repository = (*Store)(nil)

// NewStore creates a new Postgres store
func NewStore(opts Options, log logger.Logger) *Store {
	return &Store{
		opts:      opts,
		migrating: make(chan struct{}, 1),
		retry:     utils.DefaultRetryPolicy(),
		log:       log.WithComponent("postgres"),
		now:       time.Now,
	}
}

// Reconfigure applies new connection settings, closing the current pool when the DSN changes
func (s *Store) Reconfigure(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.DSN != s.opts.DSN && s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	s.opts = opts
	s.log.Info().Str("dsn", utils.MaskDSN(opts.DSN)).Msg("repository reconfigured")
}

// Close closes the connection pool
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *Store) acquire(ctx context.Context) (*pgxpool.Pool, error) {
	pool, opts, err := s.currentPool(ctx)
	if err != nil {
		return nil, err
	}
	if opts.AutoMigrate {
		if err := s.migrate(ctx, opts.DSN); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func (s *Store) currentPool(ctx context.Context) (*pgxpool.Pool, Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := s.opts
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, opts, clients.ErrNotConfigured
	}

	if s.pool == nil {
		cfg, err := pgxpool.ParseConfig(opts.DSN)
		if err != nil {
			return nil, opts, fmt.Errorf("%w: invalid connection string: %v", clients.ErrNotConfigured, err)
		}
		if opts.MaxConns > 0 {
			cfg.MaxConns = opts.MaxConns
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, opts, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s.pool = pool
	}
	opts.AutoMigrate = opts.AutoMigrate && s.migratedDSN != opts.DSN
	return s.pool, opts, nil
}

// migrate applies the schema once per DSN without holding s.mu. Waiting for a
// concurrent migration honours ctx.
func (s *Store) migrate(ctx context.Context, dsn string) error {
	select {
	case s.migrating <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for schema migration: %w", ctx.Err())
	}
	defer func() { <-s.migrating }()

	s.mu.Lock()
	done := s.migratedDSN == dsn
	s.mu.Unlock()
	if done {
		return nil
	}

	err := s.retry.Execute(ctx, nil, func(ctx context.Context) error {
		return Migrate(ctx, dsn)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.opts.DSN == dsn {
		s.migratedDSN = dsn
	}
	s.mu.Unlock()
	s.log.Info().Int("schema_version", SchemaVersion).Msg("migrations applied")
	return nil
}

// Ping runs a trivial query against the database
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.acquire(ctx)
	if err != nil {
		return err
	}

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// FindByKey retrieves a device by hostname, ignoring case
func (s *Store) FindByKey(ctx context.Context, hostname string) (*domains.Record, error) {
	pool, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var rec domains.Record
	fields := domains.SnapshotFields()
	targets := make([]any, 0, len(fields)+4)
	targets = append(targets, &rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &rec.LastDiscovered)
	for _, f := range fields {
		targets = append(targets, f.Target(&rec.Snapshot))
	}

	err = pool.QueryRow(ctx, selectDeviceQuery(fields), hostname).Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return &rec, nil
}

// Insert creates a device row. A duplicate hostname is an error.
func (s *Store) Insert(ctx context.Context, snap domains.Snapshot) (bool, error) {
	pool, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}

	fields := domains.SnapshotFields()
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		args = append(args, f.Value(&snap))
	}
	args = append(args, s.now().UTC())

	tag, err := pool.Exec(ctx, insertDeviceQuery(fields), args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, fmt.Errorf("device %q already exists: %w", snap.Hostname, err)
		}
		return false, fmt.Errorf("failed to insert device: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Update replaces every column of the row identified by rec.ID
func (s *Store) Update(ctx context.Context, rec domains.Record) (bool, error) {
	pool, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}

	fields := domains.SnapshotFields()
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		args = append(args, f.Value(&rec.Snapshot))
	}
	args = append(args, s.now().UTC(), rec.ID)

	tag, err := pool.Exec(ctx, updateDeviceQuery(fields), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update device: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchDiscovered refreshes last_discovered and updated_at for hostname
func (s *Store) TouchDiscovered(ctx context.Context, hostname string) (bool, error) {
	pool, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}

	query := `UPDATE devices SET last_discovered = $1, updated_at = $1 WHERE lower(hostname) = lower($2)`
	tag, err := pool.Exec(ctx, query, s.now().UTC(), hostname)
	if err != nil {
		return false, fmt.Errorf("failed to update last discovered: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func columnList(fields []domains.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

func selectDeviceQuery(fields []domains.Field) string {
	return fmt.Sprintf(
		`SELECT device_id, created_at, updated_at, last_discovered, %s FROM devices WHERE lower(hostname) = lower($1) LIMIT 1`,
		columnList(fields),
	)
}

func insertDeviceQuery(fields []domains.Field) string {
	placeholders := make([]string, len(fields))
	for i := range fields {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	ts := fmt.Sprintf("$%d", len(fields)+1)

	return fmt.Sprintf(
		`INSERT INTO devices (%s, created_at, updated_at, last_discovered) VALUES (%s, %s, %s, %s)`,
		columnList(fields), strings.Join(placeholders, ", "), ts, ts, ts,
	)
}

func updateDeviceQuery(fields []domains.Field) string {
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = $%d", f.Name, i+1)
	}
	ts := len(fields) + 1

	return fmt.Sprintf(
		`UPDATE devices SET %s, updated_at = $%d, last_discovered = $%d WHERE device_id = $%d`,
		strings.Join(sets, ", "), ts, ts, ts+1,
	)
}
