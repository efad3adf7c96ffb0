package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore is a Store backed by the ip_risk_scores table. Each call
// borrows one pooled connection and returns it before the call completes.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore on an existing pool.
func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, address string) (*Observation, error) {
	query := `SELECT ip, is_tor_exit_node, request_frequency, country
	          FROM ip_risk_scores WHERE ip = $1`

	var obs Observation
	err := s.db.QueryRow(ctx, query, address).Scan(
		&obs.Address, &obs.IsExitNode, &obs.RequestFrequency, &obs.Country,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", address, err)
	}
	return &obs, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, address string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM ip_risk_scores WHERE ip = $1`, address)
	if err != nil {
		return fmt.Errorf("delete %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Info("observation deleted", zap.String("address", address))
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT ip FROM ip_risk_scores ORDER BY ip`)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	addrs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan addresses: %w", err)
	}
	if addrs == nil {
		addrs = []string{}
	}
	return addrs, nil
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, obs *Observation) error {
	if err := checkCanonical(obs.Address); err != nil {
		return err
	}
	query := `
		INSERT INTO ip_risk_scores (ip, is_tor_exit_node, request_frequency, country)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip) DO UPDATE SET
			is_tor_exit_node  = EXCLUDED.is_tor_exit_node,
			request_frequency = EXCLUDED.request_frequency,
			country           = EXCLUDED.country`

	_, err := s.db.Exec(ctx, query, obs.Address, obs.IsExitNode, obs.RequestFrequency, obs.Country)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", obs.Address, err)
	}
	return nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
