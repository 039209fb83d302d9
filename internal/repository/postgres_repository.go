package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// PostgresReadingRepository reads the hosted sensor table (Supabase/Postgres)
type PostgresReadingRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresReadingRepository opens a connection pool for the given DSN
func NewPostgresReadingRepository(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresReadingRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	logger.Info("connected to postgres sensor store")
	return NewPostgresReadingRepositoryFromDB(db, logger), nil
}

// NewPostgresReadingRepositoryFromDB wraps an existing pool
func NewPostgresReadingRepositoryFromDB(db *sqlx.DB, logger *zap.Logger) *PostgresReadingRepository {
	return &PostgresReadingRepository{db: db, logger: logger}
}

// DB exposes the pool, e.g. for installing the change-notification trigger
func (r *PostgresReadingRepository) DB() *sql.DB {
	return r.db.DB
}

// Close closes the pool
func (r *PostgresReadingRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetLatestReading retrieves the most recent reading
func (r *PostgresReadingRepository) GetLatestReading(ctx context.Context) (*entities.SensorReading, error) {
	var row sensorRow
	query := `SELECT ` + sensorColumns + ` FROM sensor ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	latest := row.toEntity()
	return &latest, nil
}

// GetReadings retrieves every reading, newest first
func (r *PostgresReadingRepository) GetReadings(ctx context.Context) ([]entities.SensorReading, error) {
	var rows []sensorRow
	query := `SELECT ` + sensorColumns + ` FROM sensor ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	r.logger.Debug("loaded sensor readings", zap.Int("count", len(rows)))
	return toEntities(rows), nil
}
