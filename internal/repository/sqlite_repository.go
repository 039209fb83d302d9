package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// SQLiteReadingRepository implements ReadingRepository using SQLite
type SQLiteReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
	DBPath string
}

// NewSQLiteReadingRepository creates and initializes a new SQLite repository
func NewSQLiteReadingRepository(dbPath string, logger *zap.Logger) (*SQLiteReadingRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "sensor.db")
	}

	logger.Info("opening sqlite database", zap.String("path", dbPath))
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Column names follow the device firmware: kekeruhan is turbidity, phmeter is pH, temp is temperature
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS sensor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		kekeruhan REAL,
		phmeter REAL,
		waterflow REAL,
		temp REAL
	);
	CREATE INDEX IF NOT EXISTS idx_sensor_created_at ON sensor(created_at);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteReadingRepository{
		db:     db,
		logger: logger,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReadingRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveReadings stores readings in the database. Readings with an ID replace the stored row.
func (r *SQLiteReadingRepository) SaveReadings(ctx context.Context, data []entities.SensorReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor(id, created_at, kekeruhan, phmeter, waterflow, temp)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		created_at=excluded.created_at,
		kekeruhan=excluded.kekeruhan,
		phmeter=excluded.phmeter,
		waterflow=excluded.waterflow,
		temp=excluded.temp
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rd := range data {
		// A zero ID lets SQLite assign the next rowid
		var id any
		if rd.ID != 0 {
			id = rd.ID
		}
		// Stored in UTC so that created_at sorts lexically
		if _, err := stmt.ExecContext(ctx, id, rd.CreatedAt.UTC(), rd.Turbidity, rd.PH, rd.WaterFlow, rd.Temperature); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert reading %d: %w", rd.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("saved sensor readings", zap.Int("count", len(data)))
	return nil
}

// GetLatestReading retrieves the most recent reading
func (r *SQLiteReadingRepository) GetLatestReading(ctx context.Context) (*entities.SensorReading, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensor ORDER BY created_at DESC, id DESC LIMIT 1`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0]
	return &latest, nil
}

// GetReadings retrieves every reading, newest first
func (r *SQLiteReadingRepository) GetReadings(ctx context.Context) ([]entities.SensorReading, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensor ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query)
}

func (r *SQLiteReadingRepository) query(ctx context.Context, query string, args ...any) ([]entities.SensorReading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	var result []sensorRow
	for rows.Next() {
		var sr sensorRow
		if err := rows.Scan(
			&sr.ID,
			&sr.CreatedAt,
			&sr.Kekeruhan,
			&sr.PHMeter,
			&sr.WaterFlow,
			&sr.Temp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return toEntities(result), nil
}
