// Package repository provides data access implementations
package repository

import (
	"context"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// ReadingRepository defines the read side of the sensor store
type ReadingRepository interface {
	// GetLatestReading returns the most recent reading, or nil when the store is empty
	GetLatestReading(ctx context.Context) (*entities.SensorReading, error)
	// GetReadings returns every reading sorted by creation time, newest first
	GetReadings(ctx context.Context) ([]entities.SensorReading, error)
	Close() error
}
