// Package store keeps merged feature tables of pipeline runs in SQLite, so
// runs can be compared and reloaded without the CSV files.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/logging"
)

// ErrRunNotFound is returned when no run matches a lookup
var ErrRunNotFound = errors.New("run not found")

// insertBatchSize bounds the rows per INSERT statement
const insertBatchSize = 500

// Run is one stored pipeline run
type Run struct {
	ID         string    `gorm:"primaryKey;size:36"`
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
	InputDir   string
	MergedRows int
}

// FeatureRow is one merged feature record of a run
type FeatureRow struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"size:36;index;uniqueIndex:idx_run_key"`
	Filename string `gorm:"uniqueIndex:idx_run_key"`
	Species  string `gorm:"uniqueIndex:idx_run_key;index"`

	MeanIntensity float64
	Contrast      float64
	Entropy       float64
	EdgeDensity   float64

	SpectralEnergy    float64
	LowFreqEnergy     float64
	HighFreqEnergy    float64
	HighLowRatio      float64
	DominantFrequency float64

	LBPUniformRatio float64
	LBPEntropy      float64
	LBPDomBinRatio  float64
}

func rowFromRecord(runID string, r features.MergedRecord) FeatureRow {
	return FeatureRow{
		RunID:    runID,
		Filename: r.Filename,
		Species:  r.Species,

		MeanIntensity: r.MeanIntensity,
		Contrast:      r.Contrast,
		Entropy:       r.Entropy,
		EdgeDensity:   r.EdgeDensity,

		SpectralEnergy:    r.SpectralEnergy,
		LowFreqEnergy:     r.LowFreqEnergy,
		HighFreqEnergy:    r.HighFreqEnergy,
		HighLowRatio:      r.HighLowRatio,
		DominantFrequency: r.DominantFrequency,

		LBPUniformRatio: r.LBPUniformRatio,
		LBPEntropy:      r.LBPEntropy,
		LBPDomBinRatio:  r.LBPDomBinRatio,
	}
}

func (f FeatureRow) record() features.MergedRecord {
	return features.MergedRecord{
		Key: features.Key{Filename: f.Filename, Species: f.Species},
		Spatial: features.Spatial{
			MeanIntensity: f.MeanIntensity,
			Contrast:      f.Contrast,
			Entropy:       f.Entropy,
			EdgeDensity:   f.EdgeDensity,
		},
		Frequency: features.Frequency{
			SpectralEnergy:    f.SpectralEnergy,
			LowFreqEnergy:     f.LowFreqEnergy,
			HighFreqEnergy:    f.HighFreqEnergy,
			HighLowRatio:      f.HighLowRatio,
			DominantFrequency: f.DominantFrequency,
		},
		Texture: features.Texture{
			LBPUniformRatio: f.LBPUniformRatio,
			LBPEntropy:      f.LBPEntropy,
			LBPDomBinRatio:  f.LBPDomBinRatio,
		},
	}
}

// Store is a SQLite backed feature store
type Store struct {
	db     *gorm.DB
	path   string
	logger logging.Logger
}

// Open opens or creates the database at path and migrates the schema
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}, &FeatureRow{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate feature store: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_store",
		}),
	}
	s.logger.Debug("Feature store opened", logging.Fields{"path": path})
	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// SaveRun stores a run and its merged table in one transaction
func (s *Store) SaveRun(ctx context.Context, run Run, merged *features.Table[features.MergedRecord]) error {
	if run.ID == "" {
		return fmt.Errorf("run id is empty")
	}
	run.MergedRows = merged.Len()

	rows := make([]FeatureRow, len(merged.Rows))
	for i, r := range merged.Rows {
		rows[i] = rowFromRecord(run.ID, r)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	s.logger.Info("Run stored", logging.Fields{
		"run_id": run.ID,
		"rows":   run.MergedRows,
	})
	return nil
}

// Run returns one stored run
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestRun returns the most recently started run
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs lists stored runs, newest first
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Features loads the merged table of a run in its original row order
func (s *Store) Features(ctx context.Context, runID string) (*features.Table[features.MergedRecord], error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}

	var rows []FeatureRow
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	table := features.NewTable(features.MergedSchema, len(rows))
	for _, r := range rows {
		table.Append(r.record())
	}
	return table, nil
}

// SpeciesCounts returns the number of rows per species of a run
func (s *Store) SpeciesCounts(ctx context.Context, runID string) (map[string]int, error) {
	var counts []struct {
		Species string
		Count   int
	}
	err := s.db.WithContext(ctx).Model(&FeatureRow{}).
		Select("species, count(*) as count").
		Where("run_id = ?", runID).
		Group("species").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int, len(counts))
	for _, c := range counts {
		result[c.Species] = c.Count
	}
	return result, nil
}
