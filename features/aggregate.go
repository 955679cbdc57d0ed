package features

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// JoinSpatialFrequency is the first inner join of the aggregation. Rows keep
// the order of the spatial table.
func JoinSpatialFrequency(spatial *Table[SpatialRecord], frequency *Table[FrequencyRecord]) ([]MergedRecord, error) {
	index, err := frequency.Index()
	if err != nil {
		return nil, err
	}
	if _, err := spatial.Index(); err != nil {
		return nil, err
	}

	joined := make([]MergedRecord, 0, min(spatial.Len(), frequency.Len()))
	for _, s := range spatial.Rows {
		f, ok := index[s.Key]
		if !ok {
			continue
		}
		joined = append(joined, MergedRecord{Key: s.Key, Spatial: s.Spatial, Frequency: f.Frequency})
	}
	return joined, nil
}

// Join inner-joins the three tables on {filename, species}: spatial with
// frequency first, then the result with texture. A key survives only when
// all three tables carry it, and the output keeps spatial row order.
func Join(spatial *Table[SpatialRecord], frequency *Table[FrequencyRecord], texture *Table[TextureRecord]) (*Table[MergedRecord], error) {
	partial, err := JoinSpatialFrequency(spatial, frequency)
	if err != nil {
		return nil, err
	}

	index, err := texture.Index()
	if err != nil {
		return nil, err
	}

	merged := NewTable(MergedSchema, min(len(partial), texture.Len()))
	for _, row := range partial {
		t, ok := index[row.Key]
		if !ok {
			continue
		}
		row.Texture = t.Texture
		merged.Append(row)
	}
	return merged, nil
}

// AggregateResult summarises one aggregation run
type AggregateResult struct {
	SpatialRows   int           `json:"spatial_rows" yaml:"spatial_rows"`
	FrequencyRows int           `json:"frequency_rows" yaml:"frequency_rows"`
	TextureRows   int           `json:"texture_rows" yaml:"texture_rows"`
	MergedRows    int           `json:"merged_rows" yaml:"merged_rows"`
	Output        string        `json:"output" yaml:"output"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// Aggregator loads the three persisted feature tables, joins them and
// persists the merged table
type Aggregator struct {
	output *config.OutputConfig
	logger logging.Logger
}

// NewAggregator creates an aggregator over the given table locations
func NewAggregator(output *config.OutputConfig) *Aggregator {
	if output == nil {
		output = config.DefaultOutputConfig()
	}
	return &Aggregator{
		output: output,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_aggregator",
		}),
	}
}

// Load reads the three extractor tables. A missing or malformed table is a
// *LoadError; nothing is joined from partial inputs.
func (a *Aggregator) Load() (*Table[SpatialRecord], *Table[FrequencyRecord], *Table[TextureRecord], error) {
	spatial, err := LoadTable(a.output.SpatialPath(), SpatialSchema)
	if err != nil {
		return nil, nil, nil, err
	}
	frequency, err := LoadTable(a.output.FrequencyPath(), FrequencySchema)
	if err != nil {
		return nil, nil, nil, err
	}
	texture, err := LoadTable(a.output.TexturePath(), TextureSchema)
	if err != nil {
		return nil, nil, nil, err
	}
	return spatial, frequency, texture, nil
}

// Run loads, joins and saves, returning the merged table
func (a *Aggregator) Run(ctx context.Context) (*Table[MergedRecord], *AggregateResult, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
	})
	start := time.Now()

	spatial, frequency, texture, err := a.Load()
	if err != nil {
		logger.Error(err, "Failed to load feature tables")
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	merged, err := Join(spatial, frequency, texture)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to join feature tables: %w", err)
	}

	path := a.output.MergedPath()
	if err := SaveTable(path, merged); err != nil {
		return nil, nil, err
	}

	result := &AggregateResult{
		SpatialRows:   spatial.Len(),
		FrequencyRows: frequency.Len(),
		TextureRows:   texture.Len(),
		MergedRows:    merged.Len(),
		Output:        path,
		Duration:      time.Since(start),
	}

	logger.Info("Feature tables merged", logging.Fields{
		"spatial_rows":   result.SpatialRows,
		"frequency_rows": result.FrequencyRows,
		"texture_rows":   result.TextureRows,
		"merged_rows":    result.MergedRows,
		"output":         path,
	})

	return merged, result, nil
}

// LoadMerged reads the merged table written by Run
func (a *Aggregator) LoadMerged() (*Table[MergedRecord], error) {
	return LoadTable(a.output.MergedPath(), MergedSchema)
}
