package features

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	os.Exit(m.Run())
}

func key(species, name string) Key {
	return Key{Filename: name, Species: species}
}

func spatialTable(keys ...Key) *Table[SpatialRecord] {
	t := NewTable(SpatialSchema, len(keys))
	for i, k := range keys {
		f := float64(i)
		t.Append(SpatialRecord{Key: k, Spatial: Spatial{MeanIntensity: 100 + f, Contrast: 10 + f, Entropy: 5 + f, EdgeDensity: 0.1 * f}})
	}
	return t
}

func frequencyTable(keys ...Key) *Table[FrequencyRecord] {
	t := NewTable(FrequencySchema, len(keys))
	for i, k := range keys {
		f := float64(i)
		t.Append(FrequencyRecord{Key: k, Frequency: Frequency{SpectralEnergy: 1e9 + f, LowFreqEnergy: 9e8, HighFreqEnergy: 1e8 + f, HighLowRatio: 0.11, DominantFrequency: 0}})
	}
	return t
}

func textureTable(keys ...Key) *Table[TextureRecord] {
	t := NewTable(TextureSchema, len(keys))
	for i, k := range keys {
		f := float64(i)
		t.Append(TextureRecord{Key: k, Texture: Texture{LBPUniformRatio: 0.9 - 0.01*f, LBPEntropy: 1.5, LBPDomBinRatio: 0.3}})
	}
	return t
}

func TestJoinKeepsOnlyKeysPresentEverywhere(t *testing.T) {
	a1, a2, a3 := key("A", "1.jpg"), key("A", "2.jpg"), key("A", "3.jpg")
	b1, b2 := key("B", "1.jpg"), key("B", "2.jpg")

	spatial := spatialTable(a1, a2, a3, b1)
	frequency := frequencyTable(b1, a3, a1, b2)
	texture := textureTable(a1, b1, b2, a2)

	merged, err := Join(spatial, frequency, texture)
	require.NoError(t, err)

	assert.Equal(t, []Key{a1, b1}, merged.Keys())
	assert.LessOrEqual(t, merged.Len(), min(spatial.Len(), frequency.Len(), texture.Len()))

	sIdx, _ := spatial.Index()
	fIdx, _ := frequency.Index()
	tIdx, _ := texture.Index()
	for _, row := range merged.Rows {
		assert.Equal(t, sIdx[row.Key].Spatial, row.Spatial)
		assert.Equal(t, fIdx[row.Key].Frequency, row.Frequency)
		assert.Equal(t, tIdx[row.Key].Texture, row.Texture)
	}
}

func TestJoinSameFilenameDifferentSpecies(t *testing.T) {
	a, b := key("A", "x.jpg"), key("B", "x.jpg")

	merged, err := Join(spatialTable(a, b), frequencyTable(b), textureTable(a, b))
	require.NoError(t, err)
	assert.Equal(t, []Key{b}, merged.Keys())
}

func TestJoinRejectsDuplicateKeys(t *testing.T) {
	a := key("A", "1.jpg")

	_, err := Join(spatialTable(a), frequencyTable(a, a), textureTable(a))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestJoinEmpty(t *testing.T) {
	merged, err := Join(spatialTable(), frequencyTable(key("A", "1.jpg")), textureTable())
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
}

func TestMergedColumns(t *testing.T) {
	assert.Len(t, MergedColumns, 12)
	assert.Equal(t, []string{
		"filename", "species",
		"mean_intensity", "contrast", "entropy", "edge_density",
		"spectral_energy", "low_freq_energy", "high_freq_energy", "high_low_ratio", "dominant_frequency",
		"lbp_uniform_ratio", "lbp_entropy", "lbp_dom_bin_ratio",
	}, MergedSchema.Header())

	seen := make(map[string]bool)
	for _, c := range MergedColumns {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}

func TestCSVRoundTrip(t *testing.T) {
	merged, err := Join(
		spatialTable(key("A", "a,1.jpg"), key("B", "b.png")),
		frequencyTable(key("A", "a,1.jpg"), key("B", "b.png")),
		textureTable(key("A", "a,1.jpg"), key("B", "b.png")),
	)
	require.NoError(t, err)
	merged.Rows[0].Spatial.Entropy = 0.1 + 0.2

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, merged))

	back, err := ReadCSV(&buf, MergedSchema)
	require.NoError(t, err)
	assert.Equal(t, merged.Rows, back.Rows)
}

func TestReadCSVErrors(t *testing.T) {
	header := strings.Join(TextureSchema.Header(), ",")

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty", "", ErrMalformedTable},
		{"wrong header", "filename,species,foo,bar,baz\n", ErrMalformedTable},
		{"short row", header + "\nx.jpg,A,0.5,1\n", ErrMalformedTable},
		{"not a number", header + "\nx.jpg,A,0.5,abc,0.2\n", ErrMalformedTable},
		{"duplicate", header + "\nx.jpg,A,0.5,1,0.2\nx.jpg,A,0.5,1,0.2\n", ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.content), TextureSchema)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(strings.Join(SpatialSchema.Header(), ",")+"\n"), SpatialSchema)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestTableColumns(t *testing.T) {
	table := spatialTable(key("A", "1"), key("A", "2"))

	col, err := table.Column("contrast")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, col)

	_, err = table.Column("nope")
	assert.Error(t, err)

	cols := table.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, []float64{100, 101}, cols[0])
}

func TestAggregatorMissingTableIsFatal(t *testing.T) {
	out := config.DefaultOutputConfig()
	out.Dir = t.TempDir()

	require.NoError(t, SaveTable(out.SpatialPath(), spatialTable(key("A", "1.jpg"))))
	require.NoError(t, SaveTable(out.TexturePath(), textureTable(key("A", "1.jpg"))))

	_, _, err := NewAggregator(out).Run(context.Background())
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "frequency", loadErr.Table)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(out.MergedPath())
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestAggregatorRun(t *testing.T) {
	out := config.DefaultOutputConfig()
	out.Dir = filepath.Join(t.TempDir(), "features")

	keys := []Key{key("A", "1.jpg"), key("A", "2.jpg"), key("B", "1.png")}
	require.NoError(t, SaveTable(out.SpatialPath(), spatialTable(keys...)))
	require.NoError(t, SaveTable(out.FrequencyPath(), frequencyTable(keys[2], keys[0], keys[1])))
	require.NoError(t, SaveTable(out.TexturePath(), textureTable(keys[:2]...)))

	agg := NewAggregator(out)
	merged, result, err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 3, result.SpatialRows)
	assert.Equal(t, 2, result.MergedRows)

	loaded, err := agg.LoadMerged()
	require.NoError(t, err)
	assert.Equal(t, merged.Rows, loaded.Rows)

	first, err := os.ReadFile(out.MergedPath())
	require.NoError(t, err)
	_, _, err = agg.Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(out.MergedPath())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
