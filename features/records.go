package features

import "fmt"

// Key identifies one image across all feature tables
type Key struct {
	Filename string `json:"filename" yaml:"filename"`
	Species  string `json:"species" yaml:"species"`
}

// RowKey returns the key itself, so records embedding Key satisfy Record
func (k Key) RowKey() Key {
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Species, k.Filename)
}

// Record is one row of a feature table: a key plus a fixed list of numeric
// values in schema column order
type Record interface {
	RowKey() Key
	Values() []float64
}

// Spatial holds intensity and structure descriptors of an image
type Spatial struct {
	MeanIntensity float64 `json:"mean_intensity"` // arithmetic mean of intensities
	Contrast      float64 `json:"contrast"`       // population standard deviation
	Entropy       float64 `json:"entropy"`        // Shannon entropy of intensities (bits)
	EdgeDensity   float64 `json:"edge_density"`   // fraction of Canny edge pixels
}

// SpatialColumns lists the numeric columns of the spatial table
var SpatialColumns = []string{"mean_intensity", "contrast", "entropy", "edge_density"}

// Values returns the fields in SpatialColumns order
func (s Spatial) Values() []float64 {
	return []float64{s.MeanIntensity, s.Contrast, s.Entropy, s.EdgeDensity}
}

func spatialFrom(v []float64) Spatial {
	return Spatial{MeanIntensity: v[0], Contrast: v[1], Entropy: v[2], EdgeDensity: v[3]}
}

// Frequency holds 2-D Fourier spectrum descriptors of an image
type Frequency struct {
	SpectralEnergy    float64 `json:"spectral_energy"`    // Σ|F|²
	LowFreqEnergy     float64 `json:"low_freq_energy"`    // Σ|F|² inside the radial cutoff
	HighFreqEnergy    float64 `json:"high_freq_energy"`   // Σ|F|² outside the radial cutoff
	HighLowRatio      float64 `json:"high_low_ratio"`     // high / (low + ε)
	DominantFrequency float64 `json:"dominant_frequency"` // peak distance from DC, normalised to [0, 1]
}

// FrequencyColumns lists the numeric columns of the frequency table
var FrequencyColumns = []string{"spectral_energy", "low_freq_energy", "high_freq_energy", "high_low_ratio", "dominant_frequency"}

// Values returns the fields in FrequencyColumns order
func (f Frequency) Values() []float64 {
	return []float64{f.SpectralEnergy, f.LowFreqEnergy, f.HighFreqEnergy, f.HighLowRatio, f.DominantFrequency}
}

func frequencyFrom(v []float64) Frequency {
	return Frequency{SpectralEnergy: v[0], LowFreqEnergy: v[1], HighFreqEnergy: v[2], HighLowRatio: v[3], DominantFrequency: v[4]}
}

// Texture holds local binary pattern descriptors of an image
type Texture struct {
	LBPUniformRatio float64 `json:"lbp_uniform_ratio"` // histogram mass outside the last bin
	LBPEntropy      float64 `json:"lbp_entropy"`       // entropy of the code histogram (bits)
	LBPDomBinRatio  float64 `json:"lbp_dom_bin_ratio"` // mass of the most frequent code
}

// TextureColumns lists the numeric columns of the LBP table
var TextureColumns = []string{"lbp_uniform_ratio", "lbp_entropy", "lbp_dom_bin_ratio"}

// Values returns the fields in TextureColumns order
func (t Texture) Values() []float64 {
	return []float64{t.LBPUniformRatio, t.LBPEntropy, t.LBPDomBinRatio}
}

func textureFrom(v []float64) Texture {
	return Texture{LBPUniformRatio: v[0], LBPEntropy: v[1], LBPDomBinRatio: v[2]}
}

// SpatialRecord is one row of the spatial table
type SpatialRecord struct {
	Key
	Spatial
}

// FrequencyRecord is one row of the frequency table
type FrequencyRecord struct {
	Key
	Frequency
}

// TextureRecord is one row of the LBP table
type TextureRecord struct {
	Key
	Texture
}

// MergedRecord is one row of the joined table
type MergedRecord struct {
	Key
	Spatial
	Frequency
	Texture
}

// MergedColumns lists the numeric columns of the merged table
var MergedColumns = concat(SpatialColumns, FrequencyColumns, TextureColumns)

// Values returns all descriptors in MergedColumns order
func (m MergedRecord) Values() []float64 {
	return concat(m.Spatial.Values(), m.Frequency.Values(), m.Texture.Values())
}

func concat[T any](parts ...[]T) []T {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
