package spectral

// PowerSpectrum provides power (squared magnitude) computations over a 2-D
// magnitude spectrum
type PowerSpectrum struct {
	// No state needed - stateless calculation
}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// TotalEnergy returns Σ|X|² over the whole magnitude spectrum
func (ps *PowerSpectrum) TotalEnergy(magnitude [][]float64) float64 {
	total := 0.0
	for _, row := range magnitude {
		for _, mag := range row {
			total += mag * mag
		}
	}
	return total
}
