package spectral

import (
	"math"
)

// RadialResult holds the energy split of a centred spectrum around its DC point
type RadialResult struct {
	CenterX int `json:"center_x"`
	CenterY int `json:"center_y"`
	Radius  int `json:"radius"`

	LowEnergy  float64 `json:"low_energy"`  // Σ|X|² for dist <= radius
	HighEnergy float64 `json:"high_energy"` // Σ|X|² for dist > radius

	PeakX    int     `json:"peak_x"`
	PeakY    int     `json:"peak_y"`
	PeakDist float64 `json:"peak_dist"`

	// DominantFrequency is PeakDist normalised by the centre-to-corner distance
	DominantFrequency float64 `json:"dominant_frequency"`
}

// RadialPartition splits a centred (fftshift-ed) magnitude spectrum into a
// low-frequency disc and the high-frequency remainder.
//
// The centre is (rows/2, cols/2) and the disc radius is min(cx, cy)/RadiusDivisor
// using integer division, so small images degenerate to a disc of radius 0 that
// contains only the DC bin.
type RadialPartition struct {
	RadiusDivisor int
}

// NewRadialPartition creates a partition with the given radius divisor
func NewRadialPartition(radiusDivisor int) *RadialPartition {
	if radiusDivisor <= 0 {
		radiusDivisor = 4
	}
	return &RadialPartition{RadiusDivisor: radiusDivisor}
}

// Compute partitions the spectrum and locates its dominant component
func (rp *RadialPartition) Compute(magnitude [][]float64) *RadialResult {
	rows := len(magnitude)
	if rows == 0 || len(magnitude[0]) == 0 {
		return &RadialResult{}
	}
	cols := len(magnitude[0])

	cy, cx := rows/2, cols/2
	radius := min(cx, cy) / rp.RadiusDivisor

	result := &RadialResult{CenterX: cx, CenterY: cy, Radius: radius}

	peak := math.Inf(-1)
	for y := 0; y < rows; y++ {
		dy := float64(y - cy)
		for x := 0; x < cols; x++ {
			mag := magnitude[y][x]
			dx := float64(x - cx)
			dist := math.Sqrt(dx*dx + dy*dy)

			power := mag * mag
			if dist <= float64(radius) {
				result.LowEnergy += power
			} else {
				result.HighEnergy += power
			}

			// strict > keeps the first maximum in row-major order
			if mag > peak {
				peak = mag
				result.PeakX, result.PeakY = x, y
				result.PeakDist = dist
			}
		}
	}

	corner := math.Sqrt(float64(cx*cx + cy*cy))
	if corner > 0 {
		result.DominantFrequency = result.PeakDist / corner
	}

	return result
}
