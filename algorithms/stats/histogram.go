package stats

// CodeHistogram builds a density-normalised histogram over non-negative
// integer codes, with one unit-width bin per code value from 0 to the largest
// observed code. Bins sum to 1 for non-empty input.
func CodeHistogram(codes []int) []float64 {
	if len(codes) == 0 {
		return []float64{}
	}

	maxCode := 0
	for _, c := range codes {
		if c > maxCode {
			maxCode = c
		}
	}

	counts := make([]int, maxCode+1)
	for _, c := range codes {
		if c >= 0 {
			counts[c]++
		}
	}

	total := float64(len(codes))
	hist := make([]float64, len(counts))
	for i, c := range counts {
		hist[i] = float64(c) / total
	}

	return hist
}
