package common

import "math"

// BilinearConstant samples data at the fractional position (r, c) with bilinear
// interpolation. Pixels outside the grid read as cval, so samples near the
// border blend towards it.
func BilinearConstant(data [][]float64, r, c, cval float64) float64 {
	rows := len(data)
	if rows == 0 {
		return cval
	}
	cols := len(data[0])

	minR := math.Floor(r)
	minC := math.Floor(c)
	maxR := math.Ceil(r)
	maxC := math.Ceil(c)
	dr := r - minR
	dc := c - minC

	at := func(rr, cc float64) float64 {
		ri, ci := int(rr), int(cc)
		if ri < 0 || ri >= rows || ci < 0 || ci >= cols {
			return cval
		}
		return data[ri][ci]
	}

	topLeft := at(minR, minC)
	topRight := at(minR, maxC)
	bottomLeft := at(maxR, minC)
	bottomRight := at(maxR, maxC)

	top := (1-dc)*topLeft + dc*topRight
	bottom := (1-dc)*bottomLeft + dc*bottomRight
	return (1-dr)*top + dr*bottom
}
