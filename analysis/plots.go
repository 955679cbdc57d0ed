package analysis

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/RyanBlaney/specimen/algorithms/common"
	"github.com/RyanBlaney/specimen/classify"
)

// Figure sizes
var (
	heatmapWidth, heatmapHeight     = 14 * vg.Inch, 12 * vg.Inch
	scatterWidth, scatterHeight     = 8 * vg.Inch, 6 * vg.Inch
	varianceWidth, varianceHeight   = 8 * vg.Inch, 5 * vg.Inch
	confusionWidth, confusionHeight = 10 * vg.Inch, 8 * vg.Inch
	curveWidth, curveHeight         = 10 * vg.Inch, 8 * vg.Inch
	metricsWidth, metricsHeight     = 7 * vg.Inch, 5 * vg.Inch
)

// paletteSize is the number of colours sampled from the diverging map
const paletteSize = 255

// matrixGrid exposes a square matrix as a heat map grid. Row 0 of the
// matrix is drawn at the top.
type matrixGrid struct {
	n     int
	value func(row, col int) float64
}

func (g matrixGrid) Dims() (c, r int)   { return g.n, g.n }
func (g matrixGrid) Z(c, r int) float64 { return g.value(g.n-1-r, c) }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// plotY returns the grid coordinate of a matrix row
func (g matrixGrid) plotY(row int) float64 { return float64(g.n - 1 - row) }

// matrixPlot draws a labelled square heat map of grid on [lo, hi]
func matrixPlot(grid matrixGrid, labels []string, colors palette.Palette, lo, hi float64) *plot.Plot {
	heat := plotter.NewHeatMap(grid, colors)
	heat.Min, heat.Max = lo, hi
	heat.NaN = color.Gray{Y: 0xd0}

	p := plot.New()
	p.Add(heat)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	rows := make([]string, grid.n)
	for i, name := range labels {
		rows[int(grid.plotY(i))] = name
	}
	p.NominalY(rows...)
	return p
}

// PlotHeatmap renders the correlation matrix on a fixed [-1, 1] blue-red
// scale. NaN cells are drawn light gray.
func PlotHeatmap(m *CorrelationMatrix, path string) error {
	if m.Size() == 0 {
		return fmt.Errorf("empty correlation matrix")
	}

	colors := moreland.SmoothBlueRed()
	colors.SetMin(-1)
	colors.SetMax(1)

	grid := matrixGrid{n: m.Size(), value: func(row, col int) float64 {
		v := m.At(row, col)
		if math.IsNaN(v) {
			return v
		}
		return common.Clamp(v, -1, 1)
	}}

	p := matrixPlot(grid, m.Columns, colors.Palette(paletteSize), -1, 1)
	p.Title.Text = "Feature Correlation Heatmap (Multiclass)"

	return savePlot(p, heatmapWidth, heatmapHeight, path)
}

// PlotConfusion renders a confusion matrix in blues with the count written
// in every cell
func PlotConfusion(cm *classify.ConfusionMatrix, model, path string) error {
	n := len(cm.Classes)
	if n == 0 {
		return fmt.Errorf("empty confusion matrix")
	}

	blues, err := brewer.GetPalette(brewer.TypeSequential, "Blues", 9)
	if err != nil {
		return fmt.Errorf("failed to load palette: %w", err)
	}

	peak := 1
	for _, row := range cm.Counts {
		for _, v := range row {
			peak = max(peak, v)
		}
	}

	grid := matrixGrid{n: n, value: func(row, col int) float64 {
		return float64(cm.Counts[row][col])
	}}
	p := matrixPlot(grid, cm.Classes, blues, 0, float64(peak))
	p.Title.Text = fmt.Sprintf("Confusion Matrix - %s", model)
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"

	cells := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(col), Y: grid.plotY(row)})
			cells.Labels = append(cells.Labels, strconv.Itoa(cm.Counts[row][col]))
		}
	}
	annotations, err := plotter.NewLabels(cells)
	if err != nil {
		return fmt.Errorf("failed to annotate confusion matrix: %w", err)
	}
	for i := range annotations.TextStyle {
		style := &annotations.TextStyle[i]
		style.XAlign = draw.XCenter
		style.YAlign = draw.YCenter
		style.Color = color.Black
		if count := cm.Counts[i/n][i%n]; 2*count > peak {
			style.Color = color.White
		}
	}
	p.Add(annotations)

	return savePlot(p, confusionWidth, confusionHeight, path)
}

// PlotComponents draws principal component y against component x (both
// zero based), one colour and glyph per species
func PlotComponents(r *PCAResult, x, y int, path string) error {
	if x < 0 || y < 0 || x >= r.Components || y >= r.Components {
		return fmt.Errorf("projection on PC%d/PC%d needs %d components, have %d",
			x+1, y+1, max(x, y)+1, r.Components)
	}

	bySpecies := make(map[string]plotter.XYs)
	for i, key := range r.Keys {
		bySpecies[key.Species] = append(bySpecies[key.Species], plotter.XY{
			X: r.Projections.At(i, x),
			Y: r.Projections.At(i, y),
		})
	}
	species := make([]string, 0, len(bySpecies))
	for s := range bySpecies {
		species = append(species, s)
	}
	sort.Strings(species)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("PCA - PC%d vs PC%d", x+1, y+1)
	p.X.Label.Text = fmt.Sprintf("PC%d", x+1)
	p.Y.Label.Text = fmt.Sprintf("PC%d", y+1)
	p.Legend.Top = true

	for i, s := range species {
		scatter, err := plotter.NewScatter(bySpecies[s])
		if err != nil {
			return fmt.Errorf("failed to plot species %s: %w", s, err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(i)
		scatter.GlyphStyle.Shape = plotutil.Shape(i)
		scatter.GlyphStyle.Radius = vg.Points(3)

		p.Add(scatter)
		p.Legend.Add(s, scatter)
	}

	return savePlot(p, scatterWidth, scatterHeight, path)
}

// PlotProjection draws the first two principal components
func PlotProjection(r *PCAResult, path string) error {
	return PlotComponents(r, 0, 1, path)
}

// PlotROC draws the one-vs-rest ROC curve of every class against the
// chance diagonal
func PlotROC(e *classify.Evaluation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC Curve - %s", e.Model)
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	chance.Color = color.Black
	chance.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(chance)

	if err := addCurves(p, e.ROC, "AUC"); err != nil {
		return err
	}
	return savePlot(p, curveWidth, curveHeight, path)
}

// PlotPrecisionRecall draws the one-vs-rest precision-recall curve of
// every class
func PlotPrecisionRecall(e *classify.Evaluation, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Precision-Recall Curve - %s", e.Model)
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"

	if err := addCurves(p, e.PrecisionRecall, "AP"); err != nil {
		return err
	}
	return savePlot(p, curveWidth, curveHeight, path)
}

// addCurves adds one line per class with a defined area, labelled with the
// area under name
func addCurves(p *plot.Plot, curves []classify.Curve, name string) error {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Legend.Left = true
	p.Legend.Top = false

	for i, c := range curves {
		if math.IsNaN(c.Area) {
			continue
		}
		points := make(plotter.XYs, len(c.X))
		for j := range c.X {
			points[j] = plotter.XY{X: c.X[j], Y: c.Y[j]}
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("failed to plot class %s: %w", c.Class, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%s = %.2f)", c.Class, name, c.Area), line)
	}
	return nil
}

// PlotModelMetrics draws the weighted average precision, recall and F1 of
// one model as bars
func PlotModelMetrics(r *classify.Report, path string) error {
	values := plotter.Values{r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1}
	bars, err := plotter.NewBarChart(values, vg.Points(60))
	if err != nil {
		return fmt.Errorf("failed to plot metrics: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Metrics (Weighted Avg)", r.Model)
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid(), bars)
	p.NominalX("precision", "recall", "f1-score")

	return savePlot(p, metricsWidth, metricsHeight, path)
}

// PlotVariance draws the cumulative explained variance in percent against
// the number of retained components
func PlotVariance(r *PCAResult, path string) error {
	if r.Components == 0 {
		return fmt.Errorf("no principal components to plot")
	}

	points := make(plotter.XYs, r.Components)
	for i, c := range r.Cumulative {
		points[i] = plotter.XY{X: float64(i + 1), Y: c * 100}
	}

	p := plot.New()
	p.Title.Text = "PCA - Cumulative Variance"
	p.X.Label.Text = "Number of Components"
	p.Y.Label.Text = "Cumulative Explained Variance (%)"
	p.Add(plotter.NewGrid())

	line, markers, err := plotter.NewLinePoints(points)
	if err != nil {
		return fmt.Errorf("failed to plot variance: %w", err)
	}
	line.Color = plotutil.Color(0)
	markers.Color = plotutil.Color(0)
	markers.Shape = draw.CircleGlyph{}
	p.Add(line, markers)

	return savePlot(p, varianceWidth, varianceHeight, path)
}

func savePlot(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create figure directory: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
