package classify

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix counts test samples by true (row) and predicted (column)
// class
type ConfusionMatrix struct {
	Classes []string
	Counts  [][]int
}

// NewConfusionMatrix tallies predictions against the truth
func NewConfusionMatrix(classes []string, truth, predicted []int) *ConfusionMatrix {
	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	for i, t := range truth {
		counts[t][predicted[i]]++
	}
	return &ConfusionMatrix{Classes: classes, Counts: counts}
}

// Total returns the number of samples
func (m *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Accuracy returns the fraction of correct predictions
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for i := range m.Counts {
		correct += m.Counts[i][i]
	}
	return float64(correct) / float64(total)
}

// WriteCSV writes the matrix with class labels on both axes
func (m *ConfusionMatrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"true\\predicted"}, m.Classes...)); err != nil {
		return err
	}
	for i, row := range m.Counts {
		record := make([]string, 0, len(row)+1)
		record = append(record, m.Classes[i])
		for _, v := range row {
			record = append(record, strconv.Itoa(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ClassMetrics holds precision, recall and F1 for one class or average
type ClassMetrics struct {
	Label     string  `json:"label" yaml:"label"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// Report is the per-class evaluation of one model. Undefined ratios (no
// predictions or no samples of a class) count as 0.
type Report struct {
	Model       string         `json:"model" yaml:"model"`
	Classes     []ClassMetrics `json:"classes" yaml:"classes"`
	Accuracy    float64        `json:"accuracy" yaml:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg" yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg" yaml:"weighted_avg"`
}

// NewReport derives the classification report of a confusion matrix
func NewReport(model string, m *ConfusionMatrix) *Report {
	k := len(m.Classes)
	r := &Report{
		Model:       model,
		Classes:     make([]ClassMetrics, k),
		Accuracy:    m.Accuracy(),
		MacroAvg:    ClassMetrics{Label: "macro avg"},
		WeightedAvg: ClassMetrics{Label: "weighted avg"},
	}

	total := m.Total()
	for c := 0; c < k; c++ {
		tp := m.Counts[c][c]
		support, predicted := 0, 0
		for j := 0; j < k; j++ {
			support += m.Counts[c][j]
			predicted += m.Counts[j][c]
		}

		cm := ClassMetrics{
			Label:     m.Classes[c],
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes[c] = cm

		r.MacroAvg.Precision += cm.Precision / float64(k)
		r.MacroAvg.Recall += cm.Recall / float64(k)
		r.MacroAvg.F1 += cm.F1 / float64(k)
		if total > 0 {
			weight := float64(support) / float64(total)
			r.WeightedAvg.Precision += cm.Precision * weight
			r.WeightedAvg.Recall += cm.Recall * weight
			r.WeightedAvg.F1 += cm.F1 * weight
		}
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// WriteCSV writes one row per class, then accuracy and the two averages.
// The accuracy row carries its value in the f1-score column.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", "precision", "recall", "f1-score", "support"}); err != nil {
		return err
	}

	metricsRow := func(m ClassMetrics) []string {
		return []string{m.Label, format(m.Precision), format(m.Recall), format(m.F1), strconv.Itoa(m.Support)}
	}
	for _, m := range r.Classes {
		if err := cw.Write(metricsRow(m)); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"accuracy", "", "", format(r.Accuracy), strconv.Itoa(r.MacroAvg.Support)}); err != nil {
		return err
	}
	if err := cw.Write(metricsRow(r.MacroAvg)); err != nil {
		return err
	}
	if err := cw.Write(metricsRow(r.WeightedAvg)); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Curve is a one-vs-rest ROC or precision-recall curve of one class. Area
// is the ROC AUC or the average precision, NaN when the test set lacks
// positives or negatives.
type Curve struct {
	Class string    `json:"class" yaml:"class"`
	X     []float64 `json:"-" yaml:"-"`
	Y     []float64 `json:"-" yaml:"-"`
	Area  float64   `json:"area" yaml:"area"`
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}

// ROC returns the receiver operating characteristic of scores for the
// positive samples: X is the false positive rate, Y the true positive rate
// and Area the trapezoidal AUC.
func ROC(class string, positive []bool, scores []float64) Curve {
	npos := countTrue(positive)
	if npos == 0 || npos == len(positive) {
		return Curve{Class: class, Area: math.NaN()}
	}

	y := append([]float64(nil), scores...)
	classes := append([]bool(nil), positive...)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return Curve{Class: class, X: fpr, Y: tpr, Area: integrate.Trapezoidal(fpr, tpr)}
}

// PrecisionRecall returns the precision (Y) against recall (X) as the
// decision threshold falls through the distinct scores, starting from
// (0, 1). Area is the average precision Σ (R_k - R_k-1)·P_k.
func PrecisionRecall(class string, positive []bool, scores []float64) Curve {
	npos := countTrue(positive)
	if npos == 0 {
		return Curve{Class: class, Area: math.NaN()}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	curve := Curve{Class: class, X: []float64{0}, Y: []float64{1}}
	tp, fp := 0, 0
	prevRecall := 0.0
	for k, i := range order {
		if positive[i] {
			tp++
		} else {
			fp++
		}
		if k+1 < len(order) && scores[order[k+1]] == scores[i] {
			continue
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(npos)
		curve.Area += (recall - prevRecall) * precision
		prevRecall = recall
		curve.X = append(curve.X, recall)
		curve.Y = append(curve.Y, precision)
	}
	return curve
}
