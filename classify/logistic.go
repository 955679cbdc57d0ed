package classify

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is a multinomial (softmax) logistic model with an L2
// penalty of ||W||²/2C on the weights. The bias is not penalised.
//
// Training minimises the penalised negative log-likelihood with L-BFGS.
type LogisticRegression struct {
	C             float64
	MaxIterations int

	classes int
	dims    int

	// classes × (dims+1), bias in the last column
	weights *mat.Dense
}

// NewLogisticRegression creates an untrained model
func NewLogisticRegression(c float64, maxIterations int) *LogisticRegression {
	return &LogisticRegression{C: c, MaxIterations: maxIterations}
}

// Name implements Classifier
func (l *LogisticRegression) Name() string {
	return ModelLogistic
}

// Fit implements Classifier
func (l *LogisticRegression) Fit(ctx context.Context, x *mat.Dense, labels []int, classes int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, d := x.Dims()
	if n != len(labels) {
		return fmt.Errorf("logistic regression: %d rows but %d labels", n, len(labels))
	}
	l.classes, l.dims = classes, d

	width := d + 1
	lambda := 1 / l.C
	probs := make([]float64, classes)

	// loss returns the objective and, when grad is non-nil, fills it
	loss := func(grad, w []float64) float64 {
		if grad != nil {
			for i := range grad {
				grad[i] = 0
			}
		}

		total := 0.0
		for i := 0; i < n; i++ {
			row := x.RawRowView(i)
			for c := 0; c < classes; c++ {
				wc := w[c*width : (c+1)*width]
				probs[c] = floats.Dot(wc[:d], row) + wc[d]
			}
			lse := floats.LogSumExp(probs)
			total += lse - probs[labels[i]]

			if grad == nil {
				continue
			}
			for c := 0; c < classes; c++ {
				p := math.Exp(probs[c] - lse)
				if c == labels[i] {
					p--
				}
				gc := grad[c*width : (c+1)*width]
				floats.AddScaled(gc[:d], p, row)
				gc[d] += p
			}
		}

		for c := 0; c < classes; c++ {
			wc := w[c*width : c*width+d]
			total += lambda / 2 * floats.Dot(wc, wc)
			if grad != nil {
				floats.AddScaled(grad[c*width:c*width+d], lambda, wc)
			}
		}
		return total
	}

	problem := optimize.Problem{
		Func: func(w []float64) float64 { return loss(nil, w) },
		Grad: func(grad, w []float64) { loss(grad, w) },
	}
	settings := &optimize.Settings{
		MajorIterations:   l.MaxIterations,
		GradientThreshold: 1e-6,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, classes*width), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	// a stalled line search still leaves the best point found
	l.weights = mat.NewDense(classes, width, result.X)
	return nil
}

// Scores implements Classifier. Rows are class probabilities.
func (l *LogisticRegression) Scores(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	out := mat.NewDense(n, l.classes, nil)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		z := out.RawRowView(i)
		for c := 0; c < l.classes; c++ {
			wc := l.weights.RawRowView(c)
			z[c] = floats.Dot(wc[:l.dims], row) + wc[l.dims]
		}
		lse := floats.LogSumExp(z)
		for c := range z {
			z[c] = math.Exp(z[c] - lse)
		}
	}
	return out
}
