package classify

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// svmTolerance is the KKT violation below which the dual solver stops
const svmTolerance = 1e-3

// SVM is a support vector classifier with a Gaussian (RBF) kernel
// exp(-γ·|a-b|²), trained one class against the rest. γ is 1/(d·Var(X))
// over the training matrix. Class scores are the signed distances from
// each one-vs-rest decision boundary.
//
// References:
// - Keerthi, S.S. et al. (2001). "Improvements to Platt's SMO Algorithm for
//   SVM Classifier Design", Neural Computation 13
type SVM struct {
	C             float64
	MaxIterations int

	gamma    float64
	support  *mat.Dense
	machines []binaryMachine
}

// binaryMachine is one trained one-vs-rest decision function
// f(x) = Σ coef_i·K(x_i, x) - rho
type binaryMachine struct {
	coef []float64
	rho  float64
}

// NewSVM creates an untrained classifier
func NewSVM(c float64, maxIterations int) *SVM {
	return &SVM{C: c, MaxIterations: maxIterations}
}

// Name implements Classifier
func (s *SVM) Name() string {
	return ModelSVM
}

// Fit implements Classifier
func (s *SVM) Fit(ctx context.Context, x *mat.Dense, labels []int, classes int) error {
	n, d := x.Dims()
	if n != len(labels) {
		return fmt.Errorf("svm: %d rows but %d labels", n, len(labels))
	}

	s.gamma = 1.0
	if v := stat.Variance(x.RawMatrix().Data, nil) * float64(n*d-1) / float64(n*d); v > 0 {
		s.gamma = 1 / (float64(d) * v)
	}
	s.support = mat.DenseCopyOf(x)

	kernel := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			kernel.SetSym(i, j, s.rbf(x.RawRowView(i), x.RawRowView(j)))
		}
	}

	s.machines = make([]binaryMachine, classes)
	y := make([]float64, n)
	for c := 0; c < classes; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, l := range labels {
			y[i] = -1
			if l == c {
				y[i] = 1
			}
		}
		s.machines[c] = solveDual(kernel, y, s.C, s.MaxIterations)
	}
	return nil
}

// Scores implements Classifier
func (s *SVM) Scores(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	m, _ := s.support.Dims()
	out := mat.NewDense(n, len(s.machines), nil)

	k := make([]float64, m)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := 0; j < m; j++ {
			k[j] = s.rbf(row, s.support.RawRowView(j))
		}
		for c, machine := range s.machines {
			out.Set(i, c, floats.Dot(machine.coef, k)-machine.rho)
		}
	}
	return out
}

func (s *SVM) rbf(a, b []float64) float64 {
	dist := floats.Distance(a, b, 2)
	return math.Exp(-s.gamma * dist * dist)
}

// solveDual solves the C-SVC dual
//
//	min ½αᵀQα - eᵀα  subject to  0 ≤ α ≤ C, yᵀα = 0
//
// with Q_ij = y_i·y_j·K_ij by sequential minimal optimisation, picking the
// maximal violating pair each step. The iteration cap is at least 100·n.
func solveDual(kernel *mat.SymDense, y []float64, c float64, maxIterations int) binaryMachine {
	n := len(y)
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	q := func(i, j int) float64 { return y[i] * y[j] * kernel.At(i, j) }

	upper := func(t int) bool { return (y[t] > 0 && alpha[t] < c) || (y[t] < 0 && alpha[t] > 0) }
	lower := func(t int) bool { return (y[t] > 0 && alpha[t] > 0) || (y[t] < 0 && alpha[t] < c) }

	limit := max(maxIterations, 100*n)
	for iter := 0; iter < limit; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * grad[t]
			if upper(t) && v > gmax {
				gmax, i = v, t
			}
			if lower(t) && v < gmin {
				gmin, j = v, t
			}
		}
		if i < 0 || j < 0 || gmax-gmin < svmTolerance {
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := q(i, i) + q(j, j) + 2*q(i, j)
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, c-diff
				}
			} else if alpha[j] > c {
				alpha[j], alpha[i] = c, c+diff
			}
		} else {
			quad := q(i, i) + q(j, j) - 2*q(i, j)
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, sum-c
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j], alpha[i] = c, sum-c
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(i, t)*dI + q(j, t)*dJ
		}
	}

	// rho averages y·∇ over free vectors, or takes the midpoint of the
	// feasible interval when every α sits on a bound
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree, free := 0.0, 0
	for t := 0; t < n; t++ {
		yg := y[t] * grad[t]
		switch {
		case alpha[t] >= c:
			if y[t] < 0 {
				ub = min(ub, yg)
			} else {
				lb = max(lb, yg)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = min(ub, yg)
			} else {
				lb = max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	rho := (ub + lb) / 2
	if free > 0 {
		rho = sumFree / float64(free)
	}

	coef := make([]float64, n)
	for t := range coef {
		coef[t] = alpha[t] * y[t]
	}
	return binaryMachine{coef: coef, rho: rho}
}
