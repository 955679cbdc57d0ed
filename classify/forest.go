package classify

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RandomForest is an ensemble of CART trees grown to purity on bootstrap
// samples. Each split considers sqrt(d) randomly chosen non-constant
// features and minimises the weighted Gini impurity. Class scores are the
// mean leaf class proportions over all trees.
type RandomForest struct {
	Trees   int
	Seed    uint64
	Workers int

	classes int
	forest  []*treeNode
}

// treeNode is a split, or a leaf when dist is set
type treeNode struct {
	feature     int
	threshold   float64
	left, right *treeNode
	dist        []float64
}

// NewRandomForest creates an untrained forest. Tree i draws from a
// generator seeded with (seed, i), so training is reproducible regardless
// of the number of workers.
func NewRandomForest(trees int, seed uint64, workers int) *RandomForest {
	return &RandomForest{Trees: trees, Seed: seed, Workers: max(workers, 1)}
}

// Name implements Classifier
func (f *RandomForest) Name() string {
	return ModelRandomForest
}

// Fit implements Classifier
func (f *RandomForest) Fit(ctx context.Context, x *mat.Dense, labels []int, classes int) error {
	n, d := x.Dims()
	if n != len(labels) {
		return fmt.Errorf("random forest: %d rows but %d labels", n, len(labels))
	}
	if f.Trees <= 0 {
		return fmt.Errorf("random forest: tree count must be positive, got %d", f.Trees)
	}
	f.classes = classes
	f.forest = make([]*treeNode, f.Trees)

	maxFeatures := max(int(math.Sqrt(float64(d))), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Workers)
	for t := range f.forest {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				x:           x,
				labels:      labels,
				classes:     classes,
				maxFeatures: maxFeatures,
				rng:         rand.New(rand.NewPCG(f.Seed, uint64(t))),
			}
			sample := make([]int, n)
			for i := range sample {
				sample[i] = b.rng.IntN(n)
			}
			f.forest[t] = b.grow(sample)
			return nil
		})
	}
	return g.Wait()
}

// Scores implements Classifier. Rows are class probabilities.
func (f *RandomForest) Scores(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	out := mat.NewDense(n, f.classes, nil)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		acc := out.RawRowView(i)
		for _, tree := range f.forest {
			floats.Add(acc, tree.leaf(row).dist)
		}
		floats.Scale(1/float64(len(f.forest)), acc)
	}
	return out
}

func (t *treeNode) leaf(row []float64) *treeNode {
	node := t
	for node.dist == nil {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node
}

type treeBuilder struct {
	x           *mat.Dense
	labels      []int
	classes     int
	maxFeatures int
	rng         *rand.Rand
}

func (b *treeBuilder) counts(idx []int) []float64 {
	counts := make([]float64, b.classes)
	for _, i := range idx {
		counts[b.labels[i]]++
	}
	return counts
}

func (b *treeBuilder) grow(idx []int) *treeNode {
	counts := b.counts(idx)
	if len(idx) < 2 || floats.Max(counts) == float64(len(idx)) {
		return leafNode(counts)
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return leafNode(counts)
	}

	var left, right []int
	for _, i := range idx {
		if b.x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left),
		right:     b.grow(right),
	}
}

func leafNode(counts []float64) *treeNode {
	dist := append([]float64(nil), counts...)
	floats.Scale(1/floats.Sum(dist), dist)
	return &treeNode{dist: dist}
}

// bestSplit scans features in random order until maxFeatures non-constant
// ones have been tried
func (b *treeBuilder) bestSplit(idx []int, total []float64) (feature int, threshold float64, ok bool) {
	_, d := b.x.Dims()
	n := float64(len(idx))
	best := math.Inf(1)

	sorted := append([]int(nil), idx...)
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)

	tried := 0
	for _, j := range b.rng.Perm(d) {
		if tried >= b.maxFeatures {
			break
		}
		sort.SliceStable(sorted, func(p, q int) bool {
			return b.x.At(sorted[p], j) < b.x.At(sorted[q], j)
		})
		lo, hi := b.x.At(sorted[0], j), b.x.At(sorted[len(sorted)-1], j)
		if lo == hi {
			continue
		}
		tried++

		for c := range left {
			left[c], right[c] = 0, total[c]
		}
		for p := 1; p < len(sorted); p++ {
			label := b.labels[sorted[p-1]]
			left[label]++
			right[label]--

			prev, next := b.x.At(sorted[p-1], j), b.x.At(sorted[p], j)
			if prev == next {
				continue
			}
			nl := float64(p)
			impurity := nl*gini(left, nl) + (n-nl)*gini(right, n-nl)
			if impurity < best {
				best = impurity
				feature = j
				threshold = prev + (next-prev)/2
				if threshold >= next {
					threshold = prev
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// gini returns the Gini impurity of class counts summing to n
func gini(counts []float64, n float64) float64 {
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}
