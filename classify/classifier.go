package classify

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/specimen/features/config"
)

// Model names
const (
	ModelRandomForest = "RandomForest"
	ModelSVM          = "SVM_RBF"
	ModelLogistic     = "LogisticRegression"
)

// AllModels lists the supported models in report order
var AllModels = []string{ModelRandomForest, ModelSVM, ModelLogistic}

// Classifier is a multiclass model over standardised features
type Classifier interface {
	Name() string

	// Fit trains on the rows of x. Labels lie in [0, classes).
	Fit(ctx context.Context, x *mat.Dense, labels []int, classes int) error

	// Scores returns one row per sample and one column per class; a larger
	// score means a more likely class
	Scores(x *mat.Dense) *mat.Dense
}

// ParseModel resolves a model name, ignoring case
func ParseModel(name string) (string, error) {
	for _, m := range AllModels {
		if strings.EqualFold(strings.TrimSpace(name), m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown model %q", name)
}

// ValidateModels checks every configured model name
func ValidateModels(names []string) error {
	for _, name := range names {
		if _, err := ParseModel(name); err != nil {
			return err
		}
	}
	return nil
}

// New creates the named model from the stage configuration
func New(name string, cfg *config.ClassificationConfig) (Classifier, error) {
	model, err := ParseModel(name)
	if err != nil {
		return nil, err
	}

	switch model {
	case ModelRandomForest:
		return NewRandomForest(cfg.Trees, cfg.Seed, cfg.Workers), nil
	case ModelSVM:
		return NewSVM(cfg.C, cfg.MaxIterations), nil
	default:
		return NewLogisticRegression(cfg.C, cfg.MaxIterations), nil
	}
}

// Predict returns the highest scoring class of every row. Ties go to the
// lower class index.
func Predict(scores *mat.Dense) []int {
	rows, _ := scores.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(scores.RawRowView(i))
	}
	return out
}
